package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ansard/weddingbook/internal/auth"
	"github.com/ansard/weddingbook/internal/config"
	"github.com/ansard/weddingbook/internal/guest"
)

// routerUnderTest wires the router with just enough dependencies to exercise
// routing and middleware; repositories never see traffic because unauthorized
// requests are rejected first.
func routerUnderTest() *gin.Engine {
	gin.SetMode(gin.TestMode)

	authService := auth.NewService(nil, config.AuthConfig{
		JWTSecret:  "router-test-secret",
		TokenTTL:   time.Hour,
		BcryptCost: 4,
	})

	return NewRouter(Dependencies{
		Config: config.Config{
			Metrics: config.MetricsConfig{PrometheusPath: "/metrics"},
		},
		AuthService: authService,
		GuestRepo:   guest.NewRepository(nil),
	})
}

func TestRootReportsRunning(t *testing.T) {
	router := routerUnderTest()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "Wedding backend running" {
		t.Fatalf("unexpected body: %q", got)
	}
}

func TestLivenessEndpoint(t *testing.T) {
	router := routerUnderTest()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	router := routerUnderTest()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGuestRoutesRequireAuthentication(t *testing.T) {
	router := routerUnderTest()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/guests", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestUnknownOriginRejected(t *testing.T) {
	router := routerUnderTest()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
