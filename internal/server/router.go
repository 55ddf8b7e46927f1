package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"

	"github.com/ansard/weddingbook/internal/auth"
	"github.com/ansard/weddingbook/internal/config"
	"github.com/ansard/weddingbook/internal/guest"
	"github.com/ansard/weddingbook/internal/media"
	"github.com/ansard/weddingbook/internal/metrics"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config       config.Config
	DB           *pgxpool.Pool
	ObjectStore  *minio.Client
	AuthService  *auth.Service
	GuestRepo    *guest.Repository
	MediaHandler *media.Handler
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(corsMiddleware(deps.Config.CORS.ExtraOrigins))

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Wedding backend running")
	})

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	authMW := auth.Middleware(deps.AuthService)

	auth.RegisterRoutes(router, deps.AuthService)

	if deps.GuestRepo != nil {
		protected := router.Group("/")
		protected.Use(authMW)
		guest.RegisterRoutes(protected, deps.GuestRepo)
	}

	if deps.MediaHandler != nil {
		deps.MediaHandler.RegisterRoutes(router, authMW)
	}

	return router
}
