package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// UploadsTotal counts stored media objects.
	UploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weddingbook_uploads_total",
		Help: "Number of media objects accepted by the upload endpoint.",
	})

	// DerivationsTotal counts preview derivation attempts by outcome.
	DerivationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weddingbook_derivations_total",
		Help: "Number of preview derivation attempts by result.",
	}, []string{"result"})
)

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}
