package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/eligibility/internal/pipeline"
)

// NewRouter builds the HTTP surface: run control under /api/v1, liveness
// and Prometheus metrics at the root.
func NewRouter(svc *pipeline.Service) *gin.Engine {
	router := gin.Default()

	v1 := router.Group("/api/v1")
	{
		runRoutes := v1.Group("/runs")
		{
			runRoutes.POST("", triggerRunHandler(svc))
			runRoutes.GET("", listRunsHandler(svc))
			runRoutes.GET("/:run_id", getRunHandler(svc))
			runRoutes.GET("/:run_id/verify", verifyRunHandler(svc))
		}
	}

	router.GET("/healthz", healthzHandler())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
