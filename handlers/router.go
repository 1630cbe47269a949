package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Anzil-km/attention-nudge/middleware"
	"github.com/Anzil-km/attention-nudge/utils"
)

// NewRouter wires the middleware chain and every route. Coordination routes
// live under basePath.
func NewRouter(basePath string, handler *CoordinationHandler, logger *utils.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS())

	router.GET("/health", HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	push := router.Group(basePath)
	{
		push.POST("/update-status", handler.UpdateStatus)
		push.GET("/get-status", handler.GetStatus)
		push.POST("/register", handler.Register)
		push.POST("/nudge", handler.Nudge)
		push.GET("/vapid-public-key", handler.VAPIDPublicKey)
		push.GET("/watch", handler.Watch)
	}

	return router
}
