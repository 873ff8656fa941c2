package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(handler *Handler, authMiddleware gin.HandlerFunc, env string) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	registerValidations()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"*"},
		ExposeHeaders:   []string{"Content-Type"},
		MaxAge:          12 * time.Hour,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	protected := router.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.GET("/violations", handler.listViolations)
		protected.POST("/violations", handler.createViolation)
		protected.GET("/violations/:id", handler.getViolation)
		protected.PUT("/violations/:id", handler.updateViolation)
		protected.DELETE("/violations/:id", handler.deleteViolation)

		protected.POST("/violations/:id/approve-walikelas", handler.approveWaliKelas)
		protected.POST("/violations/:id/approve-bk", handler.approveBK)
		protected.POST("/violations/:id/reject", handler.rejectViolation)
		protected.POST("/violations/:id/appeal", handler.submitAppeal)
		protected.POST("/violations/:id/appeal/review", handler.reviewAppeal)

		protected.GET("/violation-stats/summary", handler.statsSummary)
		protected.GET("/violation-stats/repeat-offenders", handler.repeatOffenders)

		protected.POST("/internal/violations/trigger-auto", handler.triggerAuto)
	}

	return router
}
