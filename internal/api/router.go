// Package api exposes the gallery HTTP surface: recent transactions, manual
// generate/regenerate/evolve actions, and the webhook ingest endpoint.
package api

import (
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with all routes registered.
func NewRouter(h *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", h.Health)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/recent-transactions", h.RecentTransactions)
		apiGroup.POST("/generate-image", h.GenerateImage)
		apiGroup.POST("/regenerate-image/:transactionId", h.RegenerateImage)
		apiGroup.POST("/update-metadata/:transactionId", h.UpdateMetadata)
		apiGroup.POST("/webhook", h.Webhook)
	}

	return router
}
