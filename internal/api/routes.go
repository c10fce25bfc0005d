package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.GET("/venues", handler.GetVenues)
		api.GET("/products", handler.GetProducts)
		api.GET("/status", handler.GetStatus)
		api.GET("/market-analysis", handler.GetMarketAnalysis)
		api.GET("/benchmarks", handler.GetBenchmarks)
		api.POST("/recommendations", handler.GetRecommendation)
		api.POST("/bulk-recommendations", handler.GetBulkRecommendations)
		api.POST("/demand-prediction", handler.GetDemandPrediction)
		api.POST("/records", handler.IngestRecords)
		api.POST("/recompute", handler.Recompute)
	}
}
