package routes

import (
	"resvalidator/internal/handlers"

	"github.com/gin-gonic/gin"
)

func InitScanRoutes(router *gin.RouterGroup, deps Deps) {
	handlers := handlers.NewScanHandler(deps.Dashboard, deps.Session, deps.Logger)

	router.GET("/state", handlers.GetState)
	router.PUT("/mode", handlers.SetMode)
	router.POST("/asn", handlers.ExpandASN)
	router.GET("/export", handlers.Export)

	scanRoutes := router.Group("/scans")
	{
		scanRoutes.POST("", handlers.StartScan)
		scanRoutes.POST("/audit", handlers.StartAudit)
	}
}
