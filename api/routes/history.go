package routes

import (
	"resvalidator/internal/handlers"

	"github.com/gin-gonic/gin"
)

func InitHistoryRoutes(router *gin.RouterGroup, deps Deps) {
	handlers := handlers.NewHistoryHandler(deps.Dashboard, deps.Logger)

	historyRoutes := router.Group("/history")
	{
		historyRoutes.GET("", handlers.List)
		historyRoutes.DELETE("", handlers.Clear)
		historyRoutes.POST("/:id/restore", handlers.Restore)
	}
}
