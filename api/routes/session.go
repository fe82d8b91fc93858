package routes

import (
	"resvalidator/internal/handlers"

	"github.com/gin-gonic/gin"
)

func InitSessionRoutes(router *gin.RouterGroup, handlers *handlers.SessionHandler) {
	sessionRoutes := router.Group("/session")
	{
		sessionRoutes.GET("", handlers.Get)
		sessionRoutes.POST("/login", handlers.Login)
		sessionRoutes.POST("/logout", handlers.Logout)
	}
}
