package routes

import (
	"resvalidator/internal/handlers"
	"resvalidator/internal/handlers/web"
	"resvalidator/internal/services"
	"resvalidator/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Deps are the long-lived services the HTTP surface sits on.
type Deps struct {
	Dashboard services.DashboardMethods
	Session   services.SessionMethods
	Logger    *logger.Logger
}

func InitRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(deps.Logger))

	sessionHandlers := handlers.NewSessionHandler(deps.Session, deps.Logger)
	router.Use(sessionHandlers.Touch())

	indexHandler := web.NewIndexHandler(deps.Dashboard, deps.Session, deps.Logger)

	// REST APIs
	api := router.Group("/api/v1")
	{
		InitScanRoutes(api, deps)
		InitHistoryRoutes(api, deps)
		InitSessionRoutes(api, sessionHandlers)
	}

	// web pages
	router.GET("/", indexHandler.HomePage)

	return router
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.WithFields(logger.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		}).Debug("Request handled")
	}
}
