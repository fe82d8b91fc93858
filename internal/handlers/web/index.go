package web

import (
	"net/http"

	"resvalidator/internal/services"
	"resvalidator/pkg/logger"
	"resvalidator/templates"

	"github.com/gin-gonic/gin"
)

type IndexHandler struct {
	dashboard services.DashboardMethods
	session   services.SessionMethods
	logger    *logger.Logger
}

func NewIndexHandler(dashboard services.DashboardMethods, session services.SessionMethods, log *logger.Logger) *IndexHandler {
	return &IndexHandler{
		dashboard: dashboard,
		session:   session,
		logger:    log,
	}
}

func (h *IndexHandler) HomePage(c *gin.Context) {
	data := templates.PageData{
		State:      h.dashboard.Snapshot(),
		History:    h.dashboard.History(),
		Privileged: h.session.IsPrivileged(),
	}
	h.logger.WithFields(logger.Fields{"results": len(data.State.Results)}).Debug("Rendering report page")

	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := templates.ReportPage(data).Render(c, c.Writer); err != nil {
		h.logger.WithError(err).Error("Failed to render report page")
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusOK)
}
