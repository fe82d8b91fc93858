package handlers

import (
	"net/http"
	"strconv"

	"resvalidator/internal/services"
	"resvalidator/pkg/logger"

	"github.com/gin-gonic/gin"
)

type HistoryHandler struct {
	dashboard services.DashboardMethods
	logger    *logger.Logger
}

func NewHistoryHandler(dashboard services.DashboardMethods, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{dashboard: dashboard, logger: log}
}

func (h *HistoryHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboard.History())
}

func (h *HistoryHandler) Clear(c *gin.Context) {
	if err := h.dashboard.ClearHistory(); err != nil {
		h.logger.WithError(err).Error("Failed to clear history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear history"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HistoryHandler) Restore(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid history id"})
		return
	}

	state, err := h.dashboard.Restore(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}
