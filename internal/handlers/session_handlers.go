package handlers

import (
	"net/http"

	"resvalidator/internal/services"
	"resvalidator/pkg/logger"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	session services.SessionMethods
	logger  *logger.Logger
}

func NewSessionHandler(session services.SessionMethods, log *logger.Logger) *SessionHandler {
	return &SessionHandler{session: session, logger: log}
}

const priorSessionStateKey = "session_state_before_touch"

// Touch marks every request as user activity. The state seen before the
// touch is kept on the request so an idle expiry is still reported once.
func (h *SessionHandler) Touch() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(priorSessionStateKey, h.session.State())
		h.session.Touch()
		c.Next()
	}
}

func (h *SessionHandler) Get(c *gin.Context) {
	resp := h.response()
	if prior, ok := c.Get(priorSessionStateKey); ok && prior == services.SessionExpired {
		resp = SessionResponse{State: services.SessionExpired, Privileged: false}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	if err := h.session.Login(req.Password); err != nil {
		h.logger.WithFields(logger.Fields{"client_ip": c.ClientIP()}).Warn("Login failed")
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.response())
}

func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.session.Logout(); err != nil {
		h.logger.WithError(err).Error("Logout failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log out"})
		return
	}
	c.JSON(http.StatusOK, h.response())
}

func (h *SessionHandler) response() SessionResponse {
	return SessionResponse{
		State:      h.session.State(),
		Privileged: h.session.IsPrivileged(),
	}
}
