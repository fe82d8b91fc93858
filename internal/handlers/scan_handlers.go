package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"resvalidator/internal/report"
	"resvalidator/internal/services"
	apperrors "resvalidator/pkg/errors"
	"resvalidator/pkg/logger"
	"resvalidator/pkg/validator"

	"github.com/gin-gonic/gin"
)

type ScanHandler struct {
	dashboard services.DashboardMethods
	session   services.SessionMethods
	logger    *logger.Logger
}

func NewScanHandler(dashboard services.DashboardMethods, session services.SessionMethods, log *logger.Logger) *ScanHandler {
	return &ScanHandler{dashboard: dashboard, session: session, logger: log}
}

func (h *ScanHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboard.Snapshot())
}

// SetMode switches the display between IP and ASN input. Anything other
// than "asn" selects IP mode.
func (h *ScanHandler) SetMode(c *gin.Context) {
	var req ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	h.dashboard.SetMode(validator.ParseMode(req.Mode))
	c.JSON(http.StatusOK, h.dashboard.Snapshot())
}

func (h *ScanHandler) StartScan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithFields(logger.Fields{"error": err}).Warn("Failed to bind scan request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	started, err := h.dashboard.StartIP(req.RawText)
	if err != nil {
		h.logger.WithFields(logger.Fields{"error": err}).Info("Scan not started")
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, started)
}

func (h *ScanHandler) StartAudit(c *gin.Context) {
	var req AuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	started, err := h.dashboard.StartAudit(req.Prefix)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, started)
}

func (h *ScanHandler) ExpandASN(c *gin.Context) {
	var req ASNRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	summary, err := h.dashboard.SubmitASN(c.Request.Context(), req.ASN)
	if err != nil {
		h.logger.WithFields(logger.Fields{"asn": req.ASN, "error": err}).Warn("ASN lookup failed")
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Export downloads the displayed results as CSV.
func (h *ScanHandler) Export(c *gin.Context) {
	if !h.session.IsPrivileged() {
		abortWithError(c, apperrors.ErrNotPrivileged)
		return
	}

	state := h.dashboard.Snapshot()
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, state.Results); err != nil {
		h.logger.WithError(err).Error("Failed to render CSV export")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export results"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.Filename(time.Now())))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
