package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"resvalidator/internal/client"
	"resvalidator/internal/models"
	apperrors "resvalidator/pkg/errors"
	"resvalidator/pkg/logger"
	"resvalidator/pkg/validator"
)

type ASNExpanderMethods interface {
	Expand(ctx context.Context, asn string) (*models.AsnSummary, error)
	Current() *models.AsnSummary
	PrefixTargets() []string
}

// ASNExpander resolves an ASN into its announced prefixes and keeps the last
// successful summary.
type ASNExpander struct {
	audit   client.AuditService
	history *HistoryStore
	logger  *logger.Logger

	mu      sync.RWMutex
	current *models.AsnSummary
}

func NewASNExpander(audit client.AuditService, history *HistoryStore, log *logger.Logger) *ASNExpander {
	return &ASNExpander{
		audit:   audit,
		history: history,
		logger:  log,
	}
}

// Expand looks up asn. On failure the current summary is left as it was.
func (e *ASNExpander) Expand(ctx context.Context, asn string) (*models.AsnSummary, error) {
	asn = strings.TrimSpace(asn)
	if !validator.Validate(asn, validator.ModeASN) {
		return nil, fmt.Errorf("%q: %w", asn, apperrors.ErrInvalidASN)
	}

	var summary *models.AsnSummary
	err := e.logger.LogStep("asn_expand", func() error {
		var err error
		summary, err = e.audit.ExpandASN(ctx, asn)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.current = summary
	e.mu.Unlock()

	e.logger.WithFields(logger.Fields{
		"asn":      summary.ASN,
		"holder":   summary.Holder,
		"total_v4": summary.TotalV4,
		"total_v6": summary.TotalV6,
	}).Info("ASN expanded")

	if e.history != nil {
		entry := e.history.NewEntry(validator.ModeASN, asn, nil, summary)
		if err := e.history.Append(entry); err != nil {
			e.logger.WithError(err).Error("Failed to record ASN lookup in history")
		}
	}
	return summary, nil
}

func (e *ASNExpander) Current() *models.AsnSummary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// Set replaces the current summary, e.g. when a history entry is restored.
func (e *ASNExpander) Set(summary *models.AsnSummary) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = summary
}

func (e *ASNExpander) Clear() {
	e.Set(nil)
}

// PrefixTargets returns the current summary's IPv4 prefixes followed by its
// IPv6 prefixes.
func (e *ASNExpander) PrefixTargets() []string {
	return e.Current().Prefixes()
}
