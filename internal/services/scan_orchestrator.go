package services

import (
	"context"
	"time"

	"resvalidator/internal/client"
	"resvalidator/internal/models"
	apperrors "resvalidator/pkg/errors"
	"resvalidator/pkg/logger"
	"resvalidator/pkg/validator"
)

const DefaultMaxLines = 50

// ProgressFunc is called after every target attempt with the 1-based count
// of attempts so far and the batch size.
type ProgressFunc func(done, total int)

// TargetOutcome records what happened to one line of a batch.
type TargetOutcome struct {
	Position int    `json:"position"`
	Target   string `json:"target"`
	Results  int    `json:"results"`
	Error    string `json:"error,omitempty"`
}

func (o TargetOutcome) Failed() bool {
	return o.Error != ""
}

// Batch is the outcome of one orchestrated scan.
type Batch struct {
	Input     string              `json:"input"`
	Targets   []string            `json:"targets"`
	Results   []models.ScanResult `json:"results"`
	Outcomes  []TargetOutcome     `json:"outcomes"`
	StartedAt time.Time           `json:"started_at"`
	Duration  time.Duration       `json:"duration"`
	Cancelled bool                `json:"cancelled,omitempty"`
}

func (b *Batch) Failed() int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}

type ScanOrchestratorMethods interface {
	Prepare(raw string, privileged bool) ([]string, error)
	Run(ctx context.Context, raw string, privileged bool, onProgress ProgressFunc) (*Batch, error)
	Execute(ctx context.Context, raw string, targets []string, onProgress ProgressFunc) *Batch
	AuditPrefix(ctx context.Context, prefix string, privileged bool) (*Batch, error)
}

type ScanOrchestrator struct {
	audit    client.AuditService
	history  *HistoryStore
	maxLines int
	logger   *logger.Logger
}

func NewScanOrchestrator(audit client.AuditService, history *HistoryStore, maxLines int, log *logger.Logger) *ScanOrchestrator {
	if maxLines < 1 || maxLines > DefaultMaxLines {
		maxLines = DefaultMaxLines
	}
	return &ScanOrchestrator{
		audit:    audit,
		history:  history,
		maxLines: maxLines,
		logger:   log,
	}
}

func (o *ScanOrchestrator) MaxLines() int {
	return o.maxLines
}

// Prepare splits raw input into targets and applies the batch rules. No
// network call is made for a rejected batch.
func (o *ScanOrchestrator) Prepare(raw string, privileged bool) ([]string, error) {
	lines := validator.SplitLines(raw)
	if len(lines) == 0 {
		return nil, apperrors.ErrEmptyInput
	}
	if !privileged && len(lines) > 1 {
		return nil, apperrors.ErrRestrictedBatch
	}
	if len(lines) > o.maxLines {
		return nil, &apperrors.TooManyLinesError{Count: len(lines), Max: o.maxLines}
	}
	for i, line := range lines {
		if !validator.Validate(line, validator.ModeIP) {
			return nil, apperrors.NewLineError(i+1, line)
		}
	}
	return lines, nil
}

// Run validates raw and, when accepted, scans every line in order.
func (o *ScanOrchestrator) Run(ctx context.Context, raw string, privileged bool, onProgress ProgressFunc) (*Batch, error) {
	targets, err := o.Prepare(raw, privileged)
	if err != nil {
		o.logger.WithFields(logger.Fields{"error": err, "privileged": privileged}).Warn("Batch rejected")
		return nil, err
	}
	return o.Execute(ctx, raw, targets, onProgress), nil
}

// Execute submits already prepared targets one at a time. A failing target is
// logged and skipped. The batch is recorded in history unless ctx was
// cancelled before every target was attempted.
func (o *ScanOrchestrator) Execute(ctx context.Context, raw string, targets []string, onProgress ProgressFunc) *Batch {
	batch := &Batch{
		Input:     raw,
		Targets:   targets,
		Results:   []models.ScanResult{},
		Outcomes:  make([]TargetOutcome, 0, len(targets)),
		StartedAt: time.Now(),
	}
	total := len(targets)
	log := o.logger.WithContext(ctx)
	log.WithFields(map[string]interface{}{"targets": total}).Info("Batch started")

	for i, target := range targets {
		if ctx.Err() != nil {
			break
		}

		outcome := TargetOutcome{Position: i + 1, Target: target}
		results, err := o.audit.Scan(ctx, target)
		if err != nil && ctx.Err() != nil {
			break
		}
		if err != nil {
			outcome.Error = err.Error()
			o.logger.WithTarget(target, i+1).WithError(err).Warn("Target failed, skipping")
		} else {
			outcome.Results = len(results)
			batch.Results = append(batch.Results, results...)
			o.logger.WithTarget(target, i+1).WithField("results", len(results)).Debug("Target scanned")
		}
		batch.Outcomes = append(batch.Outcomes, outcome)

		if onProgress != nil {
			onProgress(i+1, total)
		}
	}
	batch.Cancelled = len(batch.Outcomes) < total
	batch.Duration = time.Since(batch.StartedAt)

	fields := map[string]interface{}{
		"targets":  total,
		"results":  len(batch.Results),
		"failed":   batch.Failed(),
		"duration": batch.Duration.String(),
	}
	if batch.Cancelled {
		log.WithFields(fields).Warn("Batch cancelled, not recorded in history")
		return batch
	}

	if o.history != nil {
		entry := o.history.NewEntry(validator.ModeIP, raw, batch.Results, nil)
		if err := o.history.Append(entry); err != nil {
			log.WithError(err).Error("Failed to record batch in history")
		}
	}
	log.WithFields(fields).Info("Batch finished")
	return batch
}

// AuditPrefix runs a single-target batch for one announced prefix.
func (o *ScanOrchestrator) AuditPrefix(ctx context.Context, prefix string, privileged bool) (*Batch, error) {
	return o.Run(ctx, prefix, privileged, nil)
}
