package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"resvalidator/internal/models"
	"resvalidator/internal/notification"
	apperrors "resvalidator/pkg/errors"
	"resvalidator/pkg/logger"
	"resvalidator/pkg/validator"

	"github.com/google/uuid"
)

type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// DisplayState is what a presentation layer renders.
type DisplayState struct {
	Mode     validator.Mode      `json:"mode"`
	Input    string              `json:"input"`
	Results  []models.ScanResult `json:"results"`
	ASNData  *models.AsnSummary  `json:"asn_data,omitempty"`
	Loading  bool                `json:"loading"`
	Progress Progress            `json:"progress"`
	BatchID  string              `json:"batch_id,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// StartedBatch identifies a batch running in the background.
type StartedBatch struct {
	BatchID string `json:"batch_id"`
	Total   int    `json:"total"`
}

type DashboardMethods interface {
	StartIP(raw string) (*StartedBatch, error)
	StartAudit(prefix string) (*StartedBatch, error)
	SubmitASN(ctx context.Context, asn string) (*models.AsnSummary, error)
	Restore(id int64) (DisplayState, error)
	SetMode(mode validator.Mode)
	Snapshot() DisplayState
	History() []models.HistoryEntry
	ClearHistory() error
}

// Dashboard owns the display state and allows one batch or lookup at a time.
type Dashboard struct {
	orchestrator *ScanOrchestrator
	expander     *ASNExpander
	history      *HistoryStore
	session      SessionMethods
	notifier     notification.Notifier
	logger       *logger.Logger

	// single slot; a full channel means a batch is running
	slot chan struct{}
	wg   sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.RWMutex
	state DisplayState
}

func NewDashboard(orchestrator *ScanOrchestrator, expander *ASNExpander, history *HistoryStore, session SessionMethods, notifier notification.Notifier, log *logger.Logger) *Dashboard {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dashboard{
		orchestrator: orchestrator,
		expander:     expander,
		history:      history,
		session:      session,
		notifier:     notifier,
		logger:       log,
		slot:         make(chan struct{}, 1),
		ctx:          ctx,
		cancel:       cancel,
		state: DisplayState{
			Mode:    validator.ModeIP,
			Results: []models.ScanResult{},
		},
	}
}

func (d *Dashboard) acquire() bool {
	select {
	case d.slot <- struct{}{}:
		return true
	default:
		return false
	}
}

func (d *Dashboard) release() {
	<-d.slot
}

// SubmitIP runs an IP batch and blocks until it finishes.
func (d *Dashboard) SubmitIP(ctx context.Context, raw string, onProgress ProgressFunc) (*Batch, error) {
	if !d.acquire() {
		return nil, apperrors.ErrScanInProgress
	}
	defer d.release()

	targets, err := d.prepare(raw)
	if err != nil {
		return nil, err
	}
	batchID := d.begin(raw, len(targets), true)
	return d.execute(ctx, batchID, raw, targets, onProgress), nil
}

// StartIP validates raw synchronously and runs the batch in the background.
func (d *Dashboard) StartIP(raw string) (*StartedBatch, error) {
	return d.start(raw, true)
}

// StartAudit runs a one-line batch for a prefix taken from the ASN summary,
// keeping that summary on display.
func (d *Dashboard) StartAudit(prefix string) (*StartedBatch, error) {
	return d.start(prefix, false)
}

func (d *Dashboard) start(raw string, clearSummary bool) (*StartedBatch, error) {
	if !d.acquire() {
		return nil, apperrors.ErrScanInProgress
	}

	targets, err := d.prepare(raw)
	if err != nil {
		d.release()
		return nil, err
	}
	batchID := d.begin(raw, len(targets), clearSummary)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.release()
		defer func() {
			if r := recover(); r != nil {
				d.logger.WithFields(logger.Fields{"batch_id": batchID, "panic": r}).Error("Panic in background batch")
				d.finish(nil, fmt.Sprintf("internal error: %v", r))
			}
		}()
		d.execute(d.ctx, batchID, raw, targets, nil)
	}()

	return &StartedBatch{BatchID: batchID, Total: len(targets)}, nil
}

func (d *Dashboard) prepare(raw string) ([]string, error) {
	targets, err := d.orchestrator.Prepare(raw, d.session.IsPrivileged())
	if err != nil {
		d.mu.Lock()
		d.state.Error = err.Error()
		d.mu.Unlock()
		return nil, err
	}
	return targets, nil
}

func (d *Dashboard) begin(raw string, total int, clearSummary bool) string {
	batchID := uuid.New().String()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Mode = validator.ModeIP
	d.state.Input = raw
	d.state.Results = []models.ScanResult{}
	if clearSummary {
		d.state.ASNData = nil
		d.expander.Clear()
	}
	d.state.Loading = true
	d.state.Progress = Progress{Done: 0, Total: total}
	d.state.BatchID = batchID
	d.state.Error = ""
	return batchID
}

func (d *Dashboard) execute(ctx context.Context, batchID, raw string, targets []string, onProgress ProgressFunc) *Batch {
	ctx = context.WithValue(ctx, logger.BatchIDKey, batchID)

	progress := func(done, total int) {
		d.mu.Lock()
		d.state.Progress = Progress{Done: done, Total: total}
		d.mu.Unlock()
		if onProgress != nil {
			onProgress(done, total)
		}
	}

	batch := d.orchestrator.Execute(ctx, raw, targets, progress)
	d.finish(batch, "")
	d.notifyBatch(batchID, batch)
	return batch
}

func (d *Dashboard) finish(batch *Batch, errMsg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if batch != nil {
		d.state.Results = batch.Results
	}
	d.state.Loading = false
	d.state.Error = errMsg
}

func (d *Dashboard) notifyBatch(batchID string, batch *Batch) {
	if d.notifier == nil || batch == nil {
		return
	}
	severity := "low"
	if batch.Failed() > 0 || batch.Cancelled {
		severity = "medium"
	}
	msg := notification.Message{
		Title:       "Audit batch finished",
		Description: fmt.Sprintf("%d of %d targets answered, %d records.", len(batch.Outcomes)-batch.Failed(), len(batch.Targets), len(batch.Results)),
		Severity:    severity,
		Fields: map[string]string{
			"batch_id":  batchID,
			"duration":  batch.Duration.Round(time.Millisecond).String(),
			"cancelled": fmt.Sprintf("%t", batch.Cancelled),
		},
		Timestamp: time.Now(),
	}
	if err := d.notifier.Send(msg); err != nil {
		d.logger.WithError(err).Warn("Failed to send batch notification")
	}
}

// SubmitASN expands asn. The previous summary stays on display when the
// lookup fails.
func (d *Dashboard) SubmitASN(ctx context.Context, asn string) (*models.AsnSummary, error) {
	if !d.acquire() {
		return nil, apperrors.ErrScanInProgress
	}
	defer d.release()

	d.mu.Lock()
	d.state.Mode = validator.ModeASN
	d.state.Input = asn
	d.state.Loading = true
	d.state.Error = ""
	d.mu.Unlock()

	summary, err := d.expander.Expand(ctx, asn)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Loading = false
	if err != nil {
		d.state.Error = err.Error()
		return nil, err
	}
	d.state.Results = []models.ScanResult{}
	d.state.ASNData = summary
	return summary, nil
}

// Restore puts a history entry back on display without contacting the
// backend.
func (d *Dashboard) Restore(id int64) (DisplayState, error) {
	entry, err := d.history.Get(id)
	if err != nil {
		return DisplayState{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Loading {
		return DisplayState{}, apperrors.ErrScanInProgress
	}

	d.state.Mode = entry.Mode
	d.state.Input = entry.Input
	d.state.Error = ""
	d.state.BatchID = ""
	d.state.Progress = Progress{}
	if entry.Mode == validator.ModeASN {
		d.state.ASNData = entry.ASNData
		d.state.Results = []models.ScanResult{}
	} else {
		d.state.ASNData = nil
		d.state.Results = append([]models.ScanResult{}, entry.IPData...)
	}
	d.expander.Set(d.state.ASNData)
	return d.copyLocked(), nil
}

func (d *Dashboard) SetMode(mode validator.Mode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Mode != mode {
		d.state.Mode = mode
		d.state.Error = ""
	}
}

func (d *Dashboard) Snapshot() DisplayState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.copyLocked()
}

func (d *Dashboard) copyLocked() DisplayState {
	s := d.state
	s.Results = append([]models.ScanResult{}, d.state.Results...)
	return s
}

func (d *Dashboard) History() []models.HistoryEntry {
	return d.history.List()
}

func (d *Dashboard) ClearHistory() error {
	return d.history.Clear()
}

// Wait blocks until background batches have finished.
func (d *Dashboard) Wait() {
	d.wg.Wait()
}

// Close cancels any background batch and waits for it.
func (d *Dashboard) Close() {
	d.cancel()
	d.wg.Wait()
}
