package services

import (
	"fmt"
	"sync"
	"time"

	"resvalidator/internal/dao"
	"resvalidator/internal/models"
	apperrors "resvalidator/pkg/errors"
	"resvalidator/pkg/logger"
	"resvalidator/pkg/validator"

	"github.com/goccy/go-json"
)

const DefaultHistoryLimit = 5

// HistoryStore keeps the most recent scans, newest first, persisted under a
// single state key on every change.
type HistoryStore struct {
	dao    dao.StateDAO
	limit  int
	logger *logger.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries []models.HistoryEntry
}

func NewHistoryStore(stateDAO dao.StateDAO, limit int, log *logger.Logger) *HistoryStore {
	if limit < 1 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	h := &HistoryStore{
		dao:    stateDAO,
		limit:  limit,
		logger: log,
		now:    time.Now,
	}
	h.Reload()
	return h
}

// Reload replaces the in-memory list with the persisted copy. Unreadable
// history is logged and treated as empty.
func (h *HistoryStore) Reload() {
	entries, err := h.load()
	if err != nil {
		h.logger.WithFields(logger.Fields{"error": err}).Warn("Failed to load scan history, starting empty")
		entries = nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = entries
}

func (h *HistoryStore) load() ([]models.HistoryEntry, error) {
	raw, ok, err := h.dao.Get(models.KeyHistory)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var entries []models.HistoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if len(entries) > h.limit {
		entries = entries[:h.limit]
	}
	return entries, nil
}

// NewEntry builds an entry stamped with the current time.
func (h *HistoryStore) NewEntry(mode validator.Mode, input string, ipData []models.ScanResult, asnData *models.AsnSummary) models.HistoryEntry {
	now := h.now()
	return models.HistoryEntry{
		ID:      now.UnixMilli(),
		Date:    now.Format("15:04"),
		Mode:    mode,
		Input:   input,
		IPData:  ipData,
		ASNData: asnData,
	}
}

// Append prepends entry, evicts anything past the limit and persists the
// result before returning.
func (h *HistoryStore) Append(entry models.HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	// IDs are timestamps; keep them unique when two scans finish in the same millisecond.
	if len(h.entries) > 0 && entry.ID <= h.entries[0].ID {
		entry.ID = h.entries[0].ID + 1
	}

	next := make([]models.HistoryEntry, 0, h.limit)
	next = append(next, entry)
	next = append(next, h.entries...)
	if len(next) > h.limit {
		next = next[:h.limit]
	}
	h.entries = next

	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := h.dao.Set(models.KeyHistory, string(raw)); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}

// Clear empties the list and removes the persisted copy.
func (h *HistoryStore) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = nil
	if err := h.dao.Delete(models.KeyHistory); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}

// List returns a copy of the entries, most recent first.
func (h *HistoryStore) List() []models.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]models.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *HistoryStore) Get(id int64) (models.HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range h.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return models.HistoryEntry{}, fmt.Errorf("history %d: %w", id, apperrors.ErrHistoryNotFound)
}

// Latest returns the most recent entry of the given mode.
func (h *HistoryStore) Latest(mode validator.Mode) (models.HistoryEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range h.entries {
		if e.Mode == mode {
			return e, true
		}
	}
	return models.HistoryEntry{}, false
}
