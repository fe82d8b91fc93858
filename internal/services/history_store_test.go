package services

import (
	"errors"
	"testing"
	"time"

	"resvalidator/internal/models"
	apperrors "resvalidator/pkg/errors"
	"resvalidator/pkg/logger"
	"resvalidator/pkg/testutil"
	"resvalidator/pkg/validator"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryStore_AppendCapsAtLimit(t *testing.T) {
	state := testutil.NewMemoryState()
	h := NewHistoryStore(state, 5, logger.NewDiscardLogger())

	for i := 1; i <= 6; i++ {
		e := models.HistoryEntry{ID: int64(i), Mode: validator.ModeIP, Input: string(rune('a' + i - 1))}
		require.NoError(t, h.Append(e))
	}

	entries := h.List()
	require.Len(t, entries, 5)
	assert.Equal(t, "f", entries[0].Input)
	assert.Equal(t, "b", entries[4].Input)
	for _, e := range entries {
		assert.NotEqual(t, "a", e.Input, "oldest entry should be evicted")
	}

	raw, ok, err := state.Get(models.KeyHistory)
	require.NoError(t, err)
	require.True(t, ok)
	var persisted []models.HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.Equal(t, entries, persisted)
}

func TestHistoryStore_LimitNeverExceedsFive(t *testing.T) {
	h := NewHistoryStore(testutil.NewMemoryState(), 20, logger.NewDiscardLogger())

	for i := 1; i <= 8; i++ {
		require.NoError(t, h.Append(models.HistoryEntry{ID: int64(i), Mode: validator.ModeIP, Input: "1.1.1.1"}))
	}
	assert.Len(t, h.List(), DefaultHistoryLimit)
}

func TestHistoryStore_UniqueIDs(t *testing.T) {
	h := NewHistoryStore(testutil.NewMemoryState(), 5, logger.NewDiscardLogger())
	fixed := time.Date(2026, 3, 1, 9, 5, 0, 0, time.Local)
	h.now = func() time.Time { return fixed }

	first := h.NewEntry(validator.ModeIP, "1.1.1.1", nil, nil)
	second := h.NewEntry(validator.ModeIP, "8.8.8.8", nil, nil)
	assert.Equal(t, "09:05", first.Date)
	require.NoError(t, h.Append(first))
	require.NoError(t, h.Append(second))

	entries := h.List()
	assert.Greater(t, entries[0].ID, entries[1].ID)
}

func TestHistoryStore_ReloadAndCorruption(t *testing.T) {
	tests := []struct {
		name     string
		stored   string
		expected int
	}{
		{"missing", "", 0},
		{"corrupt", "{not json", 0},
		{"valid", `[{"id":2,"date":"10:00","mode":"IP","input":"1.1.1.1","ipData":[{"cidr":"1.1.1.0/24"}]},{"id":1,"date":"09:00","mode":"ASN","input":"AS1","asnData":{"asn":"AS1"}}]`, 2},
		{"oversized", `[{"id":7},{"id":6},{"id":5},{"id":4},{"id":3},{"id":2},{"id":1}]`, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := testutil.NewMemoryState()
			if tt.stored != "" {
				require.NoError(t, state.Set(models.KeyHistory, tt.stored))
			}

			h := NewHistoryStore(state, 5, logger.NewDiscardLogger())
			assert.Len(t, h.List(), tt.expected)
		})
	}
}

func TestHistoryStore_GetAndClear(t *testing.T) {
	state := testutil.NewMemoryState()
	h := NewHistoryStore(state, 5, logger.NewDiscardLogger())
	require.NoError(t, h.Append(models.HistoryEntry{ID: 10, Mode: validator.ModeASN, Input: "AS1", ASNData: &models.AsnSummary{ASN: "AS1"}}))

	e, err := h.Get(10)
	require.NoError(t, err)
	assert.Equal(t, "AS1", e.ASNData.ASN)

	latest, ok := h.Latest(validator.ModeASN)
	assert.True(t, ok)
	assert.Equal(t, int64(10), latest.ID)
	_, ok = h.Latest(validator.ModeIP)
	assert.False(t, ok)

	_, err = h.Get(11)
	assert.ErrorIs(t, err, apperrors.ErrHistoryNotFound)

	require.NoError(t, h.Clear())
	assert.Empty(t, h.List())
	_, ok, _ = state.Get(models.KeyHistory)
	assert.False(t, ok)
}

func TestHistoryStore_PersistFailure(t *testing.T) {
	state := testutil.NewMemoryState()
	state.SetErr = errors.New("disk full")
	h := NewHistoryStore(state, 5, logger.NewDiscardLogger())

	err := h.Append(models.HistoryEntry{ID: 1, Mode: validator.ModeIP})
	assert.Error(t, err)
	assert.Len(t, h.List(), 1)
}
