package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"resvalidator/internal/models"
	apperrors "resvalidator/pkg/errors"
	"resvalidator/pkg/logger"
	"resvalidator/pkg/testutil"
	"resvalidator/pkg/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(t *testing.T) (*ScanOrchestrator, *testutil.FakeAudit, *HistoryStore) {
	t.Helper()
	audit := testutil.NewFakeAudit()
	history := NewHistoryStore(testutil.NewMemoryState(), 5, logger.NewDiscardLogger())
	return NewScanOrchestrator(audit, history, 50, logger.NewDiscardLogger()), audit, history
}

func TestScanOrchestrator_Rejections(t *testing.T) {
	fiftyOne := make([]string, 51)
	for i := range fiftyOne {
		fiftyOne[i] = fmt.Sprintf("10.0.%d.0/24", i)
	}

	tests := []struct {
		name       string
		raw        string
		privileged bool
		check      func(t *testing.T, err error)
	}{
		{
			name:       "empty input",
			raw:        "  \n\n ",
			privileged: true,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, apperrors.ErrEmptyInput)
			},
		},
		{
			name:       "restricted role with two lines",
			raw:        "1.1.1.1\n8.8.8.8",
			privileged: false,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, apperrors.ErrRestrictedBatch)
			},
		},
		{
			name:       "restricted check precedes line validation",
			raw:        "1.1.1.1\nnot-an-ip",
			privileged: false,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, apperrors.ErrRestrictedBatch)
			},
		},
		{
			name:       "more than fifty lines",
			raw:        strings.Join(fiftyOne, "\n"),
			privileged: true,
			check: func(t *testing.T, err error) {
				var tooMany *apperrors.TooManyLinesError
				require.ErrorAs(t, err, &tooMany)
				assert.Equal(t, 51, tooMany.Count)
				assert.Equal(t, 50, tooMany.Max)
			},
		},
		{
			name:       "invalid line reports position",
			raw:        "1.1.1.1\n\n999.1.1.1\n8.8.8.8",
			privileged: true,
			check: func(t *testing.T, err error) {
				var lineErr *apperrors.LineError
				require.ErrorAs(t, err, &lineErr)
				assert.Equal(t, 2, lineErr.Position)
				assert.Equal(t, "999.1.1.1", lineErr.Line)
				assert.ErrorIs(t, err, apperrors.ErrInvalidLine)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, audit, history := newTestOrchestrator(t)

			batch, err := o.Run(context.Background(), tt.raw, tt.privileged, nil)
			assert.Nil(t, batch)
			tt.check(t, err)
			assert.Empty(t, audit.ScanCalls(), "rejected batch must not reach the backend")
			assert.Empty(t, history.List())
		})
	}
}

func TestScanOrchestrator_SkipsFailedTarget(t *testing.T) {
	o, audit, history := newTestOrchestrator(t)
	audit.SetScan("8.8.8.0/24", testutil.ScanResponse{Error: apperrors.NewBackendError("/api/scan", 0, "whois timeout")})

	raw := "1.1.1.0/24\n8.8.8.0/24\n9.9.9.0/24"
	var mu sync.Mutex
	var progress []string
	batch, err := o.Run(context.Background(), raw, true, func(done, total int) {
		mu.Lock()
		progress = append(progress, fmt.Sprintf("%d of %d", done, total))
		mu.Unlock()
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"1.1.1.0/24", "8.8.8.0/24", "9.9.9.0/24"}, audit.ScanCalls())
	assert.Equal(t, []string{"1 of 3", "2 of 3", "3 of 3"}, progress)

	require.Len(t, batch.Results, 2)
	assert.Equal(t, "1.1.1.0/24", batch.Results[0].CIDR)
	assert.Equal(t, "9.9.9.0/24", batch.Results[1].CIDR)
	assert.Equal(t, 1, batch.Failed())
	assert.True(t, batch.Outcomes[1].Failed())
	assert.False(t, batch.Cancelled)

	entries := history.List()
	require.Len(t, entries, 1)
	assert.Equal(t, validator.ModeIP, entries[0].Mode)
	assert.Equal(t, raw, entries[0].Input)
	assert.Len(t, entries[0].IPData, 2)
}

func TestScanOrchestrator_MultipleResultsPerTarget(t *testing.T) {
	o, audit, _ := newTestOrchestrator(t)
	audit.SetScan("1.1.0.0 - 1.1.1.255", testutil.ScanResponse{Results: []models.ScanResult{
		{CIDR: "1.1.0.0/24"}, {CIDR: "1.1.1.0/24"},
	}})

	batch, err := o.Run(context.Background(), "1.1.0.0 - 1.1.1.255", false, nil)
	require.NoError(t, err)
	assert.Len(t, batch.Results, 2)
	assert.Equal(t, 2, batch.Outcomes[0].Results)
}

func TestScanOrchestrator_AllTargetsFail(t *testing.T) {
	o, audit, history := newTestOrchestrator(t)
	audit.SetScan("1.1.1.1", testutil.ScanResponse{Error: errors.New("connection refused")})

	batch, err := o.AuditPrefix(context.Background(), "1.1.1.1", false)
	require.NoError(t, err)
	assert.Empty(t, batch.Results)
	assert.NotNil(t, batch.Results)

	entries := history.List()
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].IPData)
}

func TestScanOrchestrator_CancelledBatchNotRecorded(t *testing.T) {
	o, audit, history := newTestOrchestrator(t)
	audit.SetScan("1.1.1.1", testutil.ScanResponse{Delay: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	batch, err := o.Run(ctx, "1.1.1.1\n8.8.8.8", true, nil)
	require.NoError(t, err)
	assert.True(t, batch.Cancelled)
	assert.Equal(t, []string{"1.1.1.1"}, audit.ScanCalls())
	assert.Empty(t, history.List())
}

func TestScanOrchestrator_CancelAfterLastTargetStillRecorded(t *testing.T) {
	o, audit, history := newTestOrchestrator(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batch, err := o.Run(ctx, "1.1.1.1\n8.8.8.8", true, func(done, total int) {
		if done == total {
			cancel()
		}
	})
	require.NoError(t, err)
	assert.False(t, batch.Cancelled)
	assert.Equal(t, []string{"1.1.1.1", "8.8.8.8"}, audit.ScanCalls())
	assert.Len(t, batch.Results, 2)

	entries := history.List()
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].IPData, 2)
}

func TestScanOrchestrator_DefaultMaxLines(t *testing.T) {
	o := NewScanOrchestrator(testutil.NewFakeAudit(), nil, 0, logger.NewDiscardLogger())
	assert.Equal(t, DefaultMaxLines, o.MaxLines())

	o = NewScanOrchestrator(testutil.NewFakeAudit(), nil, 500, logger.NewDiscardLogger())
	assert.Equal(t, DefaultMaxLines, o.MaxLines())

	o = NewScanOrchestrator(testutil.NewFakeAudit(), nil, 10, logger.NewDiscardLogger())
	assert.Equal(t, 10, o.MaxLines())
}
