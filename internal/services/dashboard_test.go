package services

import (
	"context"
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

type staticRole bool

func (r staticRole) Login(string) error { return nil }
func (r staticRole) Logout() error      { return nil }
func (r staticRole) Touch()             {}
func (r staticRole) IsPrivileged() bool { return bool(r) }
func (r staticRole) State() SessionState {
	if r {
		return SessionAuthenticated
	}
	return SessionAnonymous
}

type dashboardFixture struct {
	dashboard *Dashboard
	audit     *testutil.FakeAudit
	history   *HistoryStore
	notifier  *recordingNotifier
}

func newTestDashboard(t *testing.T, privileged bool) *dashboardFixture {
	t.Helper()
	log := logger.NewDiscardLogger()
	audit := testutil.NewFakeAudit()
	history := NewHistoryStore(testutil.NewMemoryState(), 5, log)
	n := &recordingNotifier{}
	d := NewDashboard(
		NewScanOrchestrator(audit, history, 50, log),
		NewASNExpander(audit, history, log),
		history,
		staticRole(privileged),
		n,
		log,
	)
	t.Cleanup(d.Close)
	return &dashboardFixture{dashboard: d, audit: audit, history: history, notifier: n}
}

func TestDashboard_SubmitIP(t *testing.T) {
	f := newTestDashboard(t, true)
	ctx, cancel := testutil.WithTimeout(t, 2*time.Second)
	defer cancel()

	batch, err := f.dashboard.SubmitIP(ctx, "1.1.1.0/24\n2001:db8::/32", nil)
	require.NoError(t, err)
	assert.Len(t, batch.Results, 2)

	state := f.dashboard.Snapshot()
	assert.False(t, state.Loading)
	assert.Equal(t, validator.ModeIP, state.Mode)
	assert.Equal(t, Progress{Done: 2, Total: 2}, state.Progress)
	assert.NotEmpty(t, state.BatchID)
	assert.Len(t, state.Results, 2)
	require.Len(t, f.notifier.Messages(), 1)
	assert.Equal(t, state.BatchID, f.notifier.Messages()[0].Fields["batch_id"])
}

func TestDashboard_RejectsConcurrentSubmission(t *testing.T) {
	f := newTestDashboard(t, true)
	release := f.audit.Hold()
	defer release()

	started, err := f.dashboard.StartIP("1.1.1.1\n8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, 2, started.Total)
	assert.True(t, f.dashboard.Snapshot().Loading)

	_, err = f.dashboard.StartIP("9.9.9.9")
	assert.ErrorIs(t, err, apperrors.ErrScanInProgress)
	_, err = f.dashboard.SubmitASN(context.Background(), "AS1")
	assert.ErrorIs(t, err, apperrors.ErrScanInProgress)
	_, err = f.dashboard.SubmitIP(context.Background(), "9.9.9.9", nil)
	assert.ErrorIs(t, err, apperrors.ErrScanInProgress)

	release()
	f.dashboard.Wait()

	state := f.dashboard.Snapshot()
	assert.False(t, state.Loading)
	assert.Equal(t, started.BatchID, state.BatchID)
	assert.Equal(t, []string{"1.1.1.1", "8.8.8.8"}, f.audit.ScanCalls())

	_, err = f.dashboard.StartIP("9.9.9.9")
	assert.NoError(t, err)
	f.dashboard.Wait()
}

func TestDashboard_RestrictedRole(t *testing.T) {
	f := newTestDashboard(t, false)

	_, err := f.dashboard.StartIP("1.1.1.1\n8.8.8.8")
	assert.ErrorIs(t, err, apperrors.ErrRestrictedBatch)
	assert.Empty(t, f.audit.ScanCalls())
	assert.NotEmpty(t, f.dashboard.Snapshot().Error)

	_, err = f.dashboard.StartIP("1.1.1.1")
	require.NoError(t, err)
	f.dashboard.Wait()
	assert.Equal(t, []string{"1.1.1.1"}, f.audit.ScanCalls())
}

func TestDashboard_ModeSwitching(t *testing.T) {
	f := newTestDashboard(t, true)
	f.audit.SetASN("AS1", testutil.ASNResponse{Summary: &models.AsnSummary{ASN: "AS1", PrefixesV4: []string{"1.0.0.0/24"}}})

	_, err := f.dashboard.SubmitIP(context.Background(), "8.8.8.8", nil)
	require.NoError(t, err)

	_, err = f.dashboard.SubmitASN(context.Background(), "AS1")
	require.NoError(t, err)
	state := f.dashboard.Snapshot()
	assert.Equal(t, validator.ModeASN, state.Mode)
	assert.Empty(t, state.Results)
	require.NotNil(t, state.ASNData)

	// auditing a prefix keeps the summary
	_, err = f.dashboard.StartAudit("1.0.0.0/24")
	require.NoError(t, err)
	f.dashboard.Wait()
	state = f.dashboard.Snapshot()
	assert.Equal(t, validator.ModeIP, state.Mode)
	assert.NotNil(t, state.ASNData)
	assert.Len(t, state.Results, 1)

	_, err = f.dashboard.StartIP("9.9.9.9")
	require.NoError(t, err)
	f.dashboard.Wait()
	assert.Nil(t, f.dashboard.Snapshot().ASNData)

	f.dashboard.SetMode(validator.ModeASN)
	assert.Equal(t, validator.ModeASN, f.dashboard.Snapshot().Mode)
}

func TestDashboard_RestoreMakesNoCalls(t *testing.T) {
	f := newTestDashboard(t, true)
	require.NoError(t, f.history.Append(models.HistoryEntry{
		ID: 100, Mode: validator.ModeIP, Input: "1.1.1.0/24",
		IPData: []models.ScanResult{{CIDR: "1.1.1.0/24", RPKIStatus: "INVALID"}},
	}))
	require.NoError(t, f.history.Append(models.HistoryEntry{
		ID: 200, Mode: validator.ModeASN, Input: "AS13335",
		ASNData: &models.AsnSummary{ASN: "AS13335"},
	}))

	state, err := f.dashboard.Restore(100)
	require.NoError(t, err)
	assert.Equal(t, validator.ModeIP, state.Mode)
	assert.Equal(t, "1.1.1.0/24", state.Input)
	require.Len(t, state.Results, 1)
	assert.Equal(t, "INVALID", state.Results[0].RPKIStatus)

	state, err = f.dashboard.Restore(200)
	require.NoError(t, err)
	assert.Equal(t, validator.ModeASN, state.Mode)
	assert.Equal(t, "AS13335", state.ASNData.ASN)
	assert.Empty(t, state.Results)

	_, err = f.dashboard.Restore(300)
	assert.ErrorIs(t, err, apperrors.ErrHistoryNotFound)

	assert.Empty(t, f.audit.ScanCalls())
	assert.Empty(t, f.audit.ASNCalls())
}

func TestDashboard_CloseCancelsBackgroundBatch(t *testing.T) {
	f := newTestDashboard(t, true)
	f.audit.SetScan("1.1.1.1", testutil.ScanResponse{Delay: 5 * time.Second})

	_, err := f.dashboard.StartIP("1.1.1.1\n8.8.8.8")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		f.dashboard.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not cancel the running batch")
	}
	assert.Empty(t, f.history.List())
	assert.False(t, f.dashboard.Snapshot().Loading)
}
