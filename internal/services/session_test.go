package services

import (
	"sync"
	"testing"
	"time"

	"resvalidator/internal/models"
	"resvalidator/internal/notification"
	apperrors "resvalidator/pkg/errors"
	"resvalidator/pkg/logger"
	"resvalidator/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notification.Message
}

func (r *recordingNotifier) Send(msg notification.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingNotifier) Messages() []notification.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification.Message{}, r.msgs...)
}

func newTestSession(t *testing.T, idle time.Duration) (*Session, *testutil.MemoryState, *recordingNotifier) {
	t.Helper()
	state := testutil.NewMemoryState()
	n := &recordingNotifier{}
	s := NewSession(state, "secret", idle, n, logger.NewDiscardLogger())
	t.Cleanup(s.Close)
	return s, state, n
}

func TestSession_Login(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		wantErr    error
		privileged bool
	}{
		{"correct password", "secret", nil, true},
		{"wrong password", "guess", apperrors.ErrInvalidPassword, false},
		{"empty password", "", apperrors.ErrInvalidPassword, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, state, _ := newTestSession(t, time.Minute)

			err := s.Login(tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.privileged, s.IsPrivileged())

			v, ok, _ := state.Get(models.KeyHostmaster)
			assert.Equal(t, tt.privileged, ok && v == "true")
		})
	}
}

func TestSession_Logout(t *testing.T) {
	s, state, _ := newTestSession(t, time.Minute)
	require.NoError(t, s.Login("secret"))
	require.NoError(t, s.Logout())

	assert.False(t, s.IsPrivileged())
	assert.Equal(t, SessionAnonymous, s.State())
	_, ok, _ := state.Get(models.KeyHostmaster)
	assert.False(t, ok)
}

func TestSession_ExpiresAfterIdle(t *testing.T) {
	s, state, n := newTestSession(t, 30*time.Millisecond)
	require.NoError(t, s.Login("secret"))
	<-s.Events()

	select {
	case ev := <-s.Events():
		assert.Equal(t, EventExpired, ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not expire")
	}

	assert.Equal(t, SessionExpired, s.State())
	assert.False(t, s.IsPrivileged())
	_, ok, _ := state.Get(models.KeyHostmaster)
	assert.False(t, ok)
	testutil.Eventually(t, time.Second, func() bool { return len(n.Messages()) == 1 })
	assert.Equal(t, "Session expired", n.Messages()[0].Title)

	s.Touch()
	assert.Equal(t, SessionAnonymous, s.State())
}

func TestSession_TouchResetsTimer(t *testing.T) {
	s, _, _ := newTestSession(t, 150*time.Millisecond)
	require.NoError(t, s.Login("secret"))

	for i := 0; i < 5; i++ {
		time.Sleep(50 * time.Millisecond)
		s.Touch()
	}
	assert.True(t, s.IsPrivileged())
}

func TestSession_LogoutCancelsTimer(t *testing.T) {
	s, _, n := newTestSession(t, 30*time.Millisecond)
	require.NoError(t, s.Login("secret"))
	require.NoError(t, s.Logout())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, SessionAnonymous, s.State())
	assert.Empty(t, n.Messages())
}

func TestSession_RestoreAndReload(t *testing.T) {
	s, state, _ := newTestSession(t, time.Minute)
	require.NoError(t, state.Set(models.KeyHostmaster, "true"))

	require.NoError(t, s.Restore())
	assert.True(t, s.IsPrivileged())

	require.NoError(t, state.Delete(models.KeyHostmaster))
	s.Reload()
	assert.False(t, s.IsPrivileged())

	require.NoError(t, state.Set(models.KeyHostmaster, "true"))
	s.Reload()
	assert.True(t, s.IsPrivileged())
}
