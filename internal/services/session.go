package services

import (
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"resvalidator/internal/dao"
	"resvalidator/internal/models"
	"resvalidator/internal/notification"
	apperrors "resvalidator/pkg/errors"
	"resvalidator/pkg/logger"
)

const DefaultIdleTimeout = 10 * time.Minute

type SessionState string

const (
	SessionAnonymous     SessionState = "anonymous"
	SessionAuthenticated SessionState = "authenticated"
	SessionExpired       SessionState = "expired"
)

type SessionEventKind string

const (
	EventLogin   SessionEventKind = "login"
	EventLogout  SessionEventKind = "logout"
	EventExpired SessionEventKind = "expired"
)

type SessionEvent struct {
	Kind SessionEventKind `json:"kind"`
	At   time.Time        `json:"at"`
}

// SessionMethods is the role surface used by handlers and commands.
type SessionMethods interface {
	Login(password string) error
	Logout() error
	Touch()
	IsPrivileged() bool
	State() SessionState
}

// Session holds the hostmaster role. The shared secret is compared locally
// and is not a security boundary. An authenticated session drops back after
// IdleTimeout without a Touch.
type Session struct {
	dao         dao.StateDAO
	secret      string
	idleTimeout time.Duration
	notifier    notification.Notifier
	logger      *logger.Logger

	mu     sync.Mutex
	state  SessionState
	timer  *time.Timer
	gen    uint64
	events chan SessionEvent
}

func NewSession(stateDAO dao.StateDAO, secret string, idleTimeout time.Duration, notifier notification.Notifier, log *logger.Logger) *Session {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Session{
		dao:         stateDAO,
		secret:      secret,
		idleTimeout: idleTimeout,
		notifier:    notifier,
		logger:      log,
		state:       SessionAnonymous,
		events:      make(chan SessionEvent, 16),
	}
}

// Events delivers login, logout and expiry transitions. Events are dropped
// when nobody drains the channel.
func (s *Session) Events() <-chan SessionEvent {
	return s.events
}

// Restore picks up a role persisted by an earlier run.
func (s *Session) Restore() error {
	v, ok, err := s.dao.Get(models.KeyHostmaster)
	if err != nil {
		return fmt.Errorf("read session flag: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ok && v == "true" {
		s.state = SessionAuthenticated
		s.armLocked()
	}
	return nil
}

// Reload syncs with a flag changed by another process.
func (s *Session) Reload() {
	v, ok, err := s.dao.Get(models.KeyHostmaster)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to reload session flag")
		return
	}
	flagged := ok && v == "true"

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case flagged && s.state != SessionAuthenticated:
		s.state = SessionAuthenticated
		s.armLocked()
	case !flagged && s.state == SessionAuthenticated:
		s.state = SessionAnonymous
		s.stopLocked()
	}
}

func (s *Session) Login(password string) error {
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.secret)) != 1 {
		s.logger.Warn("Hostmaster login rejected")
		return apperrors.ErrInvalidPassword
	}

	if err := s.dao.Set(models.KeyHostmaster, "true"); err != nil {
		return fmt.Errorf("persist session flag: %w", err)
	}

	s.mu.Lock()
	s.state = SessionAuthenticated
	s.armLocked()
	s.mu.Unlock()

	s.logger.Info("Hostmaster session started")
	s.emit(EventLogin)
	return nil
}

func (s *Session) Logout() error {
	s.mu.Lock()
	s.state = SessionAnonymous
	s.stopLocked()
	s.mu.Unlock()

	if err := s.dao.Delete(models.KeyHostmaster); err != nil {
		return fmt.Errorf("clear session flag: %w", err)
	}

	s.logger.Info("Hostmaster session ended")
	s.emit(EventLogout)
	return nil
}

// Touch records user activity. It resets the idle timer of an authenticated
// session and acknowledges an expired one.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case SessionAuthenticated:
		s.armLocked()
	case SessionExpired:
		s.state = SessionAnonymous
	}
}

func (s *Session) IsPrivileged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == SessionAuthenticated
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) IdleTimeout() time.Duration {
	return s.idleTimeout
}

// Close stops the idle timer without changing the persisted role.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) armLocked() {
	s.stopLocked()
	gen := s.gen
	s.timer = time.AfterFunc(s.idleTimeout, func() { s.expire(gen) })
}

func (s *Session) stopLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) expire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.state != SessionAuthenticated {
		s.mu.Unlock()
		return
	}
	s.state = SessionExpired
	s.timer = nil
	s.mu.Unlock()

	if err := s.dao.Delete(models.KeyHostmaster); err != nil {
		s.logger.WithError(err).Error("Failed to clear session flag on expiry")
	}

	s.logger.WithFields(logger.Fields{"idle_timeout": s.idleTimeout.String()}).
		Warn("Hostmaster session expired after inactivity")
	s.emit(EventExpired)

	if s.notifier != nil {
		msg := notification.Message{
			Title:       "Session expired",
			Description: fmt.Sprintf("Logged out automatically after %s without activity.", s.idleTimeout),
			Severity:    "medium",
			Timestamp:   time.Now(),
		}
		if err := s.notifier.Send(msg); err != nil {
			s.logger.WithError(err).Warn("Failed to send session expiry notification")
		}
	}
}

func (s *Session) emit(kind SessionEventKind) {
	select {
	case s.events <- SessionEvent{Kind: kind, At: time.Now()}:
	default:
		s.logger.WithFields(logger.Fields{"event": kind}).Debug("Session event dropped, no listener")
	}
}
