// Package logger provides structured logging for the resvalidator application
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Fields represents structured log fields
type Fields map[string]interface{}

// Logger wraps logrus.Logger with additional functionality
type Logger struct {
	*logrus.Logger
}

type ctxKey string

// BatchIDKey is the context key under which the current batch ID is stored
const BatchIDKey ctxKey = "batch_id"

// NewLogger creates a new structured logger
func NewLogger(level logrus.Level) *Logger {
	logger := logrus.New()
	logger.SetLevel(level)

	// Use JSON formatter for structured logging in production
	if os.Getenv("ENV") == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	return &Logger{Logger: logger}
}

// NewDiscardLogger returns a logger that drops everything. Used by tests.
func NewDiscardLogger() *Logger {
	l := NewLogger(logrus.PanicLevel)
	l.SetOutput(io.Discard)
	return l
}

// WithContext adds context-specific fields to the logger
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithContext(ctx)

	if batchID := ctx.Value(BatchIDKey); batchID != nil {
		entry = entry.WithField("batch_id", batchID)
	}

	return entry
}

// WithTarget adds scan target fields to the logger
func (l *Logger) WithTarget(target string, position int) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"target":   target,
		"position": position,
	})
}

// WithError adds error context to the logger
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithError(err)
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields Fields) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields(fields))
}

// LogStep logs the start and end of a named step along with its duration
func (l *Logger) LogStep(name string, fn func() error) error {
	start := time.Now()

	l.WithFields(Fields{
		"step":   name,
		"action": "start",
	}).Debug("Step started")

	err := fn()

	fields := Fields{
		"step":     name,
		"action":   "complete",
		"duration": time.Since(start).String(),
	}

	if err != nil {
		fields["error"] = err.Error()
		l.WithFields(fields).Error("Step failed")
	} else {
		l.WithFields(fields).Info("Step completed")
	}

	return err
}

// ParseLevel maps the verbose flag to a logrus level
func ParseLevel(verbose bool) logrus.Level {
	if verbose {
		return logrus.DebugLevel
	}
	return logrus.InfoLevel
}
