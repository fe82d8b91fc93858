package notification

import (
	"time"

	"resvalidator/pkg/logger"
)

type Message struct {
	Title       string
	Description string
	Severity    string
	Fields      map[string]string
	Timestamp   time.Time
}

// Notifier delivers out-of-band messages such as session expiry.
type Notifier interface {
	Send(msg Message) error
}

// LogNotifier writes notifications to the application log.
type LogNotifier struct {
	logger *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

func (n *LogNotifier) Send(msg Message) error {
	fields := logger.Fields{"severity": msg.Severity}
	for k, v := range msg.Fields {
		fields[k] = v
	}
	entry := n.logger.WithFields(fields)
	switch msg.Severity {
	case "high", "critical":
		entry.Error(msg.Title + ": " + msg.Description)
	case "medium":
		entry.Warn(msg.Title + ": " + msg.Description)
	default:
		entry.Info(msg.Title + ": " + msg.Description)
	}
	return nil
}

// Multi fans a message out to several notifiers and returns the first error.
type Multi []Notifier

func (m Multi) Send(msg Message) error {
	var firstErr error
	for _, n := range m {
		if err := n.Send(msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
