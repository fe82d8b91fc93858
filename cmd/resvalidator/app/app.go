// Package app wires configuration, storage and services for the CLI commands.
package app

import (
	"context"
	"fmt"
	"io"

	"resvalidator/internal/client"
	"resvalidator/internal/config"
	"resvalidator/internal/dao"
	"resvalidator/internal/database"
	"resvalidator/internal/notification"
	"resvalidator/internal/services"
	"resvalidator/pkg/logger"
)

// Options are the global flags shared by every command.
type Options struct {
	ConfigPath string
	Verbose    bool
}

// App holds the long-lived components of one CLI invocation.
type App struct {
	Config       *config.Config
	Logger       *logger.Logger
	State        dao.StateDAO
	Client       *client.Client
	History      *services.HistoryStore
	Session      *services.Session
	Orchestrator *services.ScanOrchestrator
	Expander     *services.ASNExpander
	Dashboard    *services.Dashboard
	Notifier     notification.Notifier

	fileState *dao.FileStateDAO
	closers   []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// New loads configuration and builds every service.
func New(opts *Options) (*App, error) {
	log := logger.NewLogger(logger.ParseLevel(opts.Verbose))

	loadOpts := config.DefaultLoadOptions()
	loadOpts.ConfigPath = opts.ConfigPath
	cfg, err := config.Load(loadOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	a := &App{Config: cfg, Logger: log}

	if err := a.openState(); err != nil {
		a.Close()
		return nil, err
	}
	a.Notifier = a.buildNotifier()

	a.Client = client.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	a.History = services.NewHistoryStore(a.State, cfg.History.Limit, log)
	a.Session = services.NewSession(a.State, cfg.Session.Secret, cfg.Session.IdleTimeout, a.Notifier, log)
	if err := a.Session.Restore(); err != nil {
		log.WithError(err).Warn("Failed to restore session, continuing as guest")
	}
	a.closers = append(a.closers, closerFunc(func() error {
		a.Session.Close()
		return nil
	}))

	a.Orchestrator = services.NewScanOrchestrator(a.Client, a.History, cfg.Scan.MaxLines, log)
	a.Expander = services.NewASNExpander(a.Client, a.History, log)
	a.Dashboard = services.NewDashboard(a.Orchestrator, a.Expander, a.History, a.Session, a.Notifier, log)
	a.closers = append(a.closers, closerFunc(func() error {
		a.Dashboard.Close()
		return nil
	}))

	log.WithFields(logger.Fields{
		"backend": cfg.Backend.BaseURL,
		"storage": cfg.Storage.Driver,
	}).Debug("Application initialized")
	return a, nil
}

func (a *App) openState() error {
	switch a.Config.Storage.Driver {
	case config.DriverPostgres:
		db, err := database.Open(a.Config.DB)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err == nil {
			a.closers = append(a.closers, sqlDB)
		}
		a.State = dao.NewStateDAO(db)
	default:
		fileState, err := dao.NewFileStateDAO(a.Config.Storage.Path, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to open state file: %w", err)
		}
		a.fileState = fileState
		a.State = fileState
	}
	return nil
}

func (a *App) buildNotifier() notification.Notifier {
	notifiers := notification.Multi{notification.NewLogNotifier(a.Logger)}

	if a.Config.Notify.DiscordToken == "" {
		a.Logger.Debug("Discord token not set - Discord notifications disabled")
		return notifiers
	}
	discord, err := notification.NewNotificationClient(a.Config.Notify.DiscordToken, a.Config.Notify.DiscordChannel)
	if err != nil {
		a.Logger.WithError(err).Warn("Failed to initialize Discord client")
		return notifiers
	}
	a.Logger.Info("Discord notifications enabled")
	a.closers = append(a.closers, discord)
	return append(notifiers, discord)
}

// WatchState reloads history and role when another process rewrites the
// state file. It blocks until ctx is done and is a no-op for postgres.
func (a *App) WatchState(ctx context.Context) error {
	if a.fileState == nil {
		return nil
	}
	return a.fileState.Watch(ctx, func() {
		a.History.Reload()
		a.Session.Reload()
	})
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.Logger.WithError(err).Error("Error closing application")
		}
	}
	a.closers = nil
}
