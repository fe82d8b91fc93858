package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"resvalidator/api/routes"
	"resvalidator/cmd/resvalidator/app"
	"resvalidator/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

type ServerOpts struct {
	Port int
	Host string
}

func NewServerCommand(opts *app.Options) *cobra.Command {
	serverOpts := &ServerOpts{}

	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Start the local audit API and report page",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			a, err := app.New(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if !opts.Verbose {
				gin.SetMode(gin.ReleaseMode)
			}

			host := a.Config.Server.Host
			if cmd.Flags().Changed("host") {
				host = serverOpts.Host
			}
			port := a.Config.Server.Port
			if cmd.Flags().Changed("port") {
				port = serverOpts.Port
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if a.Config.Storage.Watch {
				go func() {
					if err := a.WatchState(ctx); err != nil {
						a.Logger.WithError(err).Error("State watcher stopped")
					}
				}()
			}
			go logSessionEvents(ctx, a)

			router := routes.InitRouter(routes.Deps{
				Dashboard: a.Dashboard,
				Session:   a.Session,
				Logger:    a.Logger,
			})
			srv := &http.Server{
				Addr:              fmt.Sprintf("%s:%d", host, port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errChan := make(chan error, 1)
			go func() {
				a.Logger.WithFields(logger.Fields{"addr": srv.Addr}).Info("Server listening")
				errChan <- srv.ListenAndServe()
			}()

			select {
			case err := <-errChan:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
				a.Logger.Info("Shutting down server")
				shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
				defer stop()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	serverCmd.Flags().IntVarP(&serverOpts.Port, "port", "p", 8080, "Port to run the server on")
	serverCmd.Flags().StringVarP(&serverOpts.Host, "host", "H", "localhost", "Address to bind the server to")

	return serverCmd
}

func logSessionEvents(ctx context.Context, a *app.App) {
	for {
		select {
		case ev := <-a.Session.Events():
			a.Logger.WithFields(logger.Fields{"event": ev.Kind}).Debug("Session event")
		case <-ctx.Done():
			return
		}
	}
}
