package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"resvalidator/cmd/resvalidator/app"
	"resvalidator/cmd/resvalidator/history"
	"resvalidator/cmd/resvalidator/scan"
	"resvalidator/cmd/resvalidator/server"
	"resvalidator/cmd/resvalidator/session"

	"github.com/spf13/cobra"
)

func Execute() error {
	opts := &app.Options{}

	var rootCmd = &cobra.Command{
		Use:   "resvalidator",
		Short: "Audit IP prefixes and ASNs against RPKI, WHOIS, IRR and reverse DNS",
		Long: `resvalidator submits IP prefixes, ranges and ASNs to an audit backend and
reports RPKI status, WHOIS hierarchy, route objects and PTR delegation.`,
	}

	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Directory containing resvalidator.yaml")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable verbose logging")

	// Add commands
	rootCmd.AddCommand(scan.NewScanCommand(opts))
	rootCmd.AddCommand(scan.NewAuditCommand(opts))
	rootCmd.AddCommand(scan.NewASNCommand(opts))
	rootCmd.AddCommand(history.NewHistoryCommand(opts))
	rootCmd.AddCommand(history.NewExportCommand(opts))
	rootCmd.AddCommand(session.NewLoginCommand(opts))
	rootCmd.AddCommand(session.NewLogoutCommand(opts))
	rootCmd.AddCommand(server.NewServerCommand(opts))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
