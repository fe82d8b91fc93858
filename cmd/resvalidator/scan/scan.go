package scan

import (
	"fmt"
	"io"
	"os"
	"strings"

	"resvalidator/cmd/resvalidator/app"
	"resvalidator/pkg/logger"

	"github.com/spf13/cobra"
)

// Config holds the flags of the scan commands
type Config struct {
	InputFile     string
	Format        string
	Output        string
	AuditPrefixes bool
}

func readInput(cfg *Config, args []string) (string, error) {
	if cfg.InputFile == "" {
		return strings.Join(args, "\n"), nil
	}
	var data []byte
	var err error
	if cfg.InputFile == "-" {
		data, err = io.ReadAll(io.LimitReader(os.Stdin, 1<<20))
	} else {
		data, err = os.ReadFile(cfg.InputFile)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input %s: %w", cfg.InputFile, err)
	}
	raw := string(data)
	if len(args) > 0 {
		raw += "\n" + strings.Join(args, "\n")
	}
	return raw, nil
}

func progressLogger(log *logger.Logger) func(done, total int) {
	return func(done, total int) {
		log.WithFields(logger.Fields{"done": done, "total": total}).
			Infof("Scanning %d of %d", done, total)
	}
}

// NewScanCommand creates the scan command
func NewScanCommand(opts *app.Options) *cobra.Command {
	cfg := &Config{}

	scanCmd := &cobra.Command{
		Use:   "scan [targets...]",
		Short: "Audit IP prefixes, addresses or ranges",
		Long: `Audit one target per line. Targets may be IPv4/IPv6 addresses or prefixes
or IPv4 ranges like "1.1.1.0 - 1.1.1.255". Guests may audit a single target;
a hostmaster session may submit up to the configured batch ceiling.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if err := ValidateFormat(cfg.Format); err != nil {
				return err
			}

			raw, err := readInput(cfg, args)
			if err != nil {
				return err
			}

			a, err := app.New(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			batch, err := a.Dashboard.SubmitIP(cmd.Context(), raw, progressLogger(a.Logger))
			if err != nil {
				return err
			}
			if batch.Cancelled {
				a.Logger.Warn("Scan interrupted, partial results not saved to history")
			}

			out, err := OpenOutput(cfg.Output)
			if err != nil {
				return err
			}
			defer out.Close()
			return WriteResults(out, cfg.Format, batch.Results)
		},
	}

	scanCmd.Flags().StringVarP(&cfg.InputFile, "file", "f", "", "Read targets from file, one per line (- for stdin)")
	scanCmd.Flags().StringVar(&cfg.Format, "format", FormatTable, "Output format: table, json, yaml, csv")
	scanCmd.Flags().StringVarP(&cfg.Output, "output", "o", "", "Write output to file instead of stdout")

	return scanCmd
}

// NewAuditCommand creates the audit command for a single prefix
func NewAuditCommand(opts *app.Options) *cobra.Command {
	cfg := &Config{}

	auditCmd := &cobra.Command{
		Use:   "audit <prefix>",
		Short: "Audit a single prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if err := ValidateFormat(cfg.Format); err != nil {
				return err
			}

			a, err := app.New(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			batch, err := a.Orchestrator.AuditPrefix(cmd.Context(), args[0], a.Session.IsPrivileged())
			if err != nil {
				return err
			}

			out, err := OpenOutput(cfg.Output)
			if err != nil {
				return err
			}
			defer out.Close()
			return WriteResults(out, cfg.Format, batch.Results)
		},
	}

	auditCmd.Flags().StringVar(&cfg.Format, "format", FormatTable, "Output format: table, json, yaml, csv")
	auditCmd.Flags().StringVarP(&cfg.Output, "output", "o", "", "Write output to file instead of stdout")

	return auditCmd
}

// NewASNCommand creates the asn command
func NewASNCommand(opts *app.Options) *cobra.Command {
	cfg := &Config{}

	asnCmd := &cobra.Command{
		Use:   "asn <ASN>",
		Short: "List the prefixes announced by an ASN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if err := ValidateFormat(cfg.Format); err != nil {
				return err
			}

			a, err := app.New(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.Dashboard.SubmitASN(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out, err := OpenOutput(cfg.Output)
			if err != nil {
				return err
			}
			defer out.Close()

			if !cfg.AuditPrefixes {
				return WriteSummary(out, cfg.Format, summary)
			}

			prefixes := a.Expander.PrefixTargets()
			if len(prefixes) == 0 {
				a.Logger.Info("ASN announces no prefixes, nothing to audit")
				return WriteSummary(out, cfg.Format, summary)
			}
			batch, err := a.Dashboard.SubmitIP(cmd.Context(), strings.Join(prefixes, "\n"), progressLogger(a.Logger))
			if err != nil {
				return err
			}
			return WriteResults(out, cfg.Format, batch.Results)
		},
	}

	asnCmd.Flags().BoolVar(&cfg.AuditPrefixes, "audit-prefixes", false, "Audit every announced prefix (hostmaster only)")
	asnCmd.Flags().StringVar(&cfg.Format, "format", FormatTable, "Output format: table, json, yaml, csv")
	asnCmd.Flags().StringVarP(&cfg.Output, "output", "o", "", "Write output to file instead of stdout")

	return asnCmd
}
