package history

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"resvalidator/cmd/resvalidator/app"
	"resvalidator/cmd/resvalidator/scan"
	"resvalidator/internal/models"
	"resvalidator/internal/report"
	apperrors "resvalidator/pkg/errors"
	"resvalidator/pkg/validator"

	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command and its subcommands
func NewHistoryCommand(opts *app.Options) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show, restore or clear recent scans",
	}

	historyCmd.AddCommand(newListCommand(opts))
	historyCmd.AddCommand(newShowCommand(opts))
	historyCmd.AddCommand(newClearCommand(opts))
	return historyCmd
}

func newListCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recent scans, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			a, err := app.New(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			entries := a.History.List()
			if len(entries) == 0 {
				fmt.Println("No scans recorded yet")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTIME\tMODE\tINPUT\tRECORDS")
			for _, e := range entries {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Date, e.Mode, summarizeInput(e.Input), records(e))
			}
			return tw.Flush()
		},
	}
}

func newShowCommand(opts *app.Options) *cobra.Command {
	var format string

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the results stored with a history entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if err := scan.ValidateFormat(format); err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid history id %q", args[0])
			}

			a, err := app.New(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			state, err := a.Dashboard.Restore(id)
			if err != nil {
				return err
			}
			if state.Mode == validator.ModeASN && state.ASNData != nil {
				return scan.WriteSummary(os.Stdout, format, state.ASNData)
			}
			return scan.WriteResults(os.Stdout, format, state.Results)
		},
	}

	showCmd.Flags().StringVar(&format, "format", scan.FormatTable, "Output format: table, json, yaml, csv")
	return showCmd
}

func newClearCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			a, err := app.New(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.History.Clear(); err != nil {
				return err
			}
			fmt.Println("History cleared")
			return nil
		},
	}
}

// NewExportCommand creates the export command
func NewExportCommand(opts *app.Options) *cobra.Command {
	var output string

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the latest IP scan as CSV (hostmaster only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			a, err := app.New(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.Session.IsPrivileged() {
				return apperrors.ErrNotPrivileged
			}
			entry, ok := a.History.Latest(validator.ModeIP)
			if !ok {
				return fmt.Errorf("no IP scan in history to export")
			}

			if output == "" {
				output = report.Filename(time.Now())
			}
			out, err := scan.OpenOutput(output)
			if err != nil {
				return err
			}
			defer out.Close()

			if err := report.WriteCSV(out, entry.IPData); err != nil {
				return err
			}
			if output != "-" {
				a.Logger.WithField("file", output).Infof("Exported %d records", len(entry.IPData))
			}
			return nil
		},
	}

	exportCmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default Audit_Report_<date>.csv, - for stdout)")
	return exportCmd
}

func summarizeInput(input string) string {
	lines := validator.SplitLines(input)
	switch len(lines) {
	case 0:
		return "-"
	case 1:
		return lines[0]
	default:
		return fmt.Sprintf("%s (+%d more)", lines[0], len(lines)-1)
	}
}

func records(e models.HistoryEntry) string {
	if e.Mode == validator.ModeASN {
		if e.ASNData == nil {
			return "-"
		}
		return fmt.Sprintf("%d v4 / %d v6", e.ASNData.TotalV4, e.ASNData.TotalV6)
	}
	return strconv.Itoa(len(e.IPData))
}
