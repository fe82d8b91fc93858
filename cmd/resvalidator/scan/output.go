package scan

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"resvalidator/internal/models"
	"resvalidator/internal/report"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatCSV   = "csv"
)

// ValidateFormat rejects unknown --format values before any work is done.
func ValidateFormat(format string) error {
	switch format {
	case FormatTable, FormatJSON, FormatYAML, FormatCSV:
		return nil
	}
	return fmt.Errorf("unknown output format %q (table, json, yaml, csv)", format)
}

// OpenOutput returns stdout or the named file.
func OpenOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// WriteResults renders scan results in the requested format.
func WriteResults(w io.Writer, format string, results []models.ScanResult) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, results)
	case FormatYAML:
		return yaml.NewEncoder(w).Encode(results)
	case FormatCSV:
		return report.WriteCSV(w, results)
	default:
		return writeResultTable(w, results)
	}
}

// WriteSummary renders an ASN summary in the requested format.
func WriteSummary(w io.Writer, format string, summary *models.AsnSummary) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, summary)
	case FormatYAML:
		return yaml.NewEncoder(w).Encode(summary)
	case FormatCSV:
		for _, p := range summary.Prefixes() {
			if _, err := fmt.Fprintln(w, p); err != nil {
				return err
			}
		}
		return nil
	default:
		fmt.Fprintf(w, "%s  %s\n", summary.ASN, summary.Holder)
		fmt.Fprintf(w, "IPv4 prefixes: %d  IPv6 prefixes: %d\n", summary.TotalV4, summary.TotalV6)
		if len(summary.Upstreams) > 0 {
			fmt.Fprintf(w, "Upstreams: %s\n", strings.Join(summary.Upstreams, ", "))
		}
		for _, p := range summary.Prefixes() {
			fmt.Fprintf(w, "  %s\n", p)
		}
		return nil
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	_, err = w.Write(raw)
	return err
}

func writeResultTable(w io.Writer, results []models.ScanResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CIDR\tPARENT\tRPKI\tVISIBILITY\tIRR\tPTR\tFIX")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.CIDR, dash(r.ParentName), dash(r.RPKIStatus), dash(r.Visibility), dash(r.IRRObjects), dash(r.PTRRecord), report.ROAFix(r))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := report.Summarize(results)
	_, err := fmt.Fprintf(w, "\n%d records: %d valid, %d invalid, %d unknown\n", s.Total, s.Valid, s.Invalid, s.Unknown)
	return err
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
