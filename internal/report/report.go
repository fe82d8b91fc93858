// Package report turns scan results into the audit report: RPKI grouping,
// ROA fix suggestions and the CSV export.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"resvalidator/internal/models"
)

type Status string

const (
	StatusValid   Status = "valid"
	StatusInvalid Status = "invalid"
	StatusUnknown Status = "unknown"
)

const ASNPlaceholder = "(YOUR ASN)"

// Headers is the column set of the CSV export.
var Headers = []string{
	"CIDR",
	"Parent Network",
	"Parent Name",
	"Parent Description",
	"Sub-Allocations",
	"RPKI Status",
	"RPKI Detail",
	"Visibility",
	"Detected Upstreams",
	"Route Objects (IRR)",
	"Reverse DNS (PTR)",
	"Fix Suggestion (ASN)",
}

// Classify groups a backend RPKI status string. INVALID is checked first
// because it contains VALID.
func Classify(status string) Status {
	s := strings.ToUpper(status)
	switch {
	case strings.Contains(s, "INVALID"):
		return StatusInvalid
	case strings.Contains(s, "VALID"):
		return StatusValid
	default:
		return StatusUnknown
	}
}

// SuggestedASN extracts the origin of the first IRR route object, e.g.
// "AS13335@RADB | AS13335@ARIN" yields "AS13335".
func SuggestedASN(irr string) string {
	irr = strings.TrimSpace(irr)
	if irr == "" || irr == "-" || !strings.Contains(strings.ToUpper(irr), "AS") {
		return ASNPlaceholder
	}
	first := strings.SplitN(irr, " | ", 2)[0]
	origin := strings.TrimSpace(strings.SplitN(first, "@", 2)[0])
	if origin == "" {
		return ASNPlaceholder
	}
	return origin
}

func MaxLength(cidr string) int {
	if strings.Contains(cidr, ":") {
		return 48
	}
	return 24
}

// ROAFix is the one-line suggestion shown in the export, "-" when the
// prefix is already covered.
func ROAFix(r models.ScanResult) string {
	if Classify(r.RPKIStatus) == StatusValid {
		return "-"
	}
	return fmt.Sprintf("Create ROA: %s (MaxLen /%d)", SuggestedASN(r.IRRObjects), MaxLength(r.CIDR))
}

// ROAConfig is the copyable block an operator pastes into the RIR portal.
func ROAConfig(r models.ScanResult) string {
	return fmt.Sprintf("ASN: %s\nPrefix: %s\nMax Length: /%d", SuggestedASN(r.IRRObjects), r.CIDR, MaxLength(r.CIDR))
}

func subAllocations(children string) string {
	if children == "" || children == "-" {
		return "-"
	}
	return strings.ReplaceAll(children, " | ", "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Row renders one result in Headers order.
func Row(r models.ScanResult) []string {
	return []string{
		r.CIDR,
		r.ParentNet,
		r.ParentName,
		r.ParentDesc,
		subAllocations(r.Children),
		r.RPKIStatus,
		r.RPKIDetail,
		r.Visibility,
		orDash(r.Upstreams),
		r.IRRObjects,
		r.PTRRecord,
		ROAFix(r),
	}
}

// WriteCSV writes the header and one row per result. Every cell is quoted
// and embedded quotes are doubled.
func WriteCSV(w io.Writer, results []models.ScanResult) error {
	bw := bufio.NewWriter(w)
	if err := writeQuotedRow(bw, Headers); err != nil {
		return fmt.Errorf("csv: header: %w", err)
	}
	for i, r := range results {
		if err := writeQuotedRow(bw, Row(r)); err != nil {
			return fmt.Errorf("csv: row %d: %w", i+1, err)
		}
	}
	return bw.Flush()
}

// bufio.Writer errors are sticky, so the final write reports any failure.
func writeQuotedRow(w *bufio.Writer, cells []string) error {
	for i, cell := range cells {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		w.WriteByte('"')
	}
	_, err := w.WriteString("\n")
	return err
}

// Filename is the dated download name, using the UTC date.
func Filename(t time.Time) string {
	return fmt.Sprintf("Audit_Report_%s.csv", t.UTC().Format("2006-01-02"))
}

type Summary struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
	Unknown int `json:"unknown"`
	IPv6    int `json:"ipv6"`
}

func Summarize(results []models.ScanResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch Classify(r.RPKIStatus) {
		case StatusValid:
			s.Valid++
		case StatusInvalid:
			s.Invalid++
		default:
			s.Unknown++
		}
		if r.IsIPv6() {
			s.IPv6++
		}
	}
	return s
}
