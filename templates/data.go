package templates

import (
	"strings"

	"resvalidator/internal/models"
	"resvalidator/internal/report"
	"resvalidator/internal/services"
	"resvalidator/pkg/validator"
)

// PageData is everything the report page shows.
type PageData struct {
	State      services.DisplayState
	History    []models.HistoryEntry
	Privileged bool
}

func (d PageData) Role() string {
	if d.Privileged {
		return "Hostmaster"
	}
	return "Guest"
}

func statusClass(status string) string {
	return string(report.Classify(status))
}

func subAllocations(children string) []string {
	if children == "" || children == "-" {
		return []string{"-"}
	}
	return strings.Split(children, " | ")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func needsROA(r models.ScanResult) bool {
	return report.Classify(r.RPKIStatus) != report.StatusValid
}

func historyLabel(h models.HistoryEntry) string {
	if h.Mode == validator.ModeIP {
		return strings.Join(validator.SplitLines(h.Input), ", ")
	}
	return h.Input
}
