// Package validator classifies scan input lines before any network call is made.
package validator

import (
	"regexp"
	"strings"
)

// Mode is the kind of input a line is checked against.
type Mode string

const (
	ModeIP  Mode = "IP"
	ModeASN Mode = "ASN"
)

// Kind is the syntactic class a line was accepted as.
type Kind string

const (
	KindInvalid Kind = ""
	KindIPv4    Kind = "ipv4"
	KindIPv6    Kind = "ipv6"
	KindRange   Kind = "range"
	KindASN     Kind = "asn"
)

const octet = `(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)`

var (
	asnPattern   = regexp.MustCompile(`(?i)^AS\d+$`)
	ipv4Pattern  = regexp.MustCompile(`^(?:` + octet + `\.){3}` + octet + `(?:/(?:3[0-2]|[1-2]?[0-9]))?$`)
	ipv6Pattern  = regexp.MustCompile(`^([0-9a-fA-F]{1,4}:){1,7}:?([0-9a-fA-F]{1,4})?(/[0-9]{1,3})?$`)
	rangePattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\s*-\s*\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
)

// ParseMode maps user input to a Mode, defaulting to IP.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeASN)) {
		return ModeASN
	}
	return ModeIP
}

// Validate reports whether line is acceptable for mode. The line is expected
// to be trimmed already; blank lines are the caller's job.
func Validate(line string, mode Mode) bool {
	return Classify(line, mode) != KindInvalid
}

// Classify returns the syntactic class of line under mode, or KindInvalid.
func Classify(line string, mode Mode) Kind {
	if mode == ModeASN {
		if asnPattern.MatchString(line) {
			return KindASN
		}
		return KindInvalid
	}

	switch {
	case ipv4Pattern.MatchString(line):
		return KindIPv4
	case ipv6Pattern.MatchString(line):
		return KindIPv6
	case rangePattern.MatchString(line):
		return KindRange
	}
	return KindInvalid
}

// SplitLines returns the trimmed, non-blank lines of raw in input order.
func SplitLines(raw string) []string {
	parts := strings.Split(raw, "\n")
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		lines = append(lines, p)
	}
	return lines
}
