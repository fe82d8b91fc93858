package models

import (
	"strings"

	"resvalidator/pkg/validator"
)

// ScanResult is one audit record returned by the backend per resolved CIDR.
// The orchestrator treats it as opaque.
type ScanResult struct {
	CIDR       string `json:"cidr" yaml:"cidr" mapstructure:"cidr"`
	ParentNet  string `json:"parent_net" yaml:"parent_net" mapstructure:"parent_net"`
	ParentName string `json:"parent_name" yaml:"parent_name" mapstructure:"parent_name"`
	ParentDesc string `json:"parent_desc" yaml:"parent_desc" mapstructure:"parent_desc"`
	Children   string `json:"children" yaml:"children" mapstructure:"children"`
	RPKIStatus string `json:"rpki_status" yaml:"rpki_status" mapstructure:"rpki_status"`
	RPKIDetail string `json:"rpki_detail" yaml:"rpki_detail" mapstructure:"rpki_detail"`
	Visibility string `json:"visibility" yaml:"visibility" mapstructure:"visibility"`
	IRRObjects string `json:"irr_objects" yaml:"irr_objects" mapstructure:"irr_objects"`
	PTRRecord  string `json:"ptr_record" yaml:"ptr_record" mapstructure:"ptr_record"`
	Upstreams  string `json:"upstreams,omitempty" yaml:"upstreams,omitempty" mapstructure:"upstreams"`
}

// IsIPv6 reports whether the result's CIDR is an IPv6 prefix.
func (r ScanResult) IsIPv6() bool {
	return strings.Contains(r.CIDR, ":")
}

// AsnSummary is the backend's expansion of an ASN into its announced prefixes.
type AsnSummary struct {
	ASN        string   `json:"asn" yaml:"asn"`
	Holder     string   `json:"holder" yaml:"holder"`
	TotalV4    int      `json:"total_v4" yaml:"total_v4"`
	TotalV6    int      `json:"total_v6" yaml:"total_v6"`
	PrefixesV4 []string `json:"prefixes_v4" yaml:"prefixes_v4"`
	PrefixesV6 []string `json:"prefixes_v6" yaml:"prefixes_v6"`
	Upstreams  []string `json:"upstreams" yaml:"upstreams"`
}

// Prefixes returns the IPv4 prefixes followed by the IPv6 prefixes.
func (s *AsnSummary) Prefixes() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.PrefixesV4)+len(s.PrefixesV6))
	out = append(out, s.PrefixesV4...)
	out = append(out, s.PrefixesV6...)
	return out
}

// HistoryEntry records one completed scan for later restoration. Field names
// follow the persisted history format.
type HistoryEntry struct {
	ID      int64          `json:"id" yaml:"id"`
	Date    string         `json:"date" yaml:"date"`
	Mode    validator.Mode `json:"mode" yaml:"mode"`
	Input   string         `json:"input" yaml:"input"`
	IPData  []ScanResult   `json:"ipData,omitempty" yaml:"ipData,omitempty"`
	ASNData *AsnSummary    `json:"asnData,omitempty" yaml:"asnData,omitempty"`
}
