// Package model defines the shared types of the tax schedule pipeline and lookup service.
package model

import (
	"github.com/shopspring/decimal"
)

// NoSubJurisdiction is the persisted sub-jurisdiction value for jurisdiction-level records.
const NoSubJurisdiction = "0"

// Policy holds the fixed parameters of a single-region rate schedule.
type Policy struct {
	Region         string          `json:"region"`
	RegionRate     decimal.Decimal `json:"region_rate"`
	OverlayName    string          `json:"overlay_name"`
	OverlayRate    decimal.Decimal `json:"overlay_rate"`
	Umbrella       string          `json:"umbrella"`
	NoLocalName    string          `json:"no_local_name"`
	FootnoteMarker string          `json:"footnote_marker"`
	DefaultRate    decimal.Decimal `json:"default_rate"`
}

// DefaultPolicy returns the New York schedule parameters.
func DefaultPolicy() Policy {
	return Policy{
		Region:         "NY",
		RegionRate:     decimal.RequireFromString("0.04"),
		OverlayName:    "MCTD",
		OverlayRate:    decimal.RequireFromString("0.00375"),
		Umbrella:       "New York City",
		NoLocalName:    "New York State only",
		FootnoteMarker: "*",
		DefaultRate:    decimal.RequireFromString("0.04"),
	}
}
