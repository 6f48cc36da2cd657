// Package model holds the shared domain types for the ingestion and scoring pipeline.
package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Sector classifies an insurance company by its primary line of business.
type Sector string

const (
	SectorPC          Sector = "pc"           // property & casualty
	SectorLife        Sector = "life"
	SectorHealth      Sector = "health"
	SectorReinsurance Sector = "reinsurance"
	SectorBrokers     Sector = "brokers"
	SectorTitle       Sector = "title"
	SectorMortgage    Sector = "mortgage"     // mortgage insurance
)

// AllSectors lists every valid sector, in display order.
var AllSectors = []Sector{
	SectorPC,
	SectorLife,
	SectorHealth,
	SectorReinsurance,
	SectorBrokers,
	SectorTitle,
	SectorMortgage,
}

// ParseSector converts a string into a Sector.
func ParseSector(s string) (Sector, error) {
	for _, sec := range AllSectors {
		if string(sec) == s {
			return sec, nil
		}
	}
	return "", eris.Errorf("unknown sector: %q", s)
}

// IsUnderwriting reports whether the sector writes insurance risk directly,
// making premium-based ratios (loss, expense, combined) meaningful.
// Brokers earn commissions, not premiums, so they are excluded.
func (s Sector) IsUnderwriting() bool {
	switch s {
	case SectorPC, SectorLife, SectorHealth, SectorReinsurance, SectorTitle, SectorMortgage:
		return true
	default:
		return false
	}
}

// Company is a member of the fixed tracking universe. Sector is assigned at
// seed time and never changes afterward.
type Company struct {
	ID             int64      `json:"id"`
	CIK            string     `json:"cik"`
	Ticker         string     `json:"ticker"`
	Name           string     `json:"name"`
	Sector         Sector     `json:"sector"`
	SubSector      string     `json:"sub_sector,omitempty"`
	LastIngestedAt *time.Time `json:"last_ingested_at,omitempty"`
}
