package concept

import (
	"strings"

	"github.com/prachitbhike/insurintel-sub000/internal/edgar"
	"github.com/prachitbhike/insurintel-sub000/internal/model"
)

// PeriodAttribution is the normalized fiscal period assigned to one
// observation.
type PeriodAttribution struct {
	FiscalYear    int
	FiscalQuarter *int // nil for annual periods and unparseable labels
	PeriodType    model.PeriodType
}

// Attribute assigns a fiscal year, quarter, and period type to a resolved
// observation. It returns false when the attributed year falls outside the
// lookback window; this filter uses the attributed year, not the source
// label, so it must be applied even though the resolver already filtered on
// the raw label.
//
// For us-gaap facts the fiscal year is the calendar year of the period-end
// date. The source's own fiscal-year label is wrong for our purposes: filings
// stamp comparative prior-year data with the filing's year, which would pull
// old periods into the current year. The dei taxonomy is the exception — its
// period-end dates are cover-page dates (often a January date in the
// following year), so there the reported label is the honest signal.
func Attribute(obs model.RawObservation, taxonomy string, minYear int) (PeriodAttribution, bool) {
	var fy int
	if taxonomy == edgar.TaxonomyDEI {
		fy = obs.FiscalYear
	} else {
		fy = obs.PeriodEnd.Year()
	}

	if fy < minYear {
		return PeriodAttribution{}, false
	}

	pa := PeriodAttribution{FiscalYear: fy}
	if strings.HasPrefix(obs.Form, "10-Q") {
		pa.PeriodType = model.PeriodQuarterly
		pa.FiscalQuarter = parseQuarter(obs.FiscalLabel)
	} else {
		pa.PeriodType = model.PeriodAnnual
	}

	return pa, true
}

// parseQuarter maps a fiscal-period label to a quarter number. Labels other
// than Q1..Q4 yield nil; the row is kept but quarter-unresolved.
func parseQuarter(label string) *int {
	var q int
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "Q1":
		q = 1
	case "Q2":
		q = 2
	case "Q3":
		q = 3
	case "Q4":
		q = 4
	default:
		return nil
	}
	return &q
}
