// Package derive computes secondary financial ratios from raw per-period
// observations. Every function here is pure: no I/O, deterministic, and each
// rule guards its own preconditions so one missing input never suppresses an
// unrelated output.
package derive

import (
	"github.com/prachitbhike/insurintel-sub000/internal/model"
)

// minSharesOutstanding filters out companies whose share-count fact covers
// only a minor share class; per-share figures from those are meaningless.
const minSharesOutstanding = 1_000_000

// PeriodValues maps canonical metric names to their raw values for exactly
// one (fiscal year, quarter, period type) tuple of one company.
type PeriodValues map[string]float64

// Derived is one computed metric for the same period as its inputs.
type Derived struct {
	Metric string
	Value  float64
	Unit   string
}

// Derive computes all derivable ratios for one period. Passing the zero
// Sector ("") disables sector restrictions, which callers without sector
// context use for the health-only medical loss ratio.
func Derive(vals PeriodValues, sector model.Sector) []Derived {
	var out []Derived

	underwriting := sector == "" || sector.IsUnderwriting()

	var lossRatio, expenseRatio *float64

	if underwriting {
		if losses, ok := vals[model.MetricLossesIncurred]; ok {
			if premiums, ok := vals[model.MetricNetPremiumsEarned]; ok && premiums != 0 {
				lr := losses / premiums * 100
				lossRatio = &lr
				out = append(out, Derived{model.MetricLossRatio, lr, "percent"})
			}
		}

		// Either expense addend may be missing; the sum must still be
		// positive to mean anything.
		acq, hasAcq := vals[model.MetricAcquisitionCosts]
		uw, hasUW := vals[model.MetricUnderwritingExpenses]
		if hasAcq || hasUW {
			if sum := acq + uw; sum > 0 {
				if premiums, ok := vals[model.MetricNetPremiumsEarned]; ok && premiums != 0 {
					er := sum / premiums * 100
					expenseRatio = &er
					out = append(out, Derived{model.MetricExpenseRatio, er, "percent"})
				}
			}
		}

		// Combined ratio depends on both components being derived in this
		// same pass, never recomputed from raw inputs.
		if lossRatio != nil && expenseRatio != nil {
			out = append(out, Derived{model.MetricCombinedRatio, *lossRatio + *expenseRatio, "percent"})
		}
	}

	equity, hasEquity := vals[model.MetricStockholdersEquity]

	if income, ok := vals[model.MetricNetIncome]; ok {
		// Negative equity (e.g. from aggressive buybacks) makes the ratio
		// explosive and sign-flipped; suppress rather than emit nonsense.
		if hasEquity && equity > 0 {
			out = append(out, Derived{model.MetricROE, income / equity * 100, "percent"})
		}
		if assets, ok := vals[model.MetricTotalAssets]; ok && assets != 0 {
			out = append(out, Derived{model.MetricROA, income / assets * 100, "percent"})
		}
	}

	if hasEquity && equity > 0 {
		if shares, ok := vals[model.MetricSharesOutstanding]; ok && shares >= minSharesOutstanding {
			out = append(out, Derived{model.MetricBookValuePerShare, equity / shares, "USD"})
		}
		if debt, ok := vals[model.MetricTotalDebt]; ok {
			out = append(out, Derived{model.MetricDebtToEquity, debt / equity, "ratio"})
		}
	}

	// Accounting-identity backfill, only when the source reported no direct
	// liabilities figure for the period.
	if _, ok := vals[model.MetricTotalLiabilities]; !ok {
		if assets, ok := vals[model.MetricTotalAssets]; ok && hasEquity {
			out = append(out, Derived{model.MetricTotalLiabilities, assets - equity, "USD"})
		}
	}

	if sector == "" || sector == model.SectorHealth {
		if claims, ok := vals[model.MetricMedicalClaims]; ok {
			denom, hasDenom := vals[model.MetricNetPremiumsEarned]
			if !hasDenom {
				denom, hasDenom = vals[model.MetricRevenue]
			}
			if hasDenom && denom != 0 {
				out = append(out, Derived{model.MetricMedicalLossRatio, claims / denom * 100, "percent"})
			}
		}
	}

	return out
}
