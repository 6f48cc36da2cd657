package derive

import (
	"math"
	"sort"

	"github.com/prachitbhike/insurintel-sub000/internal/model"
)

// PremiumGrowth computes year-over-year growth of annual net premiums earned
// from already-persisted observations. It runs as a separate post-pass rather
// than inside Derive because it needs two consecutive stored annual periods,
// not one period's values. Restricted to underwriting sectors; growth of
// broker commissions is not premium growth.
func PremiumGrowth(annual []model.MetricObservation, sector model.Sector) []model.MetricObservation {
	if !sector.IsUnderwriting() {
		return nil
	}

	byYear := make(map[int]model.MetricObservation, len(annual))
	for _, obs := range annual {
		if obs.Metric != model.MetricNetPremiumsEarned || obs.PeriodType != model.PeriodAnnual {
			continue
		}
		byYear[obs.FiscalYear] = obs
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	var out []model.MetricObservation
	for _, y := range years {
		prev, ok := byYear[y-1]
		if !ok || prev.Value == 0 {
			continue
		}
		curr := byYear[y]
		growth := (curr.Value - prev.Value) / math.Abs(prev.Value) * 100
		out = append(out, model.MetricObservation{
			CompanyID:  curr.CompanyID,
			Metric:     model.MetricPremiumGrowthYoY,
			Value:      growth,
			Unit:       "percent",
			PeriodType: model.PeriodAnnual,
			FiscalYear: y,
			Provenance: model.ProvenanceDerived,
		})
	}
	return out
}
