package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prachitbhike/insurintel-sub000/internal/model"
)

func derivedValue(t *testing.T, results []Derived, metric string) float64 {
	t.Helper()
	for _, d := range results {
		if d.Metric == metric {
			return d.Value
		}
	}
	t.Fatalf("metric %s not derived", metric)
	return 0
}

func hasDerived(results []Derived, metric string) bool {
	for _, d := range results {
		if d.Metric == metric {
			return true
		}
	}
	return false
}

func TestDerive_UnderwritingRatios(t *testing.T) {
	vals := PeriodValues{
		model.MetricLossesIncurred:       700,
		model.MetricNetPremiumsEarned:    1000,
		model.MetricAcquisitionCosts:     150,
		model.MetricUnderwritingExpenses: 100,
	}

	out := Derive(vals, model.SectorPC)
	assert.InDelta(t, 70.0, derivedValue(t, out, model.MetricLossRatio), 1e-9)
	assert.InDelta(t, 25.0, derivedValue(t, out, model.MetricExpenseRatio), 1e-9)
	assert.InDelta(t, 95.0, derivedValue(t, out, model.MetricCombinedRatio), 1e-9)
}

func TestDerive_BrokersGetNoUnderwritingRatios(t *testing.T) {
	vals := PeriodValues{
		model.MetricLossesIncurred:    700,
		model.MetricNetPremiumsEarned: 1000,
	}

	out := Derive(vals, model.SectorBrokers)
	assert.False(t, hasDerived(out, model.MetricLossRatio))
	assert.False(t, hasDerived(out, model.MetricCombinedRatio))
}

func TestDerive_ExpenseRatioMissingAddendTreatedAsZero(t *testing.T) {
	vals := PeriodValues{
		model.MetricNetPremiumsEarned: 1000,
		model.MetricAcquisitionCosts:  200,
	}

	out := Derive(vals, model.SectorPC)
	assert.InDelta(t, 20.0, derivedValue(t, out, model.MetricExpenseRatio), 1e-9)
}

func TestDerive_ExpenseRatioRequiresPositiveSum(t *testing.T) {
	vals := PeriodValues{
		model.MetricNetPremiumsEarned:    1000,
		model.MetricAcquisitionCosts:     0,
		model.MetricUnderwritingExpenses: 0,
	}

	out := Derive(vals, model.SectorPC)
	assert.False(t, hasDerived(out, model.MetricExpenseRatio))
}

func TestDerive_CombinedRequiresBothComponents(t *testing.T) {
	// Losses missing: loss ratio suppressed, so combined must be too, even
	// though the expense ratio computed fine.
	vals := PeriodValues{
		model.MetricNetPremiumsEarned:    1000,
		model.MetricAcquisitionCosts:     220,
		model.MetricUnderwritingExpenses: 100,
	}

	out := Derive(vals, model.SectorPC)
	assert.InDelta(t, 32.0, derivedValue(t, out, model.MetricExpenseRatio), 1e-9)
	assert.False(t, hasDerived(out, model.MetricLossRatio))
	assert.False(t, hasDerived(out, model.MetricCombinedRatio))
}

func TestDerive_ROESuppressedOnNegativeEquity(t *testing.T) {
	vals := PeriodValues{
		model.MetricNetIncome:          100,
		model.MetricStockholdersEquity: -500,
	}

	out := Derive(vals, model.SectorPC)
	assert.False(t, hasDerived(out, model.MetricROE))
	assert.False(t, hasDerived(out, model.MetricBookValuePerShare))
	assert.False(t, hasDerived(out, model.MetricDebtToEquity))
}

func TestDerive_ROAGuardsZeroAssets(t *testing.T) {
	out := Derive(PeriodValues{
		model.MetricNetIncome:   100,
		model.MetricTotalAssets: 0,
	}, model.SectorPC)
	assert.False(t, hasDerived(out, model.MetricROA))

	out = Derive(PeriodValues{
		model.MetricNetIncome:   100,
		model.MetricTotalAssets: 2000,
	}, model.SectorPC)
	assert.InDelta(t, 5.0, derivedValue(t, out, model.MetricROA), 1e-9)
}

func TestDerive_BookValuePerShare(t *testing.T) {
	tests := []struct {
		name   string
		equity float64
		shares float64
		want   *float64
	}{
		{"normal", 5_000_000_000, 100_000_000, floatPtr(50)},
		{"share floor", 5_000_000_000, 500_000, nil},
		{"negative equity", -100, 100_000_000, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Derive(PeriodValues{
				model.MetricStockholdersEquity: tt.equity,
				model.MetricSharesOutstanding:  tt.shares,
			}, model.SectorLife)
			if tt.want == nil {
				assert.False(t, hasDerived(out, model.MetricBookValuePerShare))
			} else {
				assert.InDelta(t, *tt.want, derivedValue(t, out, model.MetricBookValuePerShare), 1e-9)
			}
		})
	}
}

func TestDerive_LiabilitiesBackfillOnlyWhenMissing(t *testing.T) {
	// No direct liabilities reported: backfill assets - equity.
	out := Derive(PeriodValues{
		model.MetricTotalAssets:        10_000,
		model.MetricStockholdersEquity: 3_000,
	}, model.SectorPC)
	assert.InDelta(t, 7_000.0, derivedValue(t, out, model.MetricTotalLiabilities), 1e-9)

	// Direct figure present: never overwritten by the identity.
	out = Derive(PeriodValues{
		model.MetricTotalAssets:        10_000,
		model.MetricStockholdersEquity: 3_000,
		model.MetricTotalLiabilities:   6_900,
	}, model.SectorPC)
	assert.False(t, hasDerived(out, model.MetricTotalLiabilities))
}

func TestDerive_MedicalLossRatio(t *testing.T) {
	vals := PeriodValues{
		model.MetricMedicalClaims:     850,
		model.MetricNetPremiumsEarned: 1000,
	}

	// Health sector: computed.
	out := Derive(vals, model.SectorHealth)
	assert.InDelta(t, 85.0, derivedValue(t, out, model.MetricMedicalLossRatio), 1e-9)

	// Other sectors: suppressed.
	out = Derive(vals, model.SectorPC)
	assert.False(t, hasDerived(out, model.MetricMedicalLossRatio))

	// No sector filter: computed.
	out = Derive(vals, "")
	assert.True(t, hasDerived(out, model.MetricMedicalLossRatio))
}

func TestDerive_MedicalLossRatioRevenueFallback(t *testing.T) {
	out := Derive(PeriodValues{
		model.MetricMedicalClaims: 850,
		model.MetricRevenue:       1250,
	}, model.SectorHealth)
	assert.InDelta(t, 68.0, derivedValue(t, out, model.MetricMedicalLossRatio), 1e-9)
}

func TestDerive_EmptyInputDerivesNothing(t *testing.T) {
	assert.Empty(t, Derive(PeriodValues{}, model.SectorPC))
}

func TestPremiumGrowth(t *testing.T) {
	annual := []model.MetricObservation{
		obsYear(2022, 1000),
		obsYear(2023, 1100),
		obsYear(2024, 990),
	}

	out := PremiumGrowth(annual, model.SectorPC)
	require.Len(t, out, 2)
	assert.Equal(t, 2023, out[0].FiscalYear)
	assert.InDelta(t, 10.0, out[0].Value, 1e-9)
	assert.Equal(t, 2024, out[1].FiscalYear)
	assert.InDelta(t, -10.0, out[1].Value, 1e-9)
	for _, o := range out {
		assert.Equal(t, model.ProvenanceDerived, o.Provenance)
		assert.Empty(t, o.Accession)
	}
}

func TestPremiumGrowth_NegativePriorUsesAbsDenominator(t *testing.T) {
	annual := []model.MetricObservation{
		obsYear(2023, -200),
		obsYear(2024, 100),
	}

	out := PremiumGrowth(annual, model.SectorPC)
	require.Len(t, out, 1)
	assert.InDelta(t, 150.0, out[0].Value, 1e-9)
}

func TestPremiumGrowth_SkipsGapsAndBrokers(t *testing.T) {
	annual := []model.MetricObservation{
		obsYear(2021, 900),
		obsYear(2024, 1200), // no 2023 to pair with
	}
	assert.Empty(t, PremiumGrowth(annual, model.SectorPC))
	assert.Empty(t, PremiumGrowth([]model.MetricObservation{
		obsYear(2023, 900), obsYear(2024, 950),
	}, model.SectorBrokers))
}

func obsYear(fy int, val float64) model.MetricObservation {
	return model.MetricObservation{
		CompanyID:  1,
		Metric:     model.MetricNetPremiumsEarned,
		Value:      val,
		Unit:       "USD",
		PeriodType: model.PeriodAnnual,
		FiscalYear: fy,
		Provenance: model.ProvenanceRaw,
	}
}

func floatPtr(v float64) *float64 { return &v }
