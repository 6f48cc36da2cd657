// Package concept resolves source-specific disclosure tags into normalized
// per-period metric observations.
package concept

import (
	"github.com/rotisserie/eris"

	"github.com/prachitbhike/insurintel-sub000/internal/edgar"
	"github.com/prachitbhike/insurintel-sub000/internal/model"
)

// Mapping ties a canonical metric to the ordered list of source tags that may
// carry it. Earlier aliases are preferred; later ones fill gaps for companies
// that changed their tagging mid-history.
type Mapping struct {
	Metric   string
	Aliases  []string
	Unit     string
	Taxonomy string
}

// Mappings is the static concept table for the insurance universe. Insurers
// are inconsistent about premium and claims tags, so most metrics carry more
// than one alias.
var Mappings = []Mapping{
	{
		Metric: model.MetricNetPremiumsEarned,
		Aliases: []string{
			"PremiumsEarnedNet",
			"PremiumsEarnedNetPropertyAndCasualty",
			"InsuranceServicesRevenue",
		},
		Unit:     "USD",
		Taxonomy: edgar.TaxonomyUSGAAP,
	},
	{
		Metric: model.MetricLossesIncurred,
		Aliases: []string{
			"PolicyholderBenefitsAndClaimsIncurredNet",
			"IncurredClaimsPropertyCasualtyAndLiability",
			"LiabilityForUnpaidClaimsAndClaimsAdjustmentExpenseIncurredClaims1",
		},
		Unit:     "USD",
		Taxonomy: edgar.TaxonomyUSGAAP,
	},
	{
		Metric: model.MetricAcquisitionCosts,
		Aliases: []string{
			"DeferredPolicyAcquisitionCostAmortizationExpense",
			"PolicyAcquisitionCosts",
		},
		Unit:     "USD",
		Taxonomy: edgar.TaxonomyUSGAAP,
	},
	{
		Metric: model.MetricUnderwritingExpenses,
		Aliases: []string{
			"OtherUnderwritingExpense",
			"InsuranceCommissionsAndFees",
		},
		Unit:     "USD",
		Taxonomy: edgar.TaxonomyUSGAAP,
	},
	{
		Metric: model.MetricMedicalClaims,
		Aliases: []string{
			"HealthCareOrganizationMedicalClaimsIncurred",
			"PolicyholderBenefitsAndClaimsIncurredHealthCare",
		},
		Unit:     "USD",
		Taxonomy: edgar.TaxonomyUSGAAP,
	},
	{
		Metric: model.MetricRevenue,
		Aliases: []string{
			"Revenues",
			"RevenueFromContractWithCustomerExcludingAssessedTax",
		},
		Unit:     "USD",
		Taxonomy: edgar.TaxonomyUSGAAP,
	},
	{
		Metric:   model.MetricNetIncome,
		Aliases:  []string{"NetIncomeLoss", "ProfitLoss"},
		Unit:     "USD",
		Taxonomy: edgar.TaxonomyUSGAAP,
	},
	{
		Metric:   model.MetricTotalAssets,
		Aliases:  []string{"Assets"},
		Unit:     "USD",
		Taxonomy: edgar.TaxonomyUSGAAP,
	},
	{
		Metric:   model.MetricTotalLiabilities,
		Aliases:  []string{"Liabilities"},
		Unit:     "USD",
		Taxonomy: edgar.TaxonomyUSGAAP,
	},
	{
		Metric: model.MetricStockholdersEquity,
		Aliases: []string{
			"StockholdersEquity",
			"StockholdersEquityIncludingPortionAttributableToNoncontrollingInterest",
		},
		Unit:     "USD",
		Taxonomy: edgar.TaxonomyUSGAAP,
	},
	{
		Metric: model.MetricTotalDebt,
		Aliases: []string{
			"DebtLongtermAndShorttermCombinedAmount",
			"LongTermDebt",
		},
		Unit:     "USD",
		Taxonomy: edgar.TaxonomyUSGAAP,
	},
	{
		// Cover-page share counts live in the filer-metadata taxonomy; their
		// period-end dates are cover dates, so period attribution trusts the
		// reported fiscal-year label instead (see Attribute).
		Metric:   model.MetricSharesOutstanding,
		Aliases:  []string{"EntityCommonStockSharesOutstanding"},
		Unit:     "shares",
		Taxonomy: edgar.TaxonomyDEI,
	},
}

// MappingFor returns the mapping for a canonical metric name.
func MappingFor(metric string) (Mapping, bool) {
	for _, m := range Mappings {
		if m.Metric == metric {
			return m, true
		}
	}
	return Mapping{}, false
}

// ValidateMappings checks the concept table for structural problems. Run at
// startup so a bad table fails fast instead of silently dropping a metric.
func ValidateMappings() error {
	seen := make(map[string]bool, len(Mappings))
	for _, m := range Mappings {
		if m.Metric == "" {
			return eris.New("concept: mapping with empty metric name")
		}
		if seen[m.Metric] {
			return eris.Errorf("concept: duplicate mapping for metric %q", m.Metric)
		}
		seen[m.Metric] = true
		if len(m.Aliases) == 0 {
			return eris.Errorf("concept: metric %q has no aliases", m.Metric)
		}
		if m.Unit == "" {
			return eris.Errorf("concept: metric %q has no unit", m.Metric)
		}
		if m.Taxonomy != edgar.TaxonomyUSGAAP && m.Taxonomy != edgar.TaxonomyDEI {
			return eris.Errorf("concept: metric %q has unknown taxonomy %q", m.Metric, m.Taxonomy)
		}
		aliasSeen := make(map[string]bool, len(m.Aliases))
		for _, a := range m.Aliases {
			if aliasSeen[a] {
				return eris.Errorf("concept: metric %q lists alias %q twice", m.Metric, a)
			}
			aliasSeen[a] = true
		}
	}
	return nil
}
