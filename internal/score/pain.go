package score

import (
	"github.com/rotisserie/eris"

	"github.com/prachitbhike/insurintel-sub000/internal/model"
)

// PainMetric is one candidate pain indicator for a sector. Invert marks
// metrics where a lower value signals more operational pain (e.g. thin
// returns), so normalization swaps the sector min and max.
type PainMetric struct {
	Metric string
	Invert bool
}

// painMetricsBySector is the fixed candidate table, in evaluation order.
// The scorer keeps whichever candidate normalizes to the highest score.
var painMetricsBySector = map[model.Sector][]PainMetric{
	model.SectorPC: {
		{Metric: model.MetricCombinedRatio},
		{Metric: model.MetricLossRatio},
		{Metric: model.MetricExpenseRatio},
	},
	model.SectorLife: {
		{Metric: model.MetricROE, Invert: true},
		{Metric: model.MetricDebtToEquity},
	},
	model.SectorHealth: {
		{Metric: model.MetricMedicalLossRatio},
		{Metric: model.MetricROE, Invert: true},
	},
	model.SectorReinsurance: {
		{Metric: model.MetricCombinedRatio},
		{Metric: model.MetricLossRatio},
	},
	model.SectorBrokers: {
		{Metric: model.MetricROE, Invert: true},
		{Metric: model.MetricDebtToEquity},
	},
	model.SectorTitle: {
		{Metric: model.MetricExpenseRatio},
		{Metric: model.MetricLossRatio},
	},
	model.SectorMortgage: {
		{Metric: model.MetricLossRatio},
		{Metric: model.MetricDebtToEquity},
	},
}

// ValidatePainTable checks every sector has at least one candidate pain
// metric. Run at startup alongside the concept table check.
func ValidatePainTable() error {
	for _, sec := range model.AllSectors {
		if len(painMetricsBySector[sec]) == 0 {
			return eris.Errorf("score: sector %q has no pain metrics", sec)
		}
	}
	return nil
}
