package model

// TrendDirection classifies the recent trajectory of a company's pain metric.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendWorsening TrendDirection = "worsening"
	TrendStable    TrendDirection = "stable"
)

// SectorStats holds precomputed aggregate statistics for one metric across
// all companies in a sector, used for min-max normalization at scoring time.
type SectorStats struct {
	Sector Sector  `json:"sector"`
	Metric string  `json:"metric"`
	Avg    float64 `json:"avg"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// ScoreResult is the composite prospect score for one company. It is always
// recomputed from persisted observations plus sector aggregates, never a
// source of truth itself. Nil pointers indicate the dimension could not be
// computed from the available data.
type ScoreResult struct {
	CompanyID      int64           `json:"company_id"`
	Ticker         string          `json:"ticker"`
	TotalScore     *float64        `json:"total_score"` // nil when fewer than two sub-scores resolved
	PainScore      *float64        `json:"pain_score"`
	AbilityToPay   *float64        `json:"ability_to_pay"`
	UrgencyScore   *float64        `json:"urgency_score"`
	PainMetric     string          `json:"pain_metric,omitempty"` // metric judged most indicative
	PainValue      *float64        `json:"pain_value,omitempty"`
	PainDeviation  *float64        `json:"pain_deviation,omitempty"` // signed distance from sector avg
	TrendDirection *TrendDirection `json:"trend_direction,omitempty"`
	RevenueBase    *float64        `json:"revenue_base,omitempty"` // revenue used for ability-to-pay
}
