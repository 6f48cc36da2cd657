package model

import "time"

// PeriodType distinguishes annual from quarterly reporting periods.
type PeriodType string

const (
	PeriodAnnual    PeriodType = "annual"
	PeriodQuarterly PeriodType = "quarterly"
)

// Provenance records whether an observation came straight from a filing or
// was computed locally from other observations.
type Provenance string

const (
	ProvenanceRaw     Provenance = "raw"
	ProvenanceDerived Provenance = "derived"
)

// Canonical metric names. Raw metrics are sourced from filings via concept
// mappings; derived metrics are computed by the derive package.
const (
	MetricNetPremiumsEarned    = "net_premiums_earned"
	MetricLossesIncurred       = "losses_incurred"
	MetricAcquisitionCosts     = "acquisition_costs"
	MetricUnderwritingExpenses = "underwriting_expenses"
	MetricMedicalClaims        = "medical_claims_expense"
	MetricRevenue              = "revenue"
	MetricNetIncome            = "net_income"
	MetricTotalAssets          = "total_assets"
	MetricTotalLiabilities     = "total_liabilities"
	MetricStockholdersEquity   = "stockholders_equity"
	MetricTotalDebt            = "total_debt"
	MetricSharesOutstanding    = "shares_outstanding"

	MetricLossRatio         = "loss_ratio"
	MetricExpenseRatio      = "expense_ratio"
	MetricCombinedRatio     = "combined_ratio"
	MetricROE               = "roe"
	MetricROA               = "roa"
	MetricBookValuePerShare = "book_value_per_share"
	MetricDebtToEquity      = "debt_to_equity"
	MetricMedicalLossRatio  = "medical_loss_ratio"
	MetricPremiumGrowthYoY  = "premium_growth_yoy"
)

// RawObservation is one fact pulled from the disclosure source for a single
// tag alias. It only lives for the duration of a resolution pass.
type RawObservation struct {
	Metric      string     // canonical metric name
	Value       float64
	Unit        string
	PeriodStart *time.Time // instant facts (balance sheet items) have no start
	PeriodEnd   time.Time
	Accession   string // source filing identifier
	FiscalYear  int    // fiscal year as labeled by the source
	FiscalLabel string // fiscal period label as reported ("Q1".."Q4", "FY")
	Form        string // filing form type ("10-K", "10-Q", ...)
	FiledDate   time.Time
}

// MetricObservation is the persisted, normalized form of a metric value for
// one company and one attributed fiscal period. At most one row exists per
// (company, metric, period type, fiscal year, fiscal quarter); ingestion
// overwrites on conflict.
type MetricObservation struct {
	CompanyID     int64      `json:"company_id"`
	Metric        string     `json:"metric"`
	Value         float64    `json:"value"`
	Unit          string     `json:"unit"`
	PeriodType    PeriodType `json:"period_type"`
	FiscalYear    int        `json:"fiscal_year"`
	FiscalQuarter *int       `json:"fiscal_quarter,omitempty"` // nil for annual or unresolved
	PeriodStart   *time.Time `json:"period_start,omitempty"`
	PeriodEnd     *time.Time `json:"period_end,omitempty"`
	Provenance    Provenance `json:"provenance"`
	Accession     string     `json:"accession,omitempty"` // empty for derived rows
}
