// Package score computes the composite operational-pain prospect score from
// persisted observations and sector aggregates. Pure functions; no I/O.
package score

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/prachitbhike/insurintel-sub000/internal/config"
	"github.com/prachitbhike/insurintel-sub000/internal/model"
)

// trendThreshold separates a stable trend from a worsening or improving one,
// in units of average adjusted slope per year.
const trendThreshold = 0.5

// YearValue is one annual data point of a metric's time series.
type YearValue struct {
	Year  int
	Value float64
}

// Input carries everything the scorer needs for one company.
type Input struct {
	Company model.Company
	Latest  map[string]float64           // latest-period value per metric
	Stats   map[string]model.SectorStats // sector aggregates per metric
	Series  map[string][]YearValue       // annual history per metric
}

// Scorer computes ScoreResults using configured weights.
type Scorer struct {
	cfg config.ScoringConfig
}

// NewScorer creates a Scorer from configuration.
func NewScorer(cfg config.ScoringConfig) *Scorer {
	if cfg.PainWeight <= 0 {
		cfg.PainWeight = 0.5
	}
	if cfg.AbilityWeight <= 0 {
		cfg.AbilityWeight = 0.2
	}
	if cfg.UrgencyWeight <= 0 {
		cfg.UrgencyWeight = 0.3
	}
	if cfg.RevenueCeiling <= 0 {
		cfg.RevenueCeiling = 10_000_000_000
	}
	if cfg.TrendYears <= 0 {
		cfg.TrendYears = 3
	}
	return &Scorer{cfg: cfg}
}

// Score produces the composite prospect score for one company. Sub-scores
// that cannot be computed stay nil; the total is nil unless at least two
// sub-scores resolved, since one dimension alone is not enough evidence to
// rank a prospect.
func (s *Scorer) Score(in Input) model.ScoreResult {
	res := model.ScoreResult{
		CompanyID: in.Company.ID,
		Ticker:    in.Company.Ticker,
	}

	pain := s.scorePain(in, &res)
	ability := s.scoreAbility(in, &res)
	urgency := s.scoreUrgency(in, pain, &res)

	var total, weightSum float64
	var present int
	if res.PainScore != nil {
		total += *res.PainScore * s.cfg.PainWeight
		weightSum += s.cfg.PainWeight
		present++
	}
	if ability != nil {
		total += *ability * s.cfg.AbilityWeight
		weightSum += s.cfg.AbilityWeight
		present++
	}
	if urgency != nil {
		total += *urgency * s.cfg.UrgencyWeight
		weightSum += s.cfg.UrgencyWeight
		present++
	}

	if present >= 2 && weightSum > 0 {
		t := total / weightSum
		res.TotalScore = &t
	}

	return res
}

// scorePain min-max normalizes each candidate pain metric against the sector
// range and keeps the single highest score. The winning candidate also names
// the company's reported pain metric. Returns the winning candidate (or nil)
// for the urgency dimension.
func (s *Scorer) scorePain(in Input, res *model.ScoreResult) *PainMetric {
	var best *PainMetric
	var bestScore float64

	for _, cand := range painMetricsBySector[in.Company.Sector] {
		value, ok := in.Latest[cand.Metric]
		if !ok {
			continue
		}
		stats, ok := in.Stats[cand.Metric]
		if !ok || stats.Max == stats.Min {
			continue
		}

		var norm float64
		if cand.Invert {
			norm = (stats.Max - value) / (stats.Max - stats.Min) * 100
		} else {
			norm = (value - stats.Min) / (stats.Max - stats.Min) * 100
		}
		norm = clamp(norm, 0, 100)

		if best == nil || norm > bestScore {
			c := cand
			best = &c
			bestScore = norm

			v := value
			dev := value - stats.Avg
			res.PainMetric = cand.Metric
			res.PainValue = &v
			res.PainDeviation = &dev
		}
	}

	if best != nil {
		res.PainScore = &bestScore
	}
	return best
}

// revenuePreference orders the revenue-like metrics for ability-to-pay.
var revenuePreference = []string{
	model.MetricNetPremiumsEarned,
	model.MetricRevenue,
}

// scoreAbility maps the first available revenue-like metric linearly onto
// 0-100 against the configured ceiling.
func (s *Scorer) scoreAbility(in Input, res *model.ScoreResult) *float64 {
	for _, metric := range revenuePreference {
		revenue, ok := in.Latest[metric]
		if !ok {
			continue
		}
		score := clamp(revenue/s.cfg.RevenueCeiling*100, 0, 100)
		res.AbilityToPay = &score
		res.RevenueBase = &revenue
		return &score
	}
	return nil
}

// scoreUrgency fits an OLS slope over the last trend window of the chosen
// pain metric and of ROE, flips signs so "getting worse" is positive, and
// maps the average adjusted slope onto 0-100 around a neutral 50.
func (s *Scorer) scoreUrgency(in Input, pain *PainMetric, res *model.ScoreResult) *float64 {
	candidates := []PainMetric{}
	if pain != nil {
		candidates = append(candidates, *pain)
	}
	// Falling returns mean rising pain, so ROE counts as inverted here.
	if pain == nil || pain.Metric != model.MetricROE {
		candidates = append(candidates, PainMetric{Metric: model.MetricROE, Invert: true})
	}

	var slopes []float64
	for _, cand := range candidates {
		slope, ok := trendSlope(in.Series[cand.Metric], s.cfg.TrendYears)
		if !ok {
			continue
		}
		if cand.Invert {
			slope = -slope
		}
		slopes = append(slopes, slope)
	}

	if len(slopes) == 0 {
		return nil
	}

	avg := stat.Mean(slopes, nil)
	score := clamp(50+10*avg, 0, 100)
	res.UrgencyScore = &score

	var dir model.TrendDirection
	switch {
	case avg > trendThreshold:
		dir = model.TrendWorsening
	case avg < -trendThreshold:
		dir = model.TrendImproving
	default:
		dir = model.TrendStable
	}
	res.TrendDirection = &dir

	return &score
}

// trendSlope fits ordinary least squares over the most recent window of a
// metric's annual series. Fewer than two points is not a trend.
func trendSlope(series []YearValue, window int) (float64, bool) {
	if len(series) < 2 {
		return 0, false
	}

	sorted := make([]YearValue, len(series))
	copy(sorted, series)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })
	if len(sorted) > window {
		sorted = sorted[len(sorted)-window:]
	}
	if len(sorted) < 2 {
		return 0, false
	}

	xs := make([]float64, len(sorted))
	ys := make([]float64, len(sorted))
	for i, p := range sorted {
		xs[i] = float64(p.Year)
		ys[i] = p.Value
	}

	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return beta, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
