// Package pipeline orchestrates ingestion and scoring: fetch company facts,
// normalize them to metric observations, persist, and score sectors.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prachitbhike/insurintel-sub000/internal/concept"
	"github.com/prachitbhike/insurintel-sub000/internal/config"
	"github.com/prachitbhike/insurintel-sub000/internal/derive"
	"github.com/prachitbhike/insurintel-sub000/internal/edgar"
	"github.com/prachitbhike/insurintel-sub000/internal/model"
	"github.com/prachitbhike/insurintel-sub000/internal/score"
	"github.com/prachitbhike/insurintel-sub000/internal/store"
)

// FactsFetcher fetches the raw disclosure document for one company.
// *edgar.Client satisfies it; tests substitute a stub.
type FactsFetcher interface {
	CompanyFacts(ctx context.Context, cik string) (*edgar.CompanyFacts, error)
}

// Pipeline wires the fetcher, the normalization stages, and the store.
type Pipeline struct {
	fetcher  FactsFetcher
	store    store.Store
	resolver *concept.Resolver
	scorer   *score.Scorer
	cfg      config.Config
	log      *zap.Logger
	now      func() time.Time
}

// New assembles a Pipeline from configuration.
func New(fetcher FactsFetcher, st store.Store, cfg config.Config) *Pipeline {
	return &Pipeline{
		fetcher:  fetcher,
		store:    st,
		resolver: concept.NewResolver(cfg.EDGAR.LookbackYears),
		scorer:   score.NewScorer(cfg.Scoring),
		cfg:      cfg,
		log:      zap.L().With(zap.String("component", "pipeline")),
		now:      time.Now,
	}
}

// periodKey identifies one attributed fiscal period of one metric.
type periodKey struct {
	metric     string
	fiscalYear int
	quarter    int16 // 0 encodes "no quarter", matching storage
	periodType model.PeriodType
}

// groupKey identifies one attributed fiscal period across metrics, the unit
// the derivation engine works on.
type groupKey struct {
	fiscalYear int
	quarter    int16
	periodType model.PeriodType
}

// Normalize turns one company's raw facts into persisted-form observations:
// alias resolution, period attribution, per-period deduplication, and
// per-period derived ratios. Pure; the caller persists the result.
func (p *Pipeline) Normalize(facts *edgar.CompanyFacts, company model.Company) []model.MetricObservation {
	minYear := p.now().Year() - p.resolverLookback()
	resolved := p.resolver.ResolveAll(facts)

	// Several resolved source periods can attribute to the same fiscal slot,
	// e.g. an original 10-K and its amendment. The later filing wins.
	picked := make(map[periodKey]model.MetricObservation)
	filedAt := make(map[periodKey]time.Time)

	for metric, observations := range resolved {
		mapping, ok := concept.MappingFor(metric)
		if !ok {
			continue
		}
		for _, raw := range observations {
			attr, ok := concept.Attribute(raw, mapping.Taxonomy, minYear)
			if !ok {
				continue
			}
			key := periodKey{
				metric:     metric,
				fiscalYear: attr.FiscalYear,
				quarter:    quarterKey(attr.FiscalQuarter),
				periodType: attr.PeriodType,
			}
			if prev, exists := filedAt[key]; exists && !raw.FiledDate.After(prev) {
				continue
			}
			end := raw.PeriodEnd
			picked[key] = model.MetricObservation{
				CompanyID:     company.ID,
				Metric:        metric,
				Value:         raw.Value,
				Unit:          mapping.Unit,
				PeriodType:    attr.PeriodType,
				FiscalYear:    attr.FiscalYear,
				FiscalQuarter: attr.FiscalQuarter,
				PeriodStart:   raw.PeriodStart,
				PeriodEnd:     &end,
				Provenance:    model.ProvenanceRaw,
				Accession:     raw.Accession,
			}
			filedAt[key] = raw.FiledDate
		}
	}

	out := make([]model.MetricObservation, 0, len(picked))
	groups := make(map[groupKey]derive.PeriodValues)
	for key, obs := range picked {
		out = append(out, obs)
		gk := groupKey{fiscalYear: key.fiscalYear, quarter: key.quarter, periodType: key.periodType}
		if groups[gk] == nil {
			groups[gk] = make(derive.PeriodValues)
		}
		groups[gk][key.metric] = obs.Value
	}

	for gk, vals := range groups {
		for _, d := range derive.Derive(vals, company.Sector) {
			out = append(out, model.MetricObservation{
				CompanyID:     company.ID,
				Metric:        d.Metric,
				Value:         d.Value,
				Unit:          d.Unit,
				PeriodType:    gk.periodType,
				FiscalYear:    gk.fiscalYear,
				FiscalQuarter: quarterFromKey(gk.quarter),
				Provenance:    model.ProvenanceDerived,
			})
		}
	}

	out = append(out, derive.PremiumGrowth(out, company.Sector)...)
	return out
}

// IngestCompany fetches, normalizes, and persists one company. Returns the
// number of observations written.
func (p *Pipeline) IngestCompany(ctx context.Context, company model.Company) (int64, error) {
	facts, err := p.fetcher.CompanyFacts(ctx, company.CIK)
	if err != nil {
		return 0, eris.Wrapf(err, "pipeline: fetch facts for cik=%s", company.CIK)
	}

	obs := p.Normalize(facts, company)
	if len(obs) == 0 {
		p.log.Warn("no observations resolved",
			zap.String("ticker", company.Ticker), zap.String("cik", company.CIK))
		return 0, nil
	}

	n, err := p.store.UpsertObservations(ctx, obs)
	if err != nil {
		return 0, eris.Wrapf(err, "pipeline: persist observations for %s", company.Ticker)
	}
	if err := p.store.UpdateLastIngested(ctx, company.ID, p.now()); err != nil {
		return 0, err
	}

	p.log.Info("company ingested",
		zap.String("ticker", company.Ticker),
		zap.Int64("observations", n))
	return n, nil
}

// RunBatch ingests every company in the universe. Companies fail in
// isolation; one bad filer never aborts the run. The whole batch is recorded
// in the ingest-run log.
func (p *Pipeline) RunBatch(ctx context.Context) (store.RunSummary, error) {
	companies, err := p.store.ListCompanies(ctx)
	if err != nil {
		return store.RunSummary{}, err
	}

	runID, err := p.store.StartRun(ctx)
	if err != nil {
		return store.RunSummary{}, err
	}

	workers := p.cfg.Ingest.MaxConcurrentCompanies
	if workers <= 0 {
		workers = 1
	}

	type outcome struct {
		company model.Company
		err     error
	}
	results := make([]outcome, len(companies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, company := range companies {
		g.Go(func() error {
			_, err := p.IngestCompany(gctx, company)
			results[i] = outcome{company: company, err: err}
			if err != nil {
				p.log.Error("company ingestion failed",
					zap.String("ticker", company.Ticker), zap.Error(err))
			}
			return nil // isolation: errors are collected, not propagated
		})
	}
	if err := g.Wait(); err != nil {
		_ = p.store.FailRun(ctx, runID, err.Error())
		return store.RunSummary{}, err
	}

	var summary store.RunSummary
	for _, r := range results {
		if r.err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures,
				fmt.Sprintf("%s (cik %s): %v", r.company.Ticker, r.company.CIK, eris.Cause(r.err)))
			continue
		}
		summary.Succeeded++
	}

	if err := p.store.CompleteRun(ctx, runID, summary); err != nil {
		return summary, err
	}

	p.log.Info("batch complete",
		zap.String("run_id", runID),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// ScoreSector computes composite scores for every company in a sector,
// ordered by total score descending with unscorable companies last.
func (p *Pipeline) ScoreSector(ctx context.Context, sector model.Sector) ([]model.ScoreResult, error) {
	companies, err := p.store.ListCompanies(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := p.store.SectorStats(ctx, sector)
	if err != nil {
		return nil, err
	}
	statsByMetric := make(map[string]model.SectorStats, len(stats))
	for _, st := range stats {
		statsByMetric[st.Metric] = st
	}

	var results []model.ScoreResult
	for _, company := range companies {
		if company.Sector != sector {
			continue
		}
		in, err := p.scoreInput(ctx, company, statsByMetric)
		if err != nil {
			return nil, err
		}
		results = append(results, p.scorer.Score(in))
	}

	sortScores(results)
	return results, nil
}

// scoreInput assembles the latest values and the annual series for one
// company from its stored annual observations.
func (p *Pipeline) scoreInput(ctx context.Context, company model.Company, stats map[string]model.SectorStats) (score.Input, error) {
	obs, err := p.store.ListObservations(ctx, store.ObservationFilter{
		CompanyID:  company.ID,
		PeriodType: model.PeriodAnnual,
	})
	if err != nil {
		return score.Input{}, eris.Wrapf(err, "pipeline: load observations for %s", company.Ticker)
	}

	latest := make(map[string]float64)
	latestYear := make(map[string]int)
	series := make(map[string][]score.YearValue)
	for _, o := range obs {
		if y, ok := latestYear[o.Metric]; !ok || o.FiscalYear > y {
			latest[o.Metric] = o.Value
			latestYear[o.Metric] = o.FiscalYear
		}
		series[o.Metric] = append(series[o.Metric], score.YearValue{Year: o.FiscalYear, Value: o.Value})
	}

	return score.Input{
		Company: company,
		Latest:  latest,
		Stats:   stats,
		Series:  series,
	}, nil
}

func sortScores(results []model.ScoreResult) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		switch {
		case a.TotalScore == nil && b.TotalScore == nil:
			return a.Ticker < b.Ticker
		case a.TotalScore == nil:
			return false
		case b.TotalScore == nil:
			return true
		case *a.TotalScore != *b.TotalScore:
			return *a.TotalScore > *b.TotalScore
		default:
			return a.Ticker < b.Ticker
		}
	})
}

func (p *Pipeline) resolverLookback() int {
	if p.cfg.EDGAR.LookbackYears > 0 {
		return p.cfg.EDGAR.LookbackYears
	}
	return 5
}

func quarterKey(q *int) int16 {
	if q == nil {
		return 0
	}
	return int16(*q)
}

func quarterFromKey(q int16) *int {
	if q == 0 {
		return nil
	}
	v := int(q)
	return &v
}
