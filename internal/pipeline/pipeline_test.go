package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prachitbhike/insurintel-sub000/internal/config"
	"github.com/prachitbhike/insurintel-sub000/internal/edgar"
	"github.com/prachitbhike/insurintel-sub000/internal/model"
	"github.com/prachitbhike/insurintel-sub000/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// stubFetcher serves canned facts per CIK.
type stubFetcher struct {
	facts map[string]*edgar.CompanyFacts
	errs  map[string]error
	calls int
}

func (f *stubFetcher) CompanyFacts(_ context.Context, cik string) (*edgar.CompanyFacts, error) {
	f.calls++
	if err, ok := f.errs[cik]; ok {
		return nil, err
	}
	facts, ok := f.facts[cik]
	if !ok {
		return nil, eris.Errorf("no fixture for cik %s", cik)
	}
	return facts, nil
}

// memStore is an in-memory Store for pipeline tests.
type memStore struct {
	mu           sync.Mutex
	companies    []model.Company
	observations map[int64][]model.MetricObservation
	stats        map[model.Sector][]model.SectorStats
	runs         map[string]store.RunSummary
	failedRuns   map[string]string
	ingested     map[int64]time.Time
}

func newMemStore() *memStore {
	return &memStore{
		observations: make(map[int64][]model.MetricObservation),
		stats:        make(map[model.Sector][]model.SectorStats),
		runs:         make(map[string]store.RunSummary),
		failedRuns:   make(map[string]string),
		ingested:     make(map[int64]time.Time),
	}
}

func (m *memStore) UpsertCompanies(_ context.Context, companies []model.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies = append(m.companies, companies...)
	return nil
}

func (m *memStore) ListCompanies(context.Context) ([]model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Company(nil), m.companies...), nil
}

func (m *memStore) UpdateLastIngested(_ context.Context, companyID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested[companyID] = at
	return nil
}

func (m *memStore) UpsertObservations(_ context.Context, obs []model.MetricObservation) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range obs {
		m.observations[o.CompanyID] = append(m.observations[o.CompanyID], o)
	}
	return int64(len(obs)), nil
}

func (m *memStore) ListObservations(_ context.Context, f store.ObservationFilter) ([]model.MetricObservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.MetricObservation
	for id, obs := range m.observations {
		if f.CompanyID != 0 && id != f.CompanyID {
			continue
		}
		for _, o := range obs {
			if f.Metric != "" && o.Metric != f.Metric {
				continue
			}
			if f.PeriodType != "" && o.PeriodType != f.PeriodType {
				continue
			}
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) SectorStats(_ context.Context, sector model.Sector) ([]model.SectorStats, error) {
	return m.stats[sector], nil
}

func (m *memStore) StartRun(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := fmt.Sprintf("run-%d", len(m.runs)+len(m.failedRuns)+1)
	m.runs[id] = store.RunSummary{}
	return id, nil
}

func (m *memStore) CompleteRun(_ context.Context, runID string, summary store.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[runID] = summary
	return nil
}

func (m *memStore) FailRun(_ context.Context, runID string, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failedRuns[runID] = msg
	return nil
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }

// annualFact builds one us-gaap USD fact with a single full-year value.
func annualFact(year int, val float64, accn, form, filed string) edgar.Fact {
	return edgar.Fact{
		Units: map[string][]edgar.FactValue{
			"USD": {{
				Start: fmt.Sprintf("%d-01-01", year),
				End:   fmt.Sprintf("%d-12-31", year),
				Val:   val,
				Accn:  accn,
				FY:    year,
				FP:    "FY",
				Form:  form,
				Filed: filed,
			}},
		},
	}
}

func pcFacts(year int) *edgar.CompanyFacts {
	accn := fmt.Sprintf("0001-%d-000001", year%100)
	filed := fmt.Sprintf("%d-02-20", year+1)
	return &edgar.CompanyFacts{
		CIK:        12345,
		EntityName: "ABC Insurance",
		Facts: map[string]edgar.FactNS{
			edgar.TaxonomyUSGAAP: {
				"PremiumsEarnedNet": annualFact(year, 1000, accn, "10-K", filed),
				"PolicyholderBenefitsAndClaimsIncurredNet": annualFact(year, 700, accn, "10-K", filed),
				"DeferredPolicyAcquisitionCostAmortizationExpense": annualFact(year, 150, accn, "10-K", filed),
				"OtherUnderwritingExpense":                         annualFact(year, 100, accn, "10-K", filed),
			},
		},
	}
}

func testConfig() config.Config {
	var cfg config.Config
	cfg.EDGAR.LookbackYears = 5
	cfg.Ingest.MaxConcurrentCompanies = 2
	return cfg
}

func obsValue(obs []model.MetricObservation, metric string) (float64, bool) {
	for _, o := range obs {
		if o.Metric == metric {
			return o.Value, true
		}
	}
	return 0, false
}

func TestNormalize_RawAndDerivedRows(t *testing.T) {
	year := time.Now().Year() - 1
	company := model.Company{ID: 1, CIK: "0000012345", Ticker: "ABC", Sector: model.SectorPC}

	p := New(&stubFetcher{}, newMemStore(), testConfig())
	obs := p.Normalize(pcFacts(year), company)

	premiums, ok := obsValue(obs, model.MetricNetPremiumsEarned)
	require.True(t, ok)
	assert.Equal(t, 1000.0, premiums)

	loss, ok := obsValue(obs, model.MetricLossRatio)
	require.True(t, ok)
	assert.InDelta(t, 70.0, loss, 0.001)

	expense, ok := obsValue(obs, model.MetricExpenseRatio)
	require.True(t, ok)
	assert.InDelta(t, 25.0, expense, 0.001)

	combined, ok := obsValue(obs, model.MetricCombinedRatio)
	require.True(t, ok)
	assert.InDelta(t, 95.0, combined, 0.001)

	for _, o := range obs {
		assert.Equal(t, int64(1), o.CompanyID)
		assert.Equal(t, year, o.FiscalYear)
		assert.Equal(t, model.PeriodAnnual, o.PeriodType)
		switch o.Provenance {
		case model.ProvenanceRaw:
			assert.NotEmpty(t, o.Accession)
		case model.ProvenanceDerived:
			assert.Empty(t, o.Accession)
		}
	}
}

func TestNormalize_AmendmentReplacesOriginal(t *testing.T) {
	year := time.Now().Year() - 1
	company := model.Company{ID: 1, CIK: "0000012345", Ticker: "ABC", Sector: model.SectorPC}

	facts := &edgar.CompanyFacts{
		CIK: 12345,
		Facts: map[string]edgar.FactNS{
			edgar.TaxonomyUSGAAP: {
				"PremiumsEarnedNet": {
					Units: map[string][]edgar.FactValue{
						"USD": {
							{
								Start: fmt.Sprintf("%d-01-01", year), End: fmt.Sprintf("%d-12-31", year),
								Val: 1000, Accn: "orig", FY: year, FP: "FY",
								Form: "10-K", Filed: fmt.Sprintf("%d-02-20", year+1),
							},
							{
								Start: fmt.Sprintf("%d-01-01", year), End: fmt.Sprintf("%d-12-31", year),
								Val: 1050, Accn: "amended", FY: year, FP: "FY",
								Form: "10-K/A", Filed: fmt.Sprintf("%d-05-10", year+1),
							},
						},
					},
				},
			},
		},
	}

	p := New(&stubFetcher{}, newMemStore(), testConfig())
	obs := p.Normalize(facts, company)

	var premiumRows []model.MetricObservation
	for _, o := range obs {
		if o.Metric == model.MetricNetPremiumsEarned {
			premiumRows = append(premiumRows, o)
		}
	}
	// One fiscal slot: the amendment's later filing date wins.
	require.Len(t, premiumRows, 1)
	assert.Equal(t, 1050.0, premiumRows[0].Value)
	assert.Equal(t, "amended", premiumRows[0].Accession)
}

func TestNormalize_PremiumGrowthAcrossYears(t *testing.T) {
	curr := time.Now().Year() - 1
	prev := curr - 1
	company := model.Company{ID: 1, CIK: "0000012345", Ticker: "ABC", Sector: model.SectorPC}

	facts := &edgar.CompanyFacts{
		CIK: 12345,
		Facts: map[string]edgar.FactNS{
			edgar.TaxonomyUSGAAP: {
				"PremiumsEarnedNet": {
					Units: map[string][]edgar.FactValue{
						"USD": {
							{
								Start: fmt.Sprintf("%d-01-01", prev), End: fmt.Sprintf("%d-12-31", prev),
								Val: 1000, Accn: "a1", FY: prev, FP: "FY",
								Form: "10-K", Filed: fmt.Sprintf("%d-02-20", curr),
							},
							{
								Start: fmt.Sprintf("%d-01-01", curr), End: fmt.Sprintf("%d-12-31", curr),
								Val: 1100, Accn: "a2", FY: curr, FP: "FY",
								Form: "10-K", Filed: fmt.Sprintf("%d-02-20", curr+1),
							},
						},
					},
				},
			},
		},
	}

	p := New(&stubFetcher{}, newMemStore(), testConfig())
	obs := p.Normalize(facts, company)

	var growth *model.MetricObservation
	for i, o := range obs {
		if o.Metric == model.MetricPremiumGrowthYoY {
			growth = &obs[i]
		}
	}
	require.NotNil(t, growth)
	assert.InDelta(t, 10.0, growth.Value, 0.001)
	assert.Equal(t, curr, growth.FiscalYear)
	assert.Equal(t, model.ProvenanceDerived, growth.Provenance)
}

func TestIngestCompany_PersistsAndStamps(t *testing.T) {
	year := time.Now().Year() - 1
	st := newMemStore()
	company := model.Company{ID: 7, CIK: "0000012345", Ticker: "ABC", Sector: model.SectorPC}

	fetcher := &stubFetcher{facts: map[string]*edgar.CompanyFacts{"0000012345": pcFacts(year)}}
	p := New(fetcher, st, testConfig())

	n, err := p.IngestCompany(context.Background(), company)
	require.NoError(t, err)
	assert.Greater(t, n, int64(0))
	assert.Len(t, st.observations[7], int(n))

	_, stamped := st.ingested[7]
	assert.True(t, stamped)
}

func TestIngestCompany_FetchFailure(t *testing.T) {
	st := newMemStore()
	company := model.Company{ID: 7, CIK: "0000012345", Ticker: "ABC", Sector: model.SectorPC}

	fetcher := &stubFetcher{errs: map[string]error{"0000012345": eris.New("http 404")}}
	p := New(fetcher, st, testConfig())

	_, err := p.IngestCompany(context.Background(), company)
	require.Error(t, err)
	assert.Empty(t, st.observations[7])
	_, stamped := st.ingested[7]
	assert.False(t, stamped)
}

func TestRunBatch_CompanyFailuresAreIsolated(t *testing.T) {
	year := time.Now().Year() - 1
	st := newMemStore()
	require.NoError(t, st.UpsertCompanies(context.Background(), []model.Company{
		{ID: 1, CIK: "0000000001", Ticker: "AAA", Sector: model.SectorPC},
		{ID: 2, CIK: "0000000002", Ticker: "BBB", Sector: model.SectorPC},
		{ID: 3, CIK: "0000000003", Ticker: "CCC", Sector: model.SectorPC},
	}))

	fetcher := &stubFetcher{
		facts: map[string]*edgar.CompanyFacts{
			"0000000001": pcFacts(year),
			"0000000003": pcFacts(year),
		},
		errs: map[string]error{"0000000002": eris.New("http 404")},
	}

	p := New(fetcher, st, testConfig())
	summary, err := p.RunBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Contains(t, summary.Failures[0], "BBB")
	assert.Contains(t, summary.Failures[0], "0000000002")

	// The failed company left no partial state.
	assert.Empty(t, st.observations[2])
	assert.NotEmpty(t, st.observations[1])
	assert.NotEmpty(t, st.observations[3])

	// Run log records the summary.
	require.Len(t, st.runs, 1)
	for _, recorded := range st.runs {
		assert.Equal(t, summary, recorded)
	}
}

func TestScoreSector_OrdersByTotalDescending(t *testing.T) {
	year := time.Now().Year() - 1
	st := newMemStore()
	ctx := context.Background()

	require.NoError(t, st.UpsertCompanies(ctx, []model.Company{
		{ID: 1, CIK: "0000000001", Ticker: "GOOD", Sector: model.SectorPC},
		{ID: 2, CIK: "0000000002", Ticker: "PAIN", Sector: model.SectorPC},
		{ID: 3, CIK: "0000000003", Ticker: "LIFE", Sector: model.SectorLife},
	}))

	// Sector baseline: combined ratio ranges 90..110 with avg 100.
	st.stats[model.SectorPC] = []model.SectorStats{
		{Sector: model.SectorPC, Metric: model.MetricCombinedRatio, Avg: 100, Min: 90, Max: 110},
		{Sector: model.SectorPC, Metric: model.MetricLossRatio, Avg: 65, Min: 55, Max: 80},
	}

	add := func(companyID int64, metric string, fy int, value float64) {
		_, err := st.UpsertObservations(ctx, []model.MetricObservation{{
			CompanyID: companyID, Metric: metric, Value: value,
			PeriodType: model.PeriodAnnual, FiscalYear: fy,
			Provenance: model.ProvenanceDerived,
		}})
		require.NoError(t, err)
	}

	// GOOD: healthy combined ratio, large premium base.
	add(1, model.MetricCombinedRatio, year, 92)
	add(1, model.MetricNetPremiumsEarned, year, 5_000_000_000)
	// PAIN: worst combined ratio in the sector, similar base.
	add(2, model.MetricCombinedRatio, year, 110)
	add(2, model.MetricNetPremiumsEarned, year, 5_000_000_000)

	p := New(&stubFetcher{}, st, testConfig())
	results, err := p.ScoreSector(ctx, model.SectorPC)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Only P&C companies are scored, highest total first.
	assert.Equal(t, "PAIN", results[0].Ticker)
	assert.Equal(t, "GOOD", results[1].Ticker)
	require.NotNil(t, results[0].TotalScore)
	require.NotNil(t, results[1].TotalScore)
	assert.Greater(t, *results[0].TotalScore, *results[1].TotalScore)
	assert.Equal(t, model.MetricCombinedRatio, results[0].PainMetric)
}
