package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prachitbhike/insurintel-sub000/internal/model"
	"github.com/prachitbhike/insurintel-sub000/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeStore struct {
	store.Store // panic on anything unimplemented
	companies   []model.Company
	obs         []model.MetricObservation
	stats       []model.SectorStats
	listErr     error
}

func (f *fakeStore) ListCompanies(context.Context) ([]model.Company, error) {
	return f.companies, f.listErr
}

func (f *fakeStore) ListObservations(_ context.Context, filter store.ObservationFilter) ([]model.MetricObservation, error) {
	var out []model.MetricObservation
	for _, o := range f.obs {
		if filter.CompanyID != 0 && o.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Metric != "" && o.Metric != filter.Metric {
			continue
		}
		if filter.PeriodType != "" && o.PeriodType != filter.PeriodType {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeStore) SectorStats(_ context.Context, sector model.Sector) ([]model.SectorStats, error) {
	return f.stats, nil
}

type fakeScorer struct {
	results []model.ScoreResult
	err     error
	sector  model.Sector
}

func (f *fakeScorer) ScoreSector(_ context.Context, sector model.Sector) ([]model.ScoreResult, error) {
	f.sector = sector
	return f.results, f.err
}

func newTestServer(st *fakeStore, sc *fakeScorer) *httptest.Server {
	return httptest.NewServer(New(st, sc).Handler())
}

func getJSON(t *testing.T, url string, into any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	ts := newTestServer(&fakeStore{}, &fakeScorer{})
	defer ts.Close()

	var body map[string]string
	code := getJSON(t, ts.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestCompanies_SectorFilter(t *testing.T) {
	st := &fakeStore{companies: []model.Company{
		{ID: 1, CIK: "0000000001", Ticker: "AAA", Sector: model.SectorPC},
		{ID: 2, CIK: "0000000002", Ticker: "LLL", Sector: model.SectorLife},
	}}
	ts := newTestServer(st, &fakeScorer{})
	defer ts.Close()

	var all []model.Company
	code := getJSON(t, ts.URL+"/v1/companies", &all)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, all, 2)

	var pc []model.Company
	code = getJSON(t, ts.URL+"/v1/companies?sector=pc", &pc)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, pc, 1)
	assert.Equal(t, "AAA", pc[0].Ticker)

	code = getJSON(t, ts.URL+"/v1/companies?sector=crypto", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestObservations(t *testing.T) {
	now := time.Now()
	st := &fakeStore{
		companies: []model.Company{
			{ID: 1, CIK: "0000000001", Ticker: "AAA", Sector: model.SectorPC},
		},
		obs: []model.MetricObservation{
			{CompanyID: 1, Metric: model.MetricLossRatio, Value: 70,
				PeriodType: model.PeriodAnnual, FiscalYear: now.Year() - 1,
				Provenance: model.ProvenanceDerived},
			{CompanyID: 1, Metric: model.MetricNetPremiumsEarned, Value: 1000,
				PeriodType: model.PeriodAnnual, FiscalYear: now.Year() - 1,
				Provenance: model.ProvenanceRaw},
		},
	}
	ts := newTestServer(st, &fakeScorer{})
	defer ts.Close()

	var obs []model.MetricObservation
	code := getJSON(t, ts.URL+"/v1/companies/0000000001/observations?metric=loss_ratio", &obs)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, obs, 1)
	assert.Equal(t, model.MetricLossRatio, obs[0].Metric)

	code = getJSON(t, ts.URL+"/v1/companies/0000099999/observations", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestScores(t *testing.T) {
	total := 85.7
	sc := &fakeScorer{results: []model.ScoreResult{
		{CompanyID: 2, Ticker: "PAIN", TotalScore: &total},
	}}
	ts := newTestServer(&fakeStore{}, sc)
	defer ts.Close()

	var results []model.ScoreResult
	code := getJSON(t, ts.URL+"/v1/scores?sector=pc", &results)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, results, 1)
	assert.Equal(t, "PAIN", results[0].Ticker)
	assert.Equal(t, model.SectorPC, sc.sector)

	code = getJSON(t, ts.URL+"/v1/scores", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestScores_ScorerError(t *testing.T) {
	sc := &fakeScorer{err: eris.New("store unavailable")}
	ts := newTestServer(&fakeStore{}, sc)
	defer ts.Close()

	code := getJSON(t, ts.URL+"/v1/scores?sector=pc", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestSectorStats(t *testing.T) {
	st := &fakeStore{stats: []model.SectorStats{
		{Sector: model.SectorPC, Metric: model.MetricCombinedRatio, Avg: 100, Min: 90, Max: 110},
	}}
	ts := newTestServer(st, &fakeScorer{})
	defer ts.Close()

	var stats []model.SectorStats
	code := getJSON(t, ts.URL+"/v1/sectors/pc/stats", &stats)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, stats, 1)
	assert.Equal(t, model.MetricCombinedRatio, stats[0].Metric)

	code = getJSON(t, ts.URL+"/v1/sectors/crypto/stats", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
