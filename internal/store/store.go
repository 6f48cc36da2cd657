// Package store persists companies, metric observations, and ingest runs.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/prachitbhike/insurintel-sub000/internal/config"
	"github.com/prachitbhike/insurintel-sub000/internal/model"
)

// ObservationFilter narrows ListObservations. Zero values mean "no filter".
type ObservationFilter struct {
	CompanyID  int64
	Metric     string
	PeriodType model.PeriodType
}

// RunSummary records the outcome of one batch ingestion run.
type RunSummary struct {
	Succeeded int
	Failed    int
	Failures  []string // one terminal error message per failed company
}

// Store defines the persistence interface for the pipeline.
type Store interface {
	// Companies
	UpsertCompanies(ctx context.Context, companies []model.Company) error
	ListCompanies(ctx context.Context) ([]model.Company, error)
	UpdateLastIngested(ctx context.Context, companyID int64, at time.Time) error

	// Observations. Upsert overwrites on the natural key
	// (company, metric, period type, fiscal year, fiscal quarter).
	UpsertObservations(ctx context.Context, obs []model.MetricObservation) (int64, error)
	ListObservations(ctx context.Context, f ObservationFilter) ([]model.MetricObservation, error)

	// SectorStats returns avg/min/max per metric across the latest annual
	// value of every company in the sector.
	SectorStats(ctx context.Context, sector model.Sector) ([]model.SectorStats, error)

	// Ingest-run log
	StartRun(ctx context.Context) (string, error)
	CompleteRun(ctx context.Context, runID string, summary RunSummary) error
	FailRun(ctx context.Context, runID string, msg string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres", "":
		return NewPostgres(ctx, cfg)
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// quarterToDB encodes a nullable fiscal quarter for storage. Zero stands in
// for "no quarter" so the natural-key unique constraint treats annual rows
// and unresolved quarters as single slots instead of NULL-distinct ones.
func quarterToDB(q *int) int16 {
	if q == nil {
		return 0
	}
	return int16(*q)
}

// quarterFromDB decodes the stored quarter back to the nullable form.
func quarterFromDB(q int16) *int {
	if q == 0 {
		return nil
	}
	v := int(q)
	return &v
}
