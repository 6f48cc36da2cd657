package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/prachitbhike/insurintel-sub000/internal/config"
	"github.com/prachitbhike/insurintel-sub000/internal/db"
	"github.com/prachitbhike/insurintel-sub000/internal/model"
)

var observationColumns = []string{
	"company_id", "metric", "value", "unit", "period_type",
	"fiscal_year", "fiscal_quarter", "period_start", "period_end",
	"provenance", "accession",
}

// PostgresStore implements Store on top of a pgx pool.
type PostgresStore struct {
	pool db.Pool
	log  *zap.Logger
}

// NewPostgres connects a pool using the configured DSN and limits.
func NewPostgres(ctx context.Context, cfg config.StoreConfig) (*PostgresStore, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "store: parse postgres config")
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, eris.Wrap(err, "store: connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "store: ping postgres")
	}

	return NewPostgresWithPool(pool), nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests to inject mocks.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{
		pool: pool,
		log:  zap.L().With(zap.String("component", "store.postgres")),
	}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return migrate(ctx, s.pool)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// UpsertCompanies inserts the universe, updating mutable descriptive fields
// on CIK conflict. Sector is deliberately not updated: observations scored
// against one sector's peer table must not silently migrate to another.
func (s *PostgresStore) UpsertCompanies(ctx context.Context, companies []model.Company) error {
	for _, c := range companies {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO insurintel.companies (cik, ticker, name, sector, sub_sector)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (cik) DO UPDATE SET
				ticker     = EXCLUDED.ticker,
				name       = EXCLUDED.name,
				sub_sector = EXCLUDED.sub_sector`,
			c.CIK, c.Ticker, c.Name, string(c.Sector), c.SubSector,
		)
		if err != nil {
			return eris.Wrapf(err, "store: upsert company cik=%s", c.CIK)
		}
	}
	return nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, cik, ticker, name, sector, sub_sector, last_ingested_at
		FROM insurintel.companies
		ORDER BY sector, ticker`)
	if err != nil {
		return nil, eris.Wrap(err, "store: list companies")
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var c model.Company
		var sector string
		if err := rows.Scan(&c.ID, &c.CIK, &c.Ticker, &c.Name, &sector, &c.SubSector, &c.LastIngestedAt); err != nil {
			return nil, eris.Wrap(err, "store: scan company")
		}
		c.Sector = model.Sector(sector)
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: iterate companies")
	}
	return companies, nil
}

func (s *PostgresStore) UpdateLastIngested(ctx context.Context, companyID int64, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE insurintel.companies SET last_ingested_at = $1 WHERE id = $2",
		at, companyID,
	)
	if err != nil {
		return eris.Wrapf(err, "store: update last_ingested_at for company %d", companyID)
	}
	return nil
}

func (s *PostgresStore) UpsertObservations(ctx context.Context, obs []model.MetricObservation) (int64, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(obs))
	for _, o := range obs {
		rows = append(rows, []any{
			o.CompanyID, o.Metric, o.Value, o.Unit, string(o.PeriodType),
			int16(o.FiscalYear), quarterToDB(o.FiscalQuarter), o.PeriodStart, o.PeriodEnd,
			string(o.Provenance), o.Accession,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "insurintel.metric_observations",
		Columns:      observationColumns,
		ConflictKeys: []string{"company_id", "metric", "period_type", "fiscal_year", "fiscal_quarter"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "store: upsert observations")
	}

	s.log.Debug("upserted observations", zap.Int64("rows", n))
	return n, nil
}

func (s *PostgresStore) ListObservations(ctx context.Context, f ObservationFilter) ([]model.MetricObservation, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.Replace(cond, "?", placeholder(len(args)), 1))
	}
	if f.CompanyID != 0 {
		add("company_id = ?", f.CompanyID)
	}
	if f.Metric != "" {
		add("metric = ?", f.Metric)
	}
	if f.PeriodType != "" {
		add("period_type = ?", string(f.PeriodType))
	}

	query := `
		SELECT company_id, metric, value, unit, period_type,
		       fiscal_year, fiscal_quarter, period_start, period_end,
		       provenance, accession
		FROM insurintel.metric_observations`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY fiscal_year, fiscal_quarter, metric"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: list observations")
	}
	defer rows.Close()

	var out []model.MetricObservation
	for rows.Next() {
		var (
			o          model.MetricObservation
			ptype      string
			fy         int16
			fq         int16
			provenance string
		)
		if err := rows.Scan(&o.CompanyID, &o.Metric, &o.Value, &o.Unit, &ptype,
			&fy, &fq, &o.PeriodStart, &o.PeriodEnd, &provenance, &o.Accession); err != nil {
			return nil, eris.Wrap(err, "store: scan observation")
		}
		o.PeriodType = model.PeriodType(ptype)
		o.FiscalYear = int(fy)
		o.FiscalQuarter = quarterFromDB(fq)
		o.Provenance = model.Provenance(provenance)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: iterate observations")
	}
	return out, nil
}

// SectorStats aggregates each metric's latest annual value per company into
// sector avg/min/max, the peer baseline scoring normalizes against.
func (s *PostgresStore) SectorStats(ctx context.Context, sector model.Sector) ([]model.SectorStats, error) {
	rows, err := s.pool.Query(ctx, `
		WITH latest AS (
			SELECT DISTINCT ON (o.company_id, o.metric)
			       o.company_id, o.metric, o.value
			FROM insurintel.metric_observations o
			JOIN insurintel.companies c ON c.id = o.company_id
			WHERE c.sector = $1 AND o.period_type = 'annual'
			ORDER BY o.company_id, o.metric, o.fiscal_year DESC
		)
		SELECT metric, AVG(value), MIN(value), MAX(value)
		FROM latest
		GROUP BY metric
		ORDER BY metric`,
		string(sector),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "store: sector stats for %s", sector)
	}
	defer rows.Close()

	var stats []model.SectorStats
	for rows.Next() {
		st := model.SectorStats{Sector: sector}
		if err := rows.Scan(&st.Metric, &st.Avg, &st.Min, &st.Max); err != nil {
			return nil, eris.Wrap(err, "store: scan sector stats")
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: iterate sector stats")
	}
	return stats, nil
}

func (s *PostgresStore) StartRun(ctx context.Context) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		"INSERT INTO insurintel.ingest_runs (id, status) VALUES ($1, 'running')",
		id,
	)
	if err != nil {
		return "", eris.Wrap(err, "store: start ingest run")
	}
	return id, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary RunSummary) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE insurintel.ingest_runs
		SET status = 'completed', completed_at = now(),
		    succeeded = $1, failed = $2, failures = $3
		WHERE id = $4`,
		summary.Succeeded, summary.Failed, strings.Join(summary.Failures, "\n"), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "store: complete run %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, msg string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE insurintel.ingest_runs
		SET status = 'failed', completed_at = now(), failures = $1
		WHERE id = $2`,
		msg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "store: fail run %s", runID)
	}
	return nil
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
