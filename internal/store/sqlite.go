package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/prachitbhike/insurintel-sub000/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is the zero-infra
// backend for local runs; the schema mirrors the Postgres one without the
// schema qualifier.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	cik              TEXT NOT NULL UNIQUE,
	ticker           TEXT NOT NULL,
	name             TEXT NOT NULL,
	sector           TEXT NOT NULL,
	sub_sector       TEXT NOT NULL DEFAULT '',
	last_ingested_at DATETIME
);

CREATE TABLE IF NOT EXISTS metric_observations (
	company_id     INTEGER NOT NULL REFERENCES companies(id),
	metric         TEXT NOT NULL,
	value          REAL NOT NULL,
	unit           TEXT NOT NULL DEFAULT '',
	period_type    TEXT NOT NULL,
	fiscal_year    INTEGER NOT NULL,
	fiscal_quarter INTEGER NOT NULL DEFAULT 0,
	period_start   DATE,
	period_end     DATE,
	provenance     TEXT NOT NULL,
	accession      TEXT NOT NULL DEFAULT '',
	UNIQUE (company_id, metric, period_type, fiscal_year, fiscal_quarter)
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME,
	succeeded    INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	failures     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_companies_sector ON companies(sector);
CREATE INDEX IF NOT EXISTS idx_observations_metric_year
	ON metric_observations(metric, fiscal_year);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertCompanies(ctx context.Context, companies []model.Company) error {
	for _, c := range companies {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO companies (cik, ticker, name, sector, sub_sector)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (cik) DO UPDATE SET
				ticker     = excluded.ticker,
				name       = excluded.name,
				sub_sector = excluded.sub_sector`,
			c.CIK, c.Ticker, c.Name, string(c.Sector), c.SubSector,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert company cik=%s", c.CIK)
		}
	}
	return nil
}

func (s *SQLiteStore) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cik, ticker, name, sector, sub_sector, last_ingested_at
		FROM companies
		ORDER BY sector, ticker`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var (
			c      model.Company
			sector string
			last   sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.CIK, &c.Ticker, &c.Name, &sector, &c.SubSector, &last); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		c.Sector = model.Sector(sector)
		if last.Valid {
			t := last.Time
			c.LastIngestedAt = &t
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (s *SQLiteStore) UpdateLastIngested(ctx context.Context, companyID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE companies SET last_ingested_at = ? WHERE id = ?", at, companyID)
	return eris.Wrapf(err, "sqlite: update last_ingested_at for company %d", companyID)
}

func (s *SQLiteStore) UpsertObservations(ctx context.Context, obs []model.MetricObservation) (int64, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO metric_observations
			(company_id, metric, value, unit, period_type,
			 fiscal_year, fiscal_quarter, period_start, period_end,
			 provenance, accession)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (company_id, metric, period_type, fiscal_year, fiscal_quarter)
		DO UPDATE SET
			value        = excluded.value,
			unit         = excluded.unit,
			period_start = excluded.period_start,
			period_end   = excluded.period_end,
			provenance   = excluded.provenance,
			accession    = excluded.accession`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close()

	var n int64
	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx,
			o.CompanyID, o.Metric, o.Value, o.Unit, string(o.PeriodType),
			o.FiscalYear, quarterToDB(o.FiscalQuarter), o.PeriodStart, o.PeriodEnd,
			string(o.Provenance), o.Accession,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert observation %s fy=%d", o.Metric, o.FiscalYear)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert")
	}
	return n, nil
}

func (s *SQLiteStore) ListObservations(ctx context.Context, f ObservationFilter) ([]model.MetricObservation, error) {
	var (
		conds []string
		args  []any
	)
	if f.CompanyID != 0 {
		conds = append(conds, "company_id = ?")
		args = append(args, f.CompanyID)
	}
	if f.Metric != "" {
		conds = append(conds, "metric = ?")
		args = append(args, f.Metric)
	}
	if f.PeriodType != "" {
		conds = append(conds, "period_type = ?")
		args = append(args, string(f.PeriodType))
	}

	query := `
		SELECT company_id, metric, value, unit, period_type,
		       fiscal_year, fiscal_quarter, period_start, period_end,
		       provenance, accession
		FROM metric_observations`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY fiscal_year, fiscal_quarter, metric"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list observations")
	}
	defer rows.Close()

	var out []model.MetricObservation
	for rows.Next() {
		var (
			o          model.MetricObservation
			ptype      string
			fq         int16
			start, end sql.NullTime
			provenance string
		)
		if err := rows.Scan(&o.CompanyID, &o.Metric, &o.Value, &o.Unit, &ptype,
			&o.FiscalYear, &fq, &start, &end, &provenance, &o.Accession); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan observation")
		}
		o.PeriodType = model.PeriodType(ptype)
		o.FiscalQuarter = quarterFromDB(fq)
		o.Provenance = model.Provenance(provenance)
		if start.Valid {
			t := start.Time
			o.PeriodStart = &t
		}
		if end.Valid {
			t := end.Time
			o.PeriodEnd = &t
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SectorStats(ctx context.Context, sector model.Sector) ([]model.SectorStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH latest AS (
			SELECT o.company_id, o.metric, o.value
			FROM metric_observations o
			JOIN companies c ON c.id = o.company_id
			WHERE c.sector = ? AND o.period_type = 'annual'
			  AND o.fiscal_year = (
				SELECT MAX(o2.fiscal_year)
				FROM metric_observations o2
				WHERE o2.company_id = o.company_id
				  AND o2.metric = o.metric
				  AND o2.period_type = 'annual'
			  )
		)
		SELECT metric, AVG(value), MIN(value), MAX(value)
		FROM latest
		GROUP BY metric
		ORDER BY metric`,
		string(sector),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: sector stats for %s", sector)
	}
	defer rows.Close()

	var stats []model.SectorStats
	for rows.Next() {
		st := model.SectorStats{Sector: sector}
		if err := rows.Scan(&st.Metric, &st.Avg, &st.Min, &st.Max); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sector stats")
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func (s *SQLiteStore) StartRun(ctx context.Context) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO ingest_runs (id, status) VALUES (?, 'running')", id)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: start ingest run")
	}
	return id, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary RunSummary) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE ingest_runs
		SET status = 'completed', completed_at = datetime('now'),
		    succeeded = ?, failed = ?, failures = ?
		WHERE id = ?`,
		summary.Succeeded, summary.Failed, strings.Join(summary.Failures, "\n"), runID)
	return eris.Wrapf(err, "sqlite: complete run %s", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, msg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE ingest_runs
		SET status = 'failed', completed_at = datetime('now'), failures = ?
		WHERE id = ?`,
		msg, runID)
	return eris.Wrapf(err, "sqlite: fail run %s", runID)
}
