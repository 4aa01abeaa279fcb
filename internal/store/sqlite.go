package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadscore/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given DSN and configures WAL mode.
// A single connection is used so that ":memory:" databases are shared.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	lead_count   INTEGER NOT NULL,
	success_rate REAL NOT NULL DEFAULT 0,
	report       TEXT,
	stored_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS current_snapshot (
	id        INTEGER PRIMARY KEY CHECK (id = 1),
	run_id    TEXT NOT NULL REFERENCES runs(id),
	stored_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS current_leads (
	position INTEGER PRIMARY KEY,
	run_id   TEXT NOT NULL,
	lead     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_stored_at ON runs(stored_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Set(ctx context.Context, snap Snapshot) error {
	var reportJSON sql.NullString
	if snap.Report != nil {
		b, err := json.Marshal(snap.Report)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal report")
		}
		reportJSON = sql.NullString{String: string(b), Valid: true}
	}
	rs := summarize(snap)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin set")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, status, lead_count, success_rate, report, stored_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rs.RunID, string(rs.Status), rs.LeadCount, rs.SuccessRate, reportJSON, snap.StoredAt,
	); err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", snap.RunID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM current_leads`); err != nil {
		return eris.Wrap(err, "sqlite: clear current leads")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO current_leads (position, run_id, lead) VALUES (?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare lead insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i, sl := range snap.Leads {
		b, err := json.Marshal(sl)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal lead %d", sl.ID)
		}
		if _, err := stmt.ExecContext(ctx, i, snap.RunID, string(b)); err != nil {
			return eris.Wrapf(err, "sqlite: insert lead %d", sl.ID)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO current_snapshot (id, run_id, stored_at) VALUES (1, ?, ?)`,
		snap.RunID, snap.StoredAt,
	); err != nil {
		return eris.Wrap(err, "sqlite: set current snapshot")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit set")
}

func (s *SQLiteStore) Get(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	var reportJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT c.run_id, c.stored_at, r.report FROM current_snapshot c
		 JOIN runs r ON r.id = c.run_id WHERE c.id = 1`,
	).Scan(&snap.RunID, &snap.StoredAt, &reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get current snapshot")
	}
	if reportJSON.Valid {
		snap.Report = &model.QualityReport{}
		if err := json.Unmarshal([]byte(reportJSON.String), snap.Report); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal report")
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT lead FROM current_leads ORDER BY position`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list current leads")
	}
	defer rows.Close() //nolint:errcheck

	snap.Leads = []model.ScoredLead{}
	for rows.Next() {
		var leadJSON string
		if err := rows.Scan(&leadJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		var sl model.ScoredLead
		if err := json.Unmarshal([]byte(leadJSON), &sl); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal lead")
		}
		snap.Leads = append(snap.Leads, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list current leads iterate")
	}
	return &snap, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin clear")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM current_leads`); err != nil {
		return eris.Wrap(err, "sqlite: clear current leads")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM current_snapshot`); err != nil {
		return eris.Wrap(err, "sqlite: clear current snapshot")
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit clear")
}

func (s *SQLiteStore) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, lead_count, success_rate, stored_at FROM runs
		 ORDER BY stored_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	runs := []RunSummary{}
	for rows.Next() {
		var rs RunSummary
		if err := rows.Scan(&rs.RunID, &rs.Status, &rs.LeadCount, &rs.SuccessRate, &rs.StoredAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, rs)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}
