package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/guregu/null/v6"
	_ "modernc.org/sqlite"

	"FundLens/internal/model"
)

// SQLiteRecorder persists run history and latest snapshots to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			status      TEXT NOT NULL,
			error       TEXT,
			lookback    TEXT,
			requested   TEXT,
			succeeded   TEXT,
			row_count   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS fetch_failures (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			symbol TEXT NOT NULL,
			reason TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS latest_snapshots (
			run_id            INTEGER NOT NULL REFERENCES runs(id),
			symbol            TEXT NOT NULL,
			date              TEXT NOT NULL,
			fund_name         TEXT,
			category          TEXT,
			style             TEXT,
			close             REAL,
			volume            INTEGER,
			sma_20            REAL,
			sma_50            REAL,
			sma_200           REAL,
			daily_return      REAL,
			volatility_20     REAL,
			cumulative_return REAL,
			PRIMARY KEY (run_id, symbol)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshot_symbol ON latest_snapshots(symbol, date)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores run metadata, its fetch failures and snapshot in one transaction.
func (r *SQLiteRecorder) RecordRun(run *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO runs
		(started_at, finished_at, status, error, lookback, requested, succeeded, row_count)
		VALUES (?,?,?,?,?,?,?,?)`,
		run.StartedAt.Unix(), run.FinishedAt.Unix(), run.Status, run.Error, run.Lookback,
		strings.Join(run.Requested, ","), strings.Join(run.Succeeded, ","), run.RowCount,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}

	failed := make([]string, 0, len(run.Failed))
	for sym := range run.Failed {
		failed = append(failed, sym)
	}
	sort.Strings(failed)
	for _, sym := range failed {
		if _, err := tx.Exec(`INSERT INTO fetch_failures (run_id, symbol, reason) VALUES (?,?,?)`,
			runID, sym, run.Failed[sym]); err != nil {
			return fmt.Errorf("insert failure %s: %w", sym, err)
		}
	}

	for _, row := range run.Snapshot {
		if _, err := tx.Exec(`INSERT INTO latest_snapshots
			(run_id, symbol, date, fund_name, category, style, close, volume,
			 sma_20, sma_50, sma_200, daily_return, volatility_20, cumulative_return)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			runID, row.Symbol, row.Date.Format(model.DateLayout), row.FundName, row.Category, row.Style,
			row.Close, row.Volume, row.SMA20, row.SMA50, row.SMA200,
			row.DailyReturn, row.Volatility20, row.CumulativeReturn,
		); err != nil {
			return fmt.Errorf("insert snapshot %s: %w", row.Symbol, err)
		}
	}
	return tx.Commit()
}

// SnapshotEntry is one archived latest-snapshot row.
type SnapshotEntry struct {
	Symbol           string
	Date             string
	Close            float64
	Volatility20     null.Float
	CumulativeReturn float64
}

// LastSnapshot returns the snapshot stored by the most recent successful run.
func (r *SQLiteRecorder) LastSnapshot() ([]SnapshotEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT s.symbol, s.date, s.close, s.volatility_20, s.cumulative_return
		FROM latest_snapshots s
		WHERE s.run_id = (SELECT MAX(id) FROM runs WHERE status = ?)
		ORDER BY s.symbol`, StatusSuccess)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	var out []SnapshotEntry
	for rows.Next() {
		var e SnapshotEntry
		if err := rows.Scan(&e.Symbol, &e.Date, &e.Close, &e.Volatility20, &e.CumulativeReturn); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RunCount returns how many runs have been recorded with the given status.
func (r *SQLiteRecorder) RunCount(status string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM runs WHERE status = ?`, status).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
