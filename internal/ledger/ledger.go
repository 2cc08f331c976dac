// Package ledger keeps a SQLite history of every finalized lead and every run.
package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"supplier_leads_scraper/internal/lead"
	"supplier_leads_scraper/internal/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS leads (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    company TEXT NOT NULL,
    address TEXT,
    business_phone TEXT NOT NULL,
    rep TEXT,
    run_id TEXT NOT NULL,
    scraped_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_company_phone ON leads(company, business_phone);
CREATE INDEX IF NOT EXISTS idx_leads_run_id ON leads(run_id);

CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    search_url TEXT,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL,
    reason TEXT,
    pages INTEGER NOT NULL DEFAULT 0,
    leads INTEGER NOT NULL DEFAULT 0,
    output_path TEXT
);
`

// Run is one scraper run.
type Run struct {
	ID         string    `db:"run_id"`
	SearchURL  string    `db:"search_url"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	Reason     string    `db:"reason"`
	Pages      int       `db:"pages"`
	Leads      int       `db:"leads"`
	OutputPath string    `db:"output_path"`
}

// Ledger stores leads and runs.
type Ledger struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens or creates the ledger database at path and applies the schema.
func Open(ctx context.Context, path string, log logger.Logger) (*Ledger, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		log.Warn("Failed to set WAL mode", logger.Error(err))
	}
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		log.Warn("Failed to set busy timeout", logger.Error(err))
	}

	l := New(db)
	if err := l.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// New wraps an open database.
func New(db *sqlx.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// Migrate creates the tables and indexes that do not exist yet.
func (l *Ledger) Migrate(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate ledger: %w", err)
	}
	return nil
}

// Record inserts records under runID, skipping keys already in the ledger.
// It returns the number of rows inserted.
func (l *Ledger) Record(ctx context.Context, runID string, records []lead.Record) (int, error) {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin ledger insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT OR IGNORE INTO leads (company, address, business_phone, rep, run_id, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare ledger insert: %w", err)
	}
	defer stmt.Close()

	scrapedAt := l.now().UTC()
	inserted := 0
	for _, r := range records {
		res, err := stmt.ExecContext(ctx, r.Company, r.Address, r.BusinessPhone, r.Rep, runID, scrapedAt)
		if err != nil {
			return 0, fmt.Errorf("insert lead %q: %w", r.Company, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit ledger insert: %w", err)
	}
	return inserted, nil
}

// Keys returns the identity key of every lead in the ledger.
func (l *Ledger) Keys(ctx context.Context) ([]lead.Key, error) {
	var rows []struct {
		Company string `db:"company"`
		Phone   string `db:"business_phone"`
	}
	if err := l.db.SelectContext(ctx, &rows, `SELECT company, business_phone FROM leads`); err != nil {
		return nil, fmt.Errorf("load ledger keys: %w", err)
	}

	keys := make([]lead.Key, len(rows))
	for i, r := range rows {
		keys[i] = lead.Key{Company: r.Company, Phone: r.Phone}
	}
	return keys, nil
}

// RecordRun stores or replaces a run.
func (l *Ledger) RecordRun(ctx context.Context, run Run) error {
	_, err := l.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(run_id, search_url, started_at, finished_at, reason, pages, leads, output_path)
		VALUES
			(:run_id, :search_url, :started_at, :finished_at, :reason, :pages, :leads, :output_path)`,
		run)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

// Runs returns up to limit runs, newest first.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	runs := []Run{}
	err := l.db.SelectContext(ctx, &runs, `
		SELECT run_id, search_url, started_at, finished_at, reason, pages, leads, output_path
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
