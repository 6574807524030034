package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Entry is one processed file's audit record.
type Entry struct {
	ID        int64
	CreatedAt time.Time
	Original  string
	FinalName string
	State     string
	Category  string
	Sender    string
	Patient   string
	Detail    string
}

// Journal is an append-only audit log of processing outcomes backed by
// SQLite. It exists for observability and reporting only. Folder contents
// remain the source of truth, and the watcher never consults it.
type Journal struct {
	db     *sql.DB
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TIMESTAMP NOT NULL,
	original   TEXT NOT NULL,
	final_name TEXT NOT NULL DEFAULT '',
	state      TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	sender     TEXT NOT NULL DEFAULT '',
	patient    TEXT NOT NULL DEFAULT '',
	detail     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_outcomes_created_at ON outcomes(created_at);
CREATE INDEX IF NOT EXISTS idx_outcomes_state ON outcomes(state);
`

// Open opens (creating if necessary) the journal database at path.
func Open(path string, logger *zap.Logger) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	logger.Info("Journal opened", zap.String("path", path))
	return &Journal{db: db, logger: logger}, nil
}

// Record appends one outcome. Journal failures are logged by callers but
// never fail the pipeline; the file move already happened.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO outcomes (created_at, original, final_name, state, category, sender, patient, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		createdAt, e.Original, e.FinalName, e.State, e.Category, e.Sender, e.Patient, e.Detail)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, created_at, original, final_name, state, category, sender, patient, detail
		 FROM outcomes ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Original, &e.FinalName,
			&e.State, &e.Category, &e.Sender, &e.Patient, &e.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByState returns how many outcomes were recorded per state.
func (j *Journal) CountByState(ctx context.Context) (map[string]int64, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT state, COUNT(*) FROM outcomes GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var state string
		var count int64
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[state] = count
	}
	return counts, rows.Err()
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
