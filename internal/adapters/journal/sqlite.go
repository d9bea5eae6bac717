// Package journal keeps the history of schedule loads and dispenses in SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bft-labs/pillship/internal/ports"
)

// SQLiteJournal implements ports.Journal.
type SQLiteJournal struct {
	db *sql.DB
}

// Open opens or creates the journal database at path.
func Open(path string) (*SQLiteJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; the daemon and the history command may share the file.
	db.SetMaxOpenConns(1)

	j := &SQLiteJournal{db: db}
	if err := j.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := j.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *SQLiteJournal) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := j.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (j *SQLiteJournal) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS journal (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			at_unix_ms INTEGER NOT NULL,
			kind TEXT NOT NULL,
			slot TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_at ON journal(at_unix_ms)`,
	}
	for _, stmt := range stmts {
		if _, err := j.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Record appends rec.
func (j *SQLiteJournal) Record(ctx context.Context, rec ports.JournalRecord) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO journal (at_unix_ms, kind, slot, detail) VALUES (?, ?, ?, ?)`,
		rec.At.UnixMilli(), string(rec.Kind), rec.Slot, rec.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert journal record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]ports.JournalRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT at_unix_ms, kind, slot, detail FROM journal ORDER BY at_unix_ms DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []ports.JournalRecord
	for rows.Next() {
		var (
			ms   int64
			kind string
			rec  ports.JournalRecord
		)
		if err := rows.Scan(&ms, &kind, &rec.Slot, &rec.Detail); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		rec.At = time.UnixMilli(ms)
		rec.Kind = ports.JournalKind(kind)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Prune deletes records older than before and returns how many were removed.
func (j *SQLiteJournal) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM journal WHERE at_unix_ms < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (j *SQLiteJournal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}
