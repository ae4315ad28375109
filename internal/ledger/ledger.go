// Package ledger records successful anonymization runs in a local SQLite
// database so a published file can be traced back to its source and settings.
package ledger

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cvranon/internal/anonymize"
	"cvranon/internal/logging"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
)

// MemoryPath opens a private in-memory ledger.
const MemoryPath = ":memory:"

// Run is one recorded anonymization.
type Run struct {
	ID           string
	StartedAt    time.Time
	Input        string
	Output       string
	InputDigest  string
	OutputDigest string
	Threshold    int
	Policy       string
	Ballots      int
	RareBallots  int
	Aggregates   int
	Borrowed     int
	OutputRows   int
	Warnings     []anonymize.Warning
}

// RunFromReport fills the counters of a Run from a run report.
func RunFromReport(input, output string, r *anonymize.Report) *Run {
	return &Run{
		Input:       input,
		Output:      output,
		Threshold:   r.Threshold,
		Policy:      r.Policy,
		Ballots:     r.TotalBallots,
		RareBallots: r.RareBallots,
		Aggregates:  len(r.Aggregates),
		Borrowed:    r.BorrowedBallots,
		OutputRows:  r.OutputRows,
		Warnings:    r.Warnings,
	}
}

// Ledger manages the run database.
type Ledger struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open creates or opens the ledger at path.
func Open(path string) (*Ledger, error) {
	timer := logging.StartTimer(logging.CategoryLedger, "Open")
	defer timer.Stop()

	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	l := &Ledger{db: db, dbPath: path}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logging.Get(logging.CategoryLedger).Debug("ledger opened", zap.String("path", path))
	return l, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.dbPath
}

func (l *Ledger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		input TEXT NOT NULL,
		output TEXT NOT NULL,
		input_digest TEXT NOT NULL,
		output_digest TEXT NOT NULL,
		threshold INTEGER NOT NULL,
		policy TEXT NOT NULL,
		ballots INTEGER NOT NULL,
		rare_ballots INTEGER NOT NULL,
		aggregates INTEGER NOT NULL,
		borrowed INTEGER NOT NULL,
		output_rows INTEGER NOT NULL,
		warnings_json TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Record stores run, assigning an id and start time when missing.
func (l *Ledger) Record(ctx context.Context, run *Run) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	warnings := run.Warnings
	if warnings == nil {
		warnings = []anonymize.Warning{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, input, output, input_digest, output_digest,
			threshold, policy, ballots, rare_ballots, aggregates, borrowed, output_rows, warnings_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.Input, run.Output, run.InputDigest, run.OutputDigest,
		run.Threshold, run.Policy, run.Ballots, run.RareBallots, run.Aggregates, run.Borrowed,
		run.OutputRows, string(warningsJSON))
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	logging.Get(logging.CategoryLedger).Info("run recorded",
		zap.String("id", run.ID),
		zap.String("output", run.Output))
	return nil
}

// List returns up to limit runs, newest first. A non-positive limit returns
// every run.
func (l *Ledger) List(ctx context.Context, limit int) ([]Run, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	query := `
		SELECT id, started_at, input, output, input_digest, output_digest,
			threshold, policy, ballots, rare_ballots, aggregates, borrowed, output_rows, warnings_json
		FROM runs ORDER BY started_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var warningsJSON sql.NullString
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Input, &r.Output, &r.InputDigest, &r.OutputDigest,
			&r.Threshold, &r.Policy, &r.Ballots, &r.RareBallots, &r.Aggregates, &r.Borrowed,
			&r.OutputRows, &warningsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if warningsJSON.Valid && warningsJSON.String != "" {
			if err := json.Unmarshal([]byte(warningsJSON.String), &r.Warnings); err != nil {
				return nil, fmt.Errorf("failed to decode warnings of run %s: %w", r.ID, err)
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Digest returns the BLAKE3 digest of data as "blake3:<hex>".
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return "blake3:" + hex.EncodeToString(sum[:])
}

// DigestFile streams the file at path through BLAKE3.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return "blake3:" + hex.EncodeToString(h.Sum(nil)), nil
}
