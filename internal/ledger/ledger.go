// Package ledger records acquisition runs and per-batch outcomes in a small
// SQLite database next to the downloaded genomes.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"mashclust/internal/paths"
)

// RunStatus is the lifecycle state of an acquisition run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunAborted   RunStatus = "aborted"
)

// BatchStatus is the outcome of one batch.
type BatchStatus string

const (
	BatchExtracted BatchStatus = "extracted"
	BatchFailed    BatchStatus = "failed"
)

// Run is one invocation of the downloader.
type Run struct {
	ID            string
	AccessionFile string
	Requested     int
	StartBatch    int
	Status        RunStatus
	Extracted     int
	StartedAt     time.Time
	FinishedAt    *time.Time
}

// Batch is the recorded outcome of one batch within a run.
type Batch struct {
	RunID      string
	Number     int
	Status     BatchStatus
	ErrorType  string
	Attempts   int
	Accessions int
	Extracted  int
	FinishedAt time.Time
}

// Ledger wraps the SQLite connection.
type Ledger struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

// Open opens or creates ledger.db in dir.
func Open(dir string, logger *slog.Logger) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	dbPath := filepath.Join(dir, paths.LedgerFile)
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	l := &Ledger{conn: conn, logger: logger, dbPath: dbPath}
	if err := l.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return l, nil
}

func (l *Ledger) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			accession_file TEXT NOT NULL,
			requested INTEGER NOT NULL,
			start_batch INTEGER NOT NULL,
			status TEXT NOT NULL,
			extracted INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			finished_at TEXT
		);

		CREATE TABLE IF NOT EXISTS batches (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			number INTEGER NOT NULL,
			status TEXT NOT NULL,
			error_type TEXT,
			attempts INTEGER NOT NULL,
			accessions INTEGER NOT NULL,
			extracted INTEGER NOT NULL,
			finished_at TEXT NOT NULL,
			PRIMARY KEY (run_id, number)
		);
		CREATE INDEX IF NOT EXISTS idx_batches_status ON batches(status);
	`
	_, err := l.conn.Exec(schema)
	return err
}

// Path returns the database file location.
func (l *Ledger) Path() string { return l.dbPath }

func (l *Ledger) Close() error {
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}

// StartRun inserts a new running run with a fresh id.
func (l *Ledger) StartRun(accessionFile string, requested, startBatch int) (*Run, error) {
	run := &Run{
		ID:            uuid.New().String(),
		AccessionFile: accessionFile,
		Requested:     requested,
		StartBatch:    startBatch,
		Status:        RunRunning,
		StartedAt:     time.Now().UTC(),
	}

	_, err := l.conn.Exec(`
		INSERT INTO runs (id, accession_file, requested, start_batch, status, extracted, started_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, run.ID, run.AccessionFile, run.Requested, run.StartBatch, run.Status, run.StartedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	l.logger.Debug("Started ledger run", "runId", run.ID, "requested", requested)
	return run, nil
}

// RecordBatch stores a batch outcome. Re-recording the same batch number in
// a run replaces the earlier row.
func (l *Ledger) RecordBatch(b Batch) error {
	if b.FinishedAt.IsZero() {
		b.FinishedAt = time.Now().UTC()
	}
	_, err := l.conn.Exec(`
		INSERT OR REPLACE INTO batches (run_id, number, status, error_type, attempts, accessions, extracted, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, b.RunID, b.Number, b.Status, nullString(b.ErrorType), b.Attempts, b.Accessions, b.Extracted, b.FinishedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record batch %d: %w", b.Number, err)
	}
	return nil
}

// FinishRun sets the final status and extracted count.
func (l *Ledger) FinishRun(id string, status RunStatus, extracted int) error {
	res, err := l.conn.Exec(`
		UPDATE runs SET status = ?, extracted = ?, finished_at = ? WHERE id = ?
	`, status, extracted, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetRun loads a run by id.
func (l *Ledger) GetRun(id string) (*Run, error) {
	var run Run
	var startedAt string
	var finishedAt sql.NullString

	err := l.conn.QueryRow(`
		SELECT id, accession_file, requested, start_batch, status, extracted, started_at, finished_at
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.AccessionFile, &run.Requested, &run.StartBatch, &run.Status, &run.Extracted, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	if finishedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, finishedAt.String); err == nil {
			run.FinishedAt = &t
		}
	}
	return &run, nil
}

// Batches lists a run's batches by number. An empty status lists all.
func (l *Ledger) Batches(runID string, status BatchStatus) ([]Batch, error) {
	query := `
		SELECT run_id, number, status, error_type, attempts, accessions, extracted, finished_at
		FROM batches WHERE run_id = ?
	`
	args := []interface{}{runID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY number ASC"

	rows, err := l.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Batch
	for rows.Next() {
		var b Batch
		var errType sql.NullString
		var finishedAt string
		if err := rows.Scan(&b.RunID, &b.Number, &b.Status, &errType, &b.Attempts, &b.Accessions, &b.Extracted, &finishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		b.ErrorType = errType.String
		b.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
