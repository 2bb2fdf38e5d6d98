// Package history records completed diarization runs in a local SQLite
// database. Recording is optional and failures are reported to the
// caller, who treats them as warnings.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kbukum/diarize/errors"
)

// Record describes one completed diarization run.
type Record struct {
	ID            string        `json:"id"`
	AudioPath     string        `json:"audio_path"`
	Backend       string        `json:"backend"`
	Model         string        `json:"model"`
	SpeakerCount  int           `json:"speaker_count"`
	SegmentCount  int           `json:"segment_count"`
	AudioDuration float64       `json:"audio_duration"`
	Processing    time.Duration `json:"processing"`
	Success       bool          `json:"success"`
	Error         string        `json:"error,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Store persists run records in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the run history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.StorageError(fmt.Errorf("open history database: %w", err))
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		audio_path TEXT NOT NULL,
		backend TEXT NOT NULL,
		model TEXT,
		speaker_count INTEGER,
		segment_count INTEGER,
		audio_duration REAL,
		processing_ms INTEGER,
		success INTEGER NOT NULL,
		error TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.StorageError(fmt.Errorf("create runs table: %w", err))
	}

	return &Store{db: db}, nil
}

// Save inserts a run record. A missing ID is filled with a new UUID; a
// zero CreatedAt is filled with the current time. The stored ID is
// written back to rec.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO runs (id, audio_path, backend, model, speaker_count, segment_count,
		audio_duration, processing_ms, success, error, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.AudioPath, rec.Backend, rec.Model,
		rec.SpeakerCount, rec.SegmentCount, rec.AudioDuration,
		rec.Processing.Milliseconds(), rec.Success, rec.Error, rec.CreatedAt,
	)
	if err != nil {
		return errors.StorageError(fmt.Errorf("save run record: %w", err))
	}
	return nil
}

// Get retrieves a run record by ID.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	query := `
	SELECT id, audio_path, backend, model, speaker_count, segment_count,
		audio_duration, processing_ms, success, error, created_at
	FROM runs WHERE id = ?
	`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("run record", id)
	}
	if err != nil {
		return nil, errors.StorageError(fmt.Errorf("get run record: %w", err))
	}
	return rec, nil
}

// Recent returns up to limit run records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	query := `
	SELECT id, audio_path, backend, model, speaker_count, segment_count,
		audio_duration, processing_ms, success, error, created_at
	FROM runs ORDER BY created_at DESC, id LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.StorageError(fmt.Errorf("list run records: %w", err))
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.StorageError(fmt.Errorf("scan run record: %w", err))
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError(fmt.Errorf("iterate run records: %w", err))
	}
	return records, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec          Record
		processingMs int64
	)
	err := row.Scan(
		&rec.ID, &rec.AudioPath, &rec.Backend, &rec.Model,
		&rec.SpeakerCount, &rec.SegmentCount, &rec.AudioDuration,
		&processingMs, &rec.Success, &rec.Error, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Processing = time.Duration(processingMs) * time.Millisecond
	return &rec, nil
}
