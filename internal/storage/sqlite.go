// Package storage provides the SQLite implementation of the History interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/formmind/formmind/internal/models"
)

// SQLiteHistory implements History using SQLite.
type SQLiteHistory struct {
	db *sql.DB
}

// NewSQLiteHistory opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if needed.
func NewSQLiteHistory(dbPath string) (*SQLiteHistory, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteHistory{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS forms (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		pages INTEGER NOT NULL,
		entity_count INTEGER NOT NULL,
		summary TEXT,
		duration_ms INTEGER NOT NULL,
		processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_forms_processed_at ON forms(processed_at);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordForm inserts a history entry for a processed form.
func (s *SQLiteHistory) RecordForm(ctx context.Context, rec *models.FormRecord) error {
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO forms (id, filename, pages, entity_count, summary, duration_ms, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Filename, rec.Pages, rec.EntityCount, rec.Summary, rec.DurationMS, rec.ProcessedAt,
	)
	return err
}

// ListForms returns the most recently processed forms, newest first.
func (s *SQLiteHistory) ListForms(ctx context.Context, limit int) ([]*models.FormRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, pages, entity_count, summary, duration_ms, processed_at
		 FROM forms ORDER BY processed_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.FormRecord
	for rows.Next() {
		var rec models.FormRecord
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.Pages, &rec.EntityCount, &rec.Summary, &rec.DurationMS, &rec.ProcessedAt); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// CountForms returns the total number of processed forms.
func (s *SQLiteHistory) CountForms(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM forms`).Scan(&count)
	return count, err
}

// Close closes the database.
func (s *SQLiteHistory) Close() error {
	return s.db.Close()
}
