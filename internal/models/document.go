// Package models defines core data structures for documents, questions, and processing results.
package models

import "time"

// DocumentMeta is metadata attached to a document at ingestion time.
type DocumentMeta struct {
	Filename string `json:"filename"`
	Pages    int    `json:"pages"`
}

// Document is the unit of indexed content: extracted text plus identity and metadata.
// A document is never mutated after creation.
type Document struct {
	ID   string       `json:"id"`
	Text string       `json:"text"`
	Meta DocumentMeta `json:"meta"`
}

// FormRecord is a persisted history entry for one processed form.
type FormRecord struct {
	ID          string    `json:"id" db:"id"`
	Filename    string    `json:"filename" db:"filename"`
	Pages       int       `json:"pages" db:"pages"`
	EntityCount int       `json:"entity_count" db:"entity_count"`
	Summary     string    `json:"summary" db:"summary"`
	DurationMS  int64     `json:"duration_ms" db:"duration_ms"`
	ProcessedAt time.Time `json:"processed_at" db:"processed_at"`
}
