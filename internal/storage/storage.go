// Package storage persists the processing history of uploaded forms.
package storage

import (
	"context"

	"github.com/formmind/formmind/internal/models"
)

// History records processed forms for the /history and /status endpoints.
type History interface {
	RecordForm(ctx context.Context, rec *models.FormRecord) error
	ListForms(ctx context.Context, limit int) ([]*models.FormRecord, error)
	CountForms(ctx context.Context) (int64, error)
	Close() error
}
