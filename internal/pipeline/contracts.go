package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fieldextract/internal/extract"
	"github.com/joseph-ayodele/fieldextract/internal/fields"
	"github.com/joseph-ayodele/fieldextract/internal/ocr"
	"github.com/joseph-ayodele/fieldextract/internal/storage"
)

// TextSource is stage 1: file -> raw text.
type TextSource interface {
	Extract(ctx context.Context, path string) (ocr.ExtractionResult, error)
}

// FieldEngine is stage 2: raw text -> typed fields.
type FieldEngine interface {
	Extract(ctx context.Context, raw string, specs fields.SpecSet, strategy extract.Strategy) extract.Result
}

// FileStore resolves and discards uploads.
type FileStore interface {
	Resolve(ctx context.Context, fileID string) (storage.FileRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
