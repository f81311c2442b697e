package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/fieldextract/constants"
	"github.com/joseph-ayodele/fieldextract/internal/common"
	"github.com/joseph-ayodele/fieldextract/internal/extract"
	"github.com/joseph-ayodele/fieldextract/internal/fields"
	"github.com/joseph-ayodele/fieldextract/internal/ocr"
	"github.com/joseph-ayodele/fieldextract/internal/storage"
)

// LowConfidenceThreshold flags OCR output that is probably unreliable.
const LowConfidenceThreshold = 0.45

type OCRStage struct {
	Source TextSource
	Logger *slog.Logger
}

func NewOCRStage(src TextSource, logger *slog.Logger) *OCRStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRStage{Source: src, Logger: logger}
}

// Run recognizes the text of one upload. Recognition failures become
// RECOGNITION_FAILED errors; cancellation passes through untouched.
func (s *OCRStage) Run(ctx context.Context, rec storage.FileRecord) (ocr.ExtractionResult, error) {
	res, err := s.Source.Extract(ctx, rec.Path)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return res, ctx.Err()
		case errors.Is(err, common.ErrUnsupportedMedia):
			return res, common.NewAppError(common.CodeUnsupportedMedia, "file type is not supported", err)
		default:
			return res, common.NewAppError(common.CodeRecognition, "text recognition failed", err)
		}
	}
	if res.Confidence > 0 && res.Confidence < LowConfidenceThreshold {
		s.Logger.Warn("pipeline.ocr.low_confidence",
			"req_id", common.RequestIDFromContext(ctx),
			"file_id", rec.ID,
			"format", constants.MapExtToFormat(rec.Ext),
			"confidence", res.Confidence,
		)
	}
	return res, nil
}

type ParseStage struct {
	Engine FieldEngine
	Logger *slog.Logger
}

func NewParseStage(engine FieldEngine, logger *slog.Logger) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseStage{Engine: engine, Logger: logger}
}

// Run extracts the requested fields. The values always cover every key; a
// strategy-level failure is reported alongside them.
func (s *ParseStage) Run(ctx context.Context, raw string, specs fields.SpecSet, strategy extract.Strategy) (fields.Values, *extract.Failure) {
	start := time.Now()
	res := s.Engine.Extract(ctx, raw, specs, strategy)
	if res.Failure != nil {
		s.Logger.Warn("pipeline.parse.failed",
			"req_id", common.RequestIDFromContext(ctx),
			"kind", string(res.Failure.Kind),
			"reason", res.Failure.Reason,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return res.Values, res.Failure
	}
	return res.Values, nil
}
