// Package pipeline runs one extraction request end to end: resolve the
// upload, recognize its text, extract the fields, and discard the file.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/fieldextract/internal/common"
)

// cleanupTimeout bounds file deletion after the request context is gone.
const cleanupTimeout = 5 * time.Second

// Processor coordinates OCR (text extract) then field parsing.
type Processor struct {
	Files  FileStore
	OCR    *OCRStage
	Parse  *ParseStage
	Logger *slog.Logger
}

func NewProcessor(files FileStore, src TextSource, engine FieldEngine, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		Files:  files,
		OCR:    NewOCRStage(src, logger),
		Parse:  NewParseStage(engine, logger),
		Logger: logger,
	}
}

// Process validates req, then runs the stages. The uploaded file is deleted
// once resolved, whatever the outcome.
//
// On a strategy-level failure the returned Response is still populated (all
// null values, raw text) together with the error, so callers can echo it.
func (p *Processor) Process(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	strategy, err := req.Validate()
	if err != nil {
		return Response{}, err
	}
	ctx = common.WithFileID(ctx, req.FileID)
	rid := common.RequestIDFromContext(ctx)

	rec, err := p.Files.Resolve(ctx, req.FileID)
	if err != nil {
		p.Logger.Warn("pipeline.resolve.failed", "req_id", rid, "file_id", req.FileID, "error", err)
		return Response{}, err
	}
	defer func() {
		// the request context may already be canceled; cleanup must still run
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		if err := p.Files.Delete(cctx, rec.ID); err != nil {
			p.Logger.Warn("pipeline.cleanup.failed", "req_id", rid, "file_id", rec.ID, "error", err)
		}
	}()

	ocrRes, err := p.OCR.Run(ctx, rec)
	if err != nil {
		p.Logger.Error("pipeline.ocr.failed", "req_id", rid, "file_id", rec.ID, "error", err)
		return Response{}, err
	}
	p.Logger.Info("pipeline.ocr.ok",
		"req_id", rid,
		"file_id", rec.ID,
		"method", ocrRes.Method,
		"pages", ocrRes.Pages,
		"confidence", ocrRes.Confidence,
	)

	values, failure := p.Parse.Run(ctx, ocrRes.Text, req.Fields, strategy)
	resp := Response{
		FileID:     req.FileID,
		OCR:        strategy.WireName(),
		Result:     values,
		RawOCR:     ocrRes.Text,
		Filename:   rec.Filename,
		Method:     ocrRes.Method,
		Pages:      ocrRes.Pages,
		Confidence: ocrRes.Confidence,
	}
	if failure != nil {
		resp.Failure = failure.Reason
		return resp, failure.AppError()
	}
	if reasons := values.Reasons(); len(reasons) > 0 {
		resp.FieldErrors = reasons
	}

	p.Logger.Info("pipeline.run.ok",
		"req_id", rid,
		"file_id", rec.ID,
		"strategy", string(strategy),
		"fields", values.Len(),
		"matched", values.Matched(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}
