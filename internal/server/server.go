// Package server exposes the extraction pipeline over HTTP, with an optional
// gRPC health endpoint for orchestrators.
package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/fieldextract/internal/export"
	"github.com/joseph-ayodele/fieldextract/internal/pipeline"
	"github.com/joseph-ayodele/fieldextract/internal/storage"
)

// maxJSONBody bounds the POST /api/ocr body.
const maxJSONBody = 1 << 20

// multipartOverhead is allowed on top of the upload limit for part headers.
const multipartOverhead = 64 << 10

// Processor runs one extraction request.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (pipeline.Response, error)
}

// Uploads stores and discards uploaded documents.
type Uploads interface {
	Save(ctx context.Context, filename string, r io.Reader) (storage.FileRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Ping(ctx context.Context) error
}

// Exporter renders a response as a workbook.
type Exporter interface {
	FieldsXLSX(ctx context.Context, doc export.Document) ([]byte, error)
}

type Options struct {
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

type Server struct {
	processor Processor
	uploads   Uploads
	exporter  Exporter
	opts      Options
	logger    *slog.Logger
}

func New(processor Processor, uploads Uploads, exporter Exporter, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		processor: processor,
		uploads:   uploads,
		exporter:  exporter,
		opts:      opts,
		logger:    logger,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestContext)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.opts.RequestTimeout))
	}

	r.Get("/health", s.handleHealth)
	r.Get("/health/ready", s.handleReady)
	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Post("/ocr", s.handleOCR)
		r.Delete("/files/{file_id}", s.handleDelete)
	})
	return r
}
