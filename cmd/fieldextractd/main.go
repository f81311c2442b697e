package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/fieldextract/internal/common"
	"github.com/joseph-ayodele/fieldextract/internal/export"
	"github.com/joseph-ayodele/fieldextract/internal/extract"
	"github.com/joseph-ayodele/fieldextract/internal/llm/provider"
	"github.com/joseph-ayodele/fieldextract/internal/ocr"
	"github.com/joseph-ayodele/fieldextract/internal/pipeline"
	"github.com/joseph-ayodele/fieldextract/internal/server"
	"github.com/joseph-ayodele/fieldextract/internal/storage"
)

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("config invalid", "error", err)
		os.Exit(2)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("fieldextractd failed", "error", err)
		os.Exit(1)
	}
}

// run wires the service and blocks until SIGINT or SIGTERM. Deferred
// cleanup always runs before it returns.
func run(cfg *common.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	index, err := storage.OpenIndex(ctx, storage.IndexConfig{
		DSN:             cfg.Storage.IndexDSN,
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		DialTimeout:     3 * time.Second,
	}, logger)
	if err != nil {
		return fmt.Errorf("open upload index: %w", err)
	}
	defer func() {
		if cerr := index.Close(); cerr != nil {
			logger.Error("close upload index", "error", cerr)
		}
	}()

	store, err := storage.NewStore(storage.Config{
		Dir:      cfg.Storage.UploadDir,
		MaxBytes: cfg.Storage.MaxUploadBytes,
	}, index, logger)
	if err != nil {
		return fmt.Errorf("open upload store: %w", err)
	}

	labels, err := extract.LoadLabels(cfg.Extract.LabelsFile)
	if err != nil {
		return fmt.Errorf("load labels: %w", err)
	}
	completer, err := provider.New(cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("build completion client: %w", err)
	}

	extractor := ocr.NewExtractor(ocr.Config{
		Pdftoppm:          cfg.OCR.Pdftoppm,
		Tesseract:         cfg.OCR.Tesseract,
		TesseractLang:     cfg.OCR.TesseractLang,
		TessdataDir:       cfg.OCR.TessdataDir,
		DPI:               cfg.OCR.DPI,
		MaxPages:          cfg.OCR.MaxPages,
		PageWorkers:       cfg.OCR.PageWorkers,
		PSM:               cfg.OCR.PSM,
		MinTextLayerChars: cfg.OCR.MinTextLayerChars,
	}, logger)
	engine := extract.NewEngine(extract.Options{
		Labels:    labels,
		Completer: completer,
		Timeout:   cfg.LLM.Timeout,
	}, logger)
	proc := pipeline.NewProcessor(store, extractor, engine, logger)

	api := server.New(proc, store, export.NewService(logger), server.Options{
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		RequestTimeout: cfg.Server.RequestTimeout,
	}, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	go sweep(ctx, store, cfg.Storage.UploadTTL, cfg.Storage.SweepInterval, logger)

	// the first serve failure stops the process
	serveErr := make(chan error, 2)

	var health *server.HealthServer
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen on %s: %w", cfg.Server.GRPCAddr, err)
		}
		health = server.NewHealthServer(store.Ping, logger)
		go health.Watch(ctx, 30*time.Second)
		go func() {
			if err := health.Serve(lis); err != nil {
				serveErr <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
	}

	go func() {
		logger.Info("http.serve", "addr", cfg.Server.HTTPAddr, "llm", completer.Name())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http serve: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-serveErr:
		logger.Error("serve failed, shutting down", "error", runErr)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if health != nil {
		health.Stop()
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	logger.Info("stopped")
	return runErr
}

// sweep removes uploads that were never processed.
func sweep(ctx context.Context, store *storage.Store, ttl, every time.Duration, logger *slog.Logger) {
	if ttl <= 0 || every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := store.Sweep(ctx, ttl); err != nil && ctx.Err() == nil {
				logger.Warn("storage.sweep.failed", "error", err)
			}
		}
	}
}
