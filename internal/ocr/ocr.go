// Package ocr turns an uploaded document into raw text. PDFs with a usable
// text layer are read directly; scanned PDFs and images go through
// pdftoppm and tesseract.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/fieldextract/constants"
	"github.com/joseph-ayodele/fieldextract/internal/common"
)

// Extraction methods reported in ExtractionResult.Method.
const (
	MethodPDFText  = "pdf-text"
	MethodPDFOCR   = "pdf-ocr"
	MethodImageOCR = "image-ocr"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "tur+eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // 0 = no limit
	PageWorkers   int // concurrent tesseract runs for one PDF, default 2

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	// MinTextLayerChars is the least amount of text a PDF text layer must
	// carry before OCR is skipped. Negative disables the text layer.
	MinTextLayerChars   int
	EnableTSVConfidence bool
}

type ExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE
	Method     string
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// textLayerFunc reads the embedded text of a PDF, returning the text and page count.
type textLayerFunc func(path string, maxPages int) (string, int, error)

type Extractor struct {
	cfg       Config
	runner    Runner
	textLayer textLayerFunc
	logger    *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "tur+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.PageWorkers <= 0 {
		cfg.PageWorkers = 2
	}
	if cfg.MinTextLayerChars == 0 {
		cfg.MinTextLayerChars = 32
	}
	return &Extractor{
		cfg:       cfg,
		runner:    execRunner{logger: logger},
		textLayer: readTextLayer,
		logger:    logger,
	}
}

// Extract picks a method based on file extension. Tool failures wrap
// common.ErrRecognition; unknown extensions wrap common.ErrUnsupportedMedia.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	rid := common.RequestIDFromContext(ctx)
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("ocr.extract.start", "req_id", rid, "path", path, "ext", ext)

	var (
		res ExtractionResult
		err error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.IMAGE:
		res, err = e.extractImage(ctx, path)
	default:
		e.logger.Error("ocr.extract.unsupported", "req_id", rid, "extension", ext)
		return ExtractionResult{}, fmt.Errorf("%w: extension %q", common.ErrUnsupportedMedia, ext)
	}
	res.Duration = time.Since(start)
	if err != nil {
		e.logger.Error("ocr.extract.error",
			"req_id", rid,
			"path", path,
			"error", err,
			"elapsed_ms", res.Duration.Milliseconds(),
		)
		return res, err
	}

	e.logger.Info("ocr.extract.ok",
		"req_id", rid,
		"method", res.Method,
		"pages", res.Pages,
		"text_len", len(res.Text),
		"confidence", res.Confidence,
		"warnings", len(res.Warnings),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
