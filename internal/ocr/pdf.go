package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/fieldextract/constants"
	"github.com/joseph-ayodele/fieldextract/internal/common"
)

func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	rid := common.RequestIDFromContext(ctx)
	var warns []string

	if e.cfg.MinTextLayerChars >= 0 {
		txt, pages, err := e.textLayer(path, e.cfg.MaxPages)
		switch {
		case err != nil:
			warns = append(warns, "text layer: "+err.Error())
			e.logger.Warn("ocr.pdf.text_layer_error", "req_id", rid, "path", path, "error", err)
		case utf8.RuneCountInString(strings.TrimSpace(txt)) >= e.cfg.MinTextLayerChars:
			txt = Normalize(txt)
			return ExtractionResult{
				Text:       txt,
				Pages:      pages,
				SourceType: constants.PDF,
				Method:     MethodPDFText,
				Warnings:   warns,
				Confidence: blendConfidence(0.95, heuristicConfidence(txt)),
			}, nil
		default:
			e.logger.Debug("ocr.pdf.text_layer_sparse", "req_id", rid, "chars", len(strings.TrimSpace(txt)))
		}
	}

	txt, pages, w, err := e.pdfToOCR(ctx, path)
	warns = append(warns, w...)
	if err != nil {
		return ExtractionResult{SourceType: constants.PDF, Warnings: warns}, fmt.Errorf("%w: %w", common.ErrRecognition, err)
	}
	txt = Normalize(txt)
	return ExtractionResult{
		Text:       txt,
		Pages:      pages,
		SourceType: constants.PDF,
		Method:     MethodPDFOCR,
		Language:   e.cfg.TesseractLang,
		Warnings:   warns,
		Confidence: heuristicConfidence(txt),
	}, nil
}

// readTextLayer reads the embedded text of every page, pages joined by a
// form feed. The pdf reader panics on some malformed files, so panics are
// turned into errors.
func readTextLayer(path string, maxPages int) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf text layer: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages = r.NumPage()
	n := pages
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}
	var b strings.Builder
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			return "", pages, fmt.Errorf("page %d: %w", i, err)
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(s)
	}
	return b.String(), pages, nil
}

// pdfToOCR rasterizes the PDF and runs tesseract on the pages concurrently.
// Page order is preserved in the joined text.
func (e *Extractor) pdfToOCR(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	tmpDir, err := os.MkdirTemp("", "fe-pp-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func(dir string) {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("ocr.pdf.tmp_cleanup_error", "dir", dir, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png [-l N] <in.pdf> <tmp/page>
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, path, prefix)
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...)
	if err != nil {
		return "", 0, []string{string(errb)}, fmt.Errorf("pdftoppm: %w", err)
	}

	// collect generated pngs (page-1.png, page-2.png, ... or zero padded)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sortPages(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	texts := make([]string, len(matches))
	pageWarns := make([][]string, len(matches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.PageWorkers)
	for i, img := range matches {
		g.Go(func() error {
			txt, w, err := e.tesseractOCR(gctx, img)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				pageWarns[i] = append(w, fmt.Sprintf("page %d: %v", i+1, err))
				return nil
			}
			texts[i] = txt
			pageWarns[i] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", 0, nil, err
	}

	var b strings.Builder
	failed := 0
	for i := range matches {
		warnings = append(warnings, pageWarns[i]...)
		if texts[i] == "" && len(pageWarns[i]) > 0 {
			failed++
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n") // keep a clear page break marker
		}
		b.WriteString(texts[i])
	}
	if failed == len(matches) {
		return "", len(matches), warnings, fmt.Errorf("tesseract failed on all %d pages", failed)
	}
	return b.String(), len(matches), warnings, nil
}

// sortPages orders page images by their numeric suffix.
func sortPages(paths []string) {
	num := func(p string) int {
		base := strings.TrimSuffix(filepath.Base(p), ".png")
		n, _ := strconv.Atoi(base[strings.LastIndexByte(base, '-')+1:])
		return n
	}
	sort.SliceStable(paths, func(i, j int) bool { return num(paths[i]) < num(paths[j]) })
}
