package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/fieldextract/constants"
	"github.com/joseph-ayodele/fieldextract/internal/common"
)

func (e *Extractor) extractImage(ctx context.Context, path string) (ExtractionResult, error) {
	txt, warn, err := e.tesseractOCR(ctx, path)
	if err != nil {
		return ExtractionResult{SourceType: constants.IMAGE, Warnings: warn}, fmt.Errorf("%w: %w", common.ErrRecognition, err)
	}
	txt = Normalize(txt)

	var ocrConf float32
	if e.cfg.EnableTSVConfidence {
		if c, err2 := e.tesseractTSVConfidence(ctx, path); err2 == nil {
			ocrConf = c
		} else {
			warn = append(warn, err2.Error())
		}
	}

	return ExtractionResult{
		Text:       txt,
		Pages:      1,
		SourceType: constants.IMAGE,
		Method:     MethodImageOCR,
		Language:   e.cfg.TesseractLang,
		Warnings:   warn,
		Confidence: blendConfidence(ocrConf, heuristicConfidence(txt)),
	}, nil
}

func (e *Extractor) tesseractArgs(path string) []string {
	// tesseract <file> stdout -l <lang> [--psm N] [--oem N] [--tessdata-dir D]
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.tesseractArgs(path)...)
	if err != nil {
		return "", []string{strings.TrimSpace(string(errb))}, fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil, nil
}

// tesseractTSVConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (e *Extractor) tesseractTSVConfidence(ctx context.Context, path string) (float32, error) {
	args := append(e.tesseractArgs(path), "tsv")
	out, _, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return 0, fmt.Errorf("tesseract TSV: %w", err)
	}
	return meanTSVConfidence(string(out)), nil
}

// meanTSVConfidence averages the conf column, skipping the header and
// non-word rows (-1).
func meanTSVConfidence(tsv string) float32 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || len(ln) == 0 {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[10]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil && v >= 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / n / 100.0)
}
