package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/fieldextract/internal/common"
	"github.com/joseph-ayodele/fieldextract/internal/export"
	"github.com/joseph-ayodele/fieldextract/internal/extract"
	"github.com/joseph-ayodele/fieldextract/internal/fields"
	"github.com/joseph-ayodele/fieldextract/internal/llm/provider"
	"github.com/joseph-ayodele/fieldextract/internal/ocr"
)

type output struct {
	File        string            `json:"file"`
	OCR         string            `json:"ocr"`
	Method      string            `json:"method"`
	Result      fields.Values     `json:"result"`
	RawOCR      string            `json:"raw_ocr,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	Error       string            `json:"error,omitempty"`
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: extractfields [flags] <document> <easyocr|llm_ocr> <fields.json>\n")
	flag.PrintDefaults()
}

func main() {
	var (
		xlsxOut = flag.String("xlsx", "", "also write the result as an XLSX workbook to this path")
		withRaw = flag.Bool("raw", false, "include the recognized text in the output")
	)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 3 {
		usage()
		os.Exit(2)
	}
	path, strategyArg, fieldsPath := flag.Arg(0), flag.Arg(1), flag.Arg(2)

	cfg := common.LoadConfig()
	cfg.Log.Format = "text"
	logger := common.NewLogger(cfg.Log, os.Stderr)

	strategy, err := extract.ParseStrategy(strategyArg)
	if err != nil {
		logger.Error("invalid strategy", "arg", strategyArg, "error", err)
		os.Exit(2)
	}
	raw, err := os.ReadFile(fieldsPath)
	if err != nil {
		logger.Error("read fields file", "path", fieldsPath, "error", err)
		os.Exit(2)
	}
	specs, err := fields.ParseSpecSet(raw)
	if err != nil {
		logger.Error("invalid fields file", "path", fieldsPath, "error", err)
		os.Exit(2)
	}

	labels, err := extract.LoadLabels(cfg.Extract.LabelsFile)
	if err != nil {
		logger.Error("load labels", "error", err)
		os.Exit(1)
	}
	opts := extract.Options{Labels: labels, Timeout: cfg.LLM.Timeout}
	if strategy == extract.StrategySemantic {
		if opts.Completer, err = provider.New(cfg.LLM, logger); err != nil {
			logger.Error("build completion client", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.RequestTimeout)
	defer cancel()

	text, err := ocr.NewExtractor(ocr.Config{
		Pdftoppm:          cfg.OCR.Pdftoppm,
		Tesseract:         cfg.OCR.Tesseract,
		TesseractLang:     cfg.OCR.TesseractLang,
		TessdataDir:       cfg.OCR.TessdataDir,
		DPI:               cfg.OCR.DPI,
		MaxPages:          cfg.OCR.MaxPages,
		PageWorkers:       cfg.OCR.PageWorkers,
		PSM:               cfg.OCR.PSM,
		MinTextLayerChars: cfg.OCR.MinTextLayerChars,
	}, logger).Extract(ctx, path)
	if err != nil {
		logger.Error("text recognition failed", "path", path, "error", err)
		os.Exit(1)
	}

	res := extract.NewEngine(opts, logger).Extract(ctx, text.Text, specs, strategy)
	out := output{
		File:   filepath.Base(path),
		OCR:    strategy.WireName(),
		Method: text.Method,
		Result: res.Values,
	}
	if *withRaw {
		out.RawOCR = text.Text
	}
	if res.Failure != nil {
		out.Error = res.Failure.Error()
	} else if reasons := res.Values.Reasons(); len(reasons) > 0 {
		out.FieldErrors = reasons
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("write output", "error", err)
		os.Exit(1)
	}

	if *xlsxOut != "" {
		doc := export.Document{
			FileID:   out.File,
			Filename: out.File,
			Strategy: out.OCR,
			Method:   text.Method,
			Pages:    text.Pages,
			Specs:    specs,
			Values:   res.Values,
			RawText:  text.Text,
		}
		if res.Failure != nil {
			doc.Failure = res.Failure.Reason
		}
		data, err := export.NewService(logger).FieldsXLSX(ctx, doc)
		if err == nil {
			err = os.WriteFile(*xlsxOut, data, 0o644)
		}
		if err != nil {
			logger.Error("write workbook", "path", *xlsxOut, "error", err)
			os.Exit(1)
		}
	}
	if res.Failure != nil {
		os.Exit(1)
	}
}
