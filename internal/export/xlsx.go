// Package export renders an extraction response as an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/fieldextract/internal/common"
	"github.com/joseph-ayodele/fieldextract/internal/fields"
)

// Sheet names of the workbook.
const (
	SheetFields   = "Fields"
	SheetRawText  = "Raw OCR"
	SheetDocument = "Document"
)

// ContentType is the media type of the rendered workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Document is everything the workbook shows about one extraction.
type Document struct {
	FileID   string
	Filename string
	Strategy string // wire name
	Method   string // ocr method
	Pages    int
	Specs    fields.SpecSet
	Values   fields.Values
	RawText  string
	Failure  string // strategy-level failure, if any
}

// Service turns documents into XLSX bytes.
type Service struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, now: time.Now}
}

// FieldsXLSX returns a workbook with one row per requested field, the raw
// OCR text line by line, and a short document summary.
func (s *Service) FieldsXLSX(ctx context.Context, doc Document) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetFields); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetRawText, SheetDocument} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	headers := []any{"Key", "Name", "Type", "Value", "Status"}
	if err := f.SetSheetRow(SheetFields, "A1", &headers); err != nil {
		return nil, err
	}
	reasons := doc.Values.Reasons()
	row := 2
	for _, sp := range doc.Specs.Specs() {
		v, _ := doc.Values.Get(sp.Key)
		status := "ok"
		if !v.OK() {
			status = reasons[sp.Key]
			if status == "" {
				status = "failed"
			}
		}
		cells := []any{sp.Key, sp.Name, string(sp.Type), v.Any(), status}
		if err := setRow(f, SheetFields, row, cells); err != nil {
			return nil, err
		}
		row++
	}
	_ = f.SetColWidth(SheetFields, "A", "A", 20) // key
	_ = f.SetColWidth(SheetFields, "B", "B", 28) // name
	_ = f.SetColWidth(SheetFields, "C", "C", 10) // type
	_ = f.SetColWidth(SheetFields, "D", "D", 40) // value
	_ = f.SetColWidth(SheetFields, "E", "E", 32) // status

	for i, line := range strings.Split(doc.RawText, "\n") {
		if err := setRow(f, SheetRawText, i+1, []any{line}); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(SheetRawText, "A", "A", 120)

	meta := [][]any{
		{"File ID", doc.FileID},
		{"File name", doc.Filename},
		{"Strategy", doc.Strategy},
		{"OCR method", doc.Method},
		{"Pages", doc.Pages},
		{"Fields", doc.Specs.Len()},
		{"Matched", doc.Values.Matched()},
		{"Failure", doc.Failure},
		{"Generated at", s.now().UTC().Format(time.RFC3339)},
	}
	for i, cells := range meta {
		if err := setRow(f, SheetDocument, i+1, cells); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(SheetDocument, "A", "A", 16)
	_ = f.SetColWidth(SheetDocument, "B", "B", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"req_id", common.RequestIDFromContext(ctx),
		"file_id", doc.FileID,
		"rows", doc.Specs.Len(),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &cells)
}
