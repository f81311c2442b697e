package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/fieldextract/internal/fields"
)

func TestFieldsXLSX(t *testing.T) {
	specs, err := fields.NewSpecSet(
		fields.Spec{Key: "tax_number", Name: "Vergi No", Type: fields.TypeInteger},
		fields.Spec{Key: "company", Name: "Sirket", Type: fields.TypeString},
	)
	if err != nil {
		t.Fatal(err)
	}
	values := fields.NewValues(specs, "label not found")
	values.Set("tax_number", fields.IntValue(8930622457))

	svc := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)))
	b, err := svc.FieldsXLSX(context.Background(), Document{
		FileID:   "f-1",
		Strategy: "easyocr",
		Specs:    specs,
		Values:   values,
		RawText:  "Vergi No: 8930622457\nsecond line",
	})
	if err != nil {
		t.Fatalf("FieldsXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetFields)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"Key", "Name", "Type", "Value", "Status"},
		{"tax_number", "Vergi No", "integer", "8930622457", "ok"},
		{"company", "Sirket", "string", "", "label not found"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("fields sheet mismatch (-want +got):\n%s", diff)
	}

	raw, err := f.GetRows(SheetRawText)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 2 || raw[1][0] != "second line" {
		t.Errorf("raw sheet = %v", raw)
	}

	if v, _ := f.GetCellValue(SheetDocument, "B1"); v != "f-1" {
		t.Errorf("document file id = %q", v)
	}
}
