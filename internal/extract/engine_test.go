package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/fieldextract/internal/common"
	"github.com/joseph-ayodele/fieldextract/internal/fields"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{in: "easyocr", want: StrategyPattern},
		{in: "llm_ocr", want: StrategySemantic},
		{in: " Pattern ", want: StrategyPattern},
		{in: "semantic", want: StrategySemantic},
		{in: "tesseract", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if tt.wantErr {
				if !errors.Is(err, common.ErrInvalidInput) {
					t.Fatalf("err = %v, want ErrInvalidInput", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("got %q, %v; want %q", got, err, tt.want)
			}
			if back, _ := ParseStrategy(got.WireName()); back != got {
				t.Errorf("wire name %q does not round trip", got.WireName())
			}
		})
	}
}

func TestEngineKeySetMatchesSpecs(t *testing.T) {
	raw := "Vergi No: 8930622457 Sirket: ACME LTD"
	replies := []string{
		`{"tax_number": 1}`,
		`{"other": 1, "more": 2}`,
		`not json`,
		`{"tax_number": 1, "company": "x", "f0": "a", "f1": 3}`,
	}

	for n := 1; n <= 6; n++ {
		specs := make([]fields.Spec, 0, n)
		for i := 0; i < n; i++ {
			typ := fields.TypeString
			if i%2 == 0 {
				typ = fields.TypeInteger
			}
			specs = append(specs, fields.Spec{Key: fmt.Sprintf("f%d", i), Name: fmt.Sprintf("Field %d", i), Type: typ})
		}
		set := mustSpecs(t, specs...)

		for _, reply := range replies {
			e := NewEngine(Options{Completer: &fakeCompleter{text: reply}, Timeout: time.Second}, quietLogger())
			for _, strategy := range []Strategy{StrategyPattern, StrategySemantic, Strategy("bogus")} {
				res := e.Extract(context.Background(), raw, set, strategy)
				if diff := cmp.Diff(set.Keys(), res.Values.Keys()); diff != "" {
					t.Fatalf("n=%d strategy=%s reply=%q keys mismatch (-want +got):\n%s", n, strategy, reply, diff)
				}
				if len(res.Values.Map()) != n {
					t.Fatalf("n=%d strategy=%s: map has %d entries", n, strategy, len(res.Values.Map()))
				}
			}
		}
	}
}

func TestEngineDispatch(t *testing.T) {
	fc := &fakeCompleter{text: `{"tax_number": "1", "company": "FROM LLM"}`}
	e := NewEngine(Options{Completer: fc, Timeout: time.Second}, quietLogger())
	specs := taxAndCompany(t)
	raw := "Vergi No: 8930622457 Sirket: ACME LTD"

	res := e.Extract(context.Background(), raw, specs, StrategyPattern)
	if fc.calls != 0 {
		t.Errorf("pattern strategy must not call the completion service")
	}
	if diff := cmp.Diff(map[string]any{"tax_number": int64(8930622457), "company": "ACME LTD"}, res.Values.Map()); diff != "" {
		t.Errorf("pattern mismatch (-want +got):\n%s", diff)
	}

	res = e.Extract(context.Background(), raw, specs, StrategySemantic)
	if fc.calls != 1 {
		t.Errorf("calls = %d, want 1", fc.calls)
	}
	if diff := cmp.Diff(map[string]any{"tax_number": int64(1), "company": "FROM LLM"}, res.Values.Map()); diff != "" {
		t.Errorf("semantic mismatch (-want +got):\n%s", diff)
	}
}

func TestEngineUnknownStrategy(t *testing.T) {
	e := NewEngine(Options{}, quietLogger())
	res := e.Extract(context.Background(), "x", taxAndCompany(t), Strategy("ocr"))
	if res.Failure == nil || res.Failure.Kind != KindInvalidInput {
		t.Fatalf("failure = %v, want invalid_input", res.Failure)
	}
	if common.HTTPStatus(res.Failure.AppError()) != 400 {
		t.Errorf("status = %d, want 400", common.HTTPStatus(res.Failure.AppError()))
	}
}
