package extract

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/fieldextract/internal/fields"
)

func TestPatternScenario(t *testing.T) {
	p := NewPatternStrategy(nil, quietLogger())
	res := p.Extract(context.Background(), "Vergi No: 8930622457 Sirket: ACME LTD", taxAndCompany(t))
	if res.Failure != nil {
		t.Fatalf("unexpected failure: %v", res.Failure)
	}
	want := map[string]any{"tax_number": int64(8930622457), "company": "ACME LTD"}
	if diff := cmp.Diff(want, res.Values.Map()); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestPatternMissingLabel(t *testing.T) {
	specs := mustSpecs(t,
		fields.Spec{Key: "tax_number", Name: "Vergi No", Type: fields.TypeInteger},
		fields.Spec{Key: "missing_field", Name: "IBAN", Type: fields.TypeString},
	)
	p := NewPatternStrategy(nil, quietLogger())
	res := p.Extract(context.Background(), "Vergi No: 8930622457 Sirket: ACME LTD", specs)

	want := map[string]any{"tax_number": int64(8930622457), "missing_field": nil}
	if diff := cmp.Diff(want, res.Values.Map()); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	v, _ := res.Values.Get("missing_field")
	if v.Reason() != ReasonLabelNotFound {
		t.Errorf("reason = %q, want %q", v.Reason(), ReasonLabelNotFound)
	}
}

func TestPatternCases(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		spec fields.Spec
		want any
	}{
		{
			name: "thousands separated integer",
			raw:  "Toplam: 12.345.678 TL",
			spec: fields.Spec{Key: "total", Name: "Toplam", Type: fields.TypeInteger},
			want: int64(12345678),
		},
		{
			name: "diacritics and case folded",
			raw:  "ŞİRKET ADI: ÖZTÜRK A.Ş.\nTarih: 01.02.2024",
			spec: fields.Spec{Key: "sirket_adi", Name: "Şirket Adı", Type: fields.TypeString},
			want: "ÖZTÜRK A.Ş.",
		},
		{
			name: "synonym from label table",
			raw:  "VKN = 1234567890",
			spec: fields.Spec{Key: "tax_number", Name: "Tax Number", Type: fields.TypeInteger},
			want: int64(1234567890),
		},
		{
			name: "key words used as label",
			raw:  "Invoice Code: INV-77",
			spec: fields.Spec{Key: "invoice_code", Name: "Code of invoice", Type: fields.TypeString},
			want: "INV-77",
		},
		{
			name: "value stops at inline label",
			raw:  "Firma: ACME LTD Adres: Istanbul",
			spec: fields.Spec{Key: "firm", Name: "Firma", Type: fields.TypeString},
			want: "ACME LTD",
		},
		{
			name: "label without value",
			raw:  "Vergi No:\nSirket: ACME",
			spec: fields.Spec{Key: "vn", Name: "Vergi No", Type: fields.TypeInteger},
			want: nil,
		},
		{
			name: "label must be a whole word",
			raw:  "Vergi Nosu: 55",
			spec: fields.Spec{Key: "vn", Name: "Vergi No", Type: fields.TypeInteger},
			want: nil,
		},
		{
			name: "non numeric value is not truncated",
			raw:  "Vergi No: 12abc",
			spec: fields.Spec{Key: "vn", Name: "Vergi No", Type: fields.TypeInteger},
			want: nil,
		},
		{
			name: "decimal is not rounded",
			raw:  "Toplam: 12.5",
			spec: fields.Spec{Key: "t", Name: "Toplam", Type: fields.TypeInteger},
			want: nil,
		},
		{
			name: "later candidate used when first fails",
			raw:  "Vergi No: bilinmiyor\nVergi No: 42",
			spec: fields.Spec{Key: "vn", Name: "Vergi No", Type: fields.TypeInteger},
			want: int64(42),
		},
		{
			name: "space grouped integer",
			raw:  "Tutar: 1 250 000",
			spec: fields.Spec{Key: "amount", Name: "Tutar", Type: fields.TypeInteger},
			want: int64(1250000),
		},
		{
			name: "minus sign after label is kept",
			raw:  "Bakiye -500",
			spec: fields.Spec{Key: "balance", Name: "Bakiye", Type: fields.TypeInteger},
			want: int64(-500),
		},
		{
			name: "dash separator before value",
			raw:  "Bakiye – 500",
			spec: fields.Spec{Key: "balance", Name: "Bakiye", Type: fields.TypeInteger},
			want: int64(500),
		},
		{
			name: "decomposed diacritics",
			raw:  "S\u0327irket: ACME",
			spec: fields.Spec{Key: "company", Name: "Sirket", Type: fields.TypeString},
			want: "ACME",
		},
		{
			name: "value starting with a scheme",
			raw:  "Web: https://acme.example",
			spec: fields.Spec{Key: "web", Name: "Web", Type: fields.TypeString},
			want: "https://acme.example",
		},
		{
			name: "value still stops at a later inline label",
			raw:  "Web: https://acme.example Tel: 555",
			spec: fields.Spec{Key: "web", Name: "Web", Type: fields.TypeString},
			want: "https://acme.example",
		},
	}
	p := NewPatternStrategy(nil, quietLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.Extract(context.Background(), tt.raw, mustSpecs(t, tt.spec))
			got := res.Values.Map()[tt.spec.Key]
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPatternFieldsAreIndependent(t *testing.T) {
	specs := mustSpecs(t,
		fields.Spec{Key: "a", Name: "Vergi No", Type: fields.TypeInteger},
		fields.Spec{Key: "b", Name: "Vergi No", Type: fields.TypeString},
	)
	p := NewPatternStrategy(nil, quietLogger())
	res := p.Extract(context.Background(), "Vergi No: 1234", specs)

	want := map[string]any{"a": int64(1234), "b": "1234"}
	if diff := cmp.Diff(want, res.Values.Map()); diff != "" {
		t.Errorf("overlapping fields mismatch (-want +got):\n%s", diff)
	}
}

func TestPatternDeterministic(t *testing.T) {
	raw := "Fatura No: A-1\nVergi No: 8930622457 Sirket: ACME LTD\nToplam: 1.250\nSirket: OTHER"
	specs := mustSpecs(t,
		fields.Spec{Key: "tax_number", Name: "Vergi No", Type: fields.TypeInteger},
		fields.Spec{Key: "company", Name: "Sirket", Type: fields.TypeString},
		fields.Spec{Key: "total", Name: "Toplam", Type: fields.TypeInteger},
		fields.Spec{Key: "invoice", Name: "Fatura No", Type: fields.TypeString},
	)
	p := NewPatternStrategy(nil, quietLogger())
	first := p.Extract(context.Background(), raw, specs).Values.Map()
	for i := 0; i < 20; i++ {
		got := p.Extract(context.Background(), raw, specs).Values.Map()
		if diff := cmp.Diff(first, got); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
	if first["company"] != "ACME LTD" {
		t.Errorf("company = %v, want the first occurrence", first["company"])
	}
}
