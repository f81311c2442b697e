package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/joseph-ayodele/fieldextract/internal/common"
)

// fakeRunner renders `pages` page images for pdftoppm and answers tesseract
// with the page file name, optionally failing some pages.
type fakeRunner struct {
	mu        sync.Mutex
	pages     int
	failPages map[string]bool
	fail      map[string]error
	calls     []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
	f.mu.Unlock()

	if err := f.fail[name]; err != nil {
		return nil, []byte(name + " exploded"), err
	}
	switch name {
	case "pdftoppm":
		prefix := args[len(args)-1]
		for i := 1; i <= f.pages; i++ {
			p := fmt.Sprintf("%s-%02d.png", prefix, i)
			if err := os.WriteFile(p, []byte("png"), 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		base := filepath.Base(args[0])
		if f.failPages[base] {
			return nil, []byte("bad page"), errors.New("exit status 1")
		}
		if len(args) > 0 && args[len(args)-1] == "tsv" {
			tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
				"5\t1\t1\t1\t1\t1\t0\t0\t1\t1\t90\tVergi\n" +
				"5\t1\t1\t1\t1\t2\t0\t0\t1\t1\t70\tNo\n" +
				"4\t1\t1\t1\t1\t0\t0\t0\t1\t1\t-1\t\n"
			return []byte(tsv), nil, nil
		}
		return []byte("text of " + base + "\n"), nil, nil
	}
	return nil, nil, fmt.Errorf("unexpected command %s", name)
}

func newTestExtractor(cfg Config, r Runner, layer textLayerFunc) *Extractor {
	e := NewExtractor(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.runner = r
	if layer != nil {
		e.textLayer = layer
	}
	return e
}

func noTextLayer(string, int) (string, int, error) { return "", 0, nil }

func TestExtractPDFTextLayer(t *testing.T) {
	r := &fakeRunner{}
	layer := func(string, int) (string, int, error) {
		return "Vergi No: 8930622457\n\n\n\nSirket:   ACME LTD", 1, nil
	}
	e := newTestExtractor(Config{}, r, layer)

	res, err := e.Extract(context.Background(), "/tmp/doc.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Method != MethodPDFText {
		t.Errorf("method = %s, want %s", res.Method, MethodPDFText)
	}
	if res.Text != "Vergi No: 8930622457\n\nSirket: ACME LTD" {
		t.Errorf("text = %q", res.Text)
	}
	if len(r.calls) != 0 {
		t.Errorf("no tools should run when the text layer is usable, got %v", r.calls)
	}
}

func TestExtractPDFFallsBackToOCR(t *testing.T) {
	r := &fakeRunner{pages: 12}
	e := newTestExtractor(Config{PageWorkers: 3}, r, noTextLayer)

	res, err := e.Extract(context.Background(), "/tmp/scan.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Method != MethodPDFOCR || res.Pages != 12 {
		t.Fatalf("method=%s pages=%d", res.Method, res.Pages)
	}
	lines := strings.Split(res.Text, "\n")
	var got []string
	for _, l := range lines {
		if strings.HasPrefix(l, "text of ") {
			got = append(got, strings.TrimPrefix(l, "text of "))
		}
	}
	if len(got) != 12 {
		t.Fatalf("got %d pages of text: %q", len(got), res.Text)
	}
	for i, name := range got {
		if want := fmt.Sprintf("page-%02d.png", i+1); name != want {
			t.Errorf("page %d = %s, want %s", i+1, name, want)
		}
	}
}

func TestExtractPDFMaxPages(t *testing.T) {
	r := &fakeRunner{pages: 5}
	e := newTestExtractor(Config{MaxPages: 2}, r, noTextLayer)

	res, err := e.Extract(context.Background(), "/tmp/scan.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Pages != 2 {
		t.Errorf("pages = %d, want 2", res.Pages)
	}
	if !strings.Contains(r.calls[0], "-l 2") {
		t.Errorf("pdftoppm args = %q, want page limit", r.calls[0])
	}
}

func TestExtractPDFPartialPageFailure(t *testing.T) {
	r := &fakeRunner{pages: 3, failPages: map[string]bool{"page-02.png": true}}
	e := newTestExtractor(Config{}, r, noTextLayer)

	res, err := e.Extract(context.Background(), "/tmp/scan.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a warning for the failed page")
	}
	if !strings.Contains(res.Text, "page-01.png") || !strings.Contains(res.Text, "page-03.png") {
		t.Errorf("text = %q", res.Text)
	}
}

func TestExtractFailures(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		runner  *fakeRunner
		wantErr error
	}{
		{
			name:    "pdftoppm missing",
			path:    "/tmp/scan.pdf",
			runner:  &fakeRunner{fail: map[string]error{"pdftoppm": errors.New("executable file not found")}},
			wantErr: common.ErrRecognition,
		},
		{
			name:    "all pages fail",
			path:    "/tmp/scan.pdf",
			runner:  &fakeRunner{pages: 1, failPages: map[string]bool{"page-01.png": true}},
			wantErr: common.ErrRecognition,
		},
		{
			name:    "tesseract fails on image",
			path:    "/tmp/photo.png",
			runner:  &fakeRunner{fail: map[string]error{"tesseract": errors.New("exit status 1")}},
			wantErr: common.ErrRecognition,
		},
		{
			name:    "unsupported extension",
			path:    "/tmp/notes.docx",
			runner:  &fakeRunner{},
			wantErr: common.ErrUnsupportedMedia,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExtractor(Config{}, tt.runner, noTextLayer)
			_, err := e.Extract(context.Background(), tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExtractImageWithTSVConfidence(t *testing.T) {
	r := &fakeRunner{}
	e := newTestExtractor(Config{EnableTSVConfidence: true, PSM: 6}, r, nil)

	res, err := e.Extract(context.Background(), "/tmp/photo.JPG")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Method != MethodImageOCR || res.Text != "text of photo.JPG" {
		t.Errorf("res = %+v", res)
	}
	if res.Confidence <= 0 || res.Confidence > 1 {
		t.Errorf("confidence = %v", res.Confidence)
	}
	if !strings.Contains(r.calls[0], "-l tur+eng --psm 6") {
		t.Errorf("tesseract args = %q", r.calls[0])
	}
}

func TestMeanTSVConfidence(t *testing.T) {
	tsv := "h\n5\t1\t1\t1\t1\t1\t0\t0\t1\t1\t90\tA\n5\t1\t1\t1\t1\t2\t0\t0\t1\t1\t70\tB\n"
	if got := meanTSVConfidence(tsv); got < 0.79 || got > 0.81 {
		t.Errorf("mean = %v, want 0.8", got)
	}
	if got := meanTSVConfidence("header only"); got != 0 {
		t.Errorf("mean = %v, want 0", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a\r\nb", "a\nb"},
		{"a\t\tb   c", "a b c"},
		{"a\n\n\n\n\nb", "a\n\nb"},
		{"T0PLAM: 1.250", "TOPLAM: 1.250"},
		{"ÖDEME N0: 100", "ÖDEME NO: 100"},
		{"Kod: ABC0DEF", "Kod: ABC0DEF"},
		{"ŞT0K 10", "ŞT0K 10"},
		{"TOPLAM 100", "TOPLAM 100"},
		{"Tutar: 100\n-----\nToplam", "Tutar: 100\n\nToplam"},
		{"page1\fpage2", "page1\npage2"},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHeuristicConfidence(t *testing.T) {
	rich := "Fatura No: A1\nTarih: 01.02.2024\nVergi No: 8930622457\nToplam: 1.250,00 TL\n" + strings.Repeat("x", 120)
	if heuristicConfidence(rich) <= heuristicConfidence("hello") {
		t.Error("document-like text should score higher")
	}
	if c := heuristicConfidence(rich); c > 1 {
		t.Errorf("confidence %v exceeds 1", c)
	}
}
