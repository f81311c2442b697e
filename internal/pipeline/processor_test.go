package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/fieldextract/internal/common"
	"github.com/joseph-ayodele/fieldextract/internal/extract"
	"github.com/joseph-ayodele/fieldextract/internal/llm"
	"github.com/joseph-ayodele/fieldextract/internal/ocr"
	"github.com/joseph-ayodele/fieldextract/internal/storage"
)

type fakeStore struct {
	rec     storage.FileRecord
	missing bool
	deleted []uuid.UUID
}

func (f *fakeStore) Resolve(_ context.Context, fileID string) (storage.FileRecord, error) {
	if f.missing {
		return storage.FileRecord{}, common.NotFoundf("file %s not found", fileID)
	}
	return f.rec, nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeSource struct {
	text string
	err  error
}

func (f fakeSource) Extract(context.Context, string) (ocr.ExtractionResult, error) {
	if f.err != nil {
		return ocr.ExtractionResult{}, f.err
	}
	return ocr.ExtractionResult{Text: f.text, Pages: 1, Method: ocr.MethodPDFText, Confidence: 0.9}, nil
}

type stubCompleter struct {
	text string
	err  error
}

func (s stubCompleter) Name() string { return "stub" }

func (s stubCompleter) Complete(context.Context, llm.CompletionRequest) (llm.Completion, error) {
	return llm.Completion{Text: s.text}, s.err
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newRequest(t *testing.T, fileID, strategy string) Request {
	t.Helper()
	var req Request
	body := fmt.Sprintf(`{
		"file_id": %q,
		"ocr": %q,
		"fields": {
			"tax_number": {"name": "Vergi No", "description": "10 digit tax id", "type": "integer"},
			"company": {"name": "Sirket", "type": "string"},
			"missing_field": {"name": "IBAN", "type": "string"}
		}
	}`, fileID, strategy)
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal request: %v", err)
	}
	return req
}

func newProcessor(store *fakeStore, src TextSource, c llm.Completer) *Processor {
	engine := extract.NewEngine(extract.Options{Completer: c}, quietLogger())
	return NewProcessor(store, src, engine, quietLogger())
}

func TestProcessPattern(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{rec: storage.FileRecord{ID: id, Ext: "pdf", Path: "/tmp/x.pdf", Filename: "x.pdf"}}
	p := newProcessor(store, fakeSource{text: "Vergi No: 8930622457 Sirket: ACME LTD"}, nil)

	resp, err := p.Process(context.Background(), newRequest(t, id.String(), "easyocr"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	want := fmt.Sprintf(`{"file_id":%q,"ocr":"easyocr","result":{"tax_number":8930622457,"company":"ACME LTD","missing_field":null},"raw_ocr":"Vergi No: 8930622457 Sirket: ACME LTD","field_errors":{"missing_field":"label not found"}}`, id)
	if diff := cmp.Diff(want, string(b)); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uuid.UUID{id}, store.deleted); diff != "" {
		t.Errorf("file not deleted exactly once (-want +got):\n%s", diff)
	}
}

func TestProcessSemanticFailureKeepsShape(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{rec: storage.FileRecord{ID: id, Ext: "pdf", Path: "/tmp/x.pdf"}}
	p := newProcessor(store, fakeSource{text: "Vergi No: 1"}, stubCompleter{text: "not json at all"})

	resp, err := p.Process(context.Background(), newRequest(t, id.String(), "llm_ocr"))
	if !errors.Is(err, common.ErrInvalidUpstream) {
		t.Fatalf("err = %v, want ErrInvalidUpstream", err)
	}
	if common.HTTPStatus(err) != 502 {
		t.Errorf("status = %d, want 502", common.HTTPStatus(err))
	}
	want := map[string]any{"tax_number": nil, "company": nil, "missing_field": nil}
	if diff := cmp.Diff(want, resp.Result.Map()); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if resp.RawOCR != "Vergi No: 1" || resp.OCR != "llm_ocr" {
		t.Errorf("resp = %+v", resp)
	}
	if len(store.deleted) != 1 {
		t.Errorf("deleted = %v", store.deleted)
	}
}

func TestProcessSemanticUnavailable(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{rec: storage.FileRecord{ID: id, Ext: "pdf", Path: "/tmp/x.pdf"}}
	c := stubCompleter{err: fmt.Errorf("%w: dial tcp: connection refused", common.ErrUnavailable)}
	p := newProcessor(store, fakeSource{text: "x"}, c)

	_, err := p.Process(context.Background(), newRequest(t, id.String(), "llm_ocr"))
	if common.HTTPStatus(err) != 503 || common.ErrorCode(err) != common.CodeServiceUnavailable {
		t.Fatalf("err = %v (status %d)", err, common.HTTPStatus(err))
	}
}

func TestProcessRejectsBeforeWork(t *testing.T) {
	id := uuid.New().String()
	tests := []struct {
		name string
		req  Request
	}{
		{name: "unknown strategy", req: newRequest(t, id, "tesseract")},
		{name: "bad file id", req: newRequest(t, "123", "easyocr")},
		{name: "no fields", req: Request{FileID: id, OCR: "easyocr"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			p := newProcessor(store, fakeSource{err: errors.New("must not run")}, nil)
			_, err := p.Process(context.Background(), tt.req)
			if common.HTTPStatus(err) != 400 {
				t.Fatalf("err = %v, want a 400", err)
			}
			if len(store.deleted) != 0 {
				t.Error("nothing should be deleted for rejected requests")
			}
		})
	}
}

func TestProcessErrors(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name        string
		store       *fakeStore
		src         fakeSource
		wantStatus  int
		wantDeleted int
	}{
		{
			name:       "unknown file",
			store:      &fakeStore{missing: true},
			wantStatus: 404,
		},
		{
			name:        "recognition failure",
			store:       &fakeStore{rec: storage.FileRecord{ID: id, Ext: "png", Path: "/tmp/x.png"}},
			src:         fakeSource{err: fmt.Errorf("%w: tesseract: exit status 1", common.ErrRecognition)},
			wantStatus:  422,
			wantDeleted: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProcessor(tt.store, tt.src, nil)
			_, err := p.Process(context.Background(), newRequest(t, id.String(), "easyocr"))
			if got := common.HTTPStatus(err); got != tt.wantStatus {
				t.Fatalf("status = %d (err %v), want %d", got, err, tt.wantStatus)
			}
			if len(tt.store.deleted) != tt.wantDeleted {
				t.Errorf("deleted = %d, want %d", len(tt.store.deleted), tt.wantDeleted)
			}
		})
	}
}
