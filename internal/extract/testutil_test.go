package extract

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/joseph-ayodele/fieldextract/internal/fields"
	"github.com/joseph-ayodele/fieldextract/internal/llm"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustSpecs(t *testing.T, specs ...fields.Spec) fields.SpecSet {
	t.Helper()
	set, err := fields.NewSpecSet(specs...)
	if err != nil {
		t.Fatalf("NewSpecSet: %v", err)
	}
	return set
}

func taxAndCompany(t *testing.T) fields.SpecSet {
	return mustSpecs(t,
		fields.Spec{Key: "tax_number", Name: "Vergi No", Type: fields.TypeInteger},
		fields.Spec{Key: "company", Name: "Sirket", Type: fields.TypeString},
	)
}

// fakeCompleter replies with a fixed text or error. When block is set it
// waits for the context instead.
type fakeCompleter struct {
	text  string
	err   error
	block bool
	calls int
	last  llm.CompletionRequest
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	f.calls++
	f.last = req
	if f.block {
		<-ctx.Done()
		return llm.Completion{}, ctx.Err()
	}
	if f.err != nil {
		return llm.Completion{}, f.err
	}
	return llm.Completion{Text: f.text, Model: "fake"}, nil
}
