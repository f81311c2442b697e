package provider

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/joseph-ayodele/fieldextract/internal/common"
)

func TestNew(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tests := []struct {
		name     string
		cfg      common.LLMConfig
		wantName string
	}{
		{name: "default", cfg: common.LLMConfig{}, wantName: "ollama:llama3"},
		{name: "ollama", cfg: common.LLMConfig{Provider: "ollama", Model: "qwen2.5", Timeout: time.Second}, wantName: "ollama:qwen2.5"},
		{name: "openai", cfg: common.LLMConfig{Provider: "openai", APIKey: "k", Model: "gpt-4o"}, wantName: "openai:gpt-4o"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg, logger)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := c.Name(); got != tt.wantName {
				t.Errorf("Name() = %q, want %q", got, tt.wantName)
			}
		})
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(common.LLMConfig{Provider: "bard"}, nil)
	if common.ErrorCode(err) != common.CodeConfig || !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("err = %v, want a config error", err)
	}
}
