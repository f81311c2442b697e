// Package ollama adapts a local Ollama server to llm.Completer through langchaingo.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	lcollama "github.com/tmc/langchaingo/llms/ollama"

	"github.com/joseph-ayodele/fieldextract/internal/common"
	"github.com/joseph-ayodele/fieldextract/internal/llm"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3"
)

type Config struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	// NumCtx overrides the runner context window when > 0.
	NumCtx int
}

type Client struct {
	cfg   Config
	model llms.Model
	log   *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []lcollama.Option{
		lcollama.WithModel(cfg.Model),
		lcollama.WithServerURL(strings.TrimRight(cfg.BaseURL, "/")),
		lcollama.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		lcollama.WithFormat("json"),
	}
	if cfg.NumCtx > 0 {
		opts = append(opts, lcollama.WithRunnerNumCtx(cfg.NumCtx))
	}
	m, err := lcollama.New(opts...)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "create ollama client", err)
	}
	return &Client{cfg: cfg, model: m, log: logger}, nil
}

func (c *Client) Name() string { return "ollama:" + c.cfg.Model }

// Complete sends the system and field prompts as a two-message chat.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	start := time.Now()
	rid := common.RequestIDFromContext(ctx)
	c.log.Info("llm.complete.start",
		"req_id", rid,
		"provider", "ollama",
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"prompt_len", len(req.Prompt),
	)

	var msgs []llms.MessageContent
	if req.System != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	resp, err := c.model.GenerateContent(ctx, msgs, llms.WithTemperature(c.cfg.Temperature))
	if err != nil {
		c.log.Error("llm.complete.error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		if errors.Is(err, common.ErrInvalidUpstream) {
			return llm.Completion{}, err
		}
		return llm.Completion{}, fmt.Errorf("%w: ollama: %w", common.ErrUnavailable, err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		c.log.Error("llm.complete.no_choices", "req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds())
		return llm.Completion{}, fmt.Errorf("%w: no choices in ollama response", common.ErrInvalidUpstream)
	}

	text := strings.TrimSpace(resp.Choices[0].Content)
	c.log.Info("llm.complete.ok",
		"req_id", rid,
		"model", c.cfg.Model,
		"content_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return llm.Completion{Text: text, Model: c.cfg.Model}, nil
}
