package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/fieldextract/internal/common"
	"github.com/joseph-ayodele/fieldextract/internal/llm"
)

type chatCompletion struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete implements llm.Completer using text-only chat/completions.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	start := time.Now()
	rid := common.RequestIDFromContext(ctx)

	c.log.Info("llm.complete.start",
		"req_id", rid,
		"provider", "openai",
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"prompt_len", len(req.Prompt),
	)

	messages := []map[string]any{}
	if req.System != "" {
		messages = append(messages, map[string]any{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]any{"role": "user", "content": req.Prompt})

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": c.responseFormat(req),
		"messages":        messages,
	}

	headers := map[string]string{}
	if c.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.cfg.APIKey
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, status, err := llm.SendJSON(ctx, c.httpClient, endpoint, body, headers, c.log)
	if err != nil {
		c.log.Error("llm.complete.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Completion{Raw: raw}, err
	}

	var cc chatCompletion
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.complete.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Completion{Raw: raw}, fmt.Errorf("%w: decode openai response: %w", common.ErrInvalidUpstream, err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.complete.no_choices",
			"req_id", rid, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Completion{Raw: raw}, fmt.Errorf("%w: no choices in openai response", common.ErrInvalidUpstream)
	}

	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	model := cc.Model
	if model == "" {
		model = c.cfg.Model
	}
	c.log.Info("llm.complete.ok",
		"req_id", rid,
		"model", model,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return llm.Completion{Text: content, Model: model, Raw: raw}, nil
}

func (c *Client) responseFormat(req llm.CompletionRequest) map[string]any {
	if c.cfg.StructuredOutput && req.JSONSchema != nil {
		return map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "fields",
				"schema": req.JSONSchema,
			},
		}
	}
	return map[string]any{"type": "json_object"}
}
