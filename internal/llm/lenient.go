package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/fieldextract/internal/common"
)

var reCodeFence = regexp.MustCompile("(?s)^```[a-zA-Z0-9_-]*\\s*(.*?)\\s*```$")

// SalvageJSONObject recovers a JSON object from a model reply. It tries, in
// order: the trimmed reply, the reply without a surrounding code fence, and the
// span between the first '{' and the last '}'. Numbers decode as json.Number.
// Anything that is not an object wraps common.ErrInvalidUpstream.
func SalvageJSONObject(reply string) (map[string]any, error) {
	text := strings.TrimSpace(reply)
	if text == "" {
		return nil, fmt.Errorf("%w: empty reply", common.ErrInvalidUpstream)
	}

	candidates := []string{text}
	if m := reCodeFence.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, m[1])
	}
	if first, last := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}'); first >= 0 && last > first {
		candidates = append(candidates, text[first:last+1])
	}

	var lastErr error
	for _, c := range candidates {
		obj, err := decodeObject(c)
		if err == nil {
			return obj, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %w", common.ErrInvalidUpstream, lastErr)
}

func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode reply: trailing data after JSON value")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode reply: expected JSON object, got %s", jsonKind(v))
	}
	return obj, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// MustJSON renders v as indented JSON for logs and prompts.
func MustJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
	return strings.TrimSpace(buf.String())
}
