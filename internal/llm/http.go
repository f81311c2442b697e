package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fieldextract/internal/common"
)

// maxResponseBytes caps how much of a reply body is read.
const maxResponseBytes = 8 << 20

// StatusError is returned for a non-2xx reply from a completion endpoint.
type StatusError struct {
	Status int
	Body   string // leading bytes of the reply, for logs
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("completion endpoint returned %d", e.Status)
	}
	return fmt.Sprintf("completion endpoint returned %d: %s", e.Status, e.Body)
}

// Unwrap classifies every upstream status failure as unavailability.
func (e *StatusError) Unwrap() error { return common.ErrUnavailable }

// SendJSON POSTs body as JSON to url and returns the raw reply with its status.
// Transport failures and non-2xx statuses wrap common.ErrUnavailable; a
// non-2xx failure is a *StatusError.
func SendJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, logger *slog.Logger) ([]byte, int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	log := logger.With("req_id", reqID, "url", url)

	req, size, err := newJSONRequest(ctx, url, body, headers)
	if err != nil {
		log.Error("llm.http.build_error", "error", err)
		return nil, 0, err
	}

	start := time.Now()
	log.Debug("llm.http.request", "content_length", size)
	resp, err := client.Do(req)
	if err != nil {
		log.Error("llm.http.send_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, 0, fmt.Errorf("%w: %w", common.ErrUnavailable, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warn("llm.http.close_error", "error", cerr)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		log.Error("llm.http.read_error", "status", resp.StatusCode, "error", err, "elapsed_ms", elapsed)
		return nil, resp.StatusCode, fmt.Errorf("%w: read reply: %w", common.ErrUnavailable, err)
	}
	if resp.StatusCode/100 != 2 {
		log.Warn("llm.http.status", "status", resp.StatusCode, "bytes", len(raw), "elapsed_ms", elapsed)
		return raw, resp.StatusCode, &StatusError{Status: resp.StatusCode, Body: snippet(raw, 200)}
	}
	log.Info("llm.http.ok", "status", resp.StatusCode, "bytes", len(raw), "elapsed_ms", elapsed)
	return raw, resp.StatusCode, nil
}

func newJSONRequest(ctx context.Context, url string, body any, headers map[string]string) (*http.Request, int, error) {
	bs, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, len(bs), nil
}

func snippet(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "") + "..."
}
