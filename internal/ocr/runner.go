package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"time"
)

// Runner executes an external program. Tests swap in a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// execRunner runs pdftoppm and tesseract as subprocesses bound to ctx, so a
// canceled request kills them.
type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	attrs := []any{
		"bin", name,
		"argc", len(args),
		"elapsed_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		r.logger.Error("ocr.exec.error", append(attrs, "error", err, "stderr", truncate(stderr.String(), 512))...)
		return stdout.Bytes(), stderr.Bytes(), err
	}
	r.logger.Debug("ocr.exec.ok", append(attrs, "stdout_bytes", stdout.Len())...)
	return stdout.Bytes(), stderr.Bytes(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
