// Package extract turns raw document text plus a field specification set into
// typed field values.
package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/fieldextract/internal/common"
	"github.com/joseph-ayodele/fieldextract/internal/fields"
	"github.com/joseph-ayodele/fieldextract/internal/llm"
)

type Options struct {
	Labels    *LabelTable
	Completer llm.Completer // nil leaves the semantic strategy unavailable
	Timeout   time.Duration
}

// Engine dispatches to one of the two strategies. It holds no per-request
// state and is safe for concurrent use.
type Engine struct {
	strategies map[Strategy]FieldStrategy
	log        *slog.Logger
}

func NewEngine(opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		strategies: map[Strategy]FieldStrategy{
			StrategyPattern:  NewPatternStrategy(opts.Labels, logger),
			StrategySemantic: NewSemanticStrategy(opts.Completer, opts.Timeout, logger),
		},
		log: logger,
	}
}

// Extract returns exactly one value per key of specs. It never returns an
// error: strategy-level problems are reported through Result.Failure.
func (e *Engine) Extract(ctx context.Context, raw string, specs fields.SpecSet, strategy Strategy) Result {
	start := time.Now()
	rid := common.RequestIDFromContext(ctx)

	s, ok := e.strategies[strategy]
	if !ok {
		return failed(specs, KindInvalidInput, "unknown strategy "+string(strategy), common.ErrInvalidInput)
	}

	e.log.Info("extract.start",
		"req_id", rid,
		"strategy", string(strategy),
		"fields", specs.Len(),
		"text_len", len(raw),
	)

	res := s.Extract(ctx, raw, specs)

	attrs := []any{
		"req_id", rid,
		"strategy", string(strategy),
		"fields", res.Values.Len(),
		"matched", res.Values.Matched(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	}
	if res.Failure != nil {
		e.log.Warn("extract.failed", append(attrs, "kind", string(res.Failure.Kind), "reason", res.Failure.Reason)...)
	} else {
		e.log.Info("extract.done", attrs...)
	}
	return res
}
