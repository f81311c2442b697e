package extract

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/fieldextract/internal/common"
	"github.com/joseph-ayodele/fieldextract/internal/fields"
	"github.com/joseph-ayodele/fieldextract/internal/llm"
)

// Reasons recorded by the semantic strategy.
const (
	ReasonOmitted       = "omitted by completion service"
	ReasonSchemaFailure = "reply value has the wrong shape"
)

// DefaultSemanticTimeout bounds one completion call when none is configured.
const DefaultSemanticTimeout = 30 * time.Second

// SemanticStrategy delegates field identification to a completion service and
// treats its reply as untrusted input.
type SemanticStrategy struct {
	completer llm.Completer
	timeout   time.Duration
	log       *slog.Logger
}

func NewSemanticStrategy(c llm.Completer, timeout time.Duration, logger *slog.Logger) *SemanticStrategy {
	if timeout <= 0 {
		timeout = DefaultSemanticTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SemanticStrategy{completer: c, timeout: timeout, log: logger}
}

func (s *SemanticStrategy) Extract(ctx context.Context, raw string, specs fields.SpecSet) Result {
	if s.completer == nil {
		return failed(specs, KindServiceUnavailable, "no completion service configured", common.ErrUnavailable)
	}
	rid := common.RequestIDFromContext(ctx)

	prompt, err := llm.BuildFieldPrompt(raw, specs)
	if err != nil {
		return failed(specs, KindInvalidInput, "cannot describe fields", err)
	}
	schemaMap := llm.BuildFieldsJSONSchema(specs)

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	reply, err := s.completer.Complete(cctx, llm.CompletionRequest{
		System:     llm.BuildSystemPrompt(),
		Prompt:     prompt,
		JSONSchema: schemaMap,
	})
	if err != nil {
		if cctx.Err() == nil && errors.Is(err, common.ErrInvalidUpstream) {
			s.log.Warn("extract.semantic.bad_envelope", "req_id", rid, "provider", s.completer.Name(), "error", err)
			return failed(specs, KindInvalidUpstream, "completion service returned an unreadable reply", err)
		}
		reason := "completion service unreachable"
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			reason = "completion service timed out after " + s.timeout.String()
		}
		s.log.Error("extract.semantic.unavailable",
			"req_id", rid,
			"provider", s.completer.Name(),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return failed(specs, KindServiceUnavailable, reason, err)
	}

	obj, err := llm.SalvageJSONObject(reply.Text)
	if err != nil {
		s.log.Warn("extract.semantic.malformed_reply",
			"req_id", rid,
			"reply_len", len(reply.Text),
			"error", err,
		)
		return failed(specs, KindInvalidUpstream, "reply is not a JSON object", err)
	}

	obj, _ = llm.NormalizeReplyKeys(obj, specs, s.log)

	propErrs := map[string]string{}
	if schema, err := llm.CompileSchema(schemaMap); err != nil {
		s.log.Warn("extract.semantic.schema_compile_error", "req_id", rid, "error", err)
	} else {
		var rootErr error
		propErrs, rootErr = llm.ValidateProperties(schema, obj)
		if rootErr != nil {
			return failed(specs, KindInvalidUpstream, "reply does not match the field schema", rootErr)
		}
	}

	values := fields.NewValues(specs, ReasonOmitted)
	for _, sp := range specs.Specs() {
		v, ok := obj[sp.Key]
		if !ok {
			continue
		}
		if msg, bad := propErrs[sp.Key]; bad {
			s.log.Debug("extract.semantic.field_schema_error", "req_id", rid, "field", sp.Key, "error", msg)
			values.Set(sp.Key, fields.Failure(ReasonSchemaFailure))
			continue
		}
		values.Set(sp.Key, fields.CoerceAny(v, sp.Type))
	}

	s.log.Info("extract.semantic.ok",
		"req_id", rid,
		"provider", s.completer.Name(),
		"fields", specs.Len(),
		"matched", values.Matched(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{Values: values}
}
