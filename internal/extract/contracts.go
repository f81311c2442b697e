package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/fieldextract/constants"
	"github.com/joseph-ayodele/fieldextract/internal/common"
	"github.com/joseph-ayodele/fieldextract/internal/fields"
)

// Strategy selects how fields are located in raw text.
type Strategy string

const (
	StrategyPattern  Strategy = "pattern"
	StrategySemantic Strategy = "semantic"
)

// ParseStrategy accepts the wire names ("easyocr", "llm_ocr") and the
// canonical names ("pattern", "semantic").
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case constants.OCREasyOCR, string(StrategyPattern):
		return StrategyPattern, nil
	case constants.OCRLLM, string(StrategySemantic):
		return StrategySemantic, nil
	}
	return "", common.InvalidInputf("unknown ocr strategy %q (want %s or %s)", s, constants.OCREasyOCR, constants.OCRLLM)
}

// WireName returns the name used by the HTTP API.
func (s Strategy) WireName() string {
	switch s {
	case StrategyPattern:
		return constants.OCREasyOCR
	case StrategySemantic:
		return constants.OCRLLM
	}
	return string(s)
}

// Kind classifies a strategy-level failure.
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindServiceUnavailable Kind = "service_unavailable"
	KindInvalidUpstream    Kind = "invalid_upstream_response"
)

// Failure is a request-level outcome. Per-field failures never produce one.
type Failure struct {
	Kind   Kind
	Reason string
	Cause  error
}

func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Reason, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Reason)
}

func (f *Failure) Unwrap() error { return f.Cause }

// AppError converts the failure into the error taxonomy shared by the transports.
func (f *Failure) AppError() *common.AppError {
	switch f.Kind {
	case KindInvalidInput:
		return common.NewAppError(common.CodeInvalidInput, f.Reason, common.ErrInvalidInput)
	case KindServiceUnavailable:
		return common.NewAppError(common.CodeServiceUnavailable, f.Reason, fmt.Errorf("%w: %v", common.ErrUnavailable, f.Cause))
	case KindInvalidUpstream:
		return common.NewAppError(common.CodeInvalidUpstream, f.Reason, fmt.Errorf("%w: %v", common.ErrInvalidUpstream, f.Cause))
	}
	return common.NewAppError(common.CodeInternal, f.Reason, f.Cause)
}

// Result holds one value per requested key. Failure is nil unless the whole
// strategy failed, in which case every value is a failure marker.
type Result struct {
	Values  fields.Values
	Failure *Failure
}

// FieldStrategy locates and coerces every field of specs in raw.
type FieldStrategy interface {
	Extract(ctx context.Context, raw string, specs fields.SpecSet) Result
}

func failed(specs fields.SpecSet, kind Kind, reason string, cause error) Result {
	return Result{
		Values:  fields.NewValues(specs, reason),
		Failure: &Failure{Kind: kind, Reason: reason, Cause: cause},
	}
}
