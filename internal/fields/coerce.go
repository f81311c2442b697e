package fields

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Failure reasons produced by coercion.
const (
	ReasonMissing     = "no value"
	ReasonEmpty       = "empty value"
	ReasonNotInteger  = "not an integer"
	ReasonOutOfRange  = "integer out of range"
	ReasonBadGrouping = "ambiguous digit grouping"
	ReasonUnsupported = "unsupported value type"
	ReasonUnknownType = "unknown declared type"
)

// maxExactFloat is the largest integer a float64 represents exactly.
const maxExactFloat = 1 << 53

// Coerce converts a candidate substring to the declared type.
// A nil candidate is a failure marker.
func Coerce(candidate *string, t Type) Value {
	if candidate == nil {
		return Failure(ReasonMissing)
	}
	switch t {
	case TypeString:
		s := strings.TrimSpace(*candidate)
		if s == "" {
			return Failure(ReasonEmpty)
		}
		return StringValue(s)
	case TypeInteger:
		n, reason := parseInteger(*candidate)
		if reason != "" {
			return Failure(reason)
		}
		return IntValue(n)
	default:
		return Failure(ReasonUnknownType)
	}
}

// CoerceString is Coerce for a present candidate.
func CoerceString(candidate string, t Type) Value {
	return Coerce(&candidate, t)
}

// CoerceAny converts a JSON-decoded value (nil, string, json.Number, float64,
// integers, bool, objects, arrays) to the declared type.
func CoerceAny(v any, t Type) Value {
	if !t.Valid() {
		return Failure(ReasonUnknownType)
	}
	switch x := v.(type) {
	case nil:
		return Failure(ReasonMissing)
	case string:
		return CoerceString(x, t)
	case json.Number:
		if t == TypeString {
			return CoerceString(x.String(), t)
		}
		if n, err := x.Int64(); err == nil {
			return IntValue(n)
		}
		f, err := x.Float64()
		if err != nil {
			return Failure(ReasonNotInteger)
		}
		return coerceFloat(f)
	case float64:
		if t == TypeString {
			return CoerceString(strconv.FormatFloat(x, 'f', -1, 64), t)
		}
		return coerceFloat(x)
	case int:
		return coerceInt(int64(x), t)
	case int64:
		return coerceInt(x, t)
	case Value:
		if !x.OK() {
			return x
		}
		return CoerceString(x.String(), t)
	default:
		return Failure(fmt.Sprintf("%s: %T", ReasonUnsupported, v))
	}
}

func coerceInt(n int64, t Type) Value {
	if t == TypeString {
		return StringValue(strconv.FormatInt(n, 10))
	}
	return IntValue(n)
}

func coerceFloat(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return Failure(ReasonNotInteger)
	}
	if math.Abs(f) > maxExactFloat {
		return Failure(ReasonOutOfRange)
	}
	return IntValue(int64(f))
}

// parseInteger strips whitespace and '_' and validates thousands grouping
// with '.', ',' or '\''. It never truncates: any other character fails.
func parseInteger(s string) (int64, string) {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) || r == '_' {
			continue
		}
		b.WriteRune(r)
	}
	body := b.String()
	if body == "" {
		return 0, ReasonEmpty
	}

	sign := ""
	if body[0] == '+' || body[0] == '-' {
		if body[0] == '-' {
			sign = "-"
		}
		body = body[1:]
	}
	if body == "" {
		return 0, ReasonNotInteger
	}

	var sep rune
	for _, r := range body {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' || r == ',' || r == '\'':
			if sep != 0 && sep != r {
				return 0, ReasonBadGrouping
			}
			sep = r
		default:
			return 0, ReasonNotInteger
		}
	}

	digits := body
	if sep != 0 {
		groups := strings.Split(body, string(sep))
		if len(groups[0]) < 1 || len(groups[0]) > 3 {
			return 0, ReasonBadGrouping
		}
		for _, g := range groups[1:] {
			if len(g) != 3 {
				return 0, ReasonBadGrouping
			}
		}
		digits = strings.Join(groups, "")
	}

	n, err := strconv.ParseInt(sign+digits, 10, 64)
	if err != nil {
		return 0, ReasonOutOfRange
	}
	return n, ""
}
