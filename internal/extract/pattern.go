package extract

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/fieldextract/internal/fields"
)

// Reasons recorded for fields the pattern strategy cannot resolve.
const (
	ReasonLabelNotFound = "label not found"
	ReasonNoValue       = "no value after label"
)

var (
	// a single-word "Label:" that is not one of the requested labels
	reInlineLabel = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(\p{L}[\p{L}\p{N}]*) ?:`)
	// digits with grouping; a space only continues the token when a digit follows
	reNumericToken = regexp.MustCompile(`^[+-]?\d(?:[\d.,'_]|[ ]\d)*`)
)

// valueSeparators may sit between a label and its value.
const valueSeparators = ":=-–."

type candidate struct {
	pos, end int // label span in folded text
}

// PatternStrategy matches field labels and their synonyms in raw text.
// It is deterministic and keeps no state between calls.
type PatternStrategy struct {
	labels *LabelTable
	log    *slog.Logger
}

func NewPatternStrategy(labels *LabelTable, logger *slog.Logger) *PatternStrategy {
	if labels == nil {
		labels = DefaultLabels()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PatternStrategy{labels: labels, log: logger}
}

func (p *PatternStrategy) Extract(_ context.Context, raw string, specs fields.SpecSet) Result {
	values := fields.NewValues(specs, ReasonLabelNotFound)
	ft := foldText(raw)

	perField := make(map[string][]string, specs.Len())
	var all []string
	for _, sp := range specs.Specs() {
		ls := p.labels.Labels(sp)
		perField[sp.Key] = ls
		all = append(all, ls...)
	}

	for _, sp := range specs.Specs() {
		values.Set(sp.Key, p.resolve(raw, ft, sp, perField[sp.Key], all))
	}
	return Result{Values: values}
}

// resolve tries every occurrence of the field's labels, first by position
// then longest label first, and keeps the first value that coerces.
func (p *PatternStrategy) resolve(raw string, ft folded, sp fields.Spec, labels, all []string) fields.Value {
	cands := findLabels(ft.text, labels)
	if len(cands) == 0 {
		return fields.Failure(ReasonLabelNotFound)
	}

	last := fields.Failure(ReasonNoValue)
	for _, c := range cands {
		start, end := valueSpan(ft.text, c.end, all)
		if start >= end {
			continue
		}
		// folded digits and separators are ASCII, so integers read the folded
		// span; strings keep the original spelling
		text := ft.orig(raw, start, end)
		if sp.Type == fields.TypeInteger {
			tok, ok := numericToken(ft.text[start:end])
			if !ok {
				last = fields.Failure(fields.ReasonNotInteger)
				continue
			}
			text = tok
		}
		v := fields.CoerceString(text, sp.Type)
		if v.OK() {
			return v
		}
		last = v
	}
	return last
}

// findLabels returns every word-bounded occurrence of labels in text.
func findLabels(text string, labels []string) []candidate {
	var out []candidate
	for _, l := range labels {
		for from := 0; from < len(text); {
			i := strings.Index(text[from:], l)
			if i < 0 {
				break
			}
			pos := from + i
			end := pos + len(l)
			if !wordBefore(text, pos) && !wordAt(text, end) {
				out = append(out, candidate{pos: pos, end: end})
			}
			from = pos + 1
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].pos != out[j].pos {
			return out[i].pos < out[j].pos
		}
		return out[i].end > out[j].end
	})
	return out
}

// valueSpan finds the value following a label that ends at labelEnd. The
// value stops at a line break, at the next requested label, or at an inline
// "Word:" label.
func valueSpan(text string, labelEnd int, all []string) (int, int) {
	i := skipSpaces(text, labelEnd)
	if r, size := utf8.DecodeRuneInString(text[i:]); size > 0 && strings.ContainsRune(valueSeparators, r) {
		// a dash glued to a digit is the value's sign
		if !(isDash(r) && digitAt(text, i+size)) {
			i += size
		}
	}
	start := skipSpaces(text, i)

	end := len(text)
	if j := strings.IndexAny(text[start:], "\r\n"); j >= 0 {
		end = start + j
	}
	line := text[start:end]

	for _, l := range all {
		for from := 0; from < len(line); {
			k := strings.Index(line[from:], l)
			if k < 0 {
				break
			}
			pos := from + k
			if pos > 0 && !wordBefore(line, pos) && !wordAt(line, pos+len(l)) {
				end = min(end, start+pos)
				break
			}
			from = pos + 1
		}
	}
	// a "Word:" at the very start belongs to the value, e.g. a URL scheme
	for _, m := range reInlineLabel.FindAllStringSubmatchIndex(line, -1) {
		if m[2] > 0 {
			end = min(end, start+m[2])
			break
		}
	}
	return start, end
}

func isDash(r rune) bool { return r == '-' || r == '–' }

func digitAt(s string, i int) bool { return i < len(s) && s[i] >= '0' && s[i] <= '9' }

func skipSpaces(text string, i int) int {
	for i < len(text) && text[i] == ' ' {
		i++
	}
	return i
}

// numericToken returns the leading number of s. A number glued to letters
// ("12abc") is rejected rather than truncated.
func numericToken(s string) (string, bool) {
	s = strings.TrimSpace(s)
	loc := reNumericToken.FindStringIndex(s)
	if loc == nil {
		return "", false
	}
	tok := s[:loc[1]]
	if wordAt(s, loc[1]) {
		return "", false
	}
	return strings.TrimRight(tok, ".,'_"), true
}
