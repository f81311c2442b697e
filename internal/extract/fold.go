package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// folded is a lower-cased, mark-free rendering of a text with a byte offset
// back into the original for every folded byte.
type folded struct {
	text string
	offs []int // len(offs) == len(text)+1
}

func newStripper() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// foldText folds s rune by rune. Horizontal whitespace runs collapse to one
// space; line breaks are kept.
func foldText(s string) folded {
	strip := newStripper()
	var b strings.Builder
	b.Grow(len(s))
	offs := make([]int, 0, len(s)+1)
	prevSpace := false

	for i, r := range s {
		if isHSpace(r) {
			if prevSpace {
				continue
			}
			b.WriteByte(' ')
			offs = append(offs, i)
			prevSpace = true
			continue
		}
		prevSpace = false
		out := foldRune(strip, r)
		b.WriteString(out)
		for range len(out) {
			offs = append(offs, i)
		}
	}
	offs = append(offs, len(s))
	return folded{text: b.String(), offs: offs}
}

// foldLabel folds a label the same way text is folded, and also treats '_'
// and '-' as spaces.
func foldLabel(s string) string {
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.TrimSpace(foldText(s).text)
}

func foldRune(strip transform.Transformer, r rune) string {
	switch r {
	case 'ı', 'İ', 'I':
		return "i"
	}
	if r < utf8.RuneSelf {
		return string(unicode.ToLower(r))
	}
	out, _, err := transform.String(strip, string(r))
	if err != nil {
		return strings.ToLower(string(r))
	}
	// a lone combining mark from decomposed input folds to nothing
	return strings.ToLower(out)
}

func isHSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\u00a0', '\u2009', '\u202f':
		return true
	}
	return false
}

// orig maps a folded byte range back to the original text.
func (f folded) orig(src string, start, end int) string {
	return src[f.offs[start]:f.offs[end]]
}

// wordAt reports whether the rune starting at i is a letter or digit.
func wordAt(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// wordBefore reports whether the rune ending at i is a letter or digit.
func wordBefore(s string, i int) bool {
	if i <= 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
