package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^[ \t]*[_\-=|]{3,}[ \t]*$`)
	reWordToken  = regexp.MustCompile(`[\p{L}\p{N}]+`)
)

// labelWords are upper-case label words tesseract often reads with a "0"
// for the "O", e.g. "T0PLAM".
var labelWords = map[string]struct{}{
	"TOPLAM": {}, "TOPLAMI": {}, "GENEL": {}, "NO": {}, "NOSU": {},
	"ÖDEME": {}, "ODEME": {}, "ÖDENECEK": {}, "KOD": {}, "KODU": {},
	"TOTAL": {}, "INVOICE": {}, "AMOUNT": {}, "DOCUMENT": {},
}

// Normalize collapses noisy whitespace and fixes common OCR artifacts.
// Line breaks are kept; more than one blank line collapses into one.
// A "0" is rewritten to "O" only inside a known label word; every other
// digit, codes like "ABC0DEF" included, is left untouched.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToValidUTF8(s, "")
	s = strings.ReplaceAll(s, "\f", "\n")
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	// trim trailing spaces on lines
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = strings.Join(lines, "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	s = reWordToken.ReplaceAllStringFunc(s, fixLabelZero)
	return strings.TrimSpace(s)
}

func fixLabelZero(tok string) string {
	if !strings.ContainsRune(tok, '0') {
		return tok
	}
	fixed := strings.ReplaceAll(tok, "0", "O")
	if _, ok := labelWords[fixed]; ok {
		return fixed
	}
	return tok
}
