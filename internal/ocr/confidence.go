package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate    = regexp.MustCompile(`\b\d{1,2}[./-]\d{1,2}[./-](19|20)\d{2}\b|\b(19|20)\d{2}-\d{2}-\d{2}\b`)
	reCurr    = regexp.MustCompile(`\b(tl|try|usd|eur|gbp)\b|[₺$£€]`)
	reAmount  = regexp.MustCompile(`\b\d{1,3}([.,]\d{3})*([.,]\d{2})\b`)
	reTaxID   = regexp.MustCompile(`\b\d{10,11}\b`)
	reLabelKV = regexp.MustCompile(`(?m)^[^\n:]{2,40}:\s*\S`)
)

// heuristicConfidence scores decoded text by how document-like it looks:
// dates, currency, amounts, tax ids and "label: value" lines each add a bit.
func heuristicConfidence(txt string) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base
	if reDate.MatchString(txtL) {
		score += 0.15
	}
	if reCurr.MatchString(txtL) {
		score += 0.1
	}
	if reAmount.MatchString(txtL) {
		score += 0.1
	}
	if reTaxID.MatchString(txtL) {
		score += 0.15
	}
	if len(reLabelKV.FindAllStringIndex(txt, 3)) >= 3 {
		score += 0.1
	}
	if len(txt) > 120 {
		score += 0.1
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// blendConfidence weights tesseract's own confidence over the heuristic when present.
func blendConfidence(ocrConf, heurConf float32) float32 {
	conf := heurConf
	if ocrConf > 0 {
		conf = 0.7*ocrConf + 0.3*heurConf
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}
