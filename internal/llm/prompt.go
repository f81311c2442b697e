package llm

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/joseph-ayodele/fieldextract/internal/fields"
)

// maxPromptText bounds how much raw text is embedded in one prompt.
const maxPromptText = 12000

// BuildSystemPrompt returns the fixed extraction rules.
func BuildSystemPrompt() string {
	parts := []string{
		"You are a document parsing expert. Extract the requested fields from the text EXACTLY as they appear.",
		"Return ONLY a valid JSON object; the first character must be '{' and the last '}'.",
		"Use ONLY the field keys provided. Do NOT add new keys.",
		"Extract values EXACTLY as written in the text. Do NOT correct, normalize or infer.",
		"For integer fields include ALL digits without spaces or separators.",
		"If a field is missing from the text, set it to null.",
		"NO explanations, NO markdown, NO comments, NO code fences.",
	}
	return strings.Join(parts, " ")
}

// BuildFieldPrompt embeds the raw text and the field descriptors
// (key -> name, description, type) into one user prompt.
func BuildFieldPrompt(rawText string, specs fields.SpecSet) (string, error) {
	desc, err := describeFields(specs)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(rawText)
	truncated := false
	if len(text) > maxPromptText {
		text = truncateUTF8(text, maxPromptText)
		truncated = true
	}

	var b strings.Builder
	b.WriteString("TEXT:\n")
	b.WriteString(text)
	if truncated {
		b.WriteString("\n…(truncated)")
	}
	b.WriteString("\n\nFIELDS TO EXTRACT (JSON):\n")
	b.WriteString(desc)
	b.WriteString("\n\nRESPONSE (JSON ONLY):")
	return b.String(), nil
}

func describeFields(specs fields.SpecSet) (string, error) {
	compact, err := json.Marshal(specs)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return "", err
	}
	return out.String(), nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
