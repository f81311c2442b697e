package pipeline

import (
	"github.com/joseph-ayodele/fieldextract/internal/common"
	"github.com/joseph-ayodele/fieldextract/internal/extract"
	"github.com/joseph-ayodele/fieldextract/internal/fields"
	"github.com/joseph-ayodele/fieldextract/internal/storage"
)

// Request is the inbound body of POST /api/ocr.
type Request struct {
	FileID string         `json:"file_id"`
	OCR    string         `json:"ocr"`
	Fields fields.SpecSet `json:"fields"`
}

// Response is the outbound body. On a strategy-level failure Result holds
// one null per requested key.
type Response struct {
	FileID      string            `json:"file_id"`
	OCR         string            `json:"ocr"`
	Result      fields.Values     `json:"result"`
	RawOCR      string            `json:"raw_ocr"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`

	Filename   string  `json:"-"`
	Method     string  `json:"-"`
	Pages      int     `json:"-"`
	Confidence float32 `json:"-"`
	Failure    string  `json:"-"`
}

// Validate checks the request before any file or OCR work and returns the
// parsed strategy.
func (r Request) Validate() (extract.Strategy, error) {
	strategy, err := extract.ParseStrategy(r.OCR)
	if err != nil {
		return "", err
	}
	if _, err := storage.ParseFileID(r.FileID); err != nil {
		return "", err
	}
	if r.Fields.Len() == 0 {
		return "", common.InvalidInputf("fields: at least one field is required")
	}
	return strategy, nil
}
