package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/joseph-ayodele/fieldextract/internal/common"
	"github.com/joseph-ayodele/fieldextract/internal/fields"
	"github.com/joseph-ayodele/fieldextract/internal/pipeline"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error  errorBody      `json:"error"`
	FileID string         `json:"file_id,omitempty"`
	OCR    string         `json:"ocr,omitempty"`
	Result *fields.Values `json:"result,omitempty"`
	RawOCR *string        `json:"raw_ocr,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("http.write.failed", "req_id", common.RequestIDFromContext(r.Context()), "error", err)
	}
}

// writeError renders err as {"error":{code,message}}. A populated resp is
// echoed alongside so strategy failures keep the response shape.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, resp *pipeline.Response) {
	status := common.HTTPStatus(err)
	body := errorResponse{
		Error: errorBody{Code: common.ErrorCode(err), Message: common.ErrorMessage(err)},
	}
	if resp != nil && resp.Result.Len() > 0 {
		body.FileID = resp.FileID
		body.OCR = resp.OCR
		body.Result = &resp.Result
		body.RawOCR = &resp.RawOCR
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("http.error", "req_id", common.RequestIDFromContext(r.Context()), "status", status, "error", err)
	}
	s.writeJSON(w, r, status, body)
}

// requestBodyError maps body read failures onto the shared error codes.
func requestBodyError(err error, what string) error {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return err
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return common.NewAppError(common.CodePayloadTooLarge, what+" is too large", common.ErrPayloadTooLarge)
	}
	return common.InvalidInputf("malformed %s: %v", what, err)
}
