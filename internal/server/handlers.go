package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/fieldextract/internal/common"
	"github.com/joseph-ayodele/fieldextract/internal/export"
	"github.com/joseph-ayodele/fieldextract/internal/pipeline"
	"github.com/joseph-ayodele/fieldextract/internal/storage"
)

type uploadResponse struct {
	FileID      string `json:"file_id"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentHash string `json:"content_hash"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.uploads.Ping(r.Context()); err != nil {
		s.writeError(w, r, common.NewAppError(common.CodeServiceUnavailable, "upload index unavailable", fmt.Errorf("%w: %v", common.ErrUnavailable, err)), nil)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+multipartOverhead)
	}
	mr, err := r.MultipartReader()
	if err != nil {
		s.writeError(w, r, common.InvalidInputf("expected a multipart/form-data body: %v", err), nil)
		return
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			s.writeError(w, r, common.InvalidInputf("file: multipart field is required"), nil)
			return
		}
		if err != nil {
			s.writeError(w, r, requestBodyError(err, "upload"), nil)
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		rec, err := s.uploads.Save(r.Context(), part.FileName(), part)
		_ = part.Close()
		if err != nil {
			s.writeError(w, r, requestBodyError(err, "upload"), nil)
			return
		}
		s.writeJSON(w, r, http.StatusCreated, uploadResponse{
			FileID:      rec.ID.String(),
			Filename:    rec.Filename,
			Size:        rec.Size,
			ContentHash: hex.EncodeToString(rec.ContentHash),
		})
		return
	}
}

func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, requestBodyError(err, "request body"), nil)
		return
	}

	resp, err := s.processor.Process(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err, &resp)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "xlsx") {
		s.writeWorkbook(w, r, req, resp)
		return
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) writeWorkbook(w http.ResponseWriter, r *http.Request, req pipeline.Request, resp pipeline.Response) {
	data, err := s.exporter.FieldsXLSX(r.Context(), export.Document{
		FileID:   resp.FileID,
		Filename: resp.Filename,
		Strategy: resp.OCR,
		Method:   resp.Method,
		Pages:    resp.Pages,
		Specs:    req.Fields,
		Values:   resp.Result,
		RawText:  resp.RawOCR,
		Failure:  resp.Failure,
	})
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, resp.FileID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("http.write.failed", "req_id", common.RequestIDFromContext(r.Context()), "error", err)
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := storage.ParseFileID(chi.URLParam(r, "file_id"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if err := s.uploads.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
