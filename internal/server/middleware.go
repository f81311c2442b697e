package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/fieldextract/internal/common"
)

// requestContext copies chi's request id into the shared context keys and
// echoes it back to the caller.
func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := middleware.GetReqID(r.Context())
		if rid != "" {
			w.Header().Set(middleware.RequestIDHeader, rid)
		}
		ctx := common.WithRequestID(r.Context(), rid)
		ctx = common.WithLogger(ctx, s.logger.With("req_id", rid))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := []any{
			"req_id", common.RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		}
		if status >= http.StatusInternalServerError {
			s.logger.Warn("http.request", attrs...)
			return
		}
		s.logger.Info("http.request", attrs...)
	})
}
