package handle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"chart-signal/api/internal/analysis"
	"chart-signal/api/internal/intake"
	"chart-signal/api/internal/service"
	"chart-signal/api/internal/store"
)

type Analyzer interface {
	Analyze(ctx context.Context, req service.Request) (service.Outcome, error)
}

type History interface {
	Recent(ctx context.Context, chatID int64, limit int) ([]store.Entry, error)
}

type Handle struct {
	svc     Analyzer
	history History
	// maxUpload caps the request body; 0 leaves it unbounded.
	maxUpload int64
}

type Option func(*Handle)

// WithMaxUploadBytes caps /v1/analyze bodies at n bytes. n <= 0 means no cap,
// so only the remote model limits image size.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handle) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// New builds the HTTP handlers. history may be nil when no journal is
// configured.
func New(svc Analyzer, history History, opts ...Option) *Handle {
	h := &Handle{
		svc:     svc,
		history: history,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the typed errors of the analysis path to status codes.
// An AnalysisError body carries only the user message.
func writeError(w http.ResponseWriter, err error) {
	var (
		ce  *analysis.ConfigurationError
		ae  *analysis.AnalysisError
		mbe *http.MaxBytesError
	)
	switch {
	case errors.As(err, &mbe):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
			Error: fmt.Sprintf("request body exceeds the upload limit of %d bytes", mbe.Limit),
		})
	case intake.IsRejection(err), errors.Is(err, analysis.ErrUnknownEngine):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.As(err, &ce):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: ce.Error()})
	case errors.Is(err, service.ErrNoEngine):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case errors.As(err, &ae):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: analysis.UserMessage})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// requestContext applies an optional deadline from the X-Request-Timeout
// header or the timeoutSec query parameter. Without either the request
// context is used as is.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	ts := r.Header.Get("X-Request-Timeout")
	if ts == "" {
		ts = r.URL.Query().Get("timeoutSec")
	}
	if v, _ := strconv.Atoi(ts); v > 0 {
		return context.WithTimeout(r.Context(), time.Duration(v)*time.Second)
	}
	return context.WithCancel(r.Context())
}
