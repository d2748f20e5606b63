package handle

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"chart-signal/api/internal/analysis"
	"chart-signal/api/internal/intake"
	"chart-signal/api/internal/metrics"
	"chart-signal/api/internal/service"
)

type AnalyzeRequest struct {
	LLMName  string `json:"llm_name"`
	Model    string `json:"model,omitempty"`
	ImageB64 string `json:"image_b64"`
	MIME     string `json:"mime,omitempty"`
}

type AnalyzeResponse struct {
	ID         string          `json:"id"`
	Engine     string          `json:"engine"`
	Model      string          `json:"model"`
	Result     analysis.Result `json:"result"`
	Warnings   []string        `json:"warnings"`
	DurationMS int64           `json:"duration_ms"`
	Image      intake.Preview  `json:"image"`
}

// Analyze accepts either multipart/form-data with an "image" file part or a
// JSON AnalyzeRequest, and runs one analysis.
func (h *Handle) Analyze(w http.ResponseWriter, r *http.Request) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}

	var (
		req  AnalyzeRequest
		img  analysis.Image
		prev intake.Preview
		err  error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		img, prev, req, err = readMultipart(r)
	} else {
		var mbe *http.MaxBytesError
		derr := json.NewDecoder(r.Body).Decode(&req)
		switch {
		case errors.As(derr, &mbe):
			err = derr
		case derr != nil:
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad json: " + derr.Error()})
			return
		default:
			img, prev, err = intake.LoadBase64(req.ImageB64, req.MIME)
		}
	}
	if err != nil {
		var mbe *http.MaxBytesError
		if intake.IsRejection(err) || errors.As(err, &mbe) {
			metrics.ObserveRejected(service.SourceHTTP)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	out, err := h.svc.Analyze(ctx, service.Request{
		Image:  img,
		Engine: req.LLMName,
		Model:  req.Model,
		Source: service.SourceHTTP,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	warnings := out.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, http.StatusOK, AnalyzeResponse{
		ID:         out.ID,
		Engine:     out.Engine,
		Model:      out.Model,
		Result:     out.Result,
		Warnings:   warnings,
		DurationMS: out.Duration.Milliseconds(),
		Image:      prev,
	})
}

func readMultipart(r *http.Request) (analysis.Image, intake.Preview, AnalyzeRequest, error) {
	req := AnalyzeRequest{
		LLMName: r.FormValue("llm_name"),
		Model:   r.FormValue("model"),
	}
	f, hdr, err := r.FormFile("image")
	if err != nil {
		return analysis.Image{}, intake.Preview{}, req, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return analysis.Image{}, intake.Preview{}, req, err
	}
	declared := r.FormValue("mime")
	if declared == "" {
		declared = hdr.Header.Get("Content-Type")
	}
	img, prev, err := intake.Load(data, declared)
	return img, prev, req, err
}
