package handle

import (
	"net/http"
	"strconv"
	"time"

	"chart-signal/api/internal/analysis"
	"chart-signal/api/internal/store"
)

type HistoryItem struct {
	ID         string           `json:"id"`
	CreatedAt  time.Time        `json:"created_at"`
	ChatID     int64            `json:"chat_id,omitempty"`
	Source     string           `json:"source"`
	Engine     string           `json:"engine"`
	Model      string           `json:"model"`
	Status     string           `json:"status"`
	Result     *analysis.Result `json:"result,omitempty"`
	Warnings   []string         `json:"warnings,omitempty"`
	Error      string           `json:"error,omitempty"`
	DurationMS int64            `json:"duration_ms"`
}

// History lists recent journal entries: ?limit=N (default 10, max 100) and
// optional ?chat_id=.
func (h *Handle) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "analysis journal is disabled"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	chatID, _ := strconv.ParseInt(r.URL.Query().Get("chat_id"), 10, 64)

	entries, err := h.history.Recent(r.Context(), chatID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "history: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, toHistoryItems(entries))
}

func toHistoryItems(entries []store.Entry) []HistoryItem {
	out := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryItem{
			ID:         e.ID,
			CreatedAt:  e.CreatedAt,
			ChatID:     e.ChatID,
			Source:     e.Source,
			Engine:     e.Engine,
			Model:      e.Model,
			Status:     e.Status,
			Result:     e.Result,
			Warnings:   e.Warnings,
			Error:      e.Error,
			DurationMS: e.Duration.Milliseconds(),
		})
	}
	return out
}
