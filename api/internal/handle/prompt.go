package handle

import (
	"net/http"

	"chart-signal/api/internal/analysis"
)

type PromptResponse struct {
	Prompt       string            `json:"prompt"`
	Schema       map[string]any    `json:"schema"`
	Instructions map[string]string `json:"instructions"`
}

// Prompt serves the fixed instruction text and the declared response schema.
func (h *Handle) Prompt(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PromptResponse{
		Prompt: analysis.Prompt,
		Schema: analysis.JSONSchema(),
		Instructions: map[string]string{
			string(analysis.SignalTypeNonMTG):   analysis.InstructionNonMTG,
			string(analysis.SignalTypeMTG1Step): analysis.InstructionMTG,
			string(analysis.SignalNeutral):      analysis.InstructionNoTrade,
		},
	})
}
