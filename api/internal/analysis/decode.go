package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"chart-signal/api/internal/util"
)

var ErrEmptyResponse = errors.New("empty model response")

// Decode parses the model's text answer into a Result. It checks what the
// declared schema guarantees (every field present, JSON types, enum sets) and
// nothing more: domain plausibility is reported by Inconsistencies.
func Decode(text string) (Result, error) {
	raw := util.StripCodeFences(text)
	if raw == "" {
		return Result{}, ErrEmptyResponse
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return Result{}, fmt.Errorf("response is not a JSON object: %w", err)
	}
	var missing []string
	for _, f := range Fields {
		v, ok := fields[f.Name]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return Result{}, fmt.Errorf("response misses required fields: %s", strings.Join(missing, ", "))
	}

	var r Result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Result{}, fmt.Errorf("response does not match schema: %w", err)
	}
	if err := r.validateEnums(); err != nil {
		return Result{}, err
	}
	return r, nil
}
