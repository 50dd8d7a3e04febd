package render

import (
	"encoding/json"
	"io"

	"github.com/memecoin-scanner/internal/types"
)

// JSONRenderer writes sorted records as an indented JSON array
type JSONRenderer struct {
	w io.Writer
}

// NewJSONRenderer creates a JSON renderer writing to w
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{w: w}
}

// Render implements service.Renderer
func (r *JSONRenderer) Render(records []types.ScanRecord) error {
	sorted := SortRecords(records)
	for i := range sorted {
		// encoding/json rejects NaN and Inf
		if s := sorted[i].Analysis.Score; s != nil && !isFinite(*s) {
			sorted[i].Analysis.Score = nil
		}
	}

	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(sorted)
}
