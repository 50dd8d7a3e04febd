package api

import (
	"net/url"
	"strconv"
	"sync"

	scanerrors "github.com/memecoin-scanner/internal/errors"
	"github.com/memecoin-scanner/internal/render"
	"github.com/memecoin-scanner/internal/service"
	"github.com/memecoin-scanner/internal/types"
)

// LatestReport keeps the most recent scan report in memory
type LatestReport struct {
	mu     sync.RWMutex
	report *service.ScanReport
}

// NewLatestReport creates an empty store
func NewLatestReport() *LatestReport {
	return &LatestReport{}
}

// Store replaces the held report. It matches the watch service's report callback.
func (l *LatestReport) Store(report *service.ScanReport) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.report = report
}

// Latest implements ReportSource
func (l *LatestReport) Latest() *service.ScanReport {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.report
}

// filterRecords applies the optional min_score, scored and limit query parameters
// to the report's records, ranked the way the terminal renderer ranks them.
func filterRecords(report *service.ScanReport, q url.Values) ([]types.ScanRecord, error) {
	var minScore *float64
	scoredOnly := false
	limit := -1

	if v := q.Get("min_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, scanerrors.NewInvalidInputError("min_score", v)
		}
		minScore = &f
		scoredOnly = true
	}
	if v := q.Get("scored"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, scanerrors.NewInvalidInputError("scored", v)
		}
		scoredOnly = scoredOnly || b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, scanerrors.NewInvalidInputError("limit", v)
		}
		limit = n
	}

	out := make([]types.ScanRecord, 0, len(report.Records))
	for _, rec := range render.SortRecords(report.Records) {
		if scoredOnly && !rec.Analysis.HasScore() {
			continue
		}
		if minScore != nil && *rec.Analysis.Score < *minScore {
			continue
		}
		out = append(out, rec)
	}

	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
