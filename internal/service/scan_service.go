// Package service implements the scan pipeline: market snapshot, candidate selection,
// metadata enrichment and best-effort analytics scoring.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	scanerrors "github.com/memecoin-scanner/internal/errors"
	"github.com/memecoin-scanner/internal/logging"
	"github.com/memecoin-scanner/internal/metrics"
	"github.com/memecoin-scanner/internal/ratelimit"
	"github.com/memecoin-scanner/internal/types"
)

// ListingsProvider supplies market snapshots and per-token metadata
type ListingsProvider interface {
	FetchSnapshot(ctx context.Context) ([]types.MarketSnapshotItem, error)
	FetchMetadata(ctx context.Context, id int64, symbol string) (*types.TokenMetadata, error)
}

// Analyzer scores a token. On failure it still returns a usable (placeholder) result.
type Analyzer interface {
	Analyze(ctx context.Context, meta types.TokenMetadata) (types.AnalysisResult, error)
}

// Renderer presents the records of a scan
type Renderer interface {
	Render(records []types.ScanRecord) error
}

// ScanReport describes one completed scan
type ScanReport struct {
	ScanID       string             `json:"scan_id"`
	StartedAt    time.Time          `json:"started_at"`
	FinishedAt   time.Time          `json:"finished_at"`
	SnapshotSize int                `json:"snapshot_size"`
	Candidates   int                `json:"candidates"`
	Skipped      int                `json:"skipped"`
	Analyzed     int                `json:"analyzed"`
	Records      []types.ScanRecord `json:"records"`
}

// ScanServiceConfig holds the scan service dependencies
type ScanServiceConfig struct {
	Listings ListingsProvider
	// Analyzer is optional; nil runs a listings-only scan
	Analyzer Analyzer
	// Limiter paces provider calls; nil uses ratelimit.DefaultInterval
	Limiter *ratelimit.Limiter
	Metrics *metrics.Registry
	// Clock defaults to time.Now
	Clock func() time.Time
}

// ScanService runs scans sequentially, one candidate at a time
type ScanService struct {
	listings ListingsProvider
	analyzer Analyzer
	limiter  *ratelimit.Limiter
	metrics  *metrics.Registry
	clock    func() time.Time
}

// NewScanService creates a new scan service
func NewScanService(cfg ScanServiceConfig) (*ScanService, error) {
	if cfg.Listings == nil {
		return nil, errors.New("listings provider is required")
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.NewLimiter(ratelimit.DefaultInterval)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &ScanService{
		listings: cfg.Listings,
		analyzer: cfg.Analyzer,
		limiter:  limiter,
		metrics:  cfg.Metrics,
		clock:    clock,
	}, nil
}

// Scan runs a scan and returns its records in snapshot order
func (s *ScanService) Scan(ctx context.Context, criteria Criteria) ([]types.ScanRecord, error) {
	report, err := s.Run(ctx, criteria)
	if err != nil {
		return nil, err
	}
	return report.Records, nil
}

// Run runs a scan and returns the full report.
//
// Only a snapshot failure, invalid criteria or a cancelled context fail the scan.
// A candidate whose metadata cannot be resolved is skipped; a candidate whose
// analysis fails gets the placeholder result.
func (s *ScanService) Run(ctx context.Context, criteria Criteria) (*ScanReport, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	report := &ScanReport{
		ScanID:    uuid.NewString(),
		StartedAt: s.clock().UTC(),
		Records:   make([]types.ScanRecord, 0),
	}

	logger := logging.FromContext(ctx).WithField("scan_id", report.ScanID)
	ctx = logging.WithLogger(ctx, logger)

	snapshot, err := s.listings.FetchSnapshot(ctx)
	if err != nil {
		s.metrics.ObserveScan(0, 0, 0, s.clock().Sub(report.StartedAt), err)
		return nil, fmt.Errorf("failed to fetch market snapshot: %w", err)
	}
	report.SnapshotSize = len(snapshot)

	candidates := criteria.Filter(snapshot, report.StartedAt)
	report.Candidates = len(candidates)

	logger.WithFields(map[string]interface{}{
		"snapshot":   report.SnapshotSize,
		"candidates": report.Candidates,
	}).Info("Market snapshot filtered")

	for _, item := range candidates {
		record, ok, err := s.enrich(ctx, item)
		if err != nil {
			s.metrics.ObserveScan(report.SnapshotSize, report.Candidates, len(report.Records), s.clock().Sub(report.StartedAt), err)
			return nil, err
		}
		if !ok {
			report.Skipped++
			continue
		}
		if record.Analysis.HasScore() {
			report.Analyzed++
		}
		report.Records = append(report.Records, record)
	}

	report.FinishedAt = s.clock().UTC()
	s.metrics.ObserveScan(report.SnapshotSize, report.Candidates, len(report.Records), report.FinishedAt.Sub(report.StartedAt), nil)

	logger.WithFields(map[string]interface{}{
		"records":  len(report.Records),
		"skipped":  report.Skipped,
		"analyzed": report.Analyzed,
		"duration": report.FinishedAt.Sub(report.StartedAt).String(),
	}).Info("Scan completed")

	return report, nil
}

// enrich resolves metadata and analysis for one candidate.
// ok is false when the candidate is skipped; err is only set when the scan must stop.
func (s *ScanService) enrich(ctx context.Context, item types.MarketSnapshotItem) (types.ScanRecord, bool, error) {
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"symbol": item.Symbol,
		"id":     item.ID,
	})

	if err := s.limiter.Wait(ctx); err != nil {
		return types.ScanRecord{}, false, interrupted(ctx, err)
	}

	meta, err := s.listings.FetchMetadata(ctx, item.ID, item.Symbol)
	if err != nil {
		if ctx.Err() != nil {
			return types.ScanRecord{}, false, interrupted(ctx, err)
		}
		s.metrics.ObserveMetadataFailure(scanerrors.Reason(err))
		if scanerrors.IsProviderUnavailable(err) {
			logger.WithError(err).Warn("Metadata unavailable, skipping candidate")
		} else {
			logger.WithError(err).Debug("Candidate not applicable, skipping")
		}
		return types.ScanRecord{}, false, nil
	}
	if meta == nil {
		s.metrics.ObserveMetadataFailure(scanerrors.CodeNotFound)
		logger.Debug("Empty metadata, skipping candidate")
		return types.ScanRecord{}, false, nil
	}

	analysis := types.PlaceholderAnalysis()
	if s.analyzer != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return types.ScanRecord{}, false, interrupted(ctx, err)
		}

		result, err := s.analyzer.Analyze(ctx, *meta)
		switch {
		case err != nil && ctx.Err() != nil:
			return types.ScanRecord{}, false, interrupted(ctx, err)
		case err != nil:
			logger.WithError(err).Warn("Analysis failed, using placeholder")
			analysis = types.PlaceholderAnalysis()
		default:
			analysis = result
		}
	}

	logger.WithFields(map[string]interface{}{
		"change_24h": item.Quote.PercentChange24h,
		"score":      analysis.ScoreString(),
		"signal":     analysis.Interpretation,
	}).Info("Candidate found")

	return types.ScanRecord{
		Item:     item,
		Metadata: *meta,
		Analysis: analysis,
	}, true, nil
}

// interrupted reports why a scan stopped early, preferring the context's own error
func interrupted(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("scan interrupted: %w", ctxErr)
	}
	return fmt.Errorf("scan interrupted: %w", err)
}
