package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/memecoin-scanner/internal/adapter"
	"github.com/memecoin-scanner/internal/chain"
	"github.com/memecoin-scanner/internal/circuitbreaker"
	scanerrors "github.com/memecoin-scanner/internal/errors"
	"github.com/memecoin-scanner/internal/logging"
	"github.com/memecoin-scanner/internal/metrics"
	"github.com/memecoin-scanner/internal/types"
)

// Result row columns produced by the analytics query
const (
	ColumnScore          = "memecoin_score"
	ColumnInterpretation = "score_interpretation"

	paramTokenAddress = "token_address"
)

// ErrInvalidTokenAddress is returned when a token address is malformed for its platform
var ErrInvalidTokenAddress = errors.New("invalid token address")

// QueryExecutor runs a parameterized query to completion
type QueryExecutor interface {
	ExecuteAndWait(ctx context.Context, queryID string, params map[string]interface{}) ([]adapter.Row, error)
}

// AnalysisServiceConfig holds the analysis service dependencies
type AnalysisServiceConfig struct {
	Executor QueryExecutor
	QueryID  string
	Breaker  *circuitbreaker.CircuitBreaker
	Metrics  *metrics.Registry
}

// AnalysisService scores tokens with the remote analytics query
type AnalysisService struct {
	executor QueryExecutor
	queryID  string
	breaker  *circuitbreaker.CircuitBreaker
	metrics  *metrics.Registry
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(cfg AnalysisServiceConfig) (*AnalysisService, error) {
	if cfg.Executor == nil {
		return nil, errors.New("query executor is required")
	}
	if cfg.QueryID == "" {
		return nil, errors.New("query id is required")
	}

	breaker := cfg.Breaker
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig("analytics"))
	}

	return &AnalysisService{
		executor: cfg.Executor,
		queryID:  cfg.QueryID,
		breaker:  breaker,
		metrics:  cfg.Metrics,
	}, nil
}

// Analyze runs the analytics query for the token described by meta.
// On any failure it returns the placeholder result together with the error;
// callers that only need best-effort enrichment can use the result and log the error.
func (s *AnalysisService) Analyze(ctx context.Context, meta types.TokenMetadata) (types.AnalysisResult, error) {
	if !chain.ValidTokenAddress(meta.Platform, meta.TokenAddress) {
		return types.PlaceholderAnalysis(), fmt.Errorf("%w: %q on %s", ErrInvalidTokenAddress, meta.TokenAddress, meta.Platform)
	}
	return s.AnalyzeAddress(ctx, meta.TokenAddress)
}

// AnalyzeAddress runs the analytics query for a raw token address
func (s *AnalysisService) AnalyzeAddress(ctx context.Context, tokenAddress string) (types.AnalysisResult, error) {
	logger := logging.FromContext(ctx).WithField("token_address", tokenAddress)
	start := time.Now()

	var rows []adapter.Row
	err := s.breaker.Execute(ctx, func() error {
		var execErr error
		rows, execErr = s.executor.ExecuteAndWait(ctx, s.queryID, map[string]interface{}{
			paramTokenAddress: tokenAddress,
		})
		return execErr
	})

	s.metrics.ObserveQuery(queryOutcome(err), time.Since(start))

	if err != nil {
		logger.WithError(err).Debug("Analytics query failed")
		return types.PlaceholderAnalysis(), err
	}

	return ResultFromRows(rows), nil
}

// ResultFromRows maps the first result row to an AnalysisResult.
// No rows, or missing columns, yield N/A for the missing part.
func ResultFromRows(rows []adapter.Row) types.AnalysisResult {
	result := types.PlaceholderAnalysis()
	if len(rows) == 0 {
		return result
	}

	first := rows[0]
	result.Score = parseScore(first[ColumnScore])
	if v, ok := first[ColumnInterpretation]; ok && v != nil {
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			result.Interpretation = s
		}
	}
	return result
}

func parseScore(v interface{}) *float64 {
	var f float64
	switch score := v.(type) {
	case float64:
		f = score
	case float32:
		f = float64(score)
	case int:
		f = float64(score)
	case int64:
		f = float64(score)
	case json.Number:
		parsed, err := score.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(score), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

func queryOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	if circuitbreaker.IsRejection(err) {
		return "CIRCUIT_OPEN"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "CANCELLED"
	}
	return scanerrors.Reason(err)
}
