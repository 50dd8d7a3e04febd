package service

import (
	"context"
	"sync"

	"github.com/memecoin-scanner/internal/adapter"
	"github.com/memecoin-scanner/internal/logging"
	"github.com/memecoin-scanner/internal/types"
)

const testTokenAddress = "9TY6DUg1VSssYH5tFE95qoq5hnAGFak4w3cn72sJNCoV"

// testContext carries a discarding logger so per-candidate warnings stay out of test output
func testContext() context.Context {
	return logging.WithLogger(context.Background(), logging.Nop())
}

// Mock collaborators for testing

type mockListings struct {
	mu          sync.Mutex
	snapshot    []types.MarketSnapshotItem
	snapshotErr error
	metadata    map[int64]*types.TokenMetadata
	metaErrs    map[int64]error
	metaCalls   []int64
}

func newMockListings(items ...types.MarketSnapshotItem) *mockListings {
	return &mockListings{
		snapshot: items,
		metadata: map[int64]*types.TokenMetadata{},
		metaErrs: map[int64]error{},
	}
}

func (m *mockListings) FetchSnapshot(ctx context.Context) ([]types.MarketSnapshotItem, error) {
	if m.snapshotErr != nil {
		return nil, m.snapshotErr
	}
	return m.snapshot, nil
}

func (m *mockListings) FetchMetadata(ctx context.Context, id int64, symbol string) (*types.TokenMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metaCalls = append(m.metaCalls, id)
	if err, ok := m.metaErrs[id]; ok {
		return nil, err
	}
	return m.metadata[id], nil
}

type mockAnalyzer struct {
	results map[string]types.AnalysisResult
	errs    map[string]error
	calls   []string
}

func (m *mockAnalyzer) Analyze(ctx context.Context, meta types.TokenMetadata) (types.AnalysisResult, error) {
	m.calls = append(m.calls, meta.TokenAddress)
	if err, ok := m.errs[meta.TokenAddress]; ok {
		return types.PlaceholderAnalysis(), err
	}
	if r, ok := m.results[meta.TokenAddress]; ok {
		return r, nil
	}
	return types.PlaceholderAnalysis(), nil
}

type mockExecutor struct {
	rows    []adapter.Row
	err     error
	calls   int
	queryID string
	params  map[string]interface{}
}

func (m *mockExecutor) ExecuteAndWait(ctx context.Context, queryID string, params map[string]interface{}) ([]adapter.Row, error) {
	m.calls++
	m.queryID = queryID
	m.params = params
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

func solanaMetadata(address string) *types.TokenMetadata {
	return &types.TokenMetadata{
		Website:      "https://example.org",
		Description:  "N/A",
		Platform:     "Solana",
		TokenAddress: address,
	}
}

func scorePtr(f float64) *float64 {
	return &f
}
