// Package types provides common type definitions for the memecoin scanner.
package types

import (
	"strconv"
	"time"
)

// NotAvailable is the display value used when a field could not be resolved
const NotAvailable = "N/A"

// Quote holds the market figures of a listing in the quote currency (USD)
type Quote struct {
	Price            float64 `json:"price"`
	PercentChange24h float64 `json:"percent_change_24h"`
	Volume24h        float64 `json:"volume_24h"`
	VolumeChange24h  float64 `json:"volume_change_24h"`
	MarketCap        float64 `json:"market_cap"`
}

// MarketSnapshotItem is a single listing from a market snapshot
type MarketSnapshotItem struct {
	ID       int64     `json:"id"`
	Symbol   string    `json:"symbol"`
	Name     string    `json:"name"`
	Quote    Quote     `json:"quote"`
	ListedAt time.Time `json:"listed_at"`
}

// TokenMetadata holds descriptive data about a token on the target chain
type TokenMetadata struct {
	Website      string `json:"website"`
	Twitter      string `json:"twitter"`
	Telegram     string `json:"telegram"`
	Explorer     string `json:"explorer"`
	Description  string `json:"description"`
	Platform     string `json:"platform"`
	TokenAddress string `json:"token_address"`
}

// ExecutionState represents the state of a remote query execution
type ExecutionState string

const (
	// StatePending represents an execution waiting in the provider's queue
	StatePending ExecutionState = "QUERY_STATE_PENDING"
	// StateExecuting represents a running execution
	StateExecuting ExecutionState = "QUERY_STATE_EXECUTING"
	// StateCompleted represents an execution whose results are ready
	StateCompleted ExecutionState = "QUERY_STATE_COMPLETED"
	// StateFailed represents an execution that failed on the provider
	StateFailed ExecutionState = "QUERY_STATE_FAILED"
	// StateCancelled represents an execution cancelled on the provider
	StateCancelled ExecutionState = "QUERY_STATE_CANCELLED"
	// StateUnknown is used when the provider did not report a state
	StateUnknown ExecutionState = "UNKNOWN"
)

// IsTerminal reports whether polling stops at this state.
// Every state other than completed, failed and cancelled is treated as still running,
// including states this client does not know about.
func (s ExecutionState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// AnalysisResult is the score computed by the analytics query for one token
type AnalysisResult struct {
	Score          *float64 `json:"score"`
	Interpretation string   `json:"interpretation"`
}

// PlaceholderAnalysis returns the neutral result used when analysis is unavailable
func PlaceholderAnalysis() AnalysisResult {
	return AnalysisResult{Interpretation: NotAvailable}
}

// HasScore reports whether a numeric score is present
func (a AnalysisResult) HasScore() bool {
	return a.Score != nil
}

// ScoreString formats the score for display
func (a AnalysisResult) ScoreString() string {
	if a.Score == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*a.Score, 'f', -1, 64)
}

// ScanRecord is the merged result for one qualifying candidate.
// Records are assembled once by the scan service and never modified afterwards.
type ScanRecord struct {
	Item     MarketSnapshotItem `json:"item"`
	Metadata TokenMetadata      `json:"metadata"`
	Analysis AnalysisResult     `json:"analysis"`
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
