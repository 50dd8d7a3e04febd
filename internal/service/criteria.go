package service

import (
	"fmt"
	"time"

	scanerrors "github.com/memecoin-scanner/internal/errors"
	"github.com/memecoin-scanner/internal/types"
)

// Criteria selects candidates from a market snapshot
type Criteria struct {
	// VolumeThreshold is an exclusive lower bound on 24h volume
	VolumeThreshold float64
	// MinPriceIncrease and MaxPriceIncrease bound the 24h change in percent, inclusive
	MinPriceIncrease float64
	MaxPriceIncrease float64
	// MaxListingAge excludes listings added longer ago than this
	MaxListingAge time.Duration
}

// DefaultCriteria returns the default selection criteria
func DefaultCriteria() Criteria {
	return Criteria{
		VolumeThreshold:  50000,
		MinPriceIncrease: 20,
		MaxPriceIncrease: 300,
		MaxListingAge:    30 * 24 * time.Hour,
	}
}

// Validate checks that the criteria can select anything
func (c Criteria) Validate() error {
	if c.VolumeThreshold < 0 {
		return scanerrors.NewConfigError("volume threshold cannot be negative")
	}
	if c.MinPriceIncrease > c.MaxPriceIncrease {
		return scanerrors.NewConfigError(fmt.Sprintf(
			"min price increase %.2f exceeds max price increase %.2f",
			c.MinPriceIncrease, c.MaxPriceIncrease))
	}
	if c.MaxListingAge <= 0 {
		return scanerrors.NewConfigError("max listing age must be positive")
	}
	return nil
}

// Matches reports whether item qualifies at instant now.
// Items with an unknown listing date never qualify.
func (c Criteria) Matches(item types.MarketSnapshotItem, now time.Time) bool {
	if item.Quote.Volume24h <= c.VolumeThreshold {
		return false
	}

	change := item.Quote.PercentChange24h
	if change < c.MinPriceIncrease || change > c.MaxPriceIncrease {
		return false
	}

	if item.ListedAt.IsZero() {
		return false
	}
	cutoff := now.UTC().Add(-c.MaxListingAge)
	return !item.ListedAt.Before(cutoff)
}

// Filter returns the qualifying items in snapshot order
func (c Criteria) Filter(items []types.MarketSnapshotItem, now time.Time) []types.MarketSnapshotItem {
	candidates := make([]types.MarketSnapshotItem, 0)
	for _, item := range items {
		if c.Matches(item, now) {
			candidates = append(candidates, item)
		}
	}
	return candidates
}
