package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/memecoin-scanner/internal/logging"
)

// Scanner runs one scan
type Scanner interface {
	Run(ctx context.Context, criteria Criteria) (*ScanReport, error)
}

// WatchService repeats scans on a fixed interval
type WatchService struct {
	scanner  Scanner
	criteria Criteria
	interval time.Duration
	onReport func(*ScanReport)

	mu      sync.Mutex
	running bool
	runs    int
}

// NewWatchService creates a watch service. onReport is called after every
// successful scan and may be nil.
func NewWatchService(scanner Scanner, criteria Criteria, interval time.Duration, onReport func(*ScanReport)) (*WatchService, error) {
	if scanner == nil {
		return nil, errors.New("scanner is required")
	}
	if interval <= 0 {
		return nil, errors.New("watch interval must be positive")
	}
	return &WatchService{
		scanner:  scanner,
		criteria: criteria,
		interval: interval,
		onReport: onReport,
	}, nil
}

// Run scans immediately and then once per interval until ctx is done.
// A failed scan is logged and the next one runs on schedule.
func (w *WatchService) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("watch is already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	logger := logging.FromContext(ctx)
	logger.WithField("interval", w.interval.String()).Info("Watch started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.runOnce(ctx)

		select {
		case <-ctx.Done():
			logger.Info("Watch stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WatchService) runOnce(ctx context.Context) {
	w.mu.Lock()
	w.runs++
	w.mu.Unlock()

	report, err := w.scanner.Run(ctx, w.criteria)
	if err != nil {
		if ctx.Err() == nil {
			logging.FromContext(ctx).WithError(err).Warn("Scan failed, retrying next interval")
		}
		return
	}
	if w.onReport != nil {
		w.onReport(report)
	}
}

// Runs returns the number of scans attempted so far
func (w *WatchService) Runs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}
