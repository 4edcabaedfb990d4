package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
)

// RankingRecomputer is the part of the lifecycle service the refresher drives
type RankingRecomputer interface {
	RecomputeRanking(ctx context.Context, programID string) ([]entity.RankedEntry, error)
}

// RankingRefresher periodically recomputes the waitlist ranking of every
// configured program, so time-dependent inputs and manual data fixes are
// reflected without a staff action.
type RankingRefresher struct {
	service    RankingRecomputer
	programIDs []string
	interval   time.Duration
	timeout    time.Duration
	logger     *zap.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewRankingRefresher creates a refresher for the given programs
func NewRankingRefresher(svc RankingRecomputer, programIDs []string, interval time.Duration, logger *zap.Logger) *RankingRefresher {
	return &RankingRefresher{
		service:    svc,
		programIDs: programIDs,
		interval:   interval,
		timeout:    time.Minute,
		logger:     logger,
	}
}

// Name returns the worker name for identification
func (r *RankingRefresher) Name() string {
	return "RankingRefresher"
}

// Start runs a refresh immediately and then every interval
func (r *RankingRefresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRunning {
		return fmt.Errorf("ranking refresher is already running")
	}
	if r.interval <= 0 {
		return fmt.Errorf("ranking refresher interval must be positive")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.isRunning = true

	r.logger.Info("RankingRefresher started",
		zap.Duration("interval", r.interval),
		zap.Strings("programs", r.programIDs))

	go r.loop(loopCtx, r.done)
	return nil
}

// Stop cancels the loop and waits for the current refresh to finish
func (r *RankingRefresher) Stop() error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	<-done
	return nil
}

func (r *RankingRefresher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.RefreshAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshAll(ctx)
		}
	}
}

// RefreshAll recomputes every program once. Failures are logged per program.
func (r *RankingRefresher) RefreshAll(ctx context.Context) int {
	refreshed := 0
	for _, programID := range r.programIDs {
		if ctx.Err() != nil {
			return refreshed
		}

		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		entries, err := r.service.RecomputeRanking(callCtx, programID)
		cancel()
		if err != nil {
			r.logger.Error("Failed to refresh ranking",
				zap.String("program_id", programID),
				zap.Error(err))
			continue
		}

		refreshed++
		r.logger.Debug("Ranking refreshed",
			zap.String("program_id", programID),
			zap.Int("entries", len(entries)))
	}
	return refreshed
}
