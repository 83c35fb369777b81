// Package daemon implements the supervisor lifecycle and polling loop.
package daemon

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/procwatch/internal/domain"
	"github.com/eliteGoblin/focusd/procwatch/internal/metrics"
)

// DefaultPollInterval is how often targets are checked.
const DefaultPollInterval = 5 * time.Second

// SupervisorConfig holds supervisor configuration.
type SupervisorConfig struct {
	PollInterval time.Duration // How often to run a poll cycle (default 5s)
}

// DefaultSupervisorConfig returns default supervisor configuration.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		PollInterval: DefaultPollInterval,
	}
}

// Supervisor keeps watch targets alive. It owns only the run state; the
// watchlist belongs to the caller and is read once per cycle.
//
// States: Idle → Running on Start, Running → Idle on Stop. Stop is
// cooperative: a cycle already in flight finishes, and the loop exits
// before the next one.
type Supervisor struct {
	config     SupervisorConfig
	targets    domain.TargetSource
	reconciler domain.Reconciler
	events     domain.EventLog
	logger     *zap.Logger

	running atomic.Bool

	mu     sync.Mutex // serializes Start/Stop
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSupervisor creates a new supervisor.
func NewSupervisor(
	config SupervisorConfig,
	targets domain.TargetSource,
	reconciler domain.Reconciler,
	events domain.EventLog,
	logger *zap.Logger,
) *Supervisor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	return &Supervisor{
		config:     config,
		targets:    targets,
		reconciler: reconciler,
		events:     events,
		logger:     logger,
	}
}

// Start begins supervision on a background goroutine and returns immediately.
// It fails with domain.ErrNoTargets on an empty watchlist and with
// domain.ErrAlreadyRunning when supervision is already active.
func (s *Supervisor) Start() error {
	_, err := s.start()
	return err
}

// start does the work of Start and returns a channel closed when the new
// polling loop exits.
func (s *Supervisor) start() (<-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets := s.targets.All()
	if len(targets) == 0 {
		return nil, domain.ErrNoTargets
	}
	if s.running.Load() {
		return nil, domain.ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.running.Store(true)
	metrics.SetRunning(true)

	s.logger.Info("supervisor started",
		zap.Int("targets", len(targets)),
		zap.Duration("interval", s.config.PollInterval))
	s.events.Emit(domain.EventStarted, "",
		fmt.Sprintf("supervision started, watching %d target(s):", len(targets)))
	for _, t := range targets {
		s.events.Emit(domain.EventTarget, t.Name, fmt.Sprintf("• %s → %s", t.Name, t.Command))
	}

	s.wg.Add(1)
	go s.loop(ctx, done)
	return done, nil
}

// Stop requests the polling loop to exit and returns immediately.
// Stopping an idle supervisor is a no-op.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return nil
	}
	s.running.Store(false)
	s.cancel()
	metrics.SetRunning(false)

	s.logger.Info("supervisor stopping")
	s.events.Emit(domain.EventStopped, "", "supervision stopped")
	return nil
}

// IsRunning reports whether supervision is active.
func (s *Supervisor) IsRunning() bool {
	return s.running.Load()
}

// Wait blocks until every polling loop started so far has exited.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

// Run starts supervision and blocks until ctx is canceled or Stop is
// called elsewhere, then waits for its own loop to exit.
func (s *Supervisor) Run(ctx context.Context) error {
	done, err := s.start()
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		_ = s.Stop()
		<-done
	case <-done:
	}
	return nil
}

// loop runs a cycle immediately, then once per interval until ctx is canceled.
// Cancellation is only checked between cycles; a cycle in flight runs to
// completion.
func (s *Supervisor) loop(ctx context.Context, done chan struct{}) {
	defer s.wg.Done()
	defer close(done)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	cycleCtx := context.WithoutCancel(ctx)
	for {
		if ctx.Err() != nil {
			s.logger.Debug("polling loop exited")
			return
		}

		s.runCycle(cycleCtx)

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
}

// runCycle executes one poll cycle and logs a summary.
func (s *Supervisor) runCycle(ctx context.Context) {
	result := s.reconciler.Reconcile(ctx)
	if result.Err != nil {
		return
	}

	if len(result.Restarted) > 0 || len(result.Failed) > 0 {
		s.logger.Info("poll cycle completed",
			zap.Int("checked", result.Checked),
			zap.Int("restarted", len(result.Restarted)),
			zap.Int("failed", len(result.Failed)),
			zap.Int64("duration_ms", result.DurationMs))
	} else {
		s.logger.Debug("poll cycle completed", zap.Int("checked", result.Checked))
	}
}
