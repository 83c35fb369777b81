// Package usecase contains application business logic.
package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/procwatch/internal/domain"
	"github.com/eliteGoblin/focusd/procwatch/internal/metrics"
)

// RestarterImpl implements domain.Reconciler: one pass of
// snapshot → compare → relaunch missing targets.
type RestarterImpl struct {
	registry domain.ProcessRegistry
	launcher domain.Launcher
	targets  domain.TargetSource
	events   domain.EventLog
	logger   *zap.Logger
}

// NewRestarter creates a new restarter.
func NewRestarter(
	registry domain.ProcessRegistry,
	launcher domain.Launcher,
	targets domain.TargetSource,
	events domain.EventLog,
	logger *zap.Logger,
) *RestarterImpl {
	return &RestarterImpl{
		registry: registry,
		launcher: launcher,
		targets:  targets,
		events:   events,
		logger:   logger,
	}
}

// Reconcile runs one poll cycle. It never returns an error: every outcome is
// written to the event log and summarized in the result.
func (r *RestarterImpl) Reconcile(ctx context.Context) domain.CycleResult {
	start := time.Now()
	result := domain.CycleResult{
		Alive:     make([]string, 0),
		Restarted: make([]string, 0),
		Failed:    make([]string, 0),
		StartedAt: start,
	}

	snap, err := r.registry.Snapshot(ctx)
	if err != nil && ctx.Err() != nil {
		// Stopped mid-enumeration; nothing to report.
		result.Err = err
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}
	if err != nil {
		// No launches on a failed read: every target would look missing.
		r.logger.Warn("process enumeration failed", zap.Error(err))
		r.events.Emit(domain.EventSnapshotFailed, "", fmt.Sprintf("process enumeration failed: %v", err))
		metrics.IncSnapshotFailure()
		result.Err = err
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	targets := r.targets.All()
	result.Checked = len(targets)

	for _, target := range targets {
		if snap.Has(target.Name) {
			result.Alive = append(result.Alive, target.Name)
			continue
		}

		pid, err := r.launcher.Launch(ctx, target.Command)
		if err != nil {
			launchErr := &domain.LaunchError{Target: target.Name, Command: target.Command, Err: err}
			r.logger.Warn("failed to restart target",
				zap.String("target", target.Name),
				zap.String("command", target.Command),
				zap.Error(launchErr))
			r.events.Emit(domain.EventLaunchFailed, target.Name,
				fmt.Sprintf("%s failed to start: %v", target.Name, err))
			metrics.IncLaunchFailure(target.Name)
			result.Failed = append(result.Failed, target.Name)
			continue
		}

		r.logger.Info("restarted target",
			zap.String("target", target.Name),
			zap.String("command", target.Command),
			zap.Int("pid", pid))
		r.events.Emit(domain.EventRestarted, target.Name, fmt.Sprintf("%s restarted", target.Name))
		metrics.IncRestart(target.Name)
		result.Restarted = append(result.Restarted, target.Name)
	}

	elapsed := time.Since(start)
	result.DurationMs = elapsed.Milliseconds()
	metrics.ObserveCycle(elapsed, result.Checked)

	return result
}

// Ensure RestarterImpl implements domain.Reconciler.
var _ domain.Reconciler = (*RestarterImpl)(nil)
