// Package infra implements infrastructure concerns (process table, launching, history).
package infra

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/procwatch/internal/domain"
)

// ProcessRegistryImpl implements domain.ProcessRegistry using gopsutil.
type ProcessRegistryImpl struct{}

// NewProcessRegistry creates a new process registry.
func NewProcessRegistry() domain.ProcessRegistry {
	return &ProcessRegistryImpl{}
}

// Snapshot returns the names of all live, non-zombie processes.
func (r *ProcessRegistryImpl) Snapshot(ctx context.Context) (domain.ProcessSnapshot, error) {
	procs, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}

	snap := make(domain.ProcessSnapshot, len(procs))
	for _, p := range procs {
		snap[p.Name] = append(snap[p.Name], p.PID)
	}
	return snap, nil
}

// List returns live processes sorted case-insensitively by name, then PID.
func (r *ProcessRegistryImpl) List(ctx context.Context) ([]domain.ProcessInfo, error) {
	procs, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(procs, func(i, j int) bool {
		a, b := strings.ToLower(procs[i].Name), strings.ToLower(procs[j].Name)
		if a != b {
			return a < b
		}
		return procs[i].PID < procs[j].PID
	})
	return procs, nil
}

func (r *ProcessRegistryImpl) scan(ctx context.Context) ([]domain.ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	found := make([]domain.ProcessInfo, 0, len(procs))
	for _, p := range procs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue // Process may have exited
		}
		if !isLive(ctx, p) {
			continue
		}
		found = append(found, domain.ProcessInfo{PID: int(p.Pid), Name: name})
	}
	return found, nil
}

// isLive filters zombies and processes that vanished after being listed.
// An unreadable status (common for other users' processes) counts as live.
func isLive(ctx context.Context, p *process.Process) bool {
	status, err := p.StatusWithContext(ctx)
	if err != nil {
		return !errors.Is(err, process.ErrorProcessNotRunning)
	}
	for _, s := range status {
		if s == process.Zombie {
			return false
		}
	}
	return true
}

// Ensure ProcessRegistryImpl implements domain.ProcessRegistry.
var _ domain.ProcessRegistry = (*ProcessRegistryImpl)(nil)
