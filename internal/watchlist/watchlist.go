// Package watchlist holds the name → command targets the supervisor keeps alive.
// The presentation layer owns and mutates it; the supervisor only reads copies.
package watchlist

import (
	"strings"
	"sync"

	"github.com/eliteGoblin/focusd/procwatch/internal/domain"
)

// Watchlist is an insertion-ordered, concurrency-safe set of watch targets.
type Watchlist struct {
	mu      sync.RWMutex
	order   []string
	targets map[string]domain.WatchTarget
}

// New creates an empty watchlist.
func New() *Watchlist {
	return &Watchlist{
		targets: make(map[string]domain.WatchTarget),
	}
}

// NewWithTargets creates a watchlist pre-populated with targets (for testing
// and config loading). Later duplicates replace earlier ones.
func NewWithTargets(targets ...domain.WatchTarget) (*Watchlist, error) {
	w := New()
	for _, t := range targets {
		if err := w.Set(t.Name, t.Command); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Set inserts or replaces the target for name. A replaced target keeps its
// original position. The command is not checked here; a bad path surfaces
// when a launch is attempted.
func (w *Watchlist) Set(name, command string) error {
	if name == "" || strings.TrimSpace(command) == "" {
		return domain.ErrInvalidTarget
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.targets[name]; !ok {
		w.order = append(w.order, name)
	}
	w.targets[name] = domain.WatchTarget{Name: name, Command: command}
	return nil
}

// Get returns the target registered for name.
func (w *Watchlist) Get(name string) (domain.WatchTarget, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	t, ok := w.targets[name]
	return t, ok
}

// Remove deletes the target for name and reports whether it existed.
func (w *Watchlist) Remove(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.targets[name]; !ok {
		return false
	}
	delete(w.targets, name)
	for i, n := range w.order {
		if n == name {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return true
}

// All returns a copy of the targets in insertion order.
func (w *Watchlist) All() []domain.WatchTarget {
	w.mu.RLock()
	defer w.mu.RUnlock()

	result := make([]domain.WatchTarget, 0, len(w.order))
	for _, name := range w.order {
		result = append(result, w.targets[name])
	}
	return result
}

// Names returns the target names in insertion order.
func (w *Watchlist) Names() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	names := make([]string, len(w.order))
	copy(names, w.order)
	return names
}

// Len returns the number of targets.
func (w *Watchlist) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.order)
}

// Ensure Watchlist implements domain.TargetSource.
var _ domain.TargetSource = (*Watchlist)(nil)
