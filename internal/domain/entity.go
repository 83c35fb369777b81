// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"time"
)

// LogTimeLayout is the timestamp format used when rendering events.
const LogTimeLayout = "2006-01-02 15:04:05"

// WatchTarget is a process name the supervisor keeps alive and the command
// used to relaunch it.
type WatchTarget struct {
	Name    string // Exact, case-sensitive process name
	Command string // Executable path, optionally followed by arguments
}

// EventKind classifies an entry in the event log.
type EventKind string

const (
	EventInfo           EventKind = "info"
	EventStarted        EventKind = "started"
	EventStopped        EventKind = "stopped"
	EventTarget         EventKind = "target"
	EventRestarted      EventKind = "restarted"
	EventLaunchFailed   EventKind = "launch_failed"
	EventSnapshotFailed EventKind = "snapshot_failed"
)

// LogEvent is one immutable entry in the event log.
type LogEvent struct {
	Seq       uint64
	Timestamp time.Time
	Kind      EventKind
	Target    string // Empty for supervisor-level events
	Message   string
}

// String renders the event the way the log viewer displays it.
func (e LogEvent) String() string {
	return "[" + e.Timestamp.Format(LogTimeLayout) + "] " + e.Message
}

// ProcessInfo describes one live process on the host.
type ProcessInfo struct {
	PID  int    `json:"pid"`
	Name string `json:"name"`
}

// ProcessSnapshot maps live process names to their PIDs.
// PIDs are informational; liveness is decided by name only.
type ProcessSnapshot map[string][]int

// Has reports whether at least one live process carries name.
func (s ProcessSnapshot) Has(name string) bool {
	return len(s[name]) > 0
}

// Names returns the distinct process names in the snapshot.
func (s ProcessSnapshot) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	return names
}

// CycleResult captures what happened during a single poll cycle.
type CycleResult struct {
	Checked    int
	Alive      []string
	Restarted  []string
	Failed     []string
	Err        error // Set when the process snapshot could not be taken
	StartedAt  time.Time
	DurationMs int64
}
