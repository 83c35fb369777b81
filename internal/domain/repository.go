package domain

import "context"

// ProcessRegistry enumerates live processes on the host.
// Implementation: uses gopsutil for cross-platform support.
type ProcessRegistry interface {
	// Snapshot returns the names of all live, non-zombie processes.
	// Processes that exit during enumeration are omitted, never reported.
	Snapshot(ctx context.Context) (ProcessSnapshot, error)

	// List returns live processes sorted case-insensitively by name,
	// for display in a process picker.
	List(ctx context.Context) ([]ProcessInfo, error)
}

// Launcher starts a target's command as a detached child process.
type Launcher interface {
	// Launch runs command without waiting for it and returns the child PID.
	Launch(ctx context.Context, command string) (int, error)
}

// TargetSource is the read side of the watchlist used by the supervisor.
type TargetSource interface {
	// All returns a point-in-time copy of the targets in insertion order.
	All() []WatchTarget

	// Len returns the number of targets.
	Len() int
}

// EventLog is the append-only record of supervision actions.
type EventLog interface {
	// Append records an informational message.
	Append(message string) LogEvent

	// Emit records a classified message, optionally tied to a target.
	Emit(kind EventKind, target, message string) LogEvent
}

// Reconciler runs a single poll cycle.
type Reconciler interface {
	Reconcile(ctx context.Context) CycleResult
}

// StoredEvent is a LogEvent read back from history, tagged with the
// supervisor session that produced it.
type StoredEvent struct {
	Session string
	LogEvent
}

// EventStore persists event log entries across supervisor sessions.
// Implementation: SQLCipher encrypted SQLite database.
type EventStore interface {
	// Record persists one event under the current session.
	Record(event LogEvent) error

	// Recent returns up to limit most recent events, oldest first.
	Recent(limit int) ([]StoredEvent, error)

	// Session returns the ID stamped on events recorded by this store.
	Session() string

	// Close releases resources (e.g., database connection).
	Close() error
}

// KeyProvider abstracts the source of encryption keys.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}
