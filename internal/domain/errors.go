package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTargets is returned by Start when the watchlist is empty.
	ErrNoTargets = errors.New("no watch targets configured")

	// ErrAlreadyRunning is returned by Start when supervision is active.
	ErrAlreadyRunning = errors.New("supervisor is already running")

	// ErrInvalidTarget is returned when a target has an empty name or command.
	ErrInvalidTarget = errors.New("watch target requires a name and a command")
)

// LaunchError reports that a target's command could not be executed.
type LaunchError struct {
	Target  string
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %q for %s: %v", e.Command, e.Target, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
