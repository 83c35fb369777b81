// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// FakeTarget is a copy of the system sleep binary under a unique name, so
// the process table shows a name nothing else on the host uses.
type FakeTarget struct {
	Dir  string
	Name string
}

// NewFakeTarget creates a fake target generator in dir.
// Names stay under 15 bytes to survive the Linux comm limit.
func NewFakeTarget(dir string) *FakeTarget {
	return &FakeTarget{
		Dir:  dir,
		Name: fmt.Sprintf("pwfix%06d", time.Now().UnixNano()%1000000),
	}
}

// Path returns where the fake binary is written.
func (f *FakeTarget) Path() string {
	return filepath.Join(f.Dir, f.Name)
}

// Command returns a command line that keeps the fake target alive for d.
func (f *FakeTarget) Command(d time.Duration) string {
	return fmt.Sprintf("%s %d", f.Path(), int(d.Seconds()))
}

// Create copies the sleep binary into place.
func (f *FakeTarget) Create() error {
	src, err := exec.LookPath("sleep")
	if err != nil {
		return fmt.Errorf("sleep not found: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(f.Path(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Cleanup removes the fake binary.
func (f *FakeTarget) Cleanup() error {
	return os.RemoveAll(f.Path())
}
