//go:build !windows

package infra

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr starts the child in a new session so it is
// detached from our terminal and survives supervisor exit.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}

// getShellCommand returns a shell command for Unix systems
func getShellCommand(script string) *exec.Cmd {
	// #nosec G204
	return exec.Command("/bin/sh", "-c", script)
}
