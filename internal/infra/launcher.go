package infra

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/procwatch/internal/domain"
)

// shellMetaChars trigger running a command through the platform shell.
const shellMetaChars = "|&;<>*?`$\"'(){}[]~"

var errEmptyCommand = errors.New("empty command")

// shellBuiltins are resolved by the shell itself, never via PATH.
var shellBuiltins = map[string]bool{
	"exit": true, "exec": true, "cd": true, "echo": true, "export": true,
	"set": true, "trap": true, "ulimit": true, "umask": true, "nohup": true,
	"true": true, "false": true, ":": true, ".": true, "source": true,
	"if": true, "for": true, "while": true, "until": true, "case": true,
	"call": true, "start": true,
}

// FileChecker abstracts file system checks for testing
type FileChecker interface {
	Exists(path string) bool
	LookPath(file string) (string, error)
}

// RealFileChecker checks real filesystem
type RealFileChecker struct{}

// Exists checks if a file/directory exists
func (r *RealFileChecker) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LookPath resolves file the way the shell would.
func (r *RealFileChecker) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// LauncherImpl implements domain.Launcher with os/exec.
// Children run in their own session with no stdio, so they outlive
// the supervisor.
type LauncherImpl struct {
	fileChecker FileChecker
	logger      *zap.Logger
}

// NewLauncher creates a launcher backed by the real filesystem.
func NewLauncher(logger *zap.Logger) *LauncherImpl {
	return &LauncherImpl{
		fileChecker: &RealFileChecker{},
		logger:      logger,
	}
}

// NewLauncherWithDeps creates a launcher with injectable dependencies (for testing)
func NewLauncherWithDeps(logger *zap.Logger, fileChecker FileChecker) *LauncherImpl {
	return &LauncherImpl{
		fileChecker: fileChecker,
		logger:      logger,
	}
}

// Launch starts command detached and returns the child PID.
// The child is reaped in the background once it exits.
func (l *LauncherImpl) Launch(ctx context.Context, command string) (int, error) {
	cmd, err := l.BuildCommand(command)
	if err != nil {
		return 0, err
	}

	configureSysProcAttr(cmd)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid
	go func() {
		err := cmd.Wait()
		if l.logger != nil {
			l.logger.Debug("launched process exited",
				zap.Int("pid", pid),
				zap.String("command", command),
				zap.Error(err))
		}
	}()

	return pid, nil
}

// BuildCommand turns a command string into an *exec.Cmd.
// A string naming an existing file runs as-is, so paths with spaces work.
// Strings with shell metacharacters go through the platform shell;
// anything else is split on whitespace into program and arguments.
func (l *LauncherImpl) BuildCommand(command string) (*exec.Cmd, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, errEmptyCommand
	}

	if l.fileChecker.Exists(command) {
		path := command
		if !strings.ContainsRune(path, filepath.Separator) && !strings.ContainsRune(path, '/') {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
		}
		// #nosec G204
		return exec.Command(path), nil
	}

	if strings.ContainsAny(command, shellMetaChars) {
		// The shell starts fine even when its program is missing.
		if prog := shellProgram(command); prog != "" {
			if _, err := l.fileChecker.LookPath(prog); err != nil {
				return nil, err
			}
		}
		return getShellCommand(command), nil
	}

	parts := strings.Fields(command)
	// #nosec G204
	return exec.Command(parts[0], parts[1:]...), nil
}

// shellProgram returns the program a shell command line would run first,
// or "" when it cannot be known without running the shell (builtins,
// variable assignments, expansions).
func shellProgram(command string) string {
	command = strings.TrimSpace(command)
	if command == "" {
		return ""
	}

	var word string
	switch q := command[0]; q {
	case '\'', '"':
		end := strings.IndexByte(command[1:], q)
		if end < 0 {
			return ""
		}
		word = command[1 : end+1]
	default:
		end := strings.IndexAny(command, " \t\n;|&<>()")
		if end < 0 {
			end = len(command)
		}
		word = command[:end]
	}

	if word == "" || shellBuiltins[word] || strings.ContainsAny(word, "$`*?[]{}~'\"") {
		return ""
	}
	if filepath.Separator == '/' && strings.ContainsRune(word, '\\') {
		return ""
	}
	if i := strings.IndexByte(word, '='); i >= 0 && !strings.ContainsRune(word[:i], '/') {
		return "" // FOO=bar cmd
	}
	return word
}

// Ensure LauncherImpl implements domain.Launcher.
var _ domain.Launcher = (*LauncherImpl)(nil)
