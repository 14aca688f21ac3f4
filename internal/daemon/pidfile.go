// Package daemon tracks the running pea server through a PID file so other
// commands can find and stop it.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

var (
	// ErrPIDFileNotFound is returned when the PID file doesn't exist.
	ErrPIDFileNotFound = errors.New("PID file not found")

	// ErrAlreadyRunning is returned by Acquire when a live process owns the file.
	ErrAlreadyRunning = errors.New("server already running")

	// ErrNotRunning is returned by Stop when no live process owns the file.
	ErrNotRunning = errors.New("server not running")
)

// pollInterval is how often Stop checks whether the process exited.
const pollInterval = 50 * time.Millisecond

// PIDFile manages a server process ID file.
type PIDFile struct {
	path string
}

// NewPIDFile creates a new PIDFile manager for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// DefaultPath returns server.pid inside dataDir.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, "server.pid")
}

// Path returns the PID file path.
func (p *PIDFile) Path() string {
	return p.path
}

// Acquire records the current process, replacing a stale file left by a
// process that no longer exists.
func (p *PIDFile) Acquire() error {
	if pid, err := p.Read(); err == nil && pid != os.Getpid() && processExists(pid) {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}
	return p.Write()
}

// Write writes the current process's PID to the file, creating the
// directory if needed.
func (p *PIDFile) Write() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("failed to create PID directory: %w", err)
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// Read reads the PID from the file.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrPIDFileNotFound
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID in file %s: %q", p.path, data)
	}
	return pid, nil
}

// Remove deletes the PID file. A missing file is not an error.
func (p *PIDFile) Remove() error {
	err := os.Remove(p.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// Release removes the file only if it still names the current process.
func (p *PIDFile) Release() error {
	if pid, err := p.Read(); err != nil || pid != os.Getpid() {
		return nil
	}
	return p.Remove()
}

// IsRunning reports whether the recorded process is alive.
func (p *PIDFile) IsRunning() bool {
	pid, err := p.Read()
	if err != nil {
		return false
	}
	return processExists(pid)
}

// Signal sends a signal to the process with the stored PID.
func (p *PIDFile) Signal(sig syscall.Signal) error {
	pid, err := p.Read()
	if err != nil {
		return fmt.Errorf("failed to read PID: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	if err := process.Signal(sig); err != nil {
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}
	return nil
}

// Stop sends SIGTERM and waits up to grace for the process to exit, then
// sends SIGKILL. The PID file is removed once the process is gone.
func (p *PIDFile) Stop(ctx context.Context, grace time.Duration) error {
	pid, err := p.Read()
	if err != nil {
		if errors.Is(err, ErrPIDFileNotFound) {
			return ErrNotRunning
		}
		return err
	}
	if !processExists(pid) {
		_ = p.Remove()
		return ErrNotRunning
	}

	if err := p.Signal(syscall.SIGTERM); err != nil {
		return err
	}
	if waitExit(ctx, pid, grace) {
		return p.Remove()
	}

	if err := p.Signal(syscall.SIGKILL); err != nil && processExists(pid) {
		return err
	}
	if !waitExit(ctx, pid, grace) {
		return fmt.Errorf("process %d did not exit", pid)
	}
	return p.Remove()
}

func waitExit(ctx context.Context, pid int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()

	for {
		if !processExists(pid) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return !processExists(pid)
		case <-tick.C:
		}
	}
}

// processExists checks if a process with the given PID exists.
func processExists(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix FindProcess always succeeds; signal 0 probes for existence.
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
