package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

const PIDFilename = ".aicodewith.pid"

// Manager tracks the local proxy process through a PID file.
type Manager struct {
	pidFile string
	mu      sync.RWMutex

	// signal is replaced in tests.
	signal func(pid int, sig syscall.Signal) error
}

func NewManager(baseDir string) *Manager {
	return &Manager{
		pidFile: filepath.Join(baseDir, PIDFilename),
		signal:  syscall.Kill,
	}
}

func (m *Manager) PIDFile() string {
	return m.pidFile
}

func (m *Manager) WritePID() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.pidFile), 0750); err != nil {
		return fmt.Errorf("create pid directory: %w", err)
	}

	pid := strconv.Itoa(os.Getpid())

	return os.WriteFile(m.pidFile, []byte(pid), 0600)
}

func (m *Manager) ReadPID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := os.ReadFile(m.pidFile)
	if err != nil {
		return 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0 // Invalid PID format
	}

	return pid
}

// IsRunning removes a stale PID file as a side effect.
func (m *Manager) IsRunning() bool {
	pid := m.ReadPID()
	if pid == 0 {
		return false
	}

	if err := m.signal(pid, 0); err != nil {
		m.CleanupPID()
		return false
	}

	return true
}

func (m *Manager) Stop() error {
	pid := m.ReadPID()
	if pid == 0 {
		return nil
	}

	if err := m.signal(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM to process %d: %w", pid, err)
	}

	// Wait for process to exit
	for i := 0; i < 50; i++ { // 5 seconds timeout
		if !m.IsRunning() {
			break
		}

		time.Sleep(100 * time.Millisecond)
	}

	m.CleanupPID()

	return nil
}

func (m *Manager) CleanupPID() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(m.pidFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to remove PID file: %v\n", err)
	}
}

func (m *Manager) WaitForService(timeout time.Duration) bool {
	expire := time.Now().Add(timeout)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for time.Now().Before(expire) {
		if m.IsRunning() {
			return true
		}

		<-ticker.C
	}

	return false
}

// StartBackground re-executes the current binary with args and waits for
// it to write its PID file. It reports false when a proxy was already up.
func (m *Manager) StartBackground(args ...string) (bool, error) {
	if m.IsRunning() {
		return false, nil
	}

	cmd := exec.Command(os.Args[0], args...)
	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("failed to start service: %w", err)
	}

	if !m.WaitForService(10 * time.Second) {
		return false, errors.New("service startup timeout")
	}

	return true, nil
}
