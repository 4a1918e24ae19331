package ipc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const (
	PIDFileName    = ".agentpilot.pid"
	SocketFileName = ".agentpilot.sock"
)

// ErrAlreadyRunning is returned by AcquirePID when a live daemon owns the workspace.
var ErrAlreadyRunning = errors.New("agentpilot daemon already running")

// WritePID записывает PID в файл
func WritePID(workspacePath string, pid int) error {
	if err := os.WriteFile(GetPIDPath(workspacePath), []byte(strconv.Itoa(pid)+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// ReadPID читает PID из файла
func ReadPID(workspacePath string) (int, error) {
	data, err := os.ReadFile(GetPIDPath(workspacePath))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}
	return pid, nil
}

// IsRunning проверяет что процесс запущен
func IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// сигнал 0 только проверяет существование процесса
	return process.Signal(syscall.Signal(0)) == nil
}

// AcquirePID writes the current PID unless another live daemon already
// holds the workspace. A stale PID file is overwritten.
func AcquirePID(workspacePath string) error {
	if pid, err := ReadPID(workspacePath); err == nil && pid != os.Getpid() && IsRunning(pid) {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}
	return WritePID(workspacePath, os.Getpid())
}

// GetSocketPath возвращает путь к сокету
func GetSocketPath(workspacePath string) string {
	return filepath.Join(workspacePath, SocketFileName)
}

// GetPIDPath возвращает путь к PID файлу
func GetPIDPath(workspacePath string) string {
	return filepath.Join(workspacePath, PIDFileName)
}

// Cleanup удаляет PID файл и сокет
func Cleanup(workspacePath string) error {
	for _, path := range []string{GetPIDPath(workspacePath), GetSocketPath(workspacePath)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
