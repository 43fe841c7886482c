// Package ipc tracks the running gateway through its pid file so that CLI
// commands can find it.
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

// ErrAlreadyRunning is returned by WritePID when the pid file names a live process.
var ErrAlreadyRunning = errors.New("cronkeeper is already running")

// WritePID записывает PID в файл. Если файл указывает на живой процесс,
// возвращается ErrAlreadyRunning; устаревший файл перезаписывается.
func WritePID(path string, pid int) error {
	if existing, err := ReadPID(path); err == nil && existing != pid && IsRunning(existing) {
		return fmt.Errorf("%w (pid %d, %s)", ErrAlreadyRunning, existing, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create PID directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	return nil
}

// ReadPID читает PID из файла
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID file %s: %q", path, strings.TrimSpace(string(data)))
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

	// Signal 0 only checks existence; EPERM means it exists under another user.
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// Status reports the pid recorded in path and whether it is alive.
// A missing file is not an error: the gateway is simply not running.
func Status(path string) (pid int, running bool, err error) {
	pid, err = ReadPID(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return pid, IsRunning(pid), nil
}

// Cleanup удаляет PID файл, если он принадлежит pid
func Cleanup(path string, pid int) error {
	existing, err := ReadPID(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err == nil && existing != pid {
		return nil
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
