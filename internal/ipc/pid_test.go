package ipc

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "cronkeeper.pid")

	require.NoError(t, WritePID(path, os.Getpid()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), data[len(data)-1])
	pid, err := ReadPID(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestWritePID_AlreadyRunning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cronkeeper.pid")
	// Родительский процесс теста гарантированно жив
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())+"\n"), 0o644))

	err := WritePID(path, os.Getpid())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestWritePID_StaleFileReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cronkeeper.pid")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	require.NoError(t, WritePID(path, os.Getpid()))
	pid, err := ReadPID(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestReadPID_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadPID(filepath.Join(dir, "missing.pid"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(dir, "bad.pid")
	require.NoError(t, os.WriteFile(path, []byte("-5\n"), 0o644))
	_, err = ReadPID(path)
	assert.ErrorContains(t, err, "invalid PID file")
}

func TestIsRunning(t *testing.T) {
	assert.True(t, IsRunning(os.Getpid()))
	assert.False(t, IsRunning(0))
	assert.False(t, IsRunning(-1))
}

func TestStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cronkeeper.pid")

	pid, running, err := Status(path)
	require.NoError(t, err)
	assert.Zero(t, pid)
	assert.False(t, running)

	require.NoError(t, WritePID(path, os.Getpid()))
	pid, running, err = Status(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, running)
}

func TestCleanup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cronkeeper.pid")
	require.NoError(t, WritePID(path, os.Getpid()))

	// Чужой PID не трогаем
	require.NoError(t, Cleanup(path, os.Getpid()+1))
	assert.FileExists(t, path)

	require.NoError(t, Cleanup(path, os.Getpid()))
	assert.NoFileExists(t, path)

	// Повторный вызов безопасен
	assert.NoError(t, Cleanup(path, os.Getpid()))
}
