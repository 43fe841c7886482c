package crontab

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/aatumaykin/cronkeeper/internal/apperrors"
	"github.com/aatumaykin/cronkeeper/internal/logger"
)

const (
	DefaultLockTimeout = 5 * time.Second
	defaultFileMode    = 0o644
)

// StoreConfig configures a Store.
type StoreConfig struct {
	Path        string
	LockTimeout time.Duration
	// Backup copies the previous content to "<path>.bak" before each write.
	Backup bool
}

// SaveRecorder observes writes.
type SaveRecorder interface {
	ObserveSave(op, result string, d time.Duration)
}

// Store owns writes to one crontab file. Writes are serialized by an
// in-process mutex and an advisory flock on "<path>.lock", and land through
// temp file + rename. Reads take no lock.
type Store struct {
	path        string
	lockPath    string
	lockTimeout time.Duration
	backup      bool
	logger      *logger.Logger
	recorder    SaveRecorder

	mu sync.Mutex
}

// NewStore creates a Store. recorder may be nil.
func NewStore(cfg StoreConfig, log *logger.Logger, recorder SaveRecorder) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("crontab path is required")
	}
	path, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve crontab path: %w", err)
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		path:        path,
		lockPath:    path + ".lock",
		lockTimeout: cfg.LockTimeout,
		backup:      cfg.Backup,
		logger:      log,
		recorder:    recorder,
	}, nil
}

// Path returns the crontab file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the last committed file.
func (s *Store) Load() (*Document, error) {
	return Load(s.path)
}

// Save validates doc and, if every line is valid, atomically replaces the
// file with it. On validation failure the file is untouched and all invalid
// diagnostics are returned with a ValidationFailed error.
func (s *Store) Save(ctx context.Context, doc *Document) ([]Diagnostic, error) {
	start := time.Now()
	diags, err := s.save(ctx, doc)
	s.observe(ctx, "save", start, err)
	return diags, err
}

func (s *Store) save(ctx context.Context, doc *Document) ([]Diagnostic, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if diags := doc.Validate(); len(diags) > 0 {
		return diags, apperrors.Newf(apperrors.KindValidationFailed, "crontab has %d invalid line(s)", len(diags)).
			WithDetail("invalid_lines", len(diags))
	}

	if err := s.write(doc.String()); err != nil {
		return nil, err
	}
	return nil, nil
}

// Toggle flips one line under the write lock and returns its new text.
// The rest of the document is not validated.
func (s *Store) Toggle(ctx context.Context, lineNumber int) (string, error) {
	start := time.Now()
	line, err := s.toggle(ctx, lineNumber)
	s.observe(ctx, "toggle", start, err)
	return line, err
}

func (s *Store) toggle(ctx context.Context, lineNumber int) (string, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()

	doc, err := Load(s.path)
	if err != nil {
		return "", err
	}
	line, err := doc.Toggle(lineNumber)
	if err != nil {
		return "", err
	}
	if err := s.write(doc.String()); err != nil {
		return "", err
	}
	return line, nil
}

// lock takes the mutex, then the file lock. The returned func releases both.
func (s *Store) lock(ctx context.Context) (func(), error) {
	s.mu.Lock()
	fl, err := acquireLock(ctx, s.lockPath, s.lockTimeout)
	if err != nil {
		s.mu.Unlock()
		if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.Wrap(err, apperrors.KindTimeout, "timed out waiting for crontab lock").
				WithDetail("path", s.lockPath)
		}
		return nil, apperrors.IO(err, "failed to lock crontab").WithDetail("path", s.lockPath)
	}
	return func() {
		if err := fl.release(); err != nil {
			s.logger.Warn("failed to release crontab lock",
				logger.Field{Key: "path", Value: s.lockPath},
				logger.Field{Key: "error", Value: err})
		}
		s.mu.Unlock()
	}, nil
}

// write replaces the file atomically: temp file in the same directory,
// fsync, rename, fsync of the directory. Mode and ownership of an existing
// file are kept.
func (s *Store) write(content string) (err error) {
	dir := filepath.Dir(s.path)

	mode := fs.FileMode(defaultFileMode)
	var owner *syscall.Stat_t
	existing, statErr := os.Stat(s.path)
	switch {
	case statErr == nil:
		mode = existing.Mode().Perm()
		owner, _ = existing.Sys().(*syscall.Stat_t)
		if s.backup {
			if err := s.writeBackup(mode); err != nil {
				return err
			}
		}
	case !errors.Is(statErr, fs.ErrNotExist):
		return apperrors.IO(statErr, "failed to stat crontab").WithDetail("path", s.path)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return apperrors.IO(err, "failed to create temporary file").WithDetail("dir", dir)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.WriteString(content); err != nil {
		return apperrors.IO(err, "failed to write temporary file").WithDetail("path", tmpPath)
	}
	if err = tmp.Chmod(mode); err != nil {
		return apperrors.IO(err, "failed to set file mode").WithDetail("path", tmpPath)
	}
	if owner != nil && os.Geteuid() == 0 {
		if err = tmp.Chown(int(owner.Uid), int(owner.Gid)); err != nil {
			return apperrors.IO(err, "failed to set file owner").WithDetail("path", tmpPath)
		}
	}
	if err = tmp.Sync(); err != nil {
		return apperrors.IO(err, "failed to sync temporary file").WithDetail("path", tmpPath)
	}
	if err = tmp.Close(); err != nil {
		return apperrors.IO(err, "failed to close temporary file").WithDetail("path", tmpPath)
	}
	if err = os.Rename(tmpPath, s.path); err != nil {
		return apperrors.IO(err, "failed to replace crontab").WithDetail("path", s.path)
	}

	if syncErr := syncDir(dir); syncErr != nil {
		// The rename happened; only its durability across a crash is in doubt.
		s.logger.Warn("failed to sync crontab directory",
			logger.Field{Key: "dir", Value: dir},
			logger.Field{Key: "error", Value: syncErr})
	}

	s.logger.Debug("crontab written",
		logger.Field{Key: "path", Value: s.path},
		logger.Field{Key: "bytes", Value: len(content)})
	return nil
}

func (s *Store) writeBackup(mode fs.FileMode) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return apperrors.IO(err, "failed to read crontab for backup").WithDetail("path", s.path)
	}
	backupPath := s.path + ".bak"
	if err := os.WriteFile(backupPath, data, mode); err != nil {
		return apperrors.IO(err, "failed to write backup").WithDetail("path", backupPath)
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

func (s *Store) observe(ctx context.Context, op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = string(apperrors.KindOf(err))
		if result == "" {
			result = "error"
		}
	}
	elapsed := time.Since(start)

	fields := []logger.Field{
		{Key: "op", Value: op},
		{Key: "path", Value: s.path},
		{Key: "result", Value: result},
		{Key: "duration_ms", Value: elapsed.Milliseconds()},
	}
	switch {
	case err == nil:
		s.logger.InfoCtx(ctx, "crontab updated", fields...)
	case apperrors.Is(err, apperrors.KindValidationFailed), apperrors.Is(err, apperrors.KindNotFound),
		apperrors.Is(err, apperrors.KindBadRequest):
		s.logger.WarnCtx(ctx, "crontab update rejected", append(fields, logger.Field{Key: "error", Value: err.Error()})...)
	default:
		s.logger.ErrorCtx(ctx, "crontab update failed", err, fields...)
	}

	if s.recorder != nil {
		s.recorder.ObserveSave(op, result, elapsed)
	}
}
