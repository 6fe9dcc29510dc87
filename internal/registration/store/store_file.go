package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gemnet/internal/registration/models"
)

const sessionFileName = "onboarding.json"

// FileStore persists the session record as a JSON file under a state
// directory. This is the default store for a single-machine install.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// FileStoreOption configures a FileStore instance.
type FileStoreOption func(*FileStore)

// WithFileLogger sets the logger for corrupt-record warnings.
func WithFileLogger(logger *slog.Logger) FileStoreOption {
	return func(s *FileStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFile constructs a file-backed progress store rooted at dir.
// The directory is created if missing.
func NewFile(dir string, opts ...FileStoreOption) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	s := &FileStore{
		path:   filepath.Join(dir, sessionFileName),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Load reads the stored session. A missing file means a fresh start; a
// record that cannot be parsed is treated the same way rather than
// wedging the flow on unreadable state.
func (s *FileStore) Load(ctx context.Context) (models.Session, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return models.EmptySession(), nil
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("read session record: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable session record", "path", s.path, "error", err)
		return models.EmptySession(), nil
	}
	return session, nil
}

// Save writes the record to a temp file in the same directory and renames it
// into place, so a crash mid-write never leaves a half-written record.
func (s *FileStore) Save(_ context.Context, session models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), sessionFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp session record: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write session record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close session record: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace session record: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(_ context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session record: %w", err)
	}
	return nil
}
