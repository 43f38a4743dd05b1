// =============================
// File: internal/pump/store.go
// =============================
package pump

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/sugawarayuuta/sonnet"
	"go.uber.org/zap"
)

// Store owns the durable pump-state collection.
type Store interface {
	Load() (States, error)
	Save(States) error
}

// FileStore keeps the collection as a single JSON array on disk.
// Load and Save each hold the store mutex for the duration of the I/O only.
type FileStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileStore creates a store backed by path. The file is not touched until Load or Save.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the whole collection. A missing file yields ErrStateNotFound,
// unparseable content yields ErrStateCorrupt.
func (s *FileStore) Load() (States, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStateNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to read pump state: %w", err)
	}

	var states States
	if err := sonnet.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStateCorrupt, s.path, err)
	}

	s.logger.Debug("Pump state loaded", zap.String("path", s.path), zap.Int("tokens", len(states)))
	return states, nil
}

// Save writes the whole collection through an fsynced temp file and rename,
// so neither a failed write nor a crash leaves a truncated state file behind.
func (s *FileStore) Save(states States) error {
	if states == nil {
		states = States{}
	}
	data, err := sonnet.Marshal(states)
	if err != nil {
		return fmt.Errorf("failed to encode pump state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(s.path, data); err != nil {
		return err
	}

	s.logger.Debug("Pump state saved", zap.String("path", s.path), zap.Int("tokens", len(states)))
	return nil
}

// writeFileAtomic replaces path with data; the temp file is fsynced before
// the rename and lives next to path so the rename never crosses devices.
func writeFileAtomic(path string, data []byte) error {
	if err := renameio.WriteFile(path, data, 0644, renameio.WithTempDir(filepath.Dir(path))); err != nil {
		return fmt.Errorf("failed to write pump state: %w", err)
	}
	return nil
}

// EnsureFile creates an empty collection at path if nothing exists there yet.
// It reports whether a file was created.
func EnsureFile(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to stat pump state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := writeFileAtomic(path, []byte("[]")); err != nil {
		return false, err
	}
	return true, nil
}

// Transact runs one read-modify-write cycle against store.
//
// Load and Save are separate critical sections: fn runs unlocked, so two
// concurrent cycles may interleave and the later Save wins. Save only happens
// when fn reports a change and returns no error.
func Transact(store Store, fn func(States) (bool, error)) error {
	states, err := store.Load()
	if err != nil {
		return err
	}
	changed, err := fn(states)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return store.Save(states)
}
