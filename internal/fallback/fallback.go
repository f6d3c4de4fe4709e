// Package fallback is the local, size-bounded persistence used when the
// primary record store is unreachable. The whole property collection is one
// JSON blob on disk; there is no query language, callers filter in memory.
package fallback

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/brickworks/listings/internal/model"
)

// ErrCapacityExceeded means a write would push the serialized collection
// past the configured capacity. Callers get one shot at shrinking the
// payload (image compression) before giving up.
var ErrCapacityExceeded = errors.New("fallback store capacity exceeded")

// Store persists the full property collection as a single blob.
type Store struct {
	mu       sync.Mutex
	path     string
	capacity int64
}

func NewStore(path string, capacity int64) *Store {
	return &Store{path: path, capacity: capacity}
}

// Capacity returns the configured size limit in bytes.
func (s *Store) Capacity() int64 {
	return s.capacity
}

// Load reads the stored collection. A missing file is an empty collection,
// not an error.
func (s *Store) Load() ([]*model.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]*model.Property, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read fallback store: %w", err)
	}

	var properties []*model.Property
	err = json.Unmarshal(data, &properties)
	if err != nil {
		return nil, fmt.Errorf("failed to decode fallback store: %w", err)
	}

	return properties, nil
}

// Save replaces the stored collection. The serialized size is checked
// against capacity before anything touches disk; the write itself goes
// through a temp file and rename so a crash never leaves a torn blob.
func (s *Store) Save(properties []*model.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(properties)
}

func (s *Store) save(properties []*model.Property) error {
	data, err := json.Marshal(properties)
	if err != nil {
		return fmt.Errorf("failed to encode fallback store: %w", err)
	}

	if int64(len(data)) > s.capacity {
		return fmt.Errorf("%w: %d bytes > %d", ErrCapacityExceeded, len(data), s.capacity)
	}

	dir := filepath.Dir(s.path)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return fmt.Errorf("failed to create fallback directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".fallback-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Close()
	} else {
		_ = tmp.Close()
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write fallback store: %w", err)
	}

	err = os.Rename(tmp.Name(), s.path)
	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace fallback store: %w", err)
	}

	slog.Debug("fallback store written", "path", s.path, "bytes", len(data), "records", len(properties))
	return nil
}

// Append adds one property to the collection.
func (s *Store) Append(property *model.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	properties, err := s.load()
	if err != nil {
		return err
	}
	return s.save(append(properties, property))
}

// Update replaces the stored record with the same id. Unknown ids are a
// silent no-op: the fallback is a cache of last resort, not the system of
// record.
func (s *Store) Update(property *model.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	properties, err := s.load()
	if err != nil {
		return err
	}
	for i, p := range properties {
		if p.ID == property.ID {
			properties[i] = property
			break
		}
	}
	return s.save(properties)
}

// Delete removes the stored record with the given id, if present.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	properties, err := s.load()
	if err != nil {
		return err
	}
	kept := properties[:0]
	for _, p := range properties {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	return s.save(kept)
}

// SerializedSize reports how many bytes the given collection would occupy.
func SerializedSize(properties []*model.Property) (int64, error) {
	data, err := json.Marshal(properties)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}
