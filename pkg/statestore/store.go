// Package statestore persists the records shared between the evaluation
// pipeline and the bot listener as one JSON file per key. The two contexts
// are not coordinated by any lock; every access is a full read or a full
// atomic write of one record, and reads across keys may reflect different
// points in time.
package statestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sipca-labs/aquasentry/pkg/model"
)

// ErrNotFound is returned by reads of a key that has never been written.
// Callers distinguish "never produced" from "produced but empty".
var ErrNotFound = errors.New("record not found")

// Well-known keys. The filenames are a contract with the dashboard
// process, which writes the snapshot directly.
const (
	keyBinding     = "operator_binding"
	keySnapshot    = "sample_snapshot"
	keyMaintenance = "maintenance_log"
)

// Store is a file-backed key/value store with last-writer-wins semantics.
type Store struct {
	dir string
}

// New opens a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// put durably replaces the record under key. The write goes to a
// temporary file first and is renamed into place, so a concurrent reader
// never observes a half-written record.
func (s *Store) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

// get reads the record under key into v, or reports ErrNotFound if the
// key has never been written.
func (s *Store) get(key string, v any) error {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// SaveBinding overwrites the operator binding.
func (s *Store) SaveBinding(b model.OperatorBinding) error {
	return s.put(keyBinding, b)
}

// LoadBinding returns the current operator binding, or ErrNotFound when
// no operator has ever connected.
func (s *Store) LoadBinding() (model.OperatorBinding, error) {
	var b model.OperatorBinding
	err := s.get(keyBinding, &b)
	return b, err
}

// SaveSnapshot overwrites the latest sample snapshot.
func (s *Store) SaveSnapshot(snap model.SampleSnapshot) error {
	return s.put(keySnapshot, snap)
}

// LoadSnapshot returns the latest sample snapshot, or ErrNotFound when no
// evaluation has run yet.
func (s *Store) LoadSnapshot() (model.SampleSnapshot, error) {
	var snap model.SampleSnapshot
	err := s.get(keySnapshot, &snap)
	return snap, err
}

// AppendMaintenance appends one entry to the maintenance log. The whole
// log is rewritten through the same atomic-rename path as single records;
// volumes are small enough that full rewrites are acceptable.
func (s *Store) AppendMaintenance(entry model.MaintenanceEntry) error {
	entries, err := s.Maintenance()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	entries = append(entries, entry)
	return s.put(keyMaintenance, entries)
}

// Maintenance returns all maintenance log entries in append order, or
// ErrNotFound when no report has ever been filed.
func (s *Store) Maintenance() ([]model.MaintenanceEntry, error) {
	var entries []model.MaintenanceEntry
	if err := s.get(keyMaintenance, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
