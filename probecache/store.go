/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package probecache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store is the persisted probe-record store, keyed by provider:model.
// It survives process restarts by flushing to a JSON file with a
// write-to-temp-then-rename discipline. Writes are atomic per key.
type Store struct {
	path    string
	mu      sync.Mutex
	records map[string]Record
}

// OpenStore loads (or initializes) the store backing file.
func OpenStore(path string) (*Store, error) {
	s := &Store{
		path:    path,
		records: make(map[string]Record),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("reading probe cache %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &s.records); err != nil {
		// A corrupt cache is not worth failing a run over; start fresh.
		s.records = make(map[string]Record)
	}
	return s, nil
}

// Get returns the record for a target key.
func (s *Store) Get(key string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	return rec, ok
}

// Put upserts one record and flushes the store.
func (s *Store) Put(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Target] = rec
	return s.flushLocked()
}

// Len returns the number of cached records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// flushLocked writes the store to disk atomically. Callers hold s.mu.
func (s *Store) flushLocked() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling probe cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing probe cache: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing probe cache: %w", err)
	}
	return nil
}
