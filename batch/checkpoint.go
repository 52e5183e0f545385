/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"chainguard.dev/promptgauge/aggregate"
	"chainguard.dev/promptgauge/scoring"
	"github.com/google/uuid"
)

// UnitStatus tracks one unit's progress through a batch.
type UnitStatus string

const (
	UnitPending          UnitStatus = "pending"
	UnitCompleted        UnitStatus = "completed"
	UnitNoModelAvailable UnitStatus = "no_model_available"
)

// UnitState is one unit's checkpoint entry: its status plus, once
// finished, the raw records and the aggregate built from them.
type UnitState struct {
	Status  UnitStatus        `json:"status"`
	Records []scoring.Record  `json:"records,omitempty"`
	Result  *aggregate.Result `json:"result,omitempty"`
}

// Done reports whether the unit needs no further work on resume.
func (s UnitState) Done() bool {
	return s.Status == UnitCompleted || s.Status == UnitNoModelAvailable
}

// Checkpoint is the durable state of one batch run.
type Checkpoint struct {
	Batch     string               `json:"batch"`
	Tier      string               `json:"tier"`
	CreatedAt time.Time            `json:"created_at"`
	Units     map[string]UnitState `json:"units"`
}

// NewBatchID generates an identity for an unnamed batch.
func NewBatchID() string {
	return uuid.NewString()
}

// CheckpointStore persists one checkpoint file per batch under a
// directory, with write-to-temp-then-rename flushes.
type CheckpointStore struct {
	dir string
}

// NewCheckpointStore creates a store rooted at dir.
func NewCheckpointStore(dir string) (*CheckpointStore, error) {
	if dir == "" {
		return nil, errors.New("checkpoint directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating checkpoint directory: %w", err)
	}
	return &CheckpointStore{dir: dir}, nil
}

func (s *CheckpointStore) path(batch string) string {
	return filepath.Join(s.dir, batch+".json")
}

// Load returns the checkpoint for a batch, or (nil, nil) when none
// exists yet. A checkpoint that cannot be decoded is an error, not a
// silent restart: resuming over corrupt state would repeat paid work.
func (s *CheckpointStore) Load(batch string) (*Checkpoint, error) {
	data, err := os.ReadFile(s.path(batch))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("reading checkpoint for batch %s: %w", batch, err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decoding checkpoint for batch %s: %w", batch, err)
	}
	if cp.Units == nil {
		cp.Units = make(map[string]UnitState)
	}
	return &cp, nil
}

// Save flushes the checkpoint atomically.
func (s *CheckpointStore) Save(cp *Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling checkpoint for batch %s: %w", cp.Batch, err)
	}

	tmp := s.path(cp.Batch) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing checkpoint for batch %s: %w", cp.Batch, err)
	}
	if err := os.Rename(tmp, s.path(cp.Batch)); err != nil {
		return fmt.Errorf("replacing checkpoint for batch %s: %w", cp.Batch, err)
	}
	return nil
}
