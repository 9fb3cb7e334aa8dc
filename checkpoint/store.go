// Package checkpoint persists per-run progress so an interrupted run can
// resume without obfuscating any committed batch twice.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Status string

const (
	StatusNotStarted Status = "NotStarted"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusFailed     Status = "Failed"
)

type BatchState struct {
	BatchNumber   int    `json:"BatchNumber"`
	Offset        int64  `json:"Offset"`
	Size          int    `json:"Size"`
	IsProcessed   bool   `json:"IsProcessed"`
	RowsProcessed int    `json:"RowsProcessed"`
	ErrorMessage  string `json:"ErrorMessage,omitempty"`
}

type TableState struct {
	TableName     string       `json:"TableName"`
	Status        Status       `json:"Status"`
	TotalRows     int64        `json:"TotalRows"`
	ProcessedRows int64        `json:"ProcessedRows"`
	Batches       []BatchState `json:"Batches"`
}

// Batch returns the record for a batch number, or nil.
func (t *TableState) Batch(number int) *BatchState {
	for i := range t.Batches {
		if t.Batches[i].BatchNumber == number {
			return &t.Batches[i]
		}
	}
	return nil
}

// MarkProcessed records a committed batch. Invariant: ProcessedRows is the
// sum of the sizes of processed batches.
func (t *TableState) MarkProcessed(number int, offset int64, size int) {
	b := t.Batch(number)
	if b == nil {
		t.Batches = append(t.Batches, BatchState{BatchNumber: number, Offset: offset, Size: size})
		b = &t.Batches[len(t.Batches)-1]
	}
	if b.IsProcessed {
		return
	}
	b.Offset = offset
	b.Size = size
	b.IsProcessed = true
	b.RowsProcessed = size
	b.ErrorMessage = ""
	t.ProcessedRows += int64(size)
}

// MarkFailed records a batch that must be re-executed on resume.
func (t *TableState) MarkFailed(number int, offset int64, size int, msg string) {
	b := t.Batch(number)
	if b == nil {
		t.Batches = append(t.Batches, BatchState{BatchNumber: number, Offset: offset, Size: size})
		b = &t.Batches[len(t.Batches)-1]
	}
	b.ErrorMessage = msg
}

type State struct {
	ConfigHash         string        `json:"ConfigHash"`
	DatabaseName       string        `json:"DatabaseName"`
	StartedAt          time.Time     `json:"StartedAt"`
	LastUpdatedAt      time.Time     `json:"LastUpdatedAt"`
	Status             Status        `json:"Status"`
	Tables             []*TableState `json:"Tables"`
	TotalRowsProcessed int64         `json:"TotalRowsProcessed"`
}

func NewState(configHash, databaseName string) *State {
	return &State{
		ConfigHash:   configHash,
		DatabaseName: databaseName,
		StartedAt:    time.Now().UTC(),
		Status:       StatusInProgress,
	}
}

// Table finds or creates the state record for a table.
func (s *State) Table(name string) *TableState {
	for _, t := range s.Tables {
		if t.TableName == name {
			return t
		}
	}
	t := &TableState{TableName: name, Status: StatusNotStarted}
	s.Tables = append(s.Tables, t)
	return t
}

// Recalculate refreshes the aggregate row counter from table states.
func (s *State) Recalculate() {
	var total int64
	for _, t := range s.Tables {
		total += t.ProcessedRows
	}
	s.TotalRowsProcessed = total
}

// Store reads and writes checkpoint files under one directory. Saves are
// serialized by a process-wide mutex and written via tmp+rename, so readers
// observe either the old or the new file, never a torn one.
type Store struct {
	dir string
	mu  sync.Mutex
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(hash string) string {
	return filepath.Join(s.dir, fmt.Sprintf("checkpoint_%s.json", hash))
}

// Load returns the stored state for a config hash, or nil if none exists.
func (s *Store) Load(hash string) (*State, error) {
	raw, err := os.ReadFile(s.path(hash))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("corrupt checkpoint %s: %w", s.path(hash), err)
	}
	return &st, nil
}

func (s *Store) Save(st *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	st.LastUpdatedAt = time.Now().UTC()
	st.Recalculate()

	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	path := s.path(st.ConfigHash)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Clear removes the checkpoint for a hash. Missing files are not an error.
func (s *Store) Clear(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(hash))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
