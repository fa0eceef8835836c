package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// BudgetState is the alert level of the daily cost.
type BudgetState string

const (
	BudgetNormal   BudgetState = "normal"
	BudgetWarning  BudgetState = "warning"
	BudgetCritical BudgetState = "critical"
)

func (s BudgetState) rank() int {
	switch s {
	case BudgetCritical:
		return 2
	case BudgetWarning:
		return 1
	default:
		return 0
	}
}

func (s BudgetState) valid() bool {
	return s == BudgetNormal || s == BudgetWarning || s == BudgetCritical
}

// BudgetRecord is the persisted alert level for one UTC day.
type BudgetRecord struct {
	State BudgetState `json:"state"`
	Date  string      `json:"date"`
}

// StateStore persists the budget record between checks.
type StateStore interface {
	Load() (BudgetRecord, error)
	Save(BudgetRecord) error
}

// FileStateStore persists state to a JSON file.
type FileStateStore struct {
	path string
}

// NewFileStateStore creates a new file-based state store
func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

// Load reads the record. A missing or corrupt file yields a normal state
// with no date.
func (s *FileStateStore) Load() (BudgetRecord, error) {
	def := BudgetRecord{State: BudgetNormal}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return def, nil
	}
	if err != nil {
		return def, err
	}

	var rec BudgetRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return def, nil
	}
	if !rec.State.valid() {
		rec.State = BudgetNormal
	}
	return rec, nil
}

// Save writes the record via a temp file and rename.
func (s *FileStateStore) Save(rec BudgetRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
