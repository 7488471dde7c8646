package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chronicare-ai/platform/pkg/common/models"
)

// FileStore persists snapshots as a single JSON artifact: metadata, cohort
// summary and the full patient array, consumed as-is by the query service
// at load time.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// Save writes the snapshot to a temp file and renames it into place, so a
// reader loading concurrently sees either the old artifact or the new one,
// never a torn write.
func (s *FileStore) Save(snap *models.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Load() (*models.Snapshot, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var snap models.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return nil, fmt.Errorf("corrupt snapshot %s: %w", s.path, err)
	}
	return &snap, nil
}
