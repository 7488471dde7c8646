package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chronicare-ai/platform/pkg/common/models"
)

func TestHandleSwap(t *testing.T) {
	handle := NewHandle()

	if _, _, ok := handle.Current(); ok {
		t.Fatal("expected empty handle before first install")
	}

	first := &models.Snapshot{Metadata: models.SnapshotMetadata{TotalPatients: 1}}
	if v := handle.Install(first); v != 1 {
		t.Fatalf("expected version 1, got %d", v)
	}

	second := &models.Snapshot{Metadata: models.SnapshotMetadata{TotalPatients: 2}}
	if v := handle.Install(second); v != 2 {
		t.Fatalf("expected version 2, got %d", v)
	}

	current, version, ok := handle.Current()
	if !ok || version != 2 {
		t.Fatalf("expected version 2 current, got %d ok=%v", version, ok)
	}
	if current.Metadata.TotalPatients != 2 {
		t.Fatalf("expected second snapshot served, got %+v", current.Metadata)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snapshot.json")
	store := NewFileStore(path)

	snap := &models.Snapshot{
		Metadata: models.SnapshotMetadata{
			GeneratedAt:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			TotalPatients: 1,
			ModelName:     "chronic_care_lr",
		},
		Patients: []models.PatientRecord{{PatientID: "p1"}},
	}
	if err := store.Save(snap); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Metadata.ModelName != "chronic_care_lr" {
		t.Fatalf("unexpected metadata %+v", loaded.Metadata)
	}
	if len(loaded.Patients) != 1 || loaded.Patients[0].PatientID != "p1" {
		t.Fatalf("unexpected patients %+v", loaded.Patients)
	}

	// The temp file must not survive the rename.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("expected temp file to be renamed away")
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := NewFileStore(path).Load(); err == nil {
		t.Fatal("expected error for corrupt snapshot")
	}
}

func TestFileStoreMissing(t *testing.T) {
	if _, err := NewFileStore(filepath.Join(t.TempDir(), "absent.json")).Load(); err == nil {
		t.Fatal("expected error for missing snapshot")
	}
}
