package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/riskibarqy/opendota-monitor/internal/domain/processed"
)

func TestProcessedRepository_MissingFileIsEmptySet(t *testing.T) {
	t.Parallel()

	repo := NewProcessedRepository(filepath.Join(t.TempDir(), "processed_matches.json"))

	set, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("load with missing file: %v", err)
	}
	if set.Len() != 0 {
		t.Fatalf("expected empty set, got %d entries", set.Len())
	}
}

func TestProcessedRepository_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "processed_matches.json")
	repo := NewProcessedRepository(path)

	set := processed.FromIDs([]string{"100", "200", "300"})
	if err := repo.Save(context.Background(), set); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A fresh repository on the same path simulates a process restart.
	reloaded, err := NewProcessedRepository(path).Load(context.Background())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Len() != 3 {
		t.Fatalf("expected 3 entries after reload, got %d", reloaded.Len())
	}
	for _, id := range []string{"100", "200", "300"} {
		if !reloaded.Contains(id) {
			t.Fatalf("reloaded set missing %s", id)
		}
	}
}

func TestProcessedRepository_SaveReplacesSnapshot(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "processed_matches.json")
	repo := NewProcessedRepository(path)

	if err := repo.Save(context.Background(), processed.FromIDs([]string{"100"})); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := repo.Save(context.Background(), processed.FromIDs([]string{"100", "200"})); err != nil {
		t.Fatalf("second save: %v", err)
	}

	set, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if set.Len() != 2 || !set.Contains("200") {
		t.Fatalf("snapshot not replaced, got %v", set.IDs())
	}
}

func TestProcessedRepository_CorruptFileReturnsError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "processed_matches.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	set, err := NewProcessedRepository(path).Load(context.Background())
	if err == nil {
		t.Fatalf("expected decode error for corrupt snapshot")
	}
	if set.Len() != 0 {
		t.Fatalf("expected empty set alongside the error, got %d entries", set.Len())
	}
}

func TestProcessedRepository_SaveCreatesDataDir(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "data", "processed_matches.json")
	repo := NewProcessedRepository(path)

	if err := repo.Save(context.Background(), processed.FromIDs([]string{"100"})); err != nil {
		t.Fatalf("save into missing dir: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot not created: %v", err)
	}
}
