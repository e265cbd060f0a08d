package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/opendota-monitor/internal/domain/processed"
)

// ProcessedRepository persists the processed-match set as one JSON array of
// match-id strings. Every save rewrites the whole snapshot through a temp
// file, fsync and rename, so a crash mid-write leaves the previous snapshot
// intact.
type ProcessedRepository struct {
	path string
}

func NewProcessedRepository(path string) *ProcessedRepository {
	return &ProcessedRepository{path: path}
}

func (r *ProcessedRepository) Path() string {
	return r.path
}

// Load reads the snapshot. A missing file is not an error: the monitor has
// simply never persisted anything, so the set starts empty.
func (r *ProcessedRepository) Load(_ context.Context) (processed.Set, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return processed.NewSet(), nil
		}
		return processed.NewSet(), fmt.Errorf("read processed set %s: %w", r.path, err)
	}

	var ids []string
	if err := sonic.Unmarshal(raw, &ids); err != nil {
		return processed.NewSet(), fmt.Errorf("decode processed set %s: %w", r.path, err)
	}

	return processed.FromIDs(ids), nil
}

func (r *ProcessedRepository) Save(_ context.Context, set processed.Set) error {
	raw, err := sonic.Marshal(set.IDs())
	if err != nil {
		return fmt.Errorf("encode processed set: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp snapshot: %w", err)
	}

	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace processed set %s: %w", r.path, err)
	}

	return nil
}
