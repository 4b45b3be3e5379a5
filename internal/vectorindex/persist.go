package vectorindex

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"aicodeguard/internal/domain"
)

// snapshot is the on-disk representation of an index. It is only ever the
// output of a fully completed build; callers persist after the batch loop
// returns, never mid-build.
type snapshot struct {
	Dimension int      `json:"dimension"`
	Records   []Record `json:"records"`
}

// Save writes the index snapshot to path. The write goes through a temporary
// file and a rename so readers never observe a partial snapshot.
func (ix *Index) Save(path string) error {
	ix.mu.RLock()
	snap := snapshot{Dimension: ix.dimension, Records: make([]Record, len(ix.vectors))}
	for i := range ix.vectors {
		snap.Records[i] = Record{Vector: ix.vectors[i], Chunk: ix.chunks[i]}
	}
	ix.mu.RUnlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot from path. It returns ErrCorruptIndex when the file
// is unreadable, empty, or was produced with a different embedding dimension
// than wantDimension (0 skips the dimension check).
func Load(path string, wantDimension int) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptIndex, err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptIndex, err)
	}
	if len(snap.Records) == 0 || snap.Dimension <= 0 {
		return nil, fmt.Errorf("%w: empty snapshot", domain.ErrCorruptIndex)
	}
	if wantDimension > 0 && snap.Dimension != wantDimension {
		return nil, fmt.Errorf("%w: snapshot dimension %d, gateway dimension %d",
			domain.ErrCorruptIndex, snap.Dimension, wantDimension)
	}
	for _, r := range snap.Records {
		if len(r.Vector) != snap.Dimension {
			return nil, fmt.Errorf("%w: record dimension %d, snapshot dimension %d",
				domain.ErrCorruptIndex, len(r.Vector), snap.Dimension)
		}
	}
	ix := &Index{dimension: snap.Dimension}
	if err := ix.Extend(snap.Records); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptIndex, err)
	}
	return ix, nil
}
