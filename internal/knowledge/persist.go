package knowledge

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

const indexFile = "index.json"

type snapshot struct {
	Name      string  `json:"name"`
	Dimension int     `json:"dimension"`
	Chunks    []Chunk `json:"chunks"`
}

// Path returns where the index called name is persisted under dir.
func Path(dir, name string) string {
	return filepath.Join(dir, name, indexFile)
}

// Load reads the index persisted under dir/name. ErrIndexNotFound is
// returned when no snapshot exists.
func Load(dir, name string) (*Index, error) {
	path := Path(dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrIndexNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", path, err)
	}

	var snap snapshot
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode index %s: %w", path, err)
	}
	idx, err := NewIndex(name, snap.Chunks)
	if err != nil {
		return nil, err
	}
	if snap.Dimension != 0 && snap.Dimension != idx.Dimension() {
		return nil, fmt.Errorf("%s: header says %d dimensions, chunks have %d: %w",
			path, snap.Dimension, idx.Dimension(), ErrDimensionMismatch)
	}
	return idx, nil
}

// Save writes the index under dir/name, replacing any previous snapshot.
func (i *Index) Save(dir string) error {
	path := Path(dir, i.name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(snapshot{
		Name:      i.name,
		Dimension: i.dim,
		Chunks:    i.chunks,
	})
	if err != nil {
		return fmt.Errorf("failed to encode index %s: %w", i.name, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write index %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace index %s: %w", path, err)
	}
	return nil
}
