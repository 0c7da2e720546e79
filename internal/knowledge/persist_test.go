package knowledge

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	idx, err := NewIndex("fischer_10k", testChunks())
	require.NoError(t, err)

	require.NoError(t, idx.Save(dir))
	assert.FileExists(t, filepath.Join(dir, "fischer_10k", "index.json"))

	loaded, err := Load(dir, "fischer_10k")
	require.NoError(t, err)
	assert.Equal(t, idx.Name(), loaded.Name())
	assert.Equal(t, idx.Dimension(), loaded.Dimension())
	assert.Equal(t, idx.Len(), loaded.Len())

	want, err := idx.TopK([]float64{1, 1, 0}, 2)
	require.NoError(t, err)
	got, err := loaded.TopK([]float64{1, 1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, want[0].Chunk.ID, got[0].Chunk.ID)
	assert.InDelta(t, want[0].Score, got[0].Score, 1e-9)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(dir, "missing")
	assert.True(t, errors.Is(err, ErrIndexNotFound))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "broken"), 0o755))
	require.NoError(t, os.WriteFile(Path(dir, "broken"), []byte("{not json"), 0o644))
	_, err = Load(dir, "broken")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrIndexNotFound))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "header"), 0o755))
	require.NoError(t, os.WriteFile(Path(dir, "header"),
		[]byte(`{"name":"header","dimension":5,"chunks":[{"id":"a","vector":[1,0]}]}`), 0o644))
	_, err = Load(dir, "header")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
