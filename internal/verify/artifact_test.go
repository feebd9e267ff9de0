package verify

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteArtifact(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, writeArtifact(fs, "shots/a.png", testPNG))

	got, err := afero.ReadFile(fs, "shots/a.png")
	require.NoError(t, err)
	assert.Equal(t, testPNG, got)
}

func TestWriteArtifactIsWorldReadable(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}

	fs := afero.NewOsFs()
	path := filepath.Join(t.TempDir(), "shots", "a.png")
	require.NoError(t, writeArtifact(fs, path, testPNG))

	info, err := fs.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestWriteArtifactOverwrites(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "a.png", []byte("old contents that are longer"), 0o644))
	require.NoError(t, writeArtifact(fs, "a.png", testPNG))

	got, err := afero.ReadFile(fs, "a.png")
	require.NoError(t, err)
	assert.Equal(t, testPNG, got)
}

func TestWriteArtifactRejectsNonPNG(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	for _, data := range [][]byte{nil, {}, []byte("GIF89a"), testPNG[:4]} {
		err := writeArtifact(fs, "a.png", data)
		assert.ErrorIs(t, err, ErrNotPNG)
	}
	exists, err := afero.Exists(fs, "a.png")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWriteArtifactReadOnlyFs(t *testing.T) {
	t.Parallel()

	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, "a.png", []byte("old"), 0o644))
	fs := afero.NewReadOnlyFs(base)

	require.Error(t, writeArtifact(fs, "a.png", testPNG))
	got, err := afero.ReadFile(base, "a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), got)
}
