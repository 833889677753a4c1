package r2client

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressDecompress(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "corpus.db")
	packed := filepath.Join(dir, "corpus.db.zst")
	out := filepath.Join(dir, "restored.db")

	data := []byte(strings.Repeat("University of Agriculture Peshawar admissions. ", 2000))
	require.NoError(t, os.WriteFile(src, data, 0o644))

	require.NoError(t, CompressFile(src, packed))
	srcInfo, err := os.Stat(src)
	require.NoError(t, err)
	packedInfo, err := os.Stat(packed)
	require.NoError(t, err)
	assert.Less(t, packedInfo.Size(), srcInfo.Size())

	f, err := os.Open(packed)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, DecompressStream(f, out))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestCompressFile_MissingSource(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	err := CompressFile(filepath.Join(dir, "nope"), filepath.Join(dir, "out.zst"))
	assert.ErrorContains(t, err, "open source")
}

func TestDecompressStream_InvalidRemovesPartial(t *testing.T) {
	t.Parallel()
	out := filepath.Join(t.TempDir(), "restored.db")

	err := DecompressStream(bytes.NewReader([]byte("definitely not zstd")), out)
	require.Error(t, err)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}
