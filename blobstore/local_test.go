package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutOpenRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	data := []byte("local blob content")
	require.NoError(t, s.Put(ctx, "dir/blob", data))

	blob, err := s.Open(ctx, "dir/blob")
	require.NoError(t, err)
	defer blob.Close()
	assert.Equal(t, int64(len(data)), blob.Size())

	got, err := ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLocalStore_MmapBytes(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	data := []byte("zero copy")
	require.NoError(t, s.Put(ctx, "blob", data))

	blob, err := s.Open(ctx, "blob")
	require.NoError(t, err)
	defer blob.Close()

	m, ok := blob.(Mappable)
	require.True(t, ok)
	raw, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, raw)
}

func TestLocalStore_OpenMissing(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Open(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_PutReplacesAtomically(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocalStore(root)
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "blob", []byte("v1")))
	require.NoError(t, s.Put(ctx, "blob", []byte("version-two")))

	blob, err := s.Open(ctx, "blob")
	require.NoError(t, err)
	defer blob.Close()

	got, err := ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, []byte("version-two"), got)

	// No temp files left behind.
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalStore_DeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "blob", []byte("v")))
	require.NoError(t, s.Delete(ctx, "blob"))
	require.NoError(t, s.Delete(ctx, "blob"))
}

func TestLocalStore_List(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocalStore(root)
	require.NoError(t, err)

	for _, name := range []string{"blocks/0002", "blocks/0001", "manifest.json"} {
		require.NoError(t, s.Put(ctx, name, []byte("x")))
	}

	// In-flight temp files are invisible.
	require.NoError(t, os.WriteFile(filepath.Join(root, ".blob-12345"), []byte("tmp"), 0o644))

	names, err := s.List(ctx, "blocks/")
	require.NoError(t, err)
	assert.Equal(t, []string{"blocks/0001", "blocks/0002"}, names)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"blocks/0001", "blocks/0002", "manifest.json"}, all)
}
