package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/restock/errors"
	"github.com/teranos/restock/stock"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	s := NewFileStore(filepath.Join(t.TempDir(), "history.json"), zaptest.NewLogger(t).Sugar())
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestFileStoreMissingIsEmpty(t *testing.T) {
	s := newFileStore(t)
	m, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Zero(t, m.Len())
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	m := stock.NewStateMap()
	m.Set("predator::BK Rush Break Cue", stock.InStock)
	m.Set("mezz::power-break-g", stock.OutOfStock)
	require.NoError(t, s.Save(ctx, m))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, m.Equal(loaded))
	assert.True(t, fixedNow.Equal(loaded.LastChecked()))
}

func TestFileStoreFormat(t *testing.T) {
	s := newFileStore(t)
	m := stock.NewStateMap()
	m.Set("predator::BK Rush Break Cue", stock.InStock)
	require.NoError(t, s.Save(context.Background(), m))

	data, err := os.ReadFile(s.Location())
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"_last_checked\": \"2026-03-14T09:26:53Z\",\n    \"predator::BK Rush Break Cue\": \"In Stock\"\n}\n", string(data))
}

func TestFileStoreFullReplace(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	first := stock.NewStateMap()
	first.Set("a::1", stock.InStock)
	first.Set("a::2", stock.InStock)
	require.NoError(t, s.Save(ctx, first))

	second := stock.NewStateMap()
	second.Set("a::1", stock.OutOfStock)
	require.NoError(t, s.Save(ctx, second))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())
	assert.Equal(t, stock.OutOfStock, loaded.Get("a::1"))
}

func TestFileStoreCorruptIsEmptyWithError(t *testing.T) {
	s := newFileStore(t)
	require.NoError(t, os.WriteFile(s.Location(), []byte("{not json"), 0o644))

	m, err := s.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCorruptSnapshot))
	require.NotNil(t, m)
	assert.Zero(t, m.Len())
}

func TestFileStoreEmptyFile(t *testing.T) {
	s := newFileStore(t)
	require.NoError(t, os.WriteFile(s.Location(), nil, 0o644))

	m, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Zero(t, m.Len())
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	s := newFileStore(t)
	require.NoError(t, s.Save(context.Background(), stock.NewStateMap()))

	entries, err := os.ReadDir(filepath.Dir(s.Location()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "history.json", entries[0].Name())
}

func TestFileStoreCreatesDirectory(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nested", "dir", "history.json"), nil)
	require.NoError(t, s.Save(context.Background(), stock.NewStateMap()))
	_, err := os.Stat(s.Location())
	assert.NoError(t, err)
}
