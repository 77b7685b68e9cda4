package disk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fxdisk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
wal_path: /var/lib/fxd/graph.wal
sync_on_append: false
reserved_roots:
  - system
  - tmp
replay_batch: 25
`), 0o644))

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/fxd/graph.wal", opts.WALPath)
	assert.False(t, opts.SyncOnAppend)
	assert.Equal(t, []string{"system", "tmp"}, opts.ReservedRoots)
	assert.Equal(t, 25, opts.ReplayBatch)
}

func TestLoadOptions_AbsentKeysKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fxdisk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("wal_path: data.wal\n"), 0o644))

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, "data.wal", opts.WALPath)
	assert.True(t, opts.SyncOnAppend)
	assert.Equal(t, 100, opts.ReplayBatch)
}

func TestLoadOptions_MissingFile(t *testing.T) {
	_, err := LoadOptions(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadOptions_RejectsNonPositiveBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fxdisk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("replay_batch: -5\n"), 0o644))

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, 100, opts.ReplayBatch)
}
