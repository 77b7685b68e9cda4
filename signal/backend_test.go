package signal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxd-io/fxdisk/uarr"
	"github.com/fxd-io/fxdisk/wal"
)

func TestSQLiteBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.db")
	b, err := OpenSQLite(path)
	require.NoError(t, err)
	defer b.Close()

	in := []Record{
		{Timestamp: 100, Kind: KindValue, BaseVersion: 1, NewVersion: 2,
			SourceNodeID: "node-a", Delta: uarr.Map{"v": uarr.Int(1)}},
		{Timestamp: 200, Kind: KindMetadata, BaseVersion: 2, NewVersion: 3,
			SourceNodeID: "node-b", Delta: uarr.Map{"proto": uarr.NodeRef("node-a")}},
	}
	for _, rec := range in {
		require.NoError(t, b.Append(rec))
	}

	out, err := b.ReadAll()
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, uint64(0), out[0].Seq)
	assert.Equal(t, uint64(1), out[1].Seq)
	for i := range in {
		assert.Equal(t, in[i].Timestamp, out[i].Timestamp)
		assert.Equal(t, in[i].Kind, out[i].Kind)
		assert.Equal(t, in[i].BaseVersion, out[i].BaseVersion)
		assert.Equal(t, in[i].NewVersion, out[i].NewVersion)
		assert.Equal(t, in[i].SourceNodeID, out[i].SourceNodeID)
		assert.Equal(t, in[i].Delta, out[i].Delta)
	}
}

func TestSQLiteBackend_OpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.db")

	b1, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, b1.Append(Record{Kind: KindValue, SourceNodeID: "n", Delta: uarr.Int(1)}))
	require.NoError(t, b1.Close())

	// Reopening applies the schema again without clobbering rows.
	b2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer b2.Close()

	out, err := b2.ReadAll()
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestStream_RestoreFromSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.db")
	b, err := OpenSQLite(path)
	require.NoError(t, err)
	defer b.Close()

	s := NewStream(WithBackend(b))
	_, err = s.Append(Record{Kind: KindValue, SourceNodeID: "a", Delta: uarr.Int(1)})
	require.NoError(t, err)
	_, err = s.Append(Record{Kind: KindValue, SourceNodeID: "b", Delta: uarr.Int(2)})
	require.NoError(t, err)

	// A fresh stream over the same backend picks up where the first left off.
	s2 := NewStream(WithBackend(b))
	require.NoError(t, s2.Restore())
	assert.Equal(t, uint64(2), s2.Cursor())

	// Restore replaces rather than accumulates.
	require.NoError(t, s2.Restore())
	assert.Equal(t, uint64(2), s2.Cursor())

	rec, err := s2.Append(Record{Kind: KindValue, SourceNodeID: "c", Delta: uarr.Int(3)})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rec.Seq)

	recs := s2.ReadRange(0, 10)
	require.Len(t, recs, 3)
	assert.Equal(t, "a", recs[0].SourceNodeID)
	assert.Equal(t, "c", recs[2].SourceNodeID)
}

func TestWALBackend_RoundTrip(t *testing.T) {
	l, err := wal.Open(filepath.Join(t.TempDir(), "graph.wal"))
	require.NoError(t, err)
	defer l.Close()

	// The log is shared: a non-signal record sits between signals and must
	// be ignored by ReadAll.
	b := NewWALBackend(l)
	require.NoError(t, b.Append(Record{Timestamp: 7, Kind: KindValue, BaseVersion: 1,
		NewVersion: 2, SourceNodeID: "node-a", Delta: uarr.Map{"v": uarr.Int(1)}}))
	_, err = l.Append(context.Background(), wal.TypeNodeCreate, "node-x", uarr.Map{})
	require.NoError(t, err)
	require.NoError(t, b.Append(Record{Timestamp: 9, Kind: KindCustom, BaseVersion: 2,
		NewVersion: 3, SourceNodeID: "node-b", Delta: uarr.String("d")}))

	out, err := b.ReadAll()
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, uint64(0), out[0].Seq)
	assert.Equal(t, int64(7), out[0].Timestamp)
	assert.Equal(t, KindValue, out[0].Kind)
	assert.Equal(t, uint64(1), out[0].BaseVersion)
	assert.Equal(t, uint64(2), out[0].NewVersion)
	assert.Equal(t, "node-a", out[0].SourceNodeID)
	assert.Equal(t, uarr.Map{"v": uarr.Int(1)}, out[0].Delta)

	assert.Equal(t, "node-b", out[1].SourceNodeID)
	assert.Equal(t, uarr.String("d"), out[1].Delta)
}

func TestWALBackend_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.wal")

	l, err := wal.Open(path)
	require.NoError(t, err)
	b := NewWALBackend(l)
	s := NewStream(WithBackend(b))
	_, err = s.Append(Record{Kind: KindChildren, SourceNodeID: "n", Delta: uarr.Int(1)})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l2, err := wal.Open(path)
	require.NoError(t, err)
	defer l2.Close()

	s2 := NewStream(WithBackend(NewWALBackend(l2)))
	require.NoError(t, s2.Restore())
	recs := s2.ReadRange(0, 10)
	require.Len(t, recs, 1)
	assert.Equal(t, KindChildren, recs[0].Kind)
	assert.Equal(t, "n", recs[0].SourceNodeID)
}
