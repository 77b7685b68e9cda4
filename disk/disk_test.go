package disk

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxd-io/fxdisk/signal"
	"github.com/fxd-io/fxdisk/uarr"
	"github.com/fxd-io/fxdisk/wal"
)

func openLog(t *testing.T) *wal.Log {
	t.Helper()
	l, err := wal.Open(filepath.Join(t.TempDir(), "graph.wal"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func newDisk(t *testing.T, g Graph, l *wal.Log, mut ...func(*Config)) *Disk {
	t.Helper()
	cfg := Config{Graph: g, Log: l}
	for _, fn := range mut {
		fn(&cfg)
	}
	d, err := New(cfg)
	require.NoError(t, err)
	return d
}

// buildTree makes root -> branch -> leaf plus a second root child, with
// value, meta, and a prototype link to exercise every persisted facet.
func buildTree(g *memGraph) {
	branch := g.addChild("root", "n-branch", "branch", "map", uarr.Map{"w": uarr.Int(1)})
	branch.meta = uarr.Map{"label": uarr.String("b")}
	leaf := g.addChild("n-branch", "n-leaf", "leaf", "scalar", uarr.Int(42))
	leaf.proto = "n-proto"
	g.addChild("root", "n-proto", "proto", "map", uarr.Map{})
}

func TestSaveLoad_ThreeLevelFidelity(t *testing.T) {
	ctx := context.Background()
	l := openLog(t)

	src := newMemGraph()
	buildTree(src)
	require.NoError(t, newDisk(t, src, l).Save(ctx))

	dst := newMemGraph()
	require.NoError(t, newDisk(t, dst, l).Load(ctx))

	require.Equal(t, src.nodeCount(), dst.nodeCount())

	branch := dst.byID["n-branch"]
	require.NotNil(t, branch)
	assert.Equal(t, uarr.Map{"w": uarr.Int(1)}, branch.value)
	assert.Equal(t, uarr.Map{"label": uarr.String("b")}, branch.meta)

	leaf := dst.byID["n-leaf"]
	require.NotNil(t, leaf)
	assert.Equal(t, "n-branch", leaf.parentID)
	assert.Equal(t, uarr.Int(42), leaf.value)
	assert.Equal(t, "n-proto", leaf.proto)

	// Hierarchy, not just the id set: the leaf hangs off the branch.
	require.Len(t, branch.children, 1)
	assert.Same(t, leaf, branch.children[0])
}

func TestLoad_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	l := openLog(t)

	src := newMemGraph()
	buildTree(src)
	require.NoError(t, newDisk(t, src, l).Save(ctx))

	dst := newMemGraph()
	d := newDisk(t, dst, l)
	require.NoError(t, d.Load(ctx))
	first := dst.nodeCount()
	require.NoError(t, d.Load(ctx))

	assert.Equal(t, first, dst.nodeCount())
	assert.Len(t, dst.byID["n-branch"].children, 1)
}

func TestSave_WritesCheckpoint(t *testing.T) {
	ctx := context.Background()
	l := openLog(t)

	src := newMemGraph()
	buildTree(src)
	require.NoError(t, newDisk(t, src, l).Save(ctx))

	var types []wal.Type
	for rec, err := range l.ReadFrom(0) {
		require.NoError(t, err)
		types = append(types, rec.Type)
	}
	// One NODE_CREATE per node (root included), then the checkpoint.
	require.Len(t, types, src.nodeCount()+1)
	assert.Equal(t, wal.TypeCheckpoint, types[len(types)-1])
	for _, typ := range types[:len(types)-1] {
		assert.Equal(t, wal.TypeNodeCreate, typ)
	}
}

func TestLoad_ResolvesOutOfOrderParents(t *testing.T) {
	ctx := context.Background()
	l := openLog(t)

	// Child precedes its parent in the log.
	child := uarr.Map{"id": uarr.String("n-child"), "parentId": uarr.NodeRef("n-parent"),
		"keyName": uarr.String("child"), "type": uarr.String("scalar"), "value": uarr.Int(1)}
	parent := uarr.Map{"id": uarr.String("n-parent"), "parentId": uarr.NodeRef("root"),
		"keyName": uarr.String("parent"), "type": uarr.String("map"), "value": uarr.Map{}}
	root := uarr.Map{"id": uarr.String("root"), "parentId": uarr.Null{},
		"keyName": uarr.String("root"), "type": uarr.String("map"), "value": uarr.Map{}}

	for _, p := range []uarr.Map{child, parent, root} {
		_, err := l.Append(ctx, wal.TypeNodeCreate, stringField(p, "id"), p)
		require.NoError(t, err)
	}

	g := newMemGraph()
	require.NoError(t, newDisk(t, g, l).Load(ctx))

	p := g.byID["n-parent"]
	require.NotNil(t, p)
	require.Len(t, p.children, 1)
	assert.Equal(t, "n-child", p.children[0].id)
}

func TestLoad_DegradesOrphans(t *testing.T) {
	ctx := context.Background()
	l := openLog(t)

	orphan := uarr.Map{"id": uarr.String("n-orphan"), "parentId": uarr.NodeRef("n-ghost"),
		"keyName": uarr.String("stray"), "type": uarr.String("scalar"), "value": uarr.Int(9)}
	_, err := l.Append(ctx, wal.TypeNodeCreate, "n-orphan", orphan)
	require.NoError(t, err)

	g := newMemGraph()
	require.NoError(t, newDisk(t, g, l).Load(ctx))

	// The node survives, degraded, rather than vanishing.
	n := g.byID["n-orphan"]
	require.NotNil(t, n)
	assert.Equal(t, uarr.Int(9), n.value)
}

func TestLoad_PatchAndLinks(t *testing.T) {
	ctx := context.Background()
	l := openLog(t)

	src := newMemGraph()
	buildTree(src)
	d := newDisk(t, src, l)
	require.NoError(t, d.Save(ctx))

	require.NoError(t, d.RecordPatch(ctx, "n-leaf", uarr.Int(99), uarr.Map{"touched": uarr.Bool(true)}))
	require.NoError(t, d.RecordLink(ctx, "n-branch", "n-proto"))
	require.NoError(t, d.RecordUnlink(ctx, "n-leaf"))
	// Patches for ids the log never created are dropped, not fatal.
	require.NoError(t, d.RecordPatch(ctx, "n-nonexistent", uarr.Int(1), nil))

	dst := newMemGraph()
	require.NoError(t, newDisk(t, dst, l).Load(ctx))

	leaf := dst.byID["n-leaf"]
	require.NotNil(t, leaf)
	assert.Equal(t, uarr.Int(99), leaf.value)
	assert.Equal(t, uarr.Map{"touched": uarr.Bool(true)}, leaf.meta)
	assert.Equal(t, "", leaf.proto)
	assert.Equal(t, "n-proto", dst.byID["n-branch"].proto)
	assert.Nil(t, dst.byID["n-nonexistent"])
}

func TestCompact_RecordCountEqualsLiveNodes(t *testing.T) {
	ctx := context.Background()
	l := openLog(t)

	src := newMemGraph()
	buildTree(src)
	d := newDisk(t, src, l)

	// Two full saves plus a patch: the log holds far more records than
	// there are nodes.
	require.NoError(t, d.Save(ctx))
	require.NoError(t, d.RecordPatch(ctx, "n-leaf", uarr.Int(7), nil))
	require.NoError(t, d.Save(ctx))
	before := d.Stats()
	require.Greater(t, before.RecordCount, uint64(src.nodeCount()))

	require.NoError(t, d.Compact(ctx))

	after := d.Stats()
	assert.Equal(t, uint64(src.nodeCount()), after.RecordCount)
	assert.Less(t, after.ByteSize, before.ByteSize)

	// The compacted log still reconstructs the same tree.
	dst := newMemGraph()
	require.NoError(t, newDisk(t, dst, l).Load(ctx))
	assert.Equal(t, src.nodeCount(), dst.nodeCount())
	assert.Equal(t, uarr.Int(42), dst.byID["n-leaf"].value)
}

func TestLoad_RebuildsSnippetIndex(t *testing.T) {
	ctx := context.Background()
	l := openLog(t)

	src := newMemGraph()
	src.addChild("root", "n-snip", "greeting", "snippet", uarr.String("hello"))
	require.NoError(t, newDisk(t, src, l).Save(ctx))

	idx := NewSnippetIndex()
	dst := newMemGraph()
	d := newDisk(t, dst, l, func(c *Config) { c.Snippets = idx })
	require.NoError(t, d.Load(ctx))

	path, ok := idx.Resolve("n-snip")
	require.True(t, ok)
	assert.Equal(t, "root.greeting", path)
	assert.Equal(t, 1, idx.Len())
}

func TestRecordPatch_EmitsSignal(t *testing.T) {
	ctx := context.Background()
	l := openLog(t)

	stream := signal.NewStream()
	var got []signal.Record
	unsub := stream.Subscribe(signal.Options{}, func(r signal.Record) { got = append(got, r) })
	defer unsub()

	g := newMemGraph()
	buildTree(g)
	d := newDisk(t, g, l, func(c *Config) { c.Signals = stream })

	require.NoError(t, d.RecordPatch(ctx, "n-leaf", uarr.Int(5), nil))
	require.NoError(t, d.RecordUnlink(ctx, "n-leaf"))

	require.Len(t, got, 2)
	assert.Equal(t, signal.KindValue, got[0].Kind)
	assert.Equal(t, "n-leaf", got[0].SourceNodeID)
	assert.Equal(t, uarr.Int(5), got[0].Delta)
	assert.Equal(t, signal.KindMetadata, got[1].Kind)
}

func TestOpen_WithOptions(t *testing.T) {
	ctx := context.Background()
	opts := DefaultOptions()
	opts.WALPath = filepath.Join(t.TempDir(), "graph.wal")

	src := newMemGraph()
	buildTree(src)
	d, err := Open(src, opts)
	require.NoError(t, err)
	require.NoError(t, d.Save(ctx))
	require.NoError(t, d.Close())

	dst := newMemGraph()
	d2, err := Open(dst, opts)
	require.NoError(t, err)
	defer d2.Close()
	require.NoError(t, d2.Load(ctx))
	assert.Equal(t, src.nodeCount(), dst.nodeCount())
}

func TestNew_RequiresGraphAndLog(t *testing.T) {
	l := openLog(t)
	_, err := New(Config{Log: l})
	require.Error(t, err)
	_, err = New(Config{Graph: newMemGraph()})
	require.Error(t, err)
}
