package doctest

import (
	"testing"

	"github.com/automerge/autosurgeon"
	"github.com/stretchr/testify/require"
)

func TestMapPutGet(t *testing.T) {
	d := NewWithActor("a")
	require.NoError(t, d.Put(autosurgeon.Root, autosurgeon.Key("x"), autosurgeon.IntValue(1)))

	v, _, found, err := d.Get(autosurgeon.Root, autosurgeon.Key("x"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, autosurgeon.IntValue(1), v)

	_, _, found, err = d.Get(autosurgeon.Root, autosurgeon.Key("y"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestHeadsAdvance(t *testing.T) {
	d := NewWithActor("a")
	h0 := d.Heads()
	require.NoError(t, d.Put(autosurgeon.Root, autosurgeon.Key("x"), autosurgeon.IntValue(1)))
	h1 := d.Heads()
	require.False(t, autosurgeon.HeadsEqual(h0, h1))

	require.NoError(t, d.Put(autosurgeon.Root, autosurgeon.Key("x"), autosurgeon.IntValue(2)))
	require.False(t, autosurgeon.HeadsEqual(h1, d.Heads()))
}

func TestNestedObjects(t *testing.T) {
	d := NewWithActor("a")
	m, err := d.PutObject(autosurgeon.Root, autosurgeon.Key("m"), autosurgeon.KindMap)
	require.NoError(t, err)
	require.NoError(t, d.Put(m, autosurgeon.Key("inner"), autosurgeon.StrValue("v")))

	kind, ok := d.ObjectKind(m)
	require.True(t, ok)
	require.Equal(t, autosurgeon.KindMap, kind)

	parent, prop, ok := d.Parent(m)
	require.True(t, ok)
	require.Equal(t, autosurgeon.Root, parent)
	key, isKey := prop.Key()
	require.True(t, isKey)
	require.Equal(t, "m", key)
}

func TestSeqOps(t *testing.T) {
	d := NewWithActor("a")
	s, err := d.PutObject(autosurgeon.Root, autosurgeon.Key("s"), autosurgeon.KindSeq)
	require.NoError(t, err)

	require.NoError(t, d.Insert(s, 0, autosurgeon.StrValue("a")))
	require.NoError(t, d.Insert(s, 1, autosurgeon.StrValue("c")))
	require.NoError(t, d.Insert(s, 1, autosurgeon.StrValue("b")))
	require.Equal(t, 3, d.Length(s))

	items, err := d.SeqItems(s)
	require.NoError(t, err)
	got := make([]string, len(items))
	for i, it := range items {
		got[i] = it.Value.Str
	}
	require.Equal(t, []string{"a", "b", "c"}, got)

	require.NoError(t, d.Delete(s, autosurgeon.Index(1)))
	require.Equal(t, 2, d.Length(s))

	require.NoError(t, d.Put(s, autosurgeon.Index(1), autosurgeon.StrValue("C")))
	v, _, found, err := d.Get(s, autosurgeon.Index(1))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "C", v.Str)
}

func TestTextSplice(t *testing.T) {
	d := NewWithActor("a")
	txt, err := d.PutObject(autosurgeon.Root, autosurgeon.Key("t"), autosurgeon.KindText)
	require.NoError(t, err)

	require.NoError(t, d.SpliceText(txt, 0, 0, "hello"))
	require.NoError(t, d.SpliceText(txt, 5, 0, " world"))
	require.NoError(t, d.SpliceText(txt, 0, 5, "goodbye"))

	s, err := d.TextValue(txt)
	require.NoError(t, err)
	require.Equal(t, "goodbye world", s)
}

func TestCounterIncrement(t *testing.T) {
	d := NewWithActor("a")
	require.NoError(t, d.Put(autosurgeon.Root, autosurgeon.Key("c"), autosurgeon.CounterValue(10)))
	require.NoError(t, d.Increment(autosurgeon.Root, autosurgeon.Key("c"), 5))

	v, _, _, err := d.Get(autosurgeon.Root, autosurgeon.Key("c"))
	require.NoError(t, err)
	require.Equal(t, autosurgeon.KindCounter, v.Kind)
	require.Equal(t, int64(15), v.Int)
}

func TestMergeConvergesBothWays(t *testing.T) {
	d := NewWithActor("a")
	require.NoError(t, d.Put(autosurgeon.Root, autosurgeon.Key("x"), autosurgeon.IntValue(1)))
	f := d.Fork()

	require.NoError(t, d.Put(autosurgeon.Root, autosurgeon.Key("y"), autosurgeon.IntValue(2)))
	require.NoError(t, f.Put(autosurgeon.Root, autosurgeon.Key("z"), autosurgeon.IntValue(3)))

	require.NoError(t, d.Merge(f))
	require.NoError(t, f.Merge(d))

	de, err := d.MapEntries(autosurgeon.Root)
	require.NoError(t, err)
	fe, err := f.MapEntries(autosurgeon.Root)
	require.NoError(t, err)
	require.Equal(t, de, fe)
	require.Len(t, de, 3)
}

func TestMergeConflictKeepsBothValues(t *testing.T) {
	d := NewWithActor("a")
	require.NoError(t, d.Put(autosurgeon.Root, autosurgeon.Key("x"), autosurgeon.IntValue(0)))
	f := d.Fork()

	require.NoError(t, d.Put(autosurgeon.Root, autosurgeon.Key("x"), autosurgeon.IntValue(1)))
	require.NoError(t, f.Put(autosurgeon.Root, autosurgeon.Key("x"), autosurgeon.IntValue(2)))

	require.NoError(t, d.Merge(f))
	require.NoError(t, f.Merge(d))

	cd, err := d.Conflicts(autosurgeon.Root, autosurgeon.Key("x"))
	require.NoError(t, err)
	require.Len(t, cd, 2)

	// both sides agree on the winner
	vd, _, _, err := d.Get(autosurgeon.Root, autosurgeon.Key("x"))
	require.NoError(t, err)
	vf, _, _, err := f.Get(autosurgeon.Root, autosurgeon.Key("x"))
	require.NoError(t, err)
	require.Equal(t, vd, vf)
}

func TestMergeListInsertsConverge(t *testing.T) {
	d := NewWithActor("a")
	s, err := d.PutObject(autosurgeon.Root, autosurgeon.Key("s"), autosurgeon.KindSeq)
	require.NoError(t, err)
	require.NoError(t, d.Insert(s, 0, autosurgeon.StrValue("m")))
	f := d.Fork()

	require.NoError(t, d.Insert(s, 0, autosurgeon.StrValue("a")))
	require.NoError(t, f.Insert(s, 1, autosurgeon.StrValue("z")))

	require.NoError(t, d.Merge(f))
	require.NoError(t, f.Merge(d))

	di, err := d.SeqItems(s)
	require.NoError(t, err)
	fi, err := f.SeqItems(s)
	require.NoError(t, err)
	require.Equal(t, di, fi)
	require.Len(t, di, 3)
}

func TestMergeIsIdempotent(t *testing.T) {
	d := NewWithActor("a")
	require.NoError(t, d.Put(autosurgeon.Root, autosurgeon.Key("x"), autosurgeon.IntValue(1)))
	f := d.Fork()
	require.NoError(t, f.Put(autosurgeon.Root, autosurgeon.Key("y"), autosurgeon.IntValue(2)))

	require.NoError(t, d.Merge(f))
	h := d.Heads()
	require.NoError(t, d.Merge(f))
	require.True(t, autosurgeon.HeadsEqual(h, d.Heads()))
}

func TestForkIsIndependent(t *testing.T) {
	d := NewWithActor("a")
	require.NoError(t, d.Put(autosurgeon.Root, autosurgeon.Key("x"), autosurgeon.IntValue(1)))
	f := d.Fork()
	require.NoError(t, f.Put(autosurgeon.Root, autosurgeon.Key("x"), autosurgeon.IntValue(9)))

	v, _, _, err := d.Get(autosurgeon.Root, autosurgeon.Key("x"))
	require.NoError(t, err)
	require.Equal(t, int64(1), v.Int)
}

func TestDeleteLeavesAnchor(t *testing.T) {
	d := NewWithActor("a")
	s, err := d.PutObject(autosurgeon.Root, autosurgeon.Key("s"), autosurgeon.KindSeq)
	require.NoError(t, err)
	require.NoError(t, d.Insert(s, 0, autosurgeon.StrValue("a")))
	require.NoError(t, d.Insert(s, 1, autosurgeon.StrValue("b")))
	f := d.Fork()

	// one side deletes "b", the other inserts after it
	require.NoError(t, d.Delete(s, autosurgeon.Index(1)))
	require.NoError(t, f.Insert(s, 2, autosurgeon.StrValue("c")))

	require.NoError(t, d.Merge(f))
	require.NoError(t, f.Merge(d))

	di, err := d.SeqItems(s)
	require.NoError(t, err)
	fi, err := f.SeqItems(s)
	require.NoError(t, err)
	require.Equal(t, di, fi)

	got := make([]string, len(di))
	for i, it := range di {
		got[i] = it.Value.Str
	}
	require.Equal(t, []string{"a", "c"}, got)
}
