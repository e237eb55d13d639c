package autosurgeon_test

import (
	"testing"

	"github.com/automerge/autosurgeon"
	"github.com/automerge/autosurgeon/doctest"
	"github.com/stretchr/testify/require"
)

type strList struct {
	Items []string `autosurgeon:"items"`
}

func TestSeqScalarDiff(t *testing.T) {
	doc := doctest.New()
	require.NoError(t, autosurgeon.Reconcile(doc, strList{Items: []string{"a", "b", "c"}}))
	require.NoError(t, autosurgeon.Reconcile(doc, strList{Items: []string{"a", "x", "c"}}))

	var out strList
	require.NoError(t, autosurgeon.Hydrate(doc, &out))
	require.Equal(t, []string{"a", "x", "c"}, out.Items)
}

func TestSeqScalarInsertDelete(t *testing.T) {
	doc := doctest.New()
	require.NoError(t, autosurgeon.Reconcile(doc, struct{ Ns []int }{Ns: []int{1, 2, 3}}))
	require.NoError(t, autosurgeon.Reconcile(doc, struct{ Ns []int }{Ns: []int{2, 3, 4}}))

	var out struct{ Ns []int }
	require.NoError(t, autosurgeon.Hydrate(doc, &out))
	require.Equal(t, []int{2, 3, 4}, out.Ns)
}

func TestSeqKeyedDiffPreservesElements(t *testing.T) {
	doc := doctest.New()
	require.NoError(t, autosurgeon.Reconcile(doc, board{
		Name:  "b",
		Cards: []card{{ID: 1, Title: "one"}, {ID: 2, Title: "two"}, {ID: 3, Title: "three"}},
	}))
	_, seqID, _, err := doc.Get(autosurgeon.Root, autosurgeon.Key("cards"))
	require.NoError(t, err)
	_, id2, _, err := doc.Get(seqID, autosurgeon.Index(1))
	require.NoError(t, err)

	// drop card 1, keep 2 and 3, prepend 4
	require.NoError(t, autosurgeon.Reconcile(doc, board{
		Name:  "b",
		Cards: []card{{ID: 4, Title: "four"}, {ID: 2, Title: "two"}, {ID: 3, Title: "three"}},
	}))

	var out board
	require.NoError(t, autosurgeon.Hydrate(doc, &out))
	require.Equal(t, []int{4, 2, 3}, []int{out.Cards[0].ID, out.Cards[1].ID, out.Cards[2].ID})

	// card 2 kept its object identity across the diff
	_, id2After, _, err := doc.Get(seqID, autosurgeon.Index(1))
	require.NoError(t, err)
	require.Equal(t, id2, id2After)
}

// keyless structs match positionally
func TestSeqPositionalDiff(t *testing.T) {
	type point struct {
		X int `autosurgeon:"x"`
		Y int `autosurgeon:"y"`
	}
	doc := doctest.New()
	require.NoError(t, autosurgeon.Reconcile(doc, struct{ Ps []point }{
		Ps: []point{{1, 1}, {2, 2}},
	}))
	_, seqID, _, err := doc.Get(autosurgeon.Root, autosurgeon.Key("Ps"))
	require.NoError(t, err)
	_, p0, _, err := doc.Get(seqID, autosurgeon.Index(0))
	require.NoError(t, err)

	require.NoError(t, autosurgeon.Reconcile(doc, struct{ Ps []point }{
		Ps: []point{{1, 9}, {2, 2}, {3, 3}},
	}))

	var out struct{ Ps []point }
	require.NoError(t, autosurgeon.Hydrate(doc, &out))
	require.Equal(t, []point{{1, 9}, {2, 2}, {3, 3}}, out.Ps)

	// position 0 was updated in place
	_, p0After, _, err := doc.Get(seqID, autosurgeon.Index(0))
	require.NoError(t, err)
	require.Equal(t, p0, p0After)
}

func TestSeqTupleReconcilesPositionally(t *testing.T) {
	doc := doctest.New()
	require.NoError(t, autosurgeon.Reconcile(doc, struct{ Pair [2]string }{
		Pair: [2]string{"a", "b"},
	}))
	require.NoError(t, autosurgeon.Reconcile(doc, struct{ Pair [2]string }{
		Pair: [2]string{"a", "z"},
	}))

	var out struct{ Pair [2]string }
	require.NoError(t, autosurgeon.Hydrate(doc, &out))
	require.Equal(t, [2]string{"a", "z"}, out.Pair)
}

func TestSeqEmpty(t *testing.T) {
	doc := doctest.New()
	require.NoError(t, autosurgeon.Reconcile(doc, strList{Items: []string{"a"}}))
	require.NoError(t, autosurgeon.Reconcile(doc, strList{Items: []string{}}))

	var out strList
	require.NoError(t, autosurgeon.Hydrate(doc, &out))
	require.Empty(t, out.Items)
}

func TestSeqKeyedMerge(t *testing.T) {
	d := doctest.New()
	require.NoError(t, autosurgeon.Reconcile(d, board{
		Name:  "b",
		Cards: []card{{ID: 1, Title: "one"}, {ID: 2, Title: "two"}},
	}))
	f := d.Fork()

	// one side prepends card 3
	require.NoError(t, autosurgeon.Reconcile(d, board{
		Name:  "b",
		Cards: []card{{ID: 3, Title: "three"}, {ID: 1, Title: "one"}, {ID: 2, Title: "two"}},
	}))
	// the other removes card 1
	require.NoError(t, autosurgeon.Reconcile(f, board{
		Name:  "b",
		Cards: []card{{ID: 2, Title: "two"}},
	}))

	require.NoError(t, d.Merge(f))

	var out board
	require.NoError(t, autosurgeon.Hydrate(d, &out))
	ids := make([]int, len(out.Cards))
	for i, c := range out.Cards {
		ids[i] = c.ID
	}
	require.Equal(t, []int{3, 2}, ids)
}

// keyless elements have no identity to line up after a merge, so
// concurrent edits land on whatever occupies each position
func TestSeqKeylessMergeCollides(t *testing.T) {
	type point struct {
		X int `autosurgeon:"x"`
		Y int `autosurgeon:"y"`
	}
	type sheet struct {
		Ps []point `autosurgeon:"ps"`
	}
	d := doctest.New()
	require.NoError(t, autosurgeon.Reconcile(d, sheet{Ps: []point{{1, 1}, {2, 2}}}))
	f := d.Fork()

	// one side prepends, which positionally rewrites every element
	require.NoError(t, autosurgeon.Reconcile(d, sheet{Ps: []point{{9, 9}, {1, 1}, {2, 2}}}))
	// the other truncates, deleting the second position
	require.NoError(t, autosurgeon.Reconcile(f, sheet{Ps: []point{{1, 1}}}))

	require.NoError(t, d.Merge(f))
	require.NoError(t, f.Merge(d))

	var od, of sheet
	require.NoError(t, autosurgeon.Hydrate(d, &od))
	require.NoError(t, autosurgeon.Hydrate(f, &of))
	require.Equal(t, od, of)

	// the concurrent delete removed the position the prepend had
	// reused for {1, 1}, so that element is gone after the merge
	require.Equal(t, []point{{9, 9}, {2, 2}}, od.Ps)
}
