package autosurgeon_test

import (
	"testing"

	"github.com/automerge/autosurgeon"
	"github.com/automerge/autosurgeon/doctest"
	"github.com/stretchr/testify/require"
)

type note struct {
	Body *autosurgeon.Text `autosurgeon:"body"`
}

func textOf(t *testing.T, doc *doctest.Doc) string {
	t.Helper()
	_, id, found, err := doc.Get(autosurgeon.Root, autosurgeon.Key("body"))
	require.NoError(t, err)
	require.True(t, found)
	s, err := doc.TextValue(id)
	require.NoError(t, err)
	return s
}

func TestTextFresh(t *testing.T) {
	doc := doctest.New()
	require.NoError(t, autosurgeon.Reconcile(doc, note{Body: autosurgeon.NewText("hello")}))
	require.Equal(t, "hello", textOf(t, doc))

	// a fresh Text with identical content writes nothing
	heads := doc.Heads()
	require.NoError(t, autosurgeon.Reconcile(doc, note{Body: autosurgeon.NewText("hello")}))
	require.True(t, autosurgeon.HeadsEqual(heads, doc.Heads()))

	// different content replaces wholesale
	require.NoError(t, autosurgeon.Reconcile(doc, note{Body: autosurgeon.NewText("goodbye")}))
	require.Equal(t, "goodbye", textOf(t, doc))
}

func TestTextSpliceReplay(t *testing.T) {
	doc := doctest.New()
	require.NoError(t, autosurgeon.Reconcile(doc, note{Body: autosurgeon.NewText("hello world")}))

	var n note
	require.NoError(t, autosurgeon.Hydrate(doc, &n))
	require.Equal(t, "hello world", n.Body.String())

	n.Body.Splice(5, 0, " there")
	require.Equal(t, "hello there world", n.Body.String())

	require.NoError(t, autosurgeon.Reconcile(doc, n))
	require.Equal(t, "hello there world", textOf(t, doc))
}

func TestTextNegativeDelete(t *testing.T) {
	txt := autosurgeon.NewText("abcdef")
	txt.Splice(4, -2, "")
	require.Equal(t, "abef", txt.String())

	// deleting past the start clamps
	txt = autosurgeon.NewText("abc")
	txt.Splice(1, -5, "X")
	require.Equal(t, "Xbc", txt.String())
}

func TestTextUpdateDiffs(t *testing.T) {
	doc := doctest.New()
	require.NoError(t, autosurgeon.Reconcile(doc, note{Body: autosurgeon.NewText("the quick brown fox")}))

	var n note
	require.NoError(t, autosurgeon.Hydrate(doc, &n))
	n.Body.Update("the quick red fox")
	require.Equal(t, "the quick red fox", n.Body.String())

	require.NoError(t, autosurgeon.Reconcile(doc, n))
	require.Equal(t, "the quick red fox", textOf(t, doc))
}

func TestTextUpdateCombiningMarks(t *testing.T) {
	doc := doctest.New()
	require.NoError(t, autosurgeon.Reconcile(doc, note{Body: autosurgeon.NewText("café au lait")}))

	var n note
	require.NoError(t, autosurgeon.Hydrate(doc, &n))
	n.Body.Update("café con leche")
	require.Equal(t, "café con leche", n.Body.String())

	require.NoError(t, autosurgeon.Reconcile(doc, n))
	require.Equal(t, "café con leche", textOf(t, doc))
}

func TestTextRuneOffsets(t *testing.T) {
	doc := doctest.New()
	require.NoError(t, autosurgeon.Reconcile(doc, note{Body: autosurgeon.NewText("héllo")}))

	var n note
	require.NoError(t, autosurgeon.Hydrate(doc, &n))
	n.Body.Splice(5, 0, "!")
	require.Equal(t, "héllo!", n.Body.String())

	require.NoError(t, autosurgeon.Reconcile(doc, n))
	require.Equal(t, "héllo!", textOf(t, doc))
}

func TestTextStaleHeads(t *testing.T) {
	doc := doctest.New()
	require.NoError(t, autosurgeon.Reconcile(doc, note{Body: autosurgeon.NewText("hello")}))

	var n note
	require.NoError(t, autosurgeon.Hydrate(doc, &n))
	n.Body.Splice(0, 0, "x")

	// the document moves on before the edits are replayed
	require.NoError(t, doc.Put(autosurgeon.Root, autosurgeon.Key("other"), autosurgeon.IntValue(1)))

	heads := doc.Heads()
	err := autosurgeon.Reconcile(doc, n)
	require.Error(t, err)
	var stale *autosurgeon.StaleHeadsError
	require.ErrorAs(t, err, &stale)

	// the failed replay left the document untouched
	require.True(t, autosurgeon.HeadsEqual(heads, doc.Heads()))
	require.Equal(t, "hello", textOf(t, doc))
}

func TestTextMergeNonOverlapping(t *testing.T) {
	d := doctest.New()
	require.NoError(t, autosurgeon.Reconcile(d, note{Body: autosurgeon.NewText("hello world")}))
	f := d.Fork()

	var nd note
	require.NoError(t, autosurgeon.Hydrate(d, &nd))
	nd.Body.Splice(0, 0, "say ")
	require.NoError(t, autosurgeon.Reconcile(d, nd))

	var nf note
	require.NoError(t, autosurgeon.Hydrate(f, &nf))
	nf.Body.Splice(11, 0, "!")
	require.NoError(t, autosurgeon.Reconcile(f, nf))

	require.NoError(t, d.Merge(f))
	require.NoError(t, f.Merge(d))
	require.Equal(t, "say hello world!", textOf(t, d))
	require.Equal(t, textOf(t, d), textOf(t, f))
}
