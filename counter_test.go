package autosurgeon_test

import (
	"testing"

	"github.com/automerge/autosurgeon"
	"github.com/automerge/autosurgeon/doctest"
	"github.com/stretchr/testify/require"
)

type scoreboard struct {
	Score *autosurgeon.Counter `autosurgeon:"score"`
}

func TestCounterFresh(t *testing.T) {
	doc := doctest.New()
	require.NoError(t, autosurgeon.Reconcile(doc, scoreboard{Score: autosurgeon.NewCounter(5)}))

	var out scoreboard
	require.NoError(t, autosurgeon.Hydrate(doc, &out))
	require.Equal(t, int64(5), out.Score.Value())

	// identical fresh counter writes nothing
	heads := doc.Heads()
	require.NoError(t, autosurgeon.Reconcile(doc, scoreboard{Score: autosurgeon.NewCounter(5)}))
	require.True(t, autosurgeon.HeadsEqual(heads, doc.Heads()))
}

func TestCounterIncrementAfterHydrate(t *testing.T) {
	doc := doctest.New()
	require.NoError(t, autosurgeon.Reconcile(doc, scoreboard{Score: autosurgeon.NewCounter(10)}))

	var s scoreboard
	require.NoError(t, autosurgeon.Hydrate(doc, &s))
	s.Score.Increment(4)
	require.Equal(t, int64(14), s.Score.Value())
	require.NoError(t, autosurgeon.Reconcile(doc, s))

	var out scoreboard
	require.NoError(t, autosurgeon.Hydrate(doc, &out))
	require.Equal(t, int64(14), out.Score.Value())
}

func TestCounterNoIncrementIsNoop(t *testing.T) {
	doc := doctest.New()
	require.NoError(t, autosurgeon.Reconcile(doc, scoreboard{Score: autosurgeon.NewCounter(10)}))

	var s scoreboard
	require.NoError(t, autosurgeon.Hydrate(doc, &s))
	heads := doc.Heads()
	require.NoError(t, autosurgeon.Reconcile(doc, s))
	require.True(t, autosurgeon.HeadsEqual(heads, doc.Heads()))
}

func TestCounterConcurrentIncrementsAdd(t *testing.T) {
	d := doctest.New()
	require.NoError(t, autosurgeon.Reconcile(d, scoreboard{Score: autosurgeon.NewCounter(0)}))
	f := d.Fork()

	var sd scoreboard
	require.NoError(t, autosurgeon.Hydrate(d, &sd))
	sd.Score.Increment(5)
	require.NoError(t, autosurgeon.Reconcile(d, sd))

	var sf scoreboard
	require.NoError(t, autosurgeon.Hydrate(f, &sf))
	sf.Score.Increment(3)
	require.NoError(t, autosurgeon.Reconcile(f, sf))

	require.NoError(t, d.Merge(f))
	require.NoError(t, f.Merge(d))

	var out scoreboard
	require.NoError(t, autosurgeon.Hydrate(d, &out))
	require.Equal(t, int64(8), out.Score.Value())

	require.NoError(t, autosurgeon.Hydrate(f, &out))
	require.Equal(t, int64(8), out.Score.Value())
}

func TestCounterHydrateWrongKind(t *testing.T) {
	doc := doctest.New()
	require.NoError(t, autosurgeon.Reconcile(doc, struct{ Score int }{Score: 3}))

	var out struct {
		Score *autosurgeon.Counter `autosurgeon:"Score"`
	}
	err := autosurgeon.Hydrate(doc, &out)
	require.Error(t, err)
	var ue *autosurgeon.UnexpectedError
	require.ErrorAs(t, err, &ue)
}
