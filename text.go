package autosurgeon

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Text is a collaboratively edited string. A fresh Text (NewText)
// reconciles by replacing the whole text object's content. A Text
// hydrated out of a document instead records every Splice made to it
// and replays those edits on reconcile, so concurrent edits to other
// regions of the same text merge cleanly. Replaying against a
// document that changed since hydration fails with StaleHeadsError.
//
// All positions are rune offsets.
type Text struct {
	value      []rune
	edits      []splice
	heads      []ChangeHash
	rehydrated bool
}

type splice struct {
	pos    int
	del    int
	insert string
}

// NewText returns a fresh Text holding s.
func NewText(s string) *Text { return &Text{value: []rune(s)} }

func (t *Text) String() string { return string(t.value) }

// Len returns the text length in runes.
func (t *Text) Len() int { return len(t.value) }

// Splice removes del runes at pos and inserts the given string there.
// A negative del removes the runes before pos instead. Out-of-range
// positions are clamped.
func (t *Text) Splice(pos, del int, insert string) {
	if del < 0 {
		pos += del
		del = -del
		if pos < 0 {
			del += pos
			pos = 0
		}
	}
	if pos > len(t.value) {
		pos = len(t.value)
	}
	if del > len(t.value)-pos {
		del = len(t.value) - pos
	}
	ins := []rune(insert)
	next := make([]rune, 0, len(t.value)-del+len(ins))
	next = append(next, t.value[:pos]...)
	next = append(next, ins...)
	next = append(next, t.value[pos+del:]...)
	t.value = next
	if t.rehydrated {
		t.edits = append(t.edits, splice{pos: pos, del: del, insert: insert})
	}
}

// Update diffs the current content against s and applies the
// difference as splices, so unchanged regions stay untouched in the
// document. The diff works at rune granularity, tidied to coarser
// boundaries; a combining character sequence can still end up split
// across splices, though the resulting text is always exactly s.
func (t *Text) Update(s string) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(t.value), s, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	idx := 0
	for _, d := range diffs {
		n := len([]rune(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			idx += n
		case diffmatchpatch.DiffDelete:
			t.Splice(idx, n, "")
		case diffmatchpatch.DiffInsert:
			t.Splice(idx, 0, d.Text)
			idx += n
		}
	}
}

func (t *Text) ReconcileTo(r Reconciler) error {
	tr, err := r.Text()
	if err != nil {
		return err
	}
	if !t.rehydrated {
		cur, err := tr.Value()
		if err != nil {
			return err
		}
		if cur == string(t.value) {
			return nil
		}
		return tr.Splice(0, len([]rune(cur)), string(t.value))
	}
	if !HeadsEqual(t.heads, tr.Heads()) {
		return &StaleHeadsError{Expected: t.heads, Found: tr.Heads()}
	}
	for _, e := range t.edits {
		if err := tr.Splice(e.pos, e.del, e.insert); err != nil {
			return err
		}
	}
	return nil
}

func (t *Text) HydrateFrom(doc ReadDoc, obj ObjID, prop Prop) error {
	v, id, found, err := doc.Get(obj, prop)
	if err != nil {
		return err
	}
	if !found {
		return &UnexpectedError{Expected: "text", Found: "nothing"}
	}
	if v.Kind != KindText {
		return unexpected("text", v.Kind)
	}
	s, err := doc.TextValue(id)
	if err != nil {
		return err
	}
	*t = Text{value: []rune(s), heads: doc.Heads(), rehydrated: true}
	return nil
}
