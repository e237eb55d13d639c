// Package doctest provides a small in-memory document engine
// implementing the autosurgeon Doc interface, with Fork, Merge and
// conflict inspection. Merging replays the op log of the other
// document: map slots keep conflict cells resolved by op id, list
// elements use insert-after anchors, counters accumulate increments,
// text is a list of runes. It is a test double, not a production
// CRDT; op ordering covers the cases the engine's tests need and no
// more.
package doctest

import (
	"fmt"
	"sort"

	"github.com/automerge/autosurgeon"
	"github.com/google/uuid"
)

// opID orders every operation: lamport counter first, actor id as the
// tie break. The zero opID stands for "none" (the head anchor of a
// list).
type opID struct {
	ctr   uint64
	actor string
}

func (a opID) isNil() bool { return a.ctr == 0 && a.actor == "" }

func (a opID) after(b opID) bool {
	if a.ctr != b.ctr {
		return a.ctr > b.ctr
	}
	return a.actor > b.actor
}

func (a opID) String() string { return fmt.Sprintf("%d@%s", a.ctr, a.actor) }

// cell is one written value in a slot. Concurrent writes leave
// multiple cells; the one with the greatest op id wins. inc carries
// accumulated increments when val is a counter.
type cell struct {
	id  opID
	val autosurgeon.Value
	obj autosurgeon.ObjID
	inc int64
}

func (c cell) value() autosurgeon.Value {
	if c.val.Kind == autosurgeon.KindCounter {
		v := c.val
		v.Int += c.inc
		return v
	}
	return c.val
}

type slot struct {
	cells []cell
}

func (s *slot) winner() (cell, bool) {
	if len(s.cells) == 0 {
		return cell{}, false
	}
	w := s.cells[0]
	for _, c := range s.cells[1:] {
		if c.id.after(w.id) {
			w = c
		}
	}
	return w, true
}

// removePred drops the cells an op declared as overwritten. Cells
// written concurrently are not in pred and survive as conflicts.
func (s *slot) removePred(pred []opID) {
	if len(pred) == 0 {
		return
	}
	kept := s.cells[:0]
	for _, c := range s.cells {
		dead := false
		for _, p := range pred {
			if c.id == p {
				dead = true
				break
			}
		}
		if !dead {
			kept = append(kept, c)
		}
	}
	s.cells = kept
}

func (s *slot) ids() []opID {
	ids := make([]opID, len(s.cells))
	for i, c := range s.cells {
		ids[i] = c.id
	}
	return ids
}

// elem is one list or text element. An element with no cells left is
// a tombstone: invisible but kept as an insertion anchor.
type elem struct {
	id   opID
	slot slot
}

func (e *elem) visible() bool { return len(e.slot.cells) > 0 }

type object struct {
	kind       autosurgeon.Kind
	parent     autosurgeon.ObjID
	parentKey  string
	parentElem opID
	entries    map[string]*slot
	elems      []*elem
}

func (o *object) visibleElems() []*elem {
	var vs []*elem
	for _, e := range o.elems {
		if e.visible() {
			vs = append(vs, e)
		}
	}
	return vs
}

func (o *object) sortedKeys() []string {
	var keys []string
	for k, s := range o.entries {
		if len(s.cells) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Doc is an in-memory document. The zero value is not usable; use New.
type Doc struct {
	actor string
	ctr   uint64
	objs  map[autosurgeon.ObjID]*object
	log   []op
	seen  map[opID]bool
	head  autosurgeon.ChangeHash
}

var _ autosurgeon.Doc = (*Doc)(nil)

// New returns an empty document with a random actor id.
func New() *Doc { return NewWithActor(uuid.NewString()) }

// NewWithActor returns an empty document with the given actor id.
// Actor ids must be unique among documents that will merge.
func NewWithActor(actor string) *Doc {
	return &Doc{
		actor: actor,
		objs: map[autosurgeon.ObjID]*object{
			autosurgeon.Root: {kind: autosurgeon.KindMap, entries: map[string]*slot{}},
		},
		seen: map[opID]bool{},
	}
}

// Actor returns the document's actor id.
func (d *Doc) Actor() string { return d.actor }

func (d *Doc) Heads() []autosurgeon.ChangeHash {
	return []autosurgeon.ChangeHash{d.head}
}

func (d *Doc) object(id autosurgeon.ObjID) (*object, error) {
	o, ok := d.objs[id]
	if !ok {
		return nil, fmt.Errorf("doctest: no object %q", id)
	}
	return o, nil
}

func (d *Doc) Get(obj autosurgeon.ObjID, prop autosurgeon.Prop) (autosurgeon.Value, autosurgeon.ObjID, bool, error) {
	o, err := d.object(obj)
	if err != nil {
		return autosurgeon.Value{}, "", false, err
	}
	var s *slot
	if key, ok := prop.Key(); ok {
		if o.kind != autosurgeon.KindMap {
			return autosurgeon.Value{}, "", false, fmt.Errorf("doctest: key prop on %s object", o.kind)
		}
		s = o.entries[key]
		if s == nil {
			return autosurgeon.Value{}, "", false, nil
		}
	} else {
		if o.kind != autosurgeon.KindSeq && o.kind != autosurgeon.KindText {
			return autosurgeon.Value{}, "", false, fmt.Errorf("doctest: index prop on %s object", o.kind)
		}
		idx, _ := prop.Index()
		vs := o.visibleElems()
		if idx < 0 || idx >= len(vs) {
			return autosurgeon.Value{}, "", false, nil
		}
		s = &vs[idx].slot
	}
	w, ok := s.winner()
	if !ok {
		return autosurgeon.Value{}, "", false, nil
	}
	return w.value(), w.obj, true, nil
}

func (d *Doc) ObjectKind(obj autosurgeon.ObjID) (autosurgeon.Kind, bool) {
	o, ok := d.objs[obj]
	if !ok {
		return 0, false
	}
	return o.kind, true
}

func (d *Doc) MapEntries(obj autosurgeon.ObjID) ([]autosurgeon.MapEntry, error) {
	o, err := d.object(obj)
	if err != nil {
		return nil, err
	}
	if o.kind != autosurgeon.KindMap {
		return nil, fmt.Errorf("doctest: %q is not a map", obj)
	}
	var entries []autosurgeon.MapEntry
	for _, k := range o.sortedKeys() {
		w, _ := o.entries[k].winner()
		entries = append(entries, autosurgeon.MapEntry{Key: k, Value: w.value(), Obj: w.obj})
	}
	return entries, nil
}

func (d *Doc) SeqItems(obj autosurgeon.ObjID) ([]autosurgeon.SeqItem, error) {
	o, err := d.object(obj)
	if err != nil {
		return nil, err
	}
	if o.kind != autosurgeon.KindSeq {
		return nil, fmt.Errorf("doctest: %q is not a seq", obj)
	}
	var items []autosurgeon.SeqItem
	for _, e := range o.visibleElems() {
		w, _ := e.slot.winner()
		items = append(items, autosurgeon.SeqItem{Value: w.value(), Obj: w.obj})
	}
	return items, nil
}

func (d *Doc) Length(obj autosurgeon.ObjID) int {
	o, ok := d.objs[obj]
	if !ok {
		return 0
	}
	if o.kind == autosurgeon.KindMap {
		return len(o.sortedKeys())
	}
	return len(o.visibleElems())
}

func (d *Doc) TextValue(obj autosurgeon.ObjID) (string, error) {
	o, err := d.object(obj)
	if err != nil {
		return "", err
	}
	if o.kind != autosurgeon.KindText {
		return "", fmt.Errorf("doctest: %q is not a text", obj)
	}
	s := ""
	for _, e := range o.visibleElems() {
		w, _ := e.slot.winner()
		s += w.val.Str
	}
	return s, nil
}

func (d *Doc) Parent(obj autosurgeon.ObjID) (autosurgeon.ObjID, autosurgeon.Prop, bool) {
	o, ok := d.objs[obj]
	if !ok || obj == autosurgeon.Root {
		return "", autosurgeon.Prop{}, false
	}
	po, ok := d.objs[o.parent]
	if !ok {
		return "", autosurgeon.Prop{}, false
	}
	if po.kind == autosurgeon.KindMap {
		return o.parent, autosurgeon.Key(o.parentKey), true
	}
	for i, e := range po.visibleElems() {
		if e.id == o.parentElem {
			return o.parent, autosurgeon.Index(i), true
		}
	}
	return "", autosurgeon.Prop{}, false
}

// Conflicts returns every concurrently written value still present in
// a slot, in op id order. A single-element result means no conflict.
func (d *Doc) Conflicts(obj autosurgeon.ObjID, prop autosurgeon.Prop) ([]autosurgeon.Value, error) {
	o, err := d.object(obj)
	if err != nil {
		return nil, err
	}
	var s *slot
	if key, ok := prop.Key(); ok {
		s = o.entries[key]
		if s == nil {
			return nil, nil
		}
	} else {
		idx, _ := prop.Index()
		vs := o.visibleElems()
		if idx < 0 || idx >= len(vs) {
			return nil, nil
		}
		s = &vs[idx].slot
	}
	cells := append([]cell(nil), s.cells...)
	sort.Slice(cells, func(i, j int) bool { return cells[j].id.after(cells[i].id) })
	vals := make([]autosurgeon.Value, len(cells))
	for i, c := range cells {
		vals[i] = c.value()
	}
	return vals, nil
}
