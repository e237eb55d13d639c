package doctest

import (
	"fmt"

	"github.com/automerge/autosurgeon"
	"github.com/google/uuid"
)

// Fork returns an independent copy of the document with its own actor
// id. Edits to the fork and the original can later be brought back
// together with Merge.
func (d *Doc) Fork() *Doc {
	f := &Doc{
		actor: uuid.NewString(),
		ctr:   d.ctr,
		objs:  make(map[autosurgeon.ObjID]*object, len(d.objs)),
		log:   append([]op(nil), d.log...),
		seen:  make(map[opID]bool, len(d.seen)),
		head:  d.head,
	}
	for id, o := range d.objs {
		f.objs[id] = o.clone()
	}
	for id := range d.seen {
		f.seen[id] = true
	}
	return f
}

func (o *object) clone() *object {
	c := &object{
		kind:       o.kind,
		parent:     o.parent,
		parentKey:  o.parentKey,
		parentElem: o.parentElem,
	}
	if o.entries != nil {
		c.entries = make(map[string]*slot, len(o.entries))
		for k, s := range o.entries {
			c.entries[k] = &slot{cells: append([]cell(nil), s.cells...)}
		}
	}
	if o.elems != nil {
		c.elems = make([]*elem, len(o.elems))
		for i, e := range o.elems {
			c.elems[i] = &elem{id: e.id, slot: slot{cells: append([]cell(nil), e.slot.cells...)}}
		}
	}
	return c
}

// Merge replays every op of other that this document has not seen.
// Merging is commutative between two documents descended from a
// common Fork; after d.Merge(o) and o.Merge(d) both hold the same
// content.
func (d *Doc) Merge(other *Doc) error {
	for _, o := range other.log {
		if d.seen[o.id] {
			continue
		}
		if err := d.apply(o); err != nil {
			return fmt.Errorf("doctest: merge: %w", err)
		}
		d.record(o)
		if o.id.ctr > d.ctr {
			d.ctr = o.id.ctr
		}
	}
	return nil
}
