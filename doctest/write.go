package doctest

import (
	"crypto/sha256"
	"fmt"

	"github.com/automerge/autosurgeon"
)

type opKind uint8

const (
	opMapPut opKind = iota
	opMapPutObj
	opMapDel
	opMapInc
	opSeqInsert
	opSeqInsertObj
	opSeqSet
	opSeqSetObj
	opSeqDel
	opSeqInc
)

// op is one entry of the replicated log. Everything an op needs to
// replay deterministically on another document is carried inside it:
// the overwritten cell ids (pred), the anchor element for inserts,
// and the id of any object it creates.
type op struct {
	id      opID
	kind    opKind
	obj     autosurgeon.ObjID
	key     string
	elem    opID
	after   opID
	val     autosurgeon.Value
	newObj  autosurgeon.ObjID
	objKind autosurgeon.Kind
	pred    []opID
	inc     int64
}

func (d *Doc) nextOp() opID {
	d.ctr++
	return opID{ctr: d.ctr, actor: d.actor}
}

// commit applies an op locally and records it in the log.
func (d *Doc) commit(o op) error {
	if err := d.apply(o); err != nil {
		return err
	}
	d.record(o)
	return nil
}

func (d *Doc) record(o op) {
	d.log = append(d.log, o)
	d.seen[o.id] = true
	h := sha256.New()
	h.Write(d.head[:])
	fmt.Fprintf(h, "%s|%d|%s|%s|%s|%s|%s|%s|%d|%d",
		o.id, o.kind, o.obj, o.key, o.elem, o.after, o.val, o.newObj, o.objKind, o.inc)
	for _, p := range o.pred {
		fmt.Fprintf(h, "|%s", p)
	}
	copy(d.head[:], h.Sum(nil))
}

// apply mutates object state. It is the single code path for both
// local ops and ops replayed during Merge, which is what makes the
// two sides converge.
func (d *Doc) apply(o op) error {
	obj, err := d.object(o.obj)
	if err != nil {
		return err
	}
	switch o.kind {
	case opMapPut, opMapPutObj:
		s := obj.entries[o.key]
		if s == nil {
			s = &slot{}
			obj.entries[o.key] = s
		}
		s.removePred(o.pred)
		c := cell{id: o.id, val: o.val}
		if o.kind == opMapPutObj {
			d.createObject(o.newObj, o.objKind, o.obj, o.key, opID{})
			c.obj = o.newObj
			c.val = autosurgeon.ObjValue(o.objKind)
		}
		s.cells = append(s.cells, c)
	case opMapDel:
		if s := obj.entries[o.key]; s != nil {
			s.removePred(o.pred)
		}
	case opMapInc:
		if s := obj.entries[o.key]; s != nil {
			incCounters(s, o.inc)
		}
	case opSeqInsert, opSeqInsertObj:
		e := &elem{id: o.id}
		c := cell{id: o.id, val: o.val}
		if o.kind == opSeqInsertObj {
			d.createObject(o.newObj, o.objKind, o.obj, "", o.id)
			c.obj = o.newObj
			c.val = autosurgeon.ObjValue(o.objKind)
		}
		e.slot.cells = []cell{c}
		obj.insertElem(e, o.after)
	case opSeqSet, opSeqSetObj:
		e := obj.elemByID(o.elem)
		if e == nil {
			return fmt.Errorf("doctest: no element %s in %q", o.elem, o.obj)
		}
		e.slot.removePred(o.pred)
		c := cell{id: o.id, val: o.val}
		if o.kind == opSeqSetObj {
			d.createObject(o.newObj, o.objKind, o.obj, "", o.elem)
			c.obj = o.newObj
			c.val = autosurgeon.ObjValue(o.objKind)
		}
		e.slot.cells = append(e.slot.cells, c)
	case opSeqDel:
		if e := obj.elemByID(o.elem); e != nil {
			e.slot.removePred(o.pred)
		}
	case opSeqInc:
		if e := obj.elemByID(o.elem); e != nil {
			incCounters(&e.slot, o.inc)
		}
	default:
		return fmt.Errorf("doctest: unknown op kind %d", o.kind)
	}
	return nil
}

func incCounters(s *slot, by int64) {
	for i := range s.cells {
		if s.cells[i].val.Kind == autosurgeon.KindCounter {
			s.cells[i].inc += by
		}
	}
}

func (d *Doc) createObject(id autosurgeon.ObjID, kind autosurgeon.Kind,
	parent autosurgeon.ObjID, parentKey string, parentElem opID) {
	o := &object{kind: kind, parent: parent, parentKey: parentKey, parentElem: parentElem}
	if kind == autosurgeon.KindMap {
		o.entries = map[string]*slot{}
	}
	d.objs[id] = o
}

// insertElem places a new element after its anchor, skipping past
// concurrently inserted elements with greater ids so that all peers
// order same-anchor inserts identically.
func (o *object) insertElem(e *elem, after opID) {
	pos := 0
	if !after.isNil() {
		for i, ex := range o.elems {
			if ex.id == after {
				pos = i + 1
				break
			}
		}
	}
	for pos < len(o.elems) && o.elems[pos].id.after(e.id) {
		pos++
	}
	o.elems = append(o.elems, nil)
	copy(o.elems[pos+1:], o.elems[pos:])
	o.elems[pos] = e
}

func (o *object) elemByID(id opID) *elem {
	for _, e := range o.elems {
		if e.id == id {
			return e
		}
	}
	return nil
}

// seqTarget resolves a visible index to its element, for set-style
// ops.
func (d *Doc) seqTarget(obj autosurgeon.ObjID, prop autosurgeon.Prop) (*object, *elem, error) {
	o, err := d.object(obj)
	if err != nil {
		return nil, nil, err
	}
	if o.kind != autosurgeon.KindSeq && o.kind != autosurgeon.KindText {
		return nil, nil, fmt.Errorf("doctest: index prop on %s object", o.kind)
	}
	idx, _ := prop.Index()
	vs := o.visibleElems()
	if idx < 0 || idx >= len(vs) {
		return nil, nil, fmt.Errorf("doctest: index %d out of range (len %d)", idx, len(vs))
	}
	return o, vs[idx], nil
}

func checkScalar(v autosurgeon.Value) error {
	if v.Kind.IsObject() {
		return fmt.Errorf("doctest: %s values need PutObject/InsertObject", v.Kind)
	}
	return nil
}

func (d *Doc) Put(obj autosurgeon.ObjID, prop autosurgeon.Prop, v autosurgeon.Value) error {
	if err := checkScalar(v); err != nil {
		return err
	}
	if key, ok := prop.Key(); ok {
		o, err := d.object(obj)
		if err != nil {
			return err
		}
		if o.kind != autosurgeon.KindMap {
			return fmt.Errorf("doctest: key prop on %s object", o.kind)
		}
		var pred []opID
		if s := o.entries[key]; s != nil {
			pred = s.ids()
		}
		return d.commit(op{id: d.nextOp(), kind: opMapPut, obj: obj, key: key, val: v, pred: pred})
	}
	_, e, err := d.seqTarget(obj, prop)
	if err != nil {
		return err
	}
	return d.commit(op{id: d.nextOp(), kind: opSeqSet, obj: obj, elem: e.id, val: v, pred: e.slot.ids()})
}

func (d *Doc) PutObject(obj autosurgeon.ObjID, prop autosurgeon.Prop, kind autosurgeon.Kind) (autosurgeon.ObjID, error) {
	if !kind.IsObject() {
		return "", fmt.Errorf("doctest: %s is not an object kind", kind)
	}
	if key, ok := prop.Key(); ok {
		o, err := d.object(obj)
		if err != nil {
			return "", err
		}
		if o.kind != autosurgeon.KindMap {
			return "", fmt.Errorf("doctest: key prop on %s object", o.kind)
		}
		var pred []opID
		if s := o.entries[key]; s != nil {
			pred = s.ids()
		}
		id := d.nextOp()
		newObj := autosurgeon.ObjID(id.String())
		err = d.commit(op{id: id, kind: opMapPutObj, obj: obj, key: key,
			newObj: newObj, objKind: kind, pred: pred})
		return newObj, err
	}
	_, e, err := d.seqTarget(obj, prop)
	if err != nil {
		return "", err
	}
	id := d.nextOp()
	newObj := autosurgeon.ObjID(id.String())
	err = d.commit(op{id: id, kind: opSeqSetObj, obj: obj, elem: e.id,
		newObj: newObj, objKind: kind, pred: e.slot.ids()})
	return newObj, err
}

func (d *Doc) insertAnchor(obj autosurgeon.ObjID, index int) (*object, opID, error) {
	o, err := d.object(obj)
	if err != nil {
		return nil, opID{}, err
	}
	if o.kind != autosurgeon.KindSeq && o.kind != autosurgeon.KindText {
		return nil, opID{}, fmt.Errorf("doctest: insert into %s object", o.kind)
	}
	vs := o.visibleElems()
	if index < 0 || index > len(vs) {
		return nil, opID{}, fmt.Errorf("doctest: insert index %d out of range (len %d)", index, len(vs))
	}
	if index == 0 {
		return o, opID{}, nil
	}
	return o, vs[index-1].id, nil
}

func (d *Doc) Insert(obj autosurgeon.ObjID, index int, v autosurgeon.Value) error {
	if err := checkScalar(v); err != nil {
		return err
	}
	_, after, err := d.insertAnchor(obj, index)
	if err != nil {
		return err
	}
	return d.commit(op{id: d.nextOp(), kind: opSeqInsert, obj: obj, after: after, val: v})
}

func (d *Doc) InsertObject(obj autosurgeon.ObjID, index int, kind autosurgeon.Kind) (autosurgeon.ObjID, error) {
	if !kind.IsObject() {
		return "", fmt.Errorf("doctest: %s is not an object kind", kind)
	}
	_, after, err := d.insertAnchor(obj, index)
	if err != nil {
		return "", err
	}
	id := d.nextOp()
	newObj := autosurgeon.ObjID(id.String())
	err = d.commit(op{id: id, kind: opSeqInsertObj, obj: obj, after: after,
		newObj: newObj, objKind: kind})
	return newObj, err
}

func (d *Doc) Increment(obj autosurgeon.ObjID, prop autosurgeon.Prop, by int64) error {
	if key, ok := prop.Key(); ok {
		o, err := d.object(obj)
		if err != nil {
			return err
		}
		s := o.entries[key]
		if s == nil {
			return fmt.Errorf("doctest: no counter at %q", key)
		}
		return d.commit(op{id: d.nextOp(), kind: opMapInc, obj: obj, key: key, inc: by})
	}
	_, e, err := d.seqTarget(obj, prop)
	if err != nil {
		return err
	}
	return d.commit(op{id: d.nextOp(), kind: opSeqInc, obj: obj, elem: e.id, inc: by})
}

func (d *Doc) Delete(obj autosurgeon.ObjID, prop autosurgeon.Prop) error {
	if key, ok := prop.Key(); ok {
		o, err := d.object(obj)
		if err != nil {
			return err
		}
		s := o.entries[key]
		if s == nil || len(s.cells) == 0 {
			return nil
		}
		return d.commit(op{id: d.nextOp(), kind: opMapDel, obj: obj, key: key, pred: s.ids()})
	}
	_, e, err := d.seqTarget(obj, prop)
	if err != nil {
		return err
	}
	return d.commit(op{id: d.nextOp(), kind: opSeqDel, obj: obj, elem: e.id, pred: e.slot.ids()})
}

func (d *Doc) SpliceText(obj autosurgeon.ObjID, pos, del int, text string) error {
	o, err := d.object(obj)
	if err != nil {
		return err
	}
	if o.kind != autosurgeon.KindText {
		return fmt.Errorf("doctest: %q is not a text", obj)
	}
	n := len(o.visibleElems())
	if pos < 0 || pos > n {
		return fmt.Errorf("doctest: splice position %d out of range (len %d)", pos, n)
	}
	if del > n-pos {
		del = n - pos
	}
	for i := 0; i < del; i++ {
		if err := d.Delete(obj, autosurgeon.Index(pos)); err != nil {
			return err
		}
	}
	for i, r := range []rune(text) {
		if err := d.Insert(obj, pos+i, autosurgeon.StrValue(string(r))); err != nil {
			return err
		}
	}
	return nil
}
