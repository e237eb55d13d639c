package autosurgeon

import (
	"reflect"
)

// Reconciler is the write cursor handed to a value being reconciled.
// The value calls exactly one method to state what shape it takes:
// a scalar method, or one of the container methods which return a
// nested cursor. Heads returns the document version captured when the
// reconcile pass began.
type Reconciler interface {
	None() error
	Bool(v bool) error
	Int(v int64) error
	Uint(v uint64) error
	F64(v float64) error
	Str(v string) error
	Bytes(v []byte) error
	Timestamp(ms int64) error
	Counter() (*CounterReconciler, error)
	Text() (*TextReconciler, error)
	Map() (*MapReconciler, error)
	Seq() (*SeqReconciler, error)
	Heads() []ChangeHash
}

// Reconcilable is implemented by types that control their own
// reconciliation instead of going through reflection. Text and
// Counter are built on it.
type Reconcilable interface {
	ReconcileTo(r Reconciler) error
}

// Reconcile writes value into doc, reusing existing document
// structure wherever the value still matches it. The top level of
// value must be map-shaped. Reconciliation is best-effort: a failure
// partway through leaves the writes already made in place.
func Reconcile(doc Doc, value any) error {
	r := &rootReconciler{doc: doc, heads: doc.Heads()}
	return reconcileValue(r, reflect.ValueOf(value))
}

// ReconcileProp writes value into the single slot at (obj, prop).
func ReconcileProp(doc Doc, obj ObjID, prop Prop, value any) error {
	heads := doc.Heads()
	return recErr(prop, reconcileSlotPut(doc, heads, obj, prop, reflect.ValueOf(value)))
}

// ReconcileInsert inserts value as a fresh element of the sequence
// obj, before index.
func ReconcileInsert(doc Doc, obj ObjID, index int, value any) error {
	heads := doc.Heads()
	r := &propReconciler{doc: doc, heads: heads,
		slot: slotRef{obj: obj, insert: true, index: index}}
	return recErr(Index(index), reconcileValue(r, reflect.ValueOf(value)))
}

// recErr tags err with the prop it occurred under, extending the path
// of an inner ReconcileError rather than nesting.
func recErr(prop Prop, err error) error {
	if err == nil {
		return nil
	}
	if re, ok := err.(*ReconcileError); ok {
		return &ReconcileError{Path: append([]Prop{prop}, re.Path...), Err: re.Err}
	}
	return &ReconcileError{Path: []Prop{prop}, Err: err}
}

// slotRef addresses where a value lands: an existing slot (Put
// semantics) or a fresh sequence position (Insert semantics).
type slotRef struct {
	obj    ObjID
	prop   Prop
	insert bool
	index  int
}

// putScalar writes a scalar, skipping the write when an identical
// scalar is already present so that no-op reconciles leave no trace.
func (s slotRef) putScalar(doc Doc, v Value) error {
	if s.insert {
		return doc.Insert(s.obj, s.index, v)
	}
	ex, _, found, err := doc.Get(s.obj, s.prop)
	if err != nil {
		return err
	}
	if found && ex.Equal(v) {
		return nil
	}
	return doc.Put(s.obj, s.prop, v)
}

// ensureObj reuses the object already in the slot when its kind
// matches, creating a fresh one otherwise.
func (s slotRef) ensureObj(doc Doc, kind Kind) (ObjID, error) {
	if s.insert {
		return doc.InsertObject(s.obj, s.index, kind)
	}
	ex, id, found, err := doc.Get(s.obj, s.prop)
	if err != nil {
		return "", err
	}
	if found && ex.Kind == kind {
		return id, nil
	}
	return doc.PutObject(s.obj, s.prop, kind)
}

// rootReconciler is the cursor at the document root. Only a map may
// reconcile there.
type rootReconciler struct {
	doc   Doc
	heads []ChangeHash
}

func (r *rootReconciler) None() error { return ErrTopLevelNotMap }
func (r *rootReconciler) Bool(bool) error { return ErrTopLevelNotMap }
func (r *rootReconciler) Int(int64) error { return ErrTopLevelNotMap }
func (r *rootReconciler) Uint(uint64) error { return ErrTopLevelNotMap }
func (r *rootReconciler) F64(float64) error { return ErrTopLevelNotMap }
func (r *rootReconciler) Str(string) error { return ErrTopLevelNotMap }
func (r *rootReconciler) Bytes([]byte) error { return ErrTopLevelNotMap }
func (r *rootReconciler) Timestamp(int64) error { return ErrTopLevelNotMap }
func (r *rootReconciler) Heads() []ChangeHash { return r.heads }

func (r *rootReconciler) Counter() (*CounterReconciler, error) { return nil, ErrTopLevelNotMap }
func (r *rootReconciler) Text() (*TextReconciler, error) { return nil, ErrTopLevelNotMap }
func (r *rootReconciler) Seq() (*SeqReconciler, error) { return nil, ErrTopLevelNotMap }

func (r *rootReconciler) Map() (*MapReconciler, error) {
	return &MapReconciler{doc: r.doc, heads: r.heads, obj: Root}, nil
}

// propReconciler is the cursor for a single slot.
type propReconciler struct {
	doc   Doc
	heads []ChangeHash
	slot  slotRef
}

func (r *propReconciler) None() error { return r.slot.putScalar(r.doc, NullValue()) }
func (r *propReconciler) Bool(v bool) error { return r.slot.putScalar(r.doc, BoolValue(v)) }
func (r *propReconciler) Int(v int64) error { return r.slot.putScalar(r.doc, IntValue(v)) }
func (r *propReconciler) Uint(v uint64) error { return r.slot.putScalar(r.doc, UintValue(v)) }
func (r *propReconciler) F64(v float64) error { return r.slot.putScalar(r.doc, F64Value(v)) }
func (r *propReconciler) Str(v string) error { return r.slot.putScalar(r.doc, StrValue(v)) }
func (r *propReconciler) Bytes(v []byte) error { return r.slot.putScalar(r.doc, BytesValue(v)) }
func (r *propReconciler) Timestamp(ms int64) error {
	return r.slot.putScalar(r.doc, TimestampValue(ms))
}
func (r *propReconciler) Heads() []ChangeHash { return r.heads }

func (r *propReconciler) Counter() (*CounterReconciler, error) {
	return &CounterReconciler{doc: r.doc, slot: r.slot}, nil
}

func (r *propReconciler) Text() (*TextReconciler, error) {
	id, err := r.slot.ensureObj(r.doc, KindText)
	if err != nil {
		return nil, err
	}
	return &TextReconciler{doc: r.doc, heads: r.heads, obj: id}, nil
}

func (r *propReconciler) Map() (*MapReconciler, error) {
	id, err := r.slot.ensureObj(r.doc, KindMap)
	if err != nil {
		return nil, err
	}
	return &MapReconciler{doc: r.doc, heads: r.heads, obj: id}, nil
}

func (r *propReconciler) Seq() (*SeqReconciler, error) {
	id, err := r.slot.ensureObj(r.doc, KindSeq)
	if err != nil {
		return nil, err
	}
	return &SeqReconciler{doc: r.doc, heads: r.heads, obj: id}, nil
}

// reconcileSlotPut writes v into (obj, prop) with the identity rule
// applied first: when the existing node has a Found key and the
// incoming value does not present the same Found key, the old node is
// deleted so the value lands as a brand new object. A keyless value
// always updates in place.
func reconcileSlotPut(doc Doc, heads []ChangeHash, obj ObjID, prop Prop, v reflect.Value) error {
	for v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	if v.IsValid() {
		if vk := keyOf(v); !vk.IsNoKey() {
			dk, err := keyFromDoc(v.Type(), doc, obj, prop)
			if err != nil {
				return err
			}
			if dk.IsFound() && !vk.Equal(dk) {
				if _, _, found, err := doc.Get(obj, prop); err != nil {
					return err
				} else if found {
					if err := doc.Delete(obj, prop); err != nil {
						return err
					}
				}
				if idx, isIdx := prop.Index(); isIdx {
					r := &propReconciler{doc: doc, heads: heads,
						slot: slotRef{obj: obj, insert: true, index: idx}}
					return reconcileValue(r, v)
				}
			}
		}
	}
	r := &propReconciler{doc: doc, heads: heads, slot: slotRef{obj: obj, prop: prop}}
	return reconcileValue(r, v)
}

// MapReconciler is the cursor inside a map object.
type MapReconciler struct {
	doc   Doc
	heads []ChangeHash
	obj   ObjID
}

// ObjID returns the id of the map object under the cursor.
func (m *MapReconciler) ObjID() ObjID { return m.obj }

// Put reconciles value into the entry at key, applying the identity
// rule for keyed values.
func (m *MapReconciler) Put(key string, value any) error {
	return m.putValue(key, reflect.ValueOf(value))
}

func (m *MapReconciler) putValue(key string, v reflect.Value) error {
	return recErr(Key(key), reconcileSlotPut(m.doc, m.heads, m.obj, Key(key), v))
}

// Delete removes the entry at key if present.
func (m *MapReconciler) Delete(key string) error {
	_, _, found, err := m.doc.Get(m.obj, Key(key))
	if err != nil || !found {
		return err
	}
	return m.doc.Delete(m.obj, Key(key))
}

// Entry resolves one entry of the map.
func (m *MapReconciler) Entry(key string) (Value, bool, error) {
	v, _, found, err := m.doc.Get(m.obj, Key(key))
	return v, found, err
}

// Entries lists the map's entries in key order.
func (m *MapReconciler) Entries() ([]MapEntry, error) {
	return m.doc.MapEntries(m.obj)
}

// Retain deletes every entry for which keep returns false.
func (m *MapReconciler) Retain(keep func(key string, v Value) bool) error {
	entries, err := m.doc.MapEntries(m.obj)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !keep(e.Key, e.Value) {
			if err := m.doc.Delete(m.obj, Key(e.Key)); err != nil {
				return err
			}
		}
	}
	return nil
}

// HydrateEntryKey hydrates the identity key of the entry at key, as
// seen by exemplar's type.
func (m *MapReconciler) HydrateEntryKey(key string, exemplar any) (LoadKey, error) {
	return keyFromDoc(reflect.TypeOf(exemplar), m.doc, m.obj, Key(key))
}

// SeqReconciler is the cursor inside a sequence object.
type SeqReconciler struct {
	doc   Doc
	heads []ChangeHash
	obj   ObjID
}

// ObjID returns the id of the sequence object under the cursor.
func (s *SeqReconciler) ObjID() ObjID { return s.obj }

// Len returns the current element count.
func (s *SeqReconciler) Len() int { return s.doc.Length(s.obj) }

// Set reconciles value into the element at index, applying the
// identity rule for keyed values.
func (s *SeqReconciler) Set(index int, value any) error {
	return s.setValue(index, reflect.ValueOf(value))
}

func (s *SeqReconciler) setValue(index int, v reflect.Value) error {
	return recErr(Index(index), reconcileSlotPut(s.doc, s.heads, s.obj, Index(index), v))
}

// Insert reconciles value as a fresh element before index.
func (s *SeqReconciler) Insert(index int, value any) error {
	return s.insertValue(index, reflect.ValueOf(value))
}

func (s *SeqReconciler) insertValue(index int, v reflect.Value) error {
	r := &propReconciler{doc: s.doc, heads: s.heads,
		slot: slotRef{obj: s.obj, insert: true, index: index}}
	return recErr(Index(index), reconcileValue(r, v))
}

// Delete removes the element at index.
func (s *SeqReconciler) Delete(index int) error {
	return s.doc.Delete(s.obj, Index(index))
}

// Item resolves one element of the sequence.
func (s *SeqReconciler) Item(index int) (Value, bool, error) {
	v, _, found, err := s.doc.Get(s.obj, Index(index))
	return v, found, err
}

// HydrateItemKey hydrates the identity key of the element at index,
// as seen by exemplar's type.
func (s *SeqReconciler) HydrateItemKey(index int, exemplar any) (LoadKey, error) {
	return keyFromDoc(reflect.TypeOf(exemplar), s.doc, s.obj, Index(index))
}

// TextReconciler is the cursor inside a text object.
type TextReconciler struct {
	doc   Doc
	heads []ChangeHash
	obj   ObjID
}

// Splice removes del runes at pos and inserts text there. A negative
// del deletes the runes before pos instead.
func (t *TextReconciler) Splice(pos, del int, text string) error {
	if del < 0 {
		pos += del
		del = -del
		if pos < 0 {
			del += pos
			pos = 0
		}
	}
	return t.doc.SpliceText(t.obj, pos, del, text)
}

// Value returns the text object's current content.
func (t *TextReconciler) Value() (string, error) { return t.doc.TextValue(t.obj) }

// Heads returns the document version captured when the reconcile pass
// began.
func (t *TextReconciler) Heads() []ChangeHash { return t.heads }

// CounterReconciler is the cursor for a counter slot.
type CounterReconciler struct {
	doc  Doc
	slot slotRef
}

// Set writes an absolute counter value, replacing whatever the slot
// held.
func (c *CounterReconciler) Set(v int64) error {
	return c.slot.putScalar(c.doc, CounterValue(v))
}

// Increment adds by to the counter in the slot. A slot not currently
// holding a counter is replaced by a counter starting at by.
func (c *CounterReconciler) Increment(by int64) error {
	if c.slot.insert {
		return c.doc.Insert(c.slot.obj, c.slot.index, CounterValue(by))
	}
	ex, _, found, err := c.doc.Get(c.slot.obj, c.slot.prop)
	if err != nil {
		return err
	}
	if found && ex.Kind == KindCounter {
		return c.doc.Increment(c.slot.obj, c.slot.prop, by)
	}
	return c.doc.Put(c.slot.obj, c.slot.prop, CounterValue(by))
}
