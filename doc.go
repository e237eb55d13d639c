// Package autosurgeon maps typed Go values onto merge-friendly
// tree-shaped documents. Hydration reads a document into a value;
// reconciliation writes a value back while disturbing the existing
// document structure as little as possible, so that documents edited
// through values on different peers still merge well.
//
// The document itself lives behind the ReadDoc and Doc interfaces. Any
// engine exposing maps, sequences, text and the scalar node kinds can
// sit behind them; the doctest package ships a small in-memory one for
// tests.
package autosurgeon

// ObjID identifies one object (map, sequence or text) inside a
// document. The root map has the well-known id Root.
type ObjID string

// Root is the id of the document's top-level map.
const Root ObjID = "_root"

// MapEntry is one key slot of a map object. Obj is non-empty when the
// entry holds a nested object.
type MapEntry struct {
	Key   string
	Value Value
	Obj   ObjID
}

// SeqItem is one element of a sequence object.
type SeqItem struct {
	Value Value
	Obj   ObjID
}

// ReadDoc is the read side of a document engine.
type ReadDoc interface {
	// Heads returns the current version token. Two equal head sets
	// mean identical document content.
	Heads() []ChangeHash

	// Get resolves one slot. found is false when nothing is present
	// at the prop. For object values the returned ObjID addresses the
	// nested object.
	Get(obj ObjID, prop Prop) (v Value, id ObjID, found bool, err error)

	// ObjectKind reports the kind of an object id, and whether the id
	// names a live object at all.
	ObjectKind(obj ObjID) (Kind, bool)

	// MapEntries lists a map object's entries in key order.
	MapEntries(obj ObjID) ([]MapEntry, error)

	// SeqItems lists a sequence object's elements in order.
	SeqItems(obj ObjID) ([]SeqItem, error)

	// Length returns the entry or element count of an object.
	Length(obj ObjID) int

	// TextValue returns the full content of a text object.
	TextValue(obj ObjID) (string, error)

	// Parent returns the object and prop under which obj sits. ok is
	// false for the root object.
	Parent(obj ObjID) (ObjID, Prop, bool)
}

// Doc adds the write side. Writes address parent object plus prop;
// sequence indices refer to current visible positions.
type Doc interface {
	ReadDoc

	// Put sets a scalar at a map key or overwrites a sequence element.
	Put(obj ObjID, prop Prop, v Value) error

	// PutObject replaces the slot with a fresh, empty object of the
	// given kind and returns its id.
	PutObject(obj ObjID, prop Prop, kind Kind) (ObjID, error)

	// Insert inserts a scalar element before index.
	Insert(obj ObjID, index int, v Value) error

	// InsertObject inserts a fresh, empty object before index.
	InsertObject(obj ObjID, index int, kind Kind) (ObjID, error)

	// Increment adds by to the counter at the slot.
	Increment(obj ObjID, prop Prop, by int64) error

	// Delete removes the slot.
	Delete(obj ObjID, prop Prop) error

	// SpliceText removes del runes at pos and inserts text there.
	SpliceText(obj ObjID, pos, del int, text string) error
}
