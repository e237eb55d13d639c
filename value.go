package autosurgeon

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Kind classifies a document node. Scalar kinds carry their payload in
// a Value; object kinds (Map, Seq, Text) identify a nested object which
// is addressed through its ObjID.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindF64
	KindStr
	KindBytes
	KindCounter
	KindTimestamp
	KindMap
	KindSeq
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindF64:
		return "float"
	case KindStr:
		return "string"
	case KindBytes:
		return "bytes"
	case KindCounter:
		return "counter"
	case KindTimestamp:
		return "timestamp"
	case KindMap:
		return "map"
	case KindSeq:
		return "seq"
	case KindText:
		return "text"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsObject reports whether nodes of this kind are objects with their
// own identity rather than scalars.
func (k Kind) IsObject() bool {
	switch k {
	case KindMap, KindSeq, KindText:
		return true
	}
	return false
}

// Value is a single document node as read back from a Doc. For scalar
// kinds the payload lives in the field matching the kind; Counter and
// Timestamp use Int. Object kinds carry no payload here, the object is
// addressed separately by ObjID.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Uint  uint64
	F64   float64
	Str   string
	Bytes []byte
}

func NullValue() Value              { return Value{Kind: KindNull} }
func BoolValue(b bool) Value        { return Value{Kind: KindBool, Bool: b} }
func IntValue(i int64) Value        { return Value{Kind: KindInt, Int: i} }
func UintValue(u uint64) Value      { return Value{Kind: KindUint, Uint: u} }
func F64Value(f float64) Value      { return Value{Kind: KindF64, F64: f} }
func StrValue(s string) Value       { return Value{Kind: KindStr, Str: s} }
func BytesValue(b []byte) Value     { return Value{Kind: KindBytes, Bytes: b} }
func CounterValue(n int64) Value    { return Value{Kind: KindCounter, Int: n} }
func TimestampValue(ms int64) Value { return Value{Kind: KindTimestamp, Int: ms} }

func ObjValue(k Kind) Value { return Value{Kind: k} }

// Equal compares two values by kind and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull, KindMap, KindSeq, KindText:
		return true
	case KindBool:
		return v.Bool == o.Bool
	case KindInt, KindCounter, KindTimestamp:
		return v.Int == o.Int
	case KindUint:
		return v.Uint == o.Uint
	case KindF64:
		return v.F64 == o.F64
	case KindStr:
		return v.Str == o.Str
	case KindBytes:
		return bytes.Equal(v.Bytes, o.Bytes)
	}
	return false
}

func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return fmt.Sprintf("%v", v.Bool)
	case KindInt, KindCounter, KindTimestamp:
		return fmt.Sprintf("%s(%d)", v.Kind, v.Int)
	case KindUint:
		return fmt.Sprintf("uint(%d)", v.Uint)
	case KindF64:
		return fmt.Sprintf("float(%g)", v.F64)
	case KindStr:
		return fmt.Sprintf("%q", v.Str)
	case KindBytes:
		return fmt.Sprintf("bytes(%x)", v.Bytes)
	}
	return v.Kind.String()
}

// Prop addresses one slot inside a parent object: a key in a map or an
// index in a sequence or text.
type Prop struct {
	key     string
	index   int
	isIndex bool
}

// Key returns a Prop addressing a map key.
func Key(k string) Prop { return Prop{key: k} }

// Index returns a Prop addressing a sequence index.
func Index(i int) Prop { return Prop{index: i, isIndex: true} }

func (p Prop) IsIndex() bool { return p.isIndex }

// Key returns the map key and whether this Prop is a key.
func (p Prop) Key() (string, bool) { return p.key, !p.isIndex }

// Index returns the sequence index and whether this Prop is an index.
func (p Prop) Index() (int, bool) { return p.index, p.isIndex }

func (p Prop) String() string {
	if p.isIndex {
		return fmt.Sprintf("[%d]", p.index)
	}
	return p.key
}

// ChangeHash identifies one head of a document's change graph. The
// slice of hashes returned by ReadDoc.Heads is a version token: two
// equal head sets mean the document content is identical.
type ChangeHash [sha256.Size]byte

func (h ChangeHash) String() string { return hex.EncodeToString(h[:]) }

// HeadsEqual reports whether two head sets denote the same document
// version. Order is insignificant; duplicates are not, the sets are
// compared as multisets.
func HeadsEqual(a, b []ChangeHash) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, ha := range a {
		found := false
		for i, hb := range b {
			if !used[i] && ha == hb {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
