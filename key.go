package autosurgeon

import (
	"fmt"
	"reflect"
)

type keyState uint8

const (
	noKey keyState = iota
	keyNotFound
	keyFound
)

// LoadKey is the result of asking a type for its identity key, either
// from an in-memory value or from an existing document node. It is a
// tri-state:
//
//   - NoKey: the type has no notion of identity.
//   - KeyNotFound: the type is keyed but this particular instance or
//     node does not resolve to one. A fresh instance of a keyed type
//     overwriting an existing keyed node is treated as a new object,
//     which is why this state is distinct from NoKey.
//   - Found: a concrete key value.
//
// Key payloads are normalized to a small comparable set: bool, int64,
// uint64, float64, string, [16]byte.
type LoadKey struct {
	state keyState
	value any
}

// NoKey is the key of types without identity.
func NoKey() LoadKey { return LoadKey{} }

// KeyNotFound marks a keyed type whose key is absent.
func KeyNotFound() LoadKey { return LoadKey{state: keyNotFound} }

// FoundKey wraps a concrete key value.
func FoundKey(v any) LoadKey { return LoadKey{state: keyFound, value: v} }

func (k LoadKey) IsNoKey() bool { return k.state == noKey }
func (k LoadKey) IsFound() bool { return k.state == keyFound }

// Value returns the key payload when the key is Found.
func (k LoadKey) Value() (any, bool) {
	if k.state != keyFound {
		return nil, false
	}
	return k.value, true
}

// Equal reports whether both keys are Found and carry the same value.
func (k LoadKey) Equal(o LoadKey) bool {
	if k.state != keyFound || o.state != keyFound {
		return false
	}
	return k.value == o.value
}

func (k LoadKey) String() string {
	switch k.state {
	case noKey:
		return "NoKey"
	case keyNotFound:
		return "KeyNotFound"
	}
	return fmt.Sprintf("Key(%v)", k.value)
}

// Keyer is implemented by types that derive their own identity key
// from an in-memory value.
type Keyer interface {
	ReconcileKey() LoadKey
}

// KeyHydrater is implemented by types that derive the identity key of
// an existing document node. The method is called on a zero value of
// the type; it must not depend on receiver state.
type KeyHydrater interface {
	HydrateReconcileKey(doc ReadDoc, obj ObjID, prop Prop) (LoadKey, error)
}

// normalizeKey folds a scalar into the comparable key payload set.
// ok is false for values outside it.
func normalizeKey(v reflect.Value) (any, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if v.Type() == uuidType {
		return v.Interface(), true
	}
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.String:
		return v.String(), true
	}
	return nil, false
}

// keyOf derives the identity key of an in-memory value.
func keyOf(v reflect.Value) LoadKey {
	if !v.IsValid() {
		return NoKey()
	}
	if k, ok := asKeyer(v); ok {
		return k.ReconcileKey()
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return NoKey()
		}
		v = v.Elem()
		if k, ok := asKeyer(v); ok {
			return k.ReconcileKey()
		}
	}
	if v.Type() == uuidType {
		return FoundKey(v.Interface())
	}
	switch v.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		key, _ := normalizeKey(v)
		return FoundKey(key)
	case reflect.Struct:
		if v.Type() == timeType {
			return NoKey()
		}
		fields, err := structFields(v.Type())
		if err != nil {
			return NoKey()
		}
		for _, f := range fields {
			if f.key {
				fv, ok := fieldByIndex(v, f.index, false)
				if !ok {
					return KeyNotFound()
				}
				fk := keyOf(fv)
				if fk.IsNoKey() {
					return KeyNotFound()
				}
				return fk
			}
		}
	}
	return NoKey()
}

// typeHasKey reports whether values of t can ever produce a key. It
// gates the per-element key hydration done before a sequence diff.
func typeHasKey(t reflect.Type) bool {
	if t.Implements(keyHydraterType) || reflect.PointerTo(t).Implements(keyHydraterType) {
		return true
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == uuidType {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Struct:
		if t == timeType {
			return false
		}
		fields, err := structFields(t)
		if err != nil {
			return false
		}
		for _, f := range fields {
			if f.key {
				return true
			}
		}
	}
	return false
}

// keyFromDoc hydrates the identity key of the node at (obj, prop) as
// seen by type t. Types without keys yield NoKey without touching the
// document; keyed types whose node is absent or differently shaped
// yield KeyNotFound.
func keyFromDoc(t reflect.Type, doc ReadDoc, obj ObjID, prop Prop) (LoadKey, error) {
	if kh, ok := zeroKeyHydrater(t); ok {
		return kh.HydrateReconcileKey(doc, obj, prop)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == uuidType {
		return hydrateScalarKey(t, doc, obj, prop)
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return hydrateScalarKey(t, doc, obj, prop)
	case reflect.Struct:
		if t == timeType {
			return NoKey(), nil
		}
		fields, err := structFields(t)
		if err != nil {
			return NoKey(), nil
		}
		for _, f := range fields {
			if f.key {
				return HydrateKey(doc, obj, prop, Key(f.name), reflect.Zero(f.typ).Interface())
			}
		}
	}
	return NoKey(), nil
}

// hydrateScalarKey reads the node at (obj, prop) and, when it parses
// as t, returns it as a Found key.
func hydrateScalarKey(t reflect.Type, doc ReadDoc, obj ObjID, prop Prop) (LoadKey, error) {
	out := reflect.New(t)
	err := hydrateValue(doc, obj, prop, out.Elem())
	if err != nil {
		if err = StripUnexpected(err); err != nil {
			return LoadKey{}, err
		}
		return KeyNotFound(), nil
	}
	key, ok := normalizeKey(out.Elem())
	if !ok {
		return KeyNotFound(), nil
	}
	return FoundKey(key), nil
}

// HydrateKey hydrates the key slot inner within the node at outer,
// using exemplar's type as the key type. A missing node, a missing
// key, or a key of the wrong shape all come back as KeyNotFound;
// document-engine faults propagate.
func HydrateKey(doc ReadDoc, obj ObjID, outer, inner Prop, exemplar any) (LoadKey, error) {
	t := reflect.TypeOf(exemplar)
	if t == nil {
		return LoadKey{}, fmt.Errorf("key exemplar must not be nil")
	}
	out := reflect.New(t)
	found, err := HydratePath(doc, obj, []Prop{outer, inner}, out.Interface())
	if err != nil {
		if err = StripUnexpected(err); err != nil {
			return LoadKey{}, err
		}
		return KeyNotFound(), nil
	}
	if !found {
		return KeyNotFound(), nil
	}
	key, ok := normalizeKey(out.Elem())
	if !ok {
		return KeyNotFound(), nil
	}
	return FoundKey(key), nil
}

func asKeyer(v reflect.Value) (Keyer, bool) {
	if !v.CanInterface() {
		return nil, false
	}
	if k, ok := v.Interface().(Keyer); ok {
		return k, true
	}
	if v.CanAddr() {
		if k, ok := v.Addr().Interface().(Keyer); ok {
			return k, true
		}
	} else if v.Kind() != reflect.Pointer && v.Kind() != reflect.Interface {
		if reflect.PointerTo(v.Type()).Implements(keyerType) {
			pv := reflect.New(v.Type())
			pv.Elem().Set(v)
			return pv.Interface().(Keyer), true
		}
	}
	return nil, false
}

func zeroKeyHydrater(t reflect.Type) (KeyHydrater, bool) {
	if t.Implements(keyHydraterType) {
		return reflect.Zero(t).Interface().(KeyHydrater), true
	}
	if reflect.PointerTo(t).Implements(keyHydraterType) {
		return reflect.New(t).Interface().(KeyHydrater), true
	}
	return nil, false
}

var (
	keyerType       = reflect.TypeOf((*Keyer)(nil)).Elem()
	keyHydraterType = reflect.TypeOf((*KeyHydrater)(nil)).Elem()
)
