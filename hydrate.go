package autosurgeon

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var (
	uuidType     = reflect.TypeOf(uuid.UUID{})
	timeType     = reflect.TypeOf(time.Time{})
	hydraterType = reflect.TypeOf((*Hydrater)(nil)).Elem()
	anyType      = reflect.TypeOf((*any)(nil)).Elem()
)

// Hydrater is implemented by types that read themselves out of a
// document slot, bypassing the reflection hydrator. Text and Counter
// are built on it.
type Hydrater interface {
	HydrateFrom(doc ReadDoc, obj ObjID, prop Prop) error
}

// Hydrate reads the whole document into out, which must be a non-nil
// pointer to a map-shaped target (struct, map or any).
func Hydrate(doc ReadDoc, out any) error {
	rv, err := targetValue(out)
	if err != nil {
		return err
	}
	return hydrateInto(doc, ObjValue(KindMap), Root, rv)
}

// HydrateProp reads the slot at (obj, prop) into out, which must be a
// non-nil pointer.
func HydrateProp(doc ReadDoc, obj ObjID, prop Prop, out any) error {
	rv, err := targetValue(out)
	if err != nil {
		return err
	}
	return hydrateValue(doc, obj, prop, rv)
}

// HydratePath walks path from obj and hydrates the final slot into
// out. It returns found=false, with no error, when any step of the
// walk dead-ends: a missing slot, a scalar where an object is needed,
// or a prop of the wrong sort for its container. An empty path at the
// root hydrates the whole document; at a nested object it hydrates the
// object's own slot in its parent.
func HydratePath(doc ReadDoc, obj ObjID, path []Prop, out any) (bool, error) {
	if len(path) == 0 {
		if obj == Root {
			return true, Hydrate(doc, out)
		}
		parent, pprop, ok := doc.Parent(obj)
		if !ok {
			return false, nil
		}
		return true, HydrateProp(doc, parent, pprop, out)
	}
	cur := obj
	kind, ok := doc.ObjectKind(cur)
	if !ok {
		return false, nil
	}
	for i := 0; i < len(path)-1; i++ {
		prop := path[i]
		if !propMatches(prop, kind) {
			return false, nil
		}
		v, id, found, err := doc.Get(cur, prop)
		if err != nil {
			return false, err
		}
		if !found || !v.Kind.IsObject() {
			return false, nil
		}
		cur, kind = id, v.Kind
	}
	last := path[len(path)-1]
	if !propMatches(last, kind) {
		return false, nil
	}
	return true, HydrateProp(doc, cur, last, out)
}

func propMatches(p Prop, kind Kind) bool {
	if p.IsIndex() {
		return kind == KindSeq || kind == KindText
	}
	return kind == KindMap
}

func targetValue(out any) (reflect.Value, error) {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("hydrate target must be a non-nil pointer, got %T", out)
	}
	return rv.Elem(), nil
}

// hydErr tags err with the prop it occurred under, extending the path
// of an inner HydrateError rather than nesting.
func hydErr(prop Prop, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := err.(*HydrateError); ok {
		return &HydrateError{Path: append([]Prop{prop}, he.Path...), Err: he.Err}
	}
	return &HydrateError{Path: []Prop{prop}, Err: err}
}

func hydrateValue(doc ReadDoc, obj ObjID, prop Prop, out reflect.Value) error {
	if h, ok := asHydrater(out); ok {
		return hydErr(prop, h.HydrateFrom(doc, obj, prop))
	}
	v, id, found, err := doc.Get(obj, prop)
	if err != nil {
		return hydErr(prop, err)
	}
	if !found {
		if out.Kind() == reflect.Pointer {
			out.Set(reflect.Zero(out.Type()))
			return nil
		}
		return hydErr(prop, &UnexpectedError{Expected: out.Type().String(), Found: "nothing"})
	}
	return hydErr(prop, hydrateInto(doc, v, id, out))
}

func hydrateInto(doc ReadDoc, v Value, id ObjID, out reflect.Value) error {
	switch out.Kind() {
	case reflect.Pointer:
		if v.Kind == KindNull {
			out.Set(reflect.Zero(out.Type()))
			return nil
		}
		if out.IsNil() {
			out.Set(reflect.New(out.Type().Elem()))
		}
		return hydrateInto(doc, v, id, out.Elem())
	case reflect.Interface:
		if out.Type().NumMethod() != 0 {
			return unexpected(out.Type().String(), v.Kind)
		}
		g, err := hydrateAny(doc, v, id)
		if err != nil {
			return err
		}
		if g == nil {
			out.Set(reflect.Zero(out.Type()))
		} else {
			out.Set(reflect.ValueOf(g))
		}
		return nil
	}

	if out.Type() == uuidType {
		return hydrateUUID(v, out)
	}
	if out.Type() == timeType {
		if v.Kind != KindTimestamp {
			return unexpected("timestamp", v.Kind)
		}
		out.Set(reflect.ValueOf(time.UnixMilli(v.Int).UTC()))
		return nil
	}

	switch v.Kind {
	case KindMap:
		return hydrateMapInto(doc, id, out)
	case KindSeq:
		return hydrateSeqInto(doc, id, out)
	case KindText:
		return unexpected(out.Type().String(), KindText)
	default:
		return hydrateScalarInto(v, out)
	}
}

func hydrateUUID(v Value, out reflect.Value) error {
	if v.Kind != KindBytes {
		return unexpected("bytes", v.Kind)
	}
	u, err := uuid.FromBytes(v.Bytes)
	if err != nil {
		return &ParseError{Target: "uuid", Err: err}
	}
	out.Set(reflect.ValueOf(u))
	return nil
}

func hydrateScalarInto(v Value, out reflect.Value) error {
	t := out.Type()
	switch out.Kind() {
	case reflect.String:
		if v.Kind != KindStr {
			return unexpected("string", v.Kind)
		}
		out.SetString(v.Str)
		return nil
	case reflect.Bool:
		if v.Kind != KindBool {
			return unexpected("bool", v.Kind)
		}
		out.SetBool(v.Bool)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.Kind != KindInt {
			return unexpected("int", v.Kind)
		}
		if out.OverflowInt(v.Int) {
			return &ParseError{Target: t.String(), Err: fmt.Errorf("%d out of range", v.Int)}
		}
		out.SetInt(v.Int)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v.Kind != KindUint {
			return unexpected("uint", v.Kind)
		}
		if out.OverflowUint(v.Uint) {
			return &ParseError{Target: t.String(), Err: fmt.Errorf("%d out of range", v.Uint)}
		}
		out.SetUint(v.Uint)
		return nil
	case reflect.Float32, reflect.Float64:
		if v.Kind != KindF64 {
			return unexpected("float", v.Kind)
		}
		out.SetFloat(v.F64)
		return nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			if v.Kind != KindBytes {
				return unexpected("bytes", v.Kind)
			}
			out.SetBytes(append([]byte(nil), v.Bytes...))
			return nil
		}
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			if v.Kind != KindBytes {
				return unexpected("bytes", v.Kind)
			}
			if len(v.Bytes) != t.Len() {
				return &ParseError{Target: t.String(),
					Err: fmt.Errorf("got %d bytes, want %d", len(v.Bytes), t.Len())}
			}
			reflect.Copy(out, reflect.ValueOf(v.Bytes))
			return nil
		}
	}
	return unexpected(t.String(), v.Kind)
}

func hydrateMapInto(doc ReadDoc, id ObjID, out reflect.Value) error {
	t := out.Type()
	switch out.Kind() {
	case reflect.Struct:
		if t == timeType {
			return unexpected("timestamp", KindMap)
		}
		fields, err := structFields(t)
		if err != nil {
			return err
		}
		for _, f := range fields {
			fv, ok := fieldByIndex(out, f.index, true)
			if !ok {
				return fmt.Errorf("cannot address field %s of %s", f.name, t)
			}
			if err := hydrateValue(doc, id, Key(f.name), fv); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		entries, err := doc.MapEntries(id)
		if err != nil {
			return err
		}
		m := reflect.MakeMapWithSize(t, len(entries))
		for _, e := range entries {
			k, err := parseMapKey(t.Key(), e.Key)
			if err != nil {
				return err
			}
			ev := reflect.New(t.Elem()).Elem()
			if err := hydrateValue(doc, id, Key(e.Key), ev); err != nil {
				return err
			}
			m.SetMapIndex(k, ev)
		}
		out.Set(m)
		return nil
	}
	return unexpected(t.String(), KindMap)
}

func hydrateSeqInto(doc ReadDoc, id ObjID, out reflect.Value) error {
	t := out.Type()
	n := doc.Length(id)
	switch out.Kind() {
	case reflect.Slice:
		s := reflect.MakeSlice(t, n, n)
		for i := 0; i < n; i++ {
			if err := hydrateValue(doc, id, Index(i), s.Index(i)); err != nil {
				return err
			}
		}
		out.Set(s)
		return nil
	case reflect.Array:
		if n != t.Len() {
			return &ParseError{Target: t.String(),
				Err: fmt.Errorf("got %d elements, want %d", n, t.Len())}
		}
		for i := 0; i < n; i++ {
			if err := hydrateValue(doc, id, Index(i), out.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}
	return unexpected(t.String(), KindSeq)
}

// hydrateAny reads a node generically: maps become map[string]any,
// sequences []any, text string, scalars their natural Go type.
func hydrateAny(doc ReadDoc, v Value, id ObjID) (any, error) {
	switch v.Kind {
	case KindNull:
		return nil, nil
	case KindBool:
		return v.Bool, nil
	case KindInt, KindCounter:
		return v.Int, nil
	case KindUint:
		return v.Uint, nil
	case KindF64:
		return v.F64, nil
	case KindStr:
		return v.Str, nil
	case KindBytes:
		return append([]byte(nil), v.Bytes...), nil
	case KindTimestamp:
		return time.UnixMilli(v.Int).UTC(), nil
	case KindText:
		return doc.TextValue(id)
	case KindMap:
		entries, err := doc.MapEntries(id)
		if err != nil {
			return nil, err
		}
		m := make(map[string]any, len(entries))
		for _, e := range entries {
			ev, err := hydrateAny(doc, e.Value, e.Obj)
			if err != nil {
				return nil, hydErr(Key(e.Key), err)
			}
			m[e.Key] = ev
		}
		return m, nil
	case KindSeq:
		items, err := doc.SeqItems(id)
		if err != nil {
			return nil, err
		}
		s := make([]any, len(items))
		for i, it := range items {
			ev, err := hydrateAny(doc, it.Value, it.Obj)
			if err != nil {
				return nil, hydErr(Index(i), err)
			}
			s[i] = ev
		}
		return s, nil
	}
	return nil, unexpected("any", v.Kind)
}

func parseMapKey(t reflect.Type, key string) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(key).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(key, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, &ParseError{Target: t.String(), Err: err}
		}
		kv := reflect.New(t).Elem()
		kv.SetInt(n)
		return kv, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(key, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, &ParseError{Target: t.String(), Err: err}
		}
		kv := reflect.New(t).Elem()
		kv.SetUint(n)
		return kv, nil
	}
	return reflect.Value{}, fmt.Errorf("unsupported map key type %s", t)
}

// formatMapKey is the inverse of parseMapKey.
func formatMapKey(k reflect.Value) (string, error) {
	switch k.Kind() {
	case reflect.String:
		return k.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", fmt.Errorf("unsupported map key type %s", k.Type())
}

func asHydrater(out reflect.Value) (Hydrater, bool) {
	if !out.IsValid() {
		return nil, false
	}
	if out.Kind() == reflect.Pointer && out.Type().Implements(hydraterType) {
		if out.IsNil() {
			if !out.CanSet() {
				return nil, false
			}
			out.Set(reflect.New(out.Type().Elem()))
		}
		return out.Interface().(Hydrater), true
	}
	if out.CanAddr() && reflect.PointerTo(out.Type()).Implements(hydraterType) {
		return out.Addr().Interface().(Hydrater), true
	}
	return nil, false
}
