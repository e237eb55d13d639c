package autosurgeon

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/automerge/autosurgeon/internal/lcs"
	"github.com/google/uuid"
)

var reconcilableType = reflect.TypeOf((*Reconcilable)(nil)).Elem()

// reconcileValue drives one value through a cursor, dispatching on
// its Go type the way the hydrator does in reverse.
func reconcileValue(r Reconciler, v reflect.Value) error {
	if !v.IsValid() {
		return r.None()
	}
	if rec, ok := asReconcilable(v); ok {
		return rec.ReconcileTo(r)
	}
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return r.None()
		}
		return reconcileValue(r, v.Elem())
	}

	if v.Type() == uuidType {
		u := v.Interface().(uuid.UUID)
		return r.Bytes(u[:])
	}
	if v.Type() == timeType {
		return r.Timestamp(v.Interface().(time.Time).UnixMilli())
	}

	switch v.Kind() {
	case reflect.Bool:
		return r.Bool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return r.Int(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return r.Uint(v.Uint())
	case reflect.Float32, reflect.Float64:
		return r.F64(v.Float())
	case reflect.String:
		return r.Str(v.String())
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return r.Bytes(v.Bytes())
		}
		return reconcileSeq(r, v)
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			bs := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(bs), v)
			return r.Bytes(bs)
		}
		return reconcileTuple(r, v)
	case reflect.Map:
		return reconcileMap(r, v)
	case reflect.Struct:
		return reconcileStruct(r, v)
	}
	return fmt.Errorf("cannot reconcile value of type %s", v.Type())
}

func reconcileStruct(r Reconciler, v reflect.Value) error {
	m, err := r.Map()
	if err != nil {
		return err
	}
	fields, err := structFields(v.Type())
	if err != nil {
		return err
	}
	for _, f := range fields {
		fv, ok := fieldByIndex(v, f.index, false)
		if !ok {
			// unreachable through a nil embedded pointer
			fv = reflect.Value{}
		}
		if err := m.putValue(f.name, fv); err != nil {
			return err
		}
	}
	return nil
}

// reconcileMap writes every entry of a Go map. Entries present in the
// document but absent from the map are left alone; callers wanting
// removal use MapReconciler.Retain through a Reconcilable type.
func reconcileMap(r Reconciler, v reflect.Value) error {
	m, err := r.Map()
	if err != nil {
		return err
	}
	type entry struct {
		key string
		val reflect.Value
	}
	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k, err := formatMapKey(iter.Key())
		if err != nil {
			return err
		}
		entries = append(entries, entry{key: k, val: iter.Value()})
	}
	// deterministic write order
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	for _, e := range entries {
		if err := m.putValue(e.key, e.val); err != nil {
			return err
		}
	}
	return nil
}

// reconcileSeq diffs a Go slice against the document sequence by
// identity key, falling back to positional matching for keyless
// element types, and applies the edit script in order.
func reconcileSeq(r Reconciler, v reflect.Value) error {
	s, err := r.Seq()
	if err != nil {
		return err
	}
	elemT := v.Type().Elem()
	newN := v.Len()
	oldN := s.Len()

	keyed := typeHasKey(elemT)
	oldKeys := make([]LoadKey, oldN)
	newKeys := make([]LoadKey, newN)
	if keyed {
		for i := 0; i < oldN; i++ {
			oldKeys[i], err = keyFromDoc(elemT, s.doc, s.obj, Index(i))
			if err != nil {
				return err
			}
		}
		for i := 0; i < newN; i++ {
			newKeys[i] = keyOf(v.Index(i))
		}
	}

	eq := func(oi, ni int) bool {
		ok, nk := oldKeys[oi], newKeys[ni]
		if ok.IsFound() && nk.IsFound() {
			return ok.Equal(nk)
		}
		if ok.IsFound() != nk.IsFound() {
			return false
		}
		return oi == ni
	}
	h := &seqHook{s: s, v: v}
	return lcs.Diff(h, eq, oldN, newN)
}

// seqHook applies a diff edit script against the live sequence. idx
// is the write cursor: equal runs and inserts advance it, deletes
// remove at it.
type seqHook struct {
	s   *SeqReconciler
	v   reflect.Value
	idx int
}

func (h *seqHook) Equal(oldIdx, newIdx, n int) error {
	for k := 0; k < n; k++ {
		if err := h.s.setValue(h.idx, h.v.Index(newIdx+k)); err != nil {
			return err
		}
		h.idx++
	}
	return nil
}

func (h *seqHook) Delete(oldIdx, n int) error {
	for k := 0; k < n; k++ {
		if err := h.s.Delete(h.idx); err != nil {
			return err
		}
	}
	return nil
}

func (h *seqHook) Insert(newIdx, n int) error {
	for k := 0; k < n; k++ {
		if err := h.s.insertValue(h.idx, h.v.Index(newIdx+k)); err != nil {
			return err
		}
		h.idx++
	}
	return nil
}

// reconcileTuple writes a fixed-arity array positionally: no diff,
// trailing document elements beyond the arity are dropped.
func reconcileTuple(r Reconciler, v reflect.Value) error {
	s, err := r.Seq()
	if err != nil {
		return err
	}
	arity := v.Len()
	oldN := s.Len()
	for oldN > arity {
		if err := s.Delete(arity); err != nil {
			return err
		}
		oldN--
	}
	for i := 0; i < arity; i++ {
		if i < oldN {
			err = s.setValue(i, v.Index(i))
		} else {
			err = s.insertValue(i, v.Index(i))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func asReconcilable(v reflect.Value) (Reconcilable, bool) {
	if !v.CanInterface() {
		return nil, false
	}
	if rec, ok := v.Interface().(Reconcilable); ok {
		return rec, true
	}
	if v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		return nil, false
	}
	if !reflect.PointerTo(v.Type()).Implements(reconcilableType) {
		return nil, false
	}
	if v.CanAddr() {
		return v.Addr().Interface().(Reconcilable), true
	}
	pv := reflect.New(v.Type())
	pv.Elem().Set(v)
	return pv.Interface().(Reconcilable), true
}
