package autosurgeon

import (
	"fmt"
	"reflect"
	"strings"
)

// fieldInfo describes one document-visible struct field.
type fieldInfo struct {
	name  string // document property name
	index []int  // reflect field index chain
	typ   reflect.Type
	key   bool // this field is the struct's identity key
	omit  bool
}

// structFields resolves the document-visible fields of a struct type:
// exported fields, with fields of anonymous embedded structs promoted
// one level, honoring `autosurgeon:"name,key,omit"` tags. Field order
// follows declaration order.
func structFields(t reflect.Type) ([]fieldInfo, error) {
	var fields []fieldInfo
	seen := map[string]bool{}
	keyCount := 0

	var collect func(t reflect.Type, prefix []int) error
	collect = func(t reflect.Type, prefix []int) error {
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			idx := append(append([]int(nil), prefix...), i)

			if !sf.IsExported() {
				continue
			}
			if sf.Anonymous {
				et := sf.Type
				if et.Kind() == reflect.Pointer {
					et = et.Elem()
				}
				if et.Kind() == reflect.Struct && !hasTag(sf) {
					if err := collect(et, idx); err != nil {
						return err
					}
					continue
				}
			}

			info, err := parseFieldTag(sf)
			if err != nil {
				return err
			}
			if info.omit {
				continue
			}
			if seen[info.name] {
				return fmt.Errorf("duplicate field name %q in %s", info.name, t)
			}
			seen[info.name] = true
			if info.key {
				keyCount++
				if keyCount > 1 {
					return fmt.Errorf("multiple key fields in %s", t)
				}
			}
			info.index = idx
			fields = append(fields, info)
		}
		return nil
	}
	if err := collect(t, nil); err != nil {
		return nil, err
	}
	return fields, nil
}

func hasTag(sf reflect.StructField) bool {
	_, ok := sf.Tag.Lookup("autosurgeon")
	return ok
}

func parseFieldTag(sf reflect.StructField) (fieldInfo, error) {
	info := fieldInfo{name: sf.Name, typ: sf.Type}
	tag, ok := sf.Tag.Lookup("autosurgeon")
	if !ok {
		return info, nil
	}
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		info.name = parts[0]
	}
	for _, opt := range parts[1:] {
		switch strings.TrimSpace(opt) {
		case "key":
			info.key = true
		case "omit":
			info.omit = true
		case "":
		default:
			return info, fmt.Errorf("unknown tag option %q on field %s", opt, sf.Name)
		}
	}
	if info.name == "-" {
		info.omit = true
	}
	return info, nil
}

// fieldByIndex walks an index chain, allocating through nil embedded
// struct pointers on the way.
func fieldByIndex(v reflect.Value, index []int, alloc bool) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 {
			for v.Kind() == reflect.Pointer {
				if v.IsNil() {
					if !alloc || !v.CanSet() {
						return reflect.Value{}, false
					}
					v.Set(reflect.New(v.Type().Elem()))
				}
				v = v.Elem()
			}
		}
		v = v.Field(x)
	}
	return v, true
}
