package resolver

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// DefaultResolve reads the field named name from source. It looks up a map
// key, then a struct field tagged `graphql:"name"` or `json:"name"`, then a
// struct field whose name matches case-insensitively, then a method without
// arguments returning the value (and optionally an error).
//
// A nil source resolves to nil. Unknown fields resolve to nil as well, so an
// absent property reads as null.
func DefaultResolve(source any, name string) (any, error) {
	if source == nil {
		return nil, nil
	}
	if m, ok := source.(map[string]any); ok {
		return m[name], nil
	}

	orig := reflect.ValueOf(source)
	v := orig
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("cannot read %q from %T", name, source)
		}
		elem := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		if !elem.IsValid() {
			return nil, nil
		}
		return elem.Interface(), nil
	case reflect.Struct:
		if idx, ok := structField(v.Type(), name); ok {
			return v.FieldByIndex(idx).Interface(), nil
		}
	}
	// The method set of the original value includes pointer receivers.
	if m, ok := lookupMethod(orig, name); ok {
		return callGetter(m)
	}
	if v.Kind() == reflect.Struct {
		return nil, nil
	}
	return nil, fmt.Errorf("cannot read %q from %T", name, source)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func lookupMethod(v reflect.Value, name string) (reflect.Value, bool) {
	if !v.IsValid() {
		return reflect.Value{}, false
	}
	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !strings.EqualFold(m.Name, name) {
			continue
		}
		mt := m.Type // includes the receiver
		if mt.NumIn() != 1 {
			continue
		}
		if mt.NumOut() == 1 || (mt.NumOut() == 2 && mt.Out(1) == errorType) {
			return v.Method(i), true
		}
	}
	return reflect.Value{}, false
}

func callGetter(m reflect.Value) (any, error) {
	out := m.Call(nil)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

type fieldKey struct {
	t    reflect.Type
	name string
}

// fieldIndex caches struct field lookups by (type, field name).
var fieldIndex sync.Map // fieldKey -> []int, nil when absent

func structField(t reflect.Type, name string) ([]int, bool) {
	key := fieldKey{t: t, name: name}
	if v, ok := fieldIndex.Load(key); ok {
		idx := v.([]int)
		return idx, idx != nil
	}
	idx := findStructField(t, name)
	fieldIndex.Store(key, idx)
	return idx, idx != nil
}

func findStructField(t reflect.Type, name string) []int {
	fields := reflect.VisibleFields(t)
	for _, tag := range []string{"graphql", "json"} {
		for _, f := range fields {
			if !f.IsExported() {
				continue
			}
			if tagName, _, _ := strings.Cut(f.Tag.Get(tag), ","); tagName == name {
				return f.Index
			}
		}
	}
	for _, f := range fields {
		if f.IsExported() && !f.Anonymous && strings.EqualFold(f.Name, name) {
			return f.Index
		}
	}
	return nil
}
