package resolver

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	schema "github.com/hanpama/reqgraph/internal/schema"
)

// serializeLeaf converts a resolved value into the response form of a
// built-in scalar, an enum, or an unbound custom scalar (passed through).
func serializeLeaf(sch *schema.Schema, typeName string, value any) (any, error) {
	value = deref(value)
	if value == nil {
		return nil, nil
	}
	switch typeName {
	case "Int":
		return serializeInt(value)
	case "Float":
		return serializeFloat(value)
	case "String":
		return serializeString(typeName, value)
	case "Boolean":
		if b, ok := value.(bool); ok {
			return b, nil
		}
		if rv := reflect.ValueOf(value); rv.Kind() == reflect.Bool {
			return rv.Bool(), nil
		}
		return nil, fmt.Errorf("Boolean cannot represent %v (%T)", value, value)
	case "ID":
		switch rv := reflect.ValueOf(value); rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return strconv.FormatInt(rv.Int(), 10), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return strconv.FormatUint(rv.Uint(), 10), nil
		}
		return serializeString(typeName, value)
	}

	t := sch.Types[typeName]
	if t != nil && t.Kind == schema.TypeKindEnum {
		s, err := serializeString(typeName, value)
		if err != nil {
			return nil, err
		}
		for _, ev := range t.EnumValues {
			if ev.Name == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("enum %s cannot represent value %q", typeName, s)
	}
	return value, nil
}

func deref(value any) any {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

func serializeInt(value any) (any, error) {
	var n int64
	switch rv := reflect.ValueOf(value); rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n = rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt32 {
			return nil, fmt.Errorf("Int cannot represent %v", value)
		}
		n = int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("Int cannot represent non-integer value %v", value)
		}
		n = int64(f)
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	default:
		return nil, fmt.Errorf("Int cannot represent %v (%T)", value, value)
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return nil, fmt.Errorf("Int cannot represent %d: out of 32-bit range", n)
	}
	return int(n), nil
}

func serializeFloat(value any) (any, error) {
	switch rv := reflect.ValueOf(value); rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return nil, fmt.Errorf("Float cannot represent %v (%T)", value, value)
}

func serializeString(typeName string, value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case []byte:
		return string(v), nil
	}
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.String {
		return rv.String(), nil
	}
	return "", fmt.Errorf("%s cannot represent %v (%T)", typeName, value, value)
}
