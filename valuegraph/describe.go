package valuegraph

import (
	"cmp"
	"fmt"
	"reflect"
	"strings"
)

const maxRenderLen = 200

func truncate(s string) string {
	if len(s) > maxRenderLen {
		return s[:maxRenderLen-3] + "..."
	}
	return s
}

func render(v reflect.Value) string {
	if !v.IsValid() {
		return "<nil>"
	}
	return truncate(fmt.Sprintf("%#v", expose(addressable(v)).Interface()))
}

func renderAll(vs []reflect.Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = render(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// compareValues orders map keys and set members of the same type.
func compareValues(a, b reflect.Value) int {
	switch a.Kind() {
	case reflect.String:
		return cmp.Compare(a.String(), b.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp.Compare(a.Int(), b.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return cmp.Compare(a.Uint(), b.Uint())
	case reflect.Float32, reflect.Float64:
		return cmp.Compare(a.Float(), b.Float())
	case reflect.Bool:
		switch {
		case a.Bool() == b.Bool():
			return 0
		case a.Bool():
			return 1
		default:
			return -1
		}
	default:
		return cmp.Compare(
			fmt.Sprintf("%T %#v", a.Interface(), a.Interface()),
			fmt.Sprintf("%T %#v", b.Interface(), b.Interface()),
		)
	}
}
