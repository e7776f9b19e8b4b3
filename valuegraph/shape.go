package valuegraph

import (
	"os"
	"reflect"
	"sync"
	"time"
	"unsafe"
)

// Shape is the structural category a value is compared and copied by.
type Shape int

const (
	ShapeScalar Shape = iota
	ShapeMapping
	ShapeSequence
	ShapeSet
	ShapeRecord
	ShapeReference
	ShapeOpaque
)

func (s Shape) String() string {
	switch s {
	case ShapeScalar:
		return "scalar"
	case ShapeMapping:
		return "mapping"
	case ShapeSequence:
		return "sequence"
	case ShapeSet:
		return "set"
	case ShapeRecord:
		return "record"
	case ShapeReference:
		return "reference"
	case ShapeOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

var (
	opaqueTypes sync.Map // reflect.Type -> struct{}
	sharedTypes sync.Map // reflect.Type -> struct{}
)

func init() {
	RegisterOpaque(reflect.TypeOf(os.File{}))
	RegisterShared(reflect.TypeOf(time.Location{}))
}

// RegisterOpaque marks t as a live handle: snapshotting a value of type t fails.
func RegisterOpaque(t reflect.Type) { opaqueTypes.Store(t, struct{}{}) }

// RegisterShared marks t as immutable by convention: snapshots keep the original instance.
func RegisterShared(t reflect.Type) { sharedTypes.Store(t, struct{}{}) }

func isOpaque(t reflect.Type) bool {
	_, ok := opaqueTypes.Load(t)
	return ok
}

func isShared(t reflect.Type) bool {
	_, ok := sharedTypes.Load(t)
	return ok
}

var emptyStruct = reflect.TypeOf(struct{}{})

// ShapeOf classifies t.
func ShapeOf(t reflect.Type) Shape {
	if isOpaque(t) {
		return ShapeOpaque
	}
	if hasEqualMethod(t) {
		return ShapeScalar
	}
	switch t.Kind() {
	case reflect.Map:
		if t.Elem() == emptyStruct {
			return ShapeSet
		}
		return ShapeMapping
	case reflect.Slice, reflect.Array:
		return ShapeSequence
	case reflect.Struct:
		return ShapeRecord
	case reflect.Pointer, reflect.Interface:
		return ShapeReference
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return ShapeOpaque
	default:
		return ShapeScalar
	}
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

func equalMethod(t reflect.Type) (reflect.Method, bool) {
	if m, ok := t.MethodByName("Equal"); ok {
		mt := m.Type
		if mt.NumIn() == 2 && mt.In(1) == t && mt.NumOut() == 1 && mt.Out(0).Kind() == reflect.Bool {
			return m, true
		}
	}
	if m, ok := t.MethodByName("Equals"); ok {
		mt := m.Type
		if mt.NumIn() == 2 && mt.In(1) == anyType && mt.NumOut() == 1 && mt.Out(0).Kind() == reflect.Bool {
			return m, true
		}
	}
	return reflect.Method{}, false
}

func hasEqualMethod(t reflect.Type) bool {
	_, ok := equalMethod(t)
	return ok
}

// callEqual compares a and b with their own Equal/Equals method.
func callEqual(a, b reflect.Value) (equal, ok bool) {
	m, ok := equalMethod(a.Type())
	if !ok {
		return false, false
	}
	arg := b
	if m.Type.In(1) == anyType {
		arg = reflect.ValueOf(b.Interface())
		if !arg.IsValid() {
			arg = reflect.Zero(anyType)
		}
	}
	return m.Func.Call([]reflect.Value{a, arg})[0].Bool(), true
}

// addressable returns v itself when addressable, otherwise an addressable copy.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	tmp := reflect.New(v.Type()).Elem()
	tmp.Set(v)
	return tmp
}

// expose lifts the read-only flag carried by values reached through unexported fields.
func expose(v reflect.Value) reflect.Value {
	if v.CanInterface() {
		return v
	}
	return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
}
