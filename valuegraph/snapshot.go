package valuegraph

import (
	"fmt"
	"reflect"
)

type identity struct {
	kind reflect.Kind
	ptr  uintptr
	typ  reflect.Type
	len  int
	cap  int
}

// Snapshotter deep-copies value graphs. Copies made by one Snapshotter share a memo,
// so values aliased across several inputs stay aliased across the copies.
// A Snapshotter is not safe for concurrent use.
type Snapshotter struct {
	memo map[identity]reflect.Value
}

func NewSnapshotter() *Snapshotter {
	return &Snapshotter{memo: make(map[identity]reflect.Value)}
}

// Snapshot deep-copies v with a fresh memo.
func Snapshot(v any) (any, error) {
	return NewSnapshotter().CopyAt(v, nil)
}

func (s *Snapshotter) Copy(v any) (any, error) {
	return s.CopyAt(v, nil)
}

// CopyAt deep-copies v, reporting failures relative to path.
func (s *Snapshotter) CopyAt(v any, path Path) (any, error) {
	if v == nil {
		return nil, nil
	}
	src := addressable(reflect.ValueOf(v))
	dst := reflect.New(src.Type()).Elem()
	if err := s.copyInto(dst, src, path); err != nil {
		return nil, err
	}
	return dst.Interface(), nil
}

// copyInto requires dst to be settable and both dst and src to be addressable
// wherever a struct or array is involved.
func (s *Snapshotter) copyInto(dst, src reflect.Value, path Path) error {
	switch ShapeOf(src.Type()) {
	case ShapeOpaque:
		return copyOpaque(src, path)
	case ShapeReference:
		return s.copyReference(dst, src, path)
	case ShapeMapping, ShapeSet:
		return s.copyMap(dst, src, path)
	case ShapeSequence:
		return s.copySequence(dst, src, path)
	case ShapeRecord:
		return s.copyRecord(dst, src, path)
	case ShapeScalar:
		return s.copyScalar(dst, src, path)
	default:
		panic(fmt.Sprintf("exhaustive match fallback, shape: %s", ShapeOf(src.Type())))
	}
}

func copyOpaque(src reflect.Value, path Path) error {
	switch src.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		if src.IsNil() {
			return nil
		}
	}
	return &UnsupportedValueError{Path: path, Type: src.Type()}
}

// copyScalar copies a value compared as a unit. Types with their own Equal method may
// still be laid out as references (net.IP is a slice), so those are copied deeply.
func (s *Snapshotter) copyScalar(dst, src reflect.Value, path Path) error {
	switch src.Kind() {
	case reflect.Pointer, reflect.Interface:
		return s.copyReference(dst, src, path)
	case reflect.Map:
		return s.copyMap(dst, src, path)
	case reflect.Slice, reflect.Array:
		return s.copySequence(dst, src, path)
	case reflect.Struct:
		return s.copyRecord(dst, src, path)
	default:
		dst.Set(src)
		return nil
	}
}

func (s *Snapshotter) copyReference(dst, src reflect.Value, path Path) error {
	if src.IsNil() {
		return nil
	}
	t := src.Type()
	if src.Kind() == reflect.Interface {
		elem := addressable(src.Elem())
		out := reflect.New(elem.Type()).Elem()
		if err := s.copyInto(out, elem, path); err != nil {
			return err
		}
		dst.Set(out)
		return nil
	}
	if isShared(t.Elem()) {
		dst.Set(src)
		return nil
	}
	id := identity{kind: reflect.Pointer, ptr: src.Pointer(), typ: t}
	if done, ok := s.memo[id]; ok {
		dst.Set(done)
		return nil
	}
	p := reflect.New(t.Elem())
	s.memo[id] = p
	dst.Set(p)
	return s.copyInto(p.Elem(), src.Elem(), path)
}

// copyMap keeps keys as they are: map keys cannot be changed in place, and a pointer
// key stands for the identity of what it points to.
func (s *Snapshotter) copyMap(dst, src reflect.Value, path Path) error {
	if src.IsNil() {
		return nil
	}
	t := src.Type()
	id := identity{kind: reflect.Map, ptr: src.Pointer(), typ: t}
	if done, ok := s.memo[id]; ok {
		dst.Set(done)
		return nil
	}
	m := reflect.MakeMapWithSize(t, src.Len())
	s.memo[id] = m
	dst.Set(m)
	iter := src.MapRange()
	for iter.Next() {
		k := iter.Key()
		cv := reflect.New(t.Elem()).Elem()
		if err := s.copyInto(cv, addressable(iter.Value()), path.Append(Key(k.Interface()))); err != nil {
			return err
		}
		m.SetMapIndex(k, cv)
	}
	return nil
}

func (s *Snapshotter) copySequence(dst, src reflect.Value, path Path) error {
	if src.Kind() == reflect.Slice {
		if src.IsNil() {
			return nil
		}
		id := identity{kind: reflect.Slice, ptr: src.Pointer(), typ: src.Type(), len: src.Len(), cap: src.Cap()}
		if done, ok := s.memo[id]; ok {
			dst.Set(done)
			return nil
		}
		n := reflect.MakeSlice(src.Type(), src.Len(), src.Cap())
		s.memo[id] = n
		dst.Set(n)
		dst = n
	}
	for i := 0; i < src.Len(); i++ {
		if err := s.copyInto(dst.Index(i), src.Index(i), path.Append(Index(i))); err != nil {
			return err
		}
	}
	return nil
}

func (s *Snapshotter) copyRecord(dst, src reflect.Value, path Path) error {
	t := src.Type()
	if isShared(t) {
		dst.Set(src)
		return nil
	}
	for i := 0; i < t.NumField(); i++ {
		if err := s.copyInto(
			expose(dst.Field(i)),
			expose(src.Field(i)),
			path.Append(Field(t.Field(i).Name)),
		); err != nil {
			return err
		}
	}
	return nil
}
