package valuegraph

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
)

// ErrUnencodable is returned by Encode for values with no stable canonical form.
var ErrUnencodable = errors.New("value has no canonical encoding")

// EncodeError names where encoding failed and why.
type EncodeError struct {
	Path   Path
	Type   reflect.Type
	Reason string
}

func (e *EncodeError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("%s: %s (%s)", ErrUnencodable, e.Type, e.Reason)
	}
	return fmt.Sprintf("%s: %s at %s (%s)", ErrUnencodable, e.Type, e.Path, e.Reason)
}

func (e *EncodeError) Unwrap() error { return ErrUnencodable }

// Encode renders v into a canonical byte form: structurally equal graphs of the same
// types encode identically, map entries are ordered by their own encoding, and
// dynamic types are tagged so 1 and int64(1) stay distinct. Cycles, non-nil funcs and
// chans, and opaque handles are rejected.
func Encode(v any, path Path) ([]byte, error) {
	enc := encoder{onStack: make(map[visit]struct{})}
	var buf bytes.Buffer
	if v == nil {
		buf.WriteString("null")
		return buf.Bytes(), nil
	}
	rv := addressable(reflect.ValueOf(v))
	buf.WriteString(rv.Type().String())
	buf.WriteByte(':')
	if err := enc.encode(&buf, rv, path); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type encoder struct {
	onStack map[visit]struct{}
}

func (e encoder) enter(v reflect.Value, path Path) (func(), error) {
	key := visit{a: v.Pointer(), typ: v.Type(), len: lenOf(v)}
	if _, ok := e.onStack[key]; ok {
		return nil, &EncodeError{Path: path, Type: v.Type(), Reason: "cycle"}
	}
	e.onStack[key] = struct{}{}
	return func() { delete(e.onStack, key) }, nil
}

func lenOf(v reflect.Value) int {
	if v.Kind() == reflect.Slice {
		return v.Len()
	}
	return 0
}

func (e encoder) encode(buf *bytes.Buffer, v reflect.Value, path Path) error {
	t := v.Type()
	if isOpaque(t) {
		return &EncodeError{Path: path, Type: t, Reason: "live handle"}
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		leave, err := e.enter(v, path)
		if err != nil {
			return err
		}
		defer leave()
		buf.WriteByte('&')
		return e.encode(buf, v.Elem(), path)

	case reflect.Interface:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		elem := addressable(v.Elem())
		buf.WriteString(elem.Type().String())
		buf.WriteByte(':')
		return e.encode(buf, elem, path)

	case reflect.Map:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		leave, err := e.enter(v, path)
		if err != nil {
			return err
		}
		defer leave()
		type pair struct{ k, v []byte }
		pairs := make([]pair, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			at := path.Append(Key(iter.Key().Interface()))
			var kb, vb bytes.Buffer
			if err := e.encode(&kb, addressable(iter.Key()), at); err != nil {
				return err
			}
			if err := e.encode(&vb, addressable(iter.Value()), at); err != nil {
				return err
			}
			pairs = append(pairs, pair{kb.Bytes(), vb.Bytes()})
		}
		slices.SortFunc(pairs, func(a, b pair) int { return bytes.Compare(a.k, b.k) })
		buf.WriteByte('{')
		for i, p := range pairs {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(p.k)
			buf.WriteByte(':')
			buf.Write(p.v)
		}
		buf.WriteByte('}')
		return nil

	case reflect.Slice:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		leave, err := e.enter(v, path)
		if err != nil {
			return err
		}
		defer leave()
		return e.encodeElements(buf, v, path)

	case reflect.Array:
		return e.encodeElements(buf, v, path)

	case reflect.Struct:
		buf.WriteByte('{')
		for i := 0; i < t.NumField(); i++ {
			if i > 0 {
				buf.WriteByte(',')
			}
			name := t.Field(i).Name
			buf.WriteString(strconv.Quote(name))
			buf.WriteByte(':')
			if err := e.encode(buf, expose(v.Field(i)), path.Append(Field(name))); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return &EncodeError{Path: path, Type: t, Reason: "live handle"}

	case reflect.Bool:
		buf.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		buf.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		buf.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, 64))
	case reflect.Complex64, reflect.Complex128:
		buf.WriteString(strconv.FormatComplex(v.Complex(), 'g', -1, 128))
	case reflect.String:
		buf.WriteString(strconv.Quote(v.String()))
	default:
		return &EncodeError{Path: path, Type: t, Reason: "unsupported kind " + v.Kind().String()}
	}
	return nil
}

func (e encoder) encodeElements(buf *bytes.Buffer, v reflect.Value, path Path) error {
	buf.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := e.encode(buf, v.Index(i), path.Append(Index(i))); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}
