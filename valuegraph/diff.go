package valuegraph

import (
	"fmt"
	"math"
	"reflect"
	"slices"
)

// Diff is the first divergence between two value graphs.
type Diff struct {
	Path        Path
	Description string
}

func (d *Diff) String() string {
	return fmt.Sprintf("%s: %s", d.Path, d.Description)
}

type visit struct {
	a, b uintptr
	typ  reflect.Type
	len  int
}

type differ struct {
	visited map[visit]struct{}
}

// FirstDiff walks before and after depth-first and reports the first place they diverge,
// or nil when they are structurally equal. Descriptions read old -> new.
func FirstDiff(before, after any, path Path) *Diff {
	d := differ{visited: make(map[visit]struct{})}
	var a, b reflect.Value
	if before != nil {
		a = addressable(reflect.ValueOf(before))
	}
	if after != nil {
		b = addressable(reflect.ValueOf(after))
	}
	return d.diff(a, b, path)
}

// Equal reports whether a and b are structurally equal.
func Equal(a, b any) bool {
	return FirstDiff(a, b, nil) == nil
}

func valueDiff(a, b reflect.Value, path Path) *Diff {
	return &Diff{Path: path, Description: fmt.Sprintf("value %s -> %s", render(a), render(b))}
}

// seen records the pair and reports whether it was already being compared.
func (d differ) seen(a, b reflect.Value, length int) bool {
	v := visit{a: a.Pointer(), b: b.Pointer(), typ: a.Type(), len: length}
	if _, ok := d.visited[v]; ok {
		return true
	}
	d.visited[v] = struct{}{}
	return false
}

func (d differ) diff(a, b reflect.Value, path Path) *Diff {
	if !a.IsValid() || !b.IsValid() {
		if a.IsValid() == b.IsValid() {
			return nil
		}
		return valueDiff(a, b, path)
	}
	if a.Type() != b.Type() {
		return &Diff{Path: path, Description: fmt.Sprintf("type %s -> %s", a.Type(), b.Type())}
	}

	switch ShapeOf(a.Type()) {
	case ShapeReference:
		return d.diffReference(a, b, path)
	case ShapeMapping:
		return d.diffMapping(a, b, path)
	case ShapeSet:
		return d.diffSet(a, b, path)
	case ShapeSequence:
		return d.diffSequence(a, b, path)
	case ShapeRecord:
		return d.diffRecord(a, b, path)
	case ShapeOpaque:
		return diffOpaque(a, b, path)
	case ShapeScalar:
		return diffScalar(a, b, path)
	default:
		panic(fmt.Sprintf("exhaustive match fallback, shape: %s", ShapeOf(a.Type())))
	}
}

func (d differ) diffReference(a, b reflect.Value, path Path) *Diff {
	if a.IsNil() || b.IsNil() {
		if a.IsNil() == b.IsNil() {
			return nil
		}
		return valueDiff(a, b, path)
	}
	if a.Kind() == reflect.Interface {
		return d.diff(addressable(a.Elem()), addressable(b.Elem()), path)
	}
	if a.Pointer() == b.Pointer() || d.seen(a, b, 0) {
		return nil
	}
	return d.diff(a.Elem(), b.Elem(), path)
}

func (d differ) diffSequence(a, b reflect.Value, path Path) *Diff {
	if a.Kind() == reflect.Slice {
		if a.Len() != b.Len() {
			return &Diff{Path: path.Append(Len), Description: fmt.Sprintf("%d -> %d", a.Len(), b.Len())}
		}
		if a.Len() == 0 || a.Pointer() == b.Pointer() || d.seen(a, b, a.Len()) {
			return nil
		}
	}
	for i := 0; i < a.Len(); i++ {
		if diff := d.diff(a.Index(i), b.Index(i), path.Append(Index(i))); diff != nil {
			return diff
		}
	}
	return nil
}

func (d differ) diffRecord(a, b reflect.Value, path Path) *Diff {
	t := a.Type()
	for i := 0; i < t.NumField(); i++ {
		if diff := d.diff(
			expose(a.Field(i)),
			expose(b.Field(i)),
			path.Append(Field(t.Field(i).Name)),
		); diff != nil {
			return diff
		}
	}
	return nil
}

// diffOpaque compares live handles by identity.
func diffOpaque(a, b reflect.Value, path Path) *Diff {
	switch a.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		if a.Pointer() == b.Pointer() {
			return nil
		}
	default:
		if a.CanAddr() && b.CanAddr() && a.UnsafeAddr() == b.UnsafeAddr() {
			return nil
		}
	}
	return valueDiff(a, b, path)
}

func diffScalar(a, b reflect.Value, path Path) *Diff {
	if hasEqualMethod(a.Type()) {
		if nilable(a) && (a.IsNil() || b.IsNil()) {
			if a.IsNil() == b.IsNil() {
				return nil
			}
			return valueDiff(a, b, path)
		}
		if eq, _ := callEqual(a, b); !eq {
			return valueDiff(a, b, path)
		}
		return nil
	}

	switch a.Kind() {
	case reflect.Float32, reflect.Float64:
		if sameFloat(a.Float(), b.Float()) {
			return nil
		}
	case reflect.Complex64, reflect.Complex128:
		x, y := a.Complex(), b.Complex()
		if sameFloat(real(x), real(y)) && sameFloat(imag(x), imag(y)) {
			return nil
		}
	default:
		if a.Equal(b) {
			return nil
		}
	}
	return valueDiff(a, b, path)
}

func (d differ) diffMapping(a, b reflect.Value, path Path) *Diff {
	if a.Len() == 0 && b.Len() == 0 {
		return nil
	}
	if a.Pointer() == b.Pointer() || d.seen(a, b, 0) {
		return nil
	}

	pairs, missing, added := pairEntries(a, b)
	if len(missing) > 0 {
		return &Diff{Path: path.Append(Keys), Description: "missing keys " + renderAll(missing)}
	}
	if len(added) > 0 {
		return &Diff{Path: path.Append(Keys), Description: "added keys " + renderAll(added)}
	}

	for _, p := range pairs {
		if diff := d.diff(
			addressable(p.before.val),
			addressable(p.after.val),
			path.Append(Key(p.before.key.Interface())),
		); diff != nil {
			return diff
		}
	}
	return nil
}

func (d differ) diffSet(a, b reflect.Value, path Path) *Diff {
	if a.Len() == 0 && b.Len() == 0 {
		return nil
	}
	_, removed, added := pairEntries(a, b)
	if len(removed) == 0 && len(added) == 0 {
		return nil
	}
	return &Diff{
		Path:        path,
		Description: fmt.Sprintf("set changed; -%s +%s", renderAll(removed), renderAll(added)),
	}
}

type entry struct {
	key, val reflect.Value
}

type entryPair struct {
	before, after entry
}

// sortedEntries lists a map's entries in canonical key order. Keys that are not
// equal to themselves, such as NaN, cannot be looked up, so values come from iteration.
func sortedEntries(m reflect.Value) []entry {
	out := make([]entry, 0, m.Len())
	iter := m.MapRange()
	for iter.Next() {
		out = append(out, entry{key: iter.Key(), val: iter.Value()})
	}
	slices.SortFunc(out, func(x, y entry) int { return compareValues(x.key, y.key) })
	return out
}

// pairEntries matches the entries of a and b. Keys are matched by map lookup first,
// which is identity for pointer keys; keys lookup cannot find (NaN, or a key the
// caller rebuilt) are matched structurally among the leftovers. Pairs follow a's
// key order; unmatched keys are returned as missing from b and added in b.
func pairEntries(a, b reflect.Value) (pairs []entryPair, missing, added []reflect.Value) {
	var looseA, looseB []entry
	for _, e := range sortedEntries(a) {
		if v := b.MapIndex(e.key); v.IsValid() {
			pairs = append(pairs, entryPair{before: e, after: entry{key: e.key, val: v}})
			continue
		}
		looseA = append(looseA, e)
	}
	for _, e := range sortedEntries(b) {
		if !a.MapIndex(e.key).IsValid() {
			looseB = append(looseB, e)
		}
	}

	for _, ea := range looseA {
		i := slices.IndexFunc(looseB, func(eb entry) bool {
			return FirstDiff(ea.key.Interface(), eb.key.Interface(), nil) == nil
		})
		if i < 0 {
			missing = append(missing, ea.key)
			continue
		}
		pairs = append(pairs, entryPair{before: ea, after: looseB[i]})
		looseB = slices.Delete(looseB, i, i+1)
	}
	for _, eb := range looseB {
		added = append(added, eb.key)
	}
	slices.SortFunc(pairs, func(x, y entryPair) int { return compareValues(x.before.key, y.before.key) })
	return pairs, missing, added
}

func nilable(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}

// sameFloat treats NaN as equal to itself.
func sameFloat(x, y float64) bool {
	return x == y || math.IsNaN(x) && math.IsNaN(y)
}
