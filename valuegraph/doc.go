// Package valuegraph deep-copies and structurally compares arbitrary Go value graphs.
//
// A value graph is whatever reflect can reach from a value: pointers, interfaces,
// maps, slices, arrays and structs, including unexported fields. Every value has a
// Shape that decides how it is copied and compared:
//
//   - mapping: map[K]V, compared by key set first, then value by value
//   - set: map[K]struct{}, compared as a whole
//   - sequence: slices and arrays, compared by length first, then index by index
//   - record: structs, compared field by field in declaration order
//   - scalar: everything else, plus any type with an Equal(T) bool or Equals(any) bool method
//   - opaque: funcs, chans and registered live handles such as os.File
//
// Pointers and interfaces are transparent: they add nothing to a Path.
package valuegraph
