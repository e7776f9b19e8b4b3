// Package globalname keeps functions away from package-level state.
//
// Check and ForbidGlobalNames parse the source of a function with tree-sitter when it
// is wrapped and reject it if its body names package-level identifiers or members of
// imported packages outside an allow-list. ForbidGlobals gives each call an
// environment of explicitly allowed bindings that the function resolves with Lookup.
package globalname
