// Package sideeffect runs calls with the process's side-effecting capabilities trapped.
//
// A Registry holds a catalog of Entries. Each entry knows how to read a target, write
// it back, and build a stub around the current value. Forbid and Run acquire the
// registry's reentrant lock, apply every entry, invoke the call and restore the
// targets on every exit path, including panics and cancellation.
//
// Strict sandboxes fail the call with a *BlockedError naming the first capability
// reached. Permissive sandboxes log one warning per attempt and delegate to the
// original implementation.
//
// Two kinds of target are catalogued. Process entries replace package variables of
// the standard library and of the libraries this module uses (os.Stdout, the log and
// zap globals, crypto/rand.Reader, net.DefaultResolver, http.DefaultTransport). The
// rest of Go's capabilities are plain functions that cannot be swapped, so World
// gathers them into slots and the package-level helpers (Now, Getenv, Sleep, ...)
// call through DefaultWorld. Code that should be observable inside a sandbox calls
// these helpers instead of the standard library.
//
// While a sandbox is active every goroutine in the process sees the patched targets.
// Nested sandboxes reenter the lock only when they are handed the context of the
// enclosing call.
package sideeffect
