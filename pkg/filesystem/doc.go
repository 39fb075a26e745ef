// Package filesystem holds the primitive filesystem operations the engine
// is allowed to perform and the read-side inspection it bases its
// decisions on.
//
// Mutating primitives are never called directly by the reconciler or the
// garbage collector; they go through pkg/privilege, which runs them here
// in-process when the caller owns the target and in the helper binary
// otherwise.
package filesystem
