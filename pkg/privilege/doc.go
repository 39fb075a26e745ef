// Package privilege is the boundary every mutating filesystem call passes
// through.
//
// A Request names exactly one primitive from a closed set together with
// its typed path arguments. The Boundary runs it in-process when the
// current user and group own the path being mutated (or its nearest
// existing ancestor). Otherwise, or when the in-process attempt is denied,
// the request is encoded as [operation, path...] and handed to a separate
// helper binary that can perform that one primitive and nothing else. The
// main process is never re-executed with elevated rights.
package privilege
