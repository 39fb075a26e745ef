// Package reconcile converges one declared entity at a time.
//
// Link entities become a single symlink (or, for root owned content on
// the destination's device, a hardlink). Recursive entities mirror the
// source tree path by path. Copy entities duplicate files and track
// modification times to tell source updates from local edits.
//
// The filesystem is always re-read before acting; the store only says
// what was done before. Every mutation goes through a privilege.Performer
// and every outcome is returned as output lines. Only storage failures
// are returned as errors.
package reconcile
