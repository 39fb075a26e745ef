package reconcile

import (
	"context"
	stderrors "errors"
	"io/fs"
	"path/filepath"

	"github.com/arthur-debert/declarix/pkg/datastore"
	"github.com/arthur-debert/declarix/pkg/errors"
	"github.com/arthur-debert/declarix/pkg/filesystem"
	"github.com/arthur-debert/declarix/pkg/output"
	"github.com/arthur-debert/declarix/pkg/privilege"
	"github.com/arthur-debert/declarix/pkg/types"
)

// step is the result of reconciling one walked path
type step struct {
	outcome  output.Outcome
	message  string
	modified int64
	// skip stops descent below a directory that could not be mirrored
	skip bool
	// existed marks a directory found in place instead of created
	existed bool
}

func failed(err error) step {
	return step{outcome: output.OutcomeError, message: err.Error(), skip: true}
}

// tree mirrors or copies the source tree one path at a time. Every walked
// path gets a row, numbered in depth-first order, so the rows always equal
// the latest walk.
func (r *Reconciler) tree(ctx context.Context, tx datastore.Tx, e types.Entity) ([]output.Line, error) {
	srcInfo, err := r.fs.Lstat(e.Source)
	if err != nil {
		return []output.Line{output.Errorf(e, e.Destination, err)}, r.keepAll(tx, e)
	}

	dstInfo, err := r.fs.Lstat(e.Destination)
	switch {
	case err == nil && srcInfo.IsDir() && filesystem.IsSymlink(dstInfo):
		inconsistent := errors.Newf(errors.ErrInconsistentState,
			"%s is a symlink but should be a mirrored directory; remove it and run again", e.Destination)
		r.logger.Warn().Str("destination", e.Destination).Msg("Top-level destination is a symlink")
		return []output.Line{output.Errorf(e, e.Destination, inconsistent)}, r.keepAll(tx, e)
	case stderrors.Is(err, fs.ErrNotExist):
		if err := r.ensureParent(ctx, e, e.Destination); err != nil {
			return []output.Line{output.Errorf(e, e.Destination, err)}, r.keepAll(tx, e)
		}
	case err != nil:
		return []output.Line{output.Errorf(e, e.Destination, err)}, r.keepAll(tx, e)
	}

	if err := tx.UpsertPrimary(datastore.LinkFromEntity(e)); err != nil {
		return nil, err
	}

	var (
		lines    []output.Line
		order    int64
		storeErr error
	)
	walkErr := r.fs.WalkDir(e.Source, func(path string, d fs.DirEntry, err error) error {
		rel, relErr := filepath.Rel(e.Source, path)
		if relErr != nil {
			return relErr
		}
		dst := filepath.Join(e.Destination, rel)

		if err != nil {
			lines = append(lines, output.Errorf(e, dst, err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			lines = append(lines, output.Errorf(e, dst, err))
			return nil
		}
		if e.Setting.IsSecure() && path != e.Source {
			if err := r.checkSecure(path, info); err != nil {
				lines = append(lines, output.Errorf(e, dst, err))
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
		}

		var s step
		if e.Setting.Base() == types.SettingCopy {
			s, storeErr = r.copyPath(ctx, tx, e, path, dst, rel, info)
		} else {
			s = r.mirrorPath(ctx, e, path, dst, info)
		}
		if storeErr != nil {
			return storeErr
		}
		if s.existed {
			if s.modified, storeErr = r.directoryOrigin(tx, e, rel); storeErr != nil {
				return storeErr
			}
		}

		if s.outcome != output.OutcomeUnchanged {
			lines = append(lines, output.For(e, dst, s.outcome, s.message))
		}
		if storeErr = tx.UpsertPath(datastore.TrackedPath{ID: e.ID, Path: rel, Modified: s.modified, Order: order}); storeErr != nil {
			return storeErr
		}
		order++

		if s.skip && d.IsDir() {
			return fs.SkipDir
		}
		return nil
	})
	if storeErr != nil {
		return nil, storeErr
	}
	if walkErr != nil {
		lines = append(lines, output.Errorf(e, e.Destination, walkErr))
	}

	if len(lines) == 0 {
		lines = append(lines, output.For(e, e.Destination, output.OutcomeUnchanged, ""))
	}
	r.logger.Debug().Str("entity", e.Destination).Int64("paths", order).Msg("Tree reconciled")
	return lines, nil
}

// dirStep handles a walked directory; shared by mirror and copy
func (r *Reconciler) dirStep(ctx context.Context, e types.Entity, dst string) step {
	dstInfo, err := r.fs.Lstat(dst)
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		if err := r.perform(ctx, Plan{Destination: dst, Op: privilege.OpCreateDir, Class: e.Class}); err != nil {
			return failed(err)
		}
		return step{outcome: output.OutcomeNew}
	case err != nil:
		return failed(err)
	case dstInfo.IsDir():
		return step{outcome: output.OutcomeUnchanged, existed: true}
	default:
		return step{outcome: output.OutcomeConflict, message: "exists and is not a directory", skip: true}
	}
}

// directoryOrigin keeps what an earlier run recorded for an existing
// directory. A directory without a row was not created by declarix.
func (r *Reconciler) directoryOrigin(tx datastore.Tx, e types.Entity, rel string) (int64, error) {
	prior, ok, err := tx.GetPath(e.ID, rel)
	if err != nil {
		return 0, err
	}
	if ok {
		return prior.Modified, nil
	}
	r.logger.Debug().Str("entity", e.Destination).Str("path", rel).Msg("Directory already in place, not owned")
	return datastore.Preexisting, nil
}

// mirrorPath creates a directory or a symlink to the source file
func (r *Reconciler) mirrorPath(ctx context.Context, e types.Entity, src, dst string, info fs.FileInfo) step {
	if info.IsDir() {
		return r.dirStep(ctx, e, dst)
	}

	exists, err := filesystem.Exists(r.fs, dst)
	if err != nil {
		return failed(err)
	}
	if exists {
		if filesystem.SameTarget(r.fs, dst, src) {
			return step{outcome: output.OutcomeUnchanged}
		}
		return step{outcome: output.OutcomeConflict, message: "exists and does not point to " + src}
	}

	if err := r.perform(ctx, Plan{Source: src, Destination: dst, Op: privilege.OpSymlink, Class: e.Class}); err != nil {
		return failed(err)
	}
	return step{outcome: output.OutcomeNew}
}

// copyPath copies or verifies one path, returning the destination time to record
func (r *Reconciler) copyPath(ctx context.Context, tx datastore.Tx, e types.Entity, src, dst, rel string, info fs.FileInfo) (step, error) {
	if info.IsDir() {
		return r.dirStep(ctx, e, dst), nil
	}

	tracked, hasTracked, err := tx.GetPath(e.ID, rel)
	if err != nil {
		return step{}, err
	}
	keep := step{modified: tracked.Modified}

	dstInfo, err := r.fs.Lstat(dst)
	if stderrors.Is(err, fs.ErrNotExist) {
		return r.copyNew(ctx, e, src, dst, info), nil
	}
	if err != nil {
		s := failed(err)
		s.modified = tracked.Modified
		return s, nil
	}

	if filesystem.IsSymlink(info) {
		keep.modified = 0
		if filesystem.SameTarget(r.fs, dst, src) {
			keep.outcome = output.OutcomeUnchanged
			return keep, nil
		}
		keep.outcome = output.OutcomeConflict
		keep.message = "exists and does not point to the source's target"
		return keep, nil
	}
	if dstInfo.IsDir() {
		keep.outcome = output.OutcomeConflict
		keep.message = "exists and is a directory"
		return keep, nil
	}

	tSrc, err := filesystem.ModTime(r.fs, src)
	if err != nil {
		s := failed(err)
		s.modified = tracked.Modified
		return s, nil
	}
	tDst, err := filesystem.ModTime(r.fs, dst)
	if err != nil {
		s := failed(err)
		s.modified = tracked.Modified
		return s, nil
	}

	action := decideCopy(hasTracked, tracked.Modified, tSrc, tDst)
	r.logger.Debug().
		Str("path", dst).
		Int64("tracked", tracked.Modified).
		Int64("source", tSrc).
		Int64("destination", tDst).
		Stringer("action", action).
		Msg("Copy decision")

	switch action {
	case copyAdopt:
		return step{outcome: output.OutcomeNew, message: "newly observed", modified: tDst}, nil
	case copyConverged:
		return step{outcome: output.OutcomeConverged, modified: tDst}, nil
	case copyUnchanged:
		keep.outcome = output.OutcomeUnchanged
		return keep, nil
	case copyRefresh:
		if err := r.perform(ctx, Plan{Source: src, Destination: dst, Op: privilege.OpCopy, Class: e.Class}); err != nil {
			s := failed(err)
			s.modified = tracked.Modified
			return s, nil
		}
		modified, err := filesystem.ModTime(r.fs, dst)
		if err != nil {
			modified = tSrc
		}
		return step{outcome: output.OutcomeNew, message: "copied newer source", modified: modified}, nil
	default:
		keep.outcome = output.OutcomeConflict
		keep.message = "destination changed since last copy"
		return keep, nil
	}
}

// copyNew creates an absent destination. A symlinked source becomes a
// symlink to its canonical target instead of a data copy.
func (r *Reconciler) copyNew(ctx context.Context, e types.Entity, src, dst string, info fs.FileInfo) step {
	if filesystem.IsSymlink(info) {
		target, err := r.fs.EvalSymlinks(src)
		if err != nil {
			return failed(err)
		}
		if err := r.perform(ctx, Plan{Source: target, Destination: dst, Op: privilege.OpSymlink, Class: e.Class}); err != nil {
			return failed(err)
		}
		return step{outcome: output.OutcomeNew, message: "symlink to " + target}
	}

	if err := r.perform(ctx, Plan{Source: src, Destination: dst, Op: privilege.OpCopy, Class: e.Class}); err != nil {
		return failed(err)
	}
	modified, err := filesystem.ModTime(r.fs, dst)
	if err != nil {
		return failed(err)
	}
	return step{outcome: output.OutcomeNew, modified: modified}
}
