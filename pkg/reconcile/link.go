package reconcile

import (
	"context"

	"github.com/arthur-debert/declarix/pkg/datastore"
	"github.com/arthur-debert/declarix/pkg/errors"
	"github.com/arthur-debert/declarix/pkg/filesystem"
	"github.com/arthur-debert/declarix/pkg/output"
	"github.com/arthur-debert/declarix/pkg/privilege"
	"github.com/arthur-debert/declarix/pkg/types"
)

// link creates the destination when absent and only verifies it otherwise.
// An existing destination is never replaced.
func (r *Reconciler) link(ctx context.Context, tx datastore.Tx, e types.Entity) ([]output.Line, error) {
	exists, err := filesystem.Exists(r.fs, e.Destination)
	if err != nil {
		return []output.Line{output.Errorf(e, e.Destination, err)}, r.keepAll(tx, e)
	}

	if exists {
		return r.verifyLink(tx, e)
	}

	if err := r.ensureParent(ctx, e, e.Destination); err != nil {
		return []output.Line{output.Errorf(e, e.Destination, err)}, r.keepAll(tx, e)
	}

	plan := r.linkPlan(e.Source, e.Destination, e.Class)
	if err := r.perform(ctx, plan); err != nil {
		return []output.Line{output.Errorf(e, e.Destination, err)}, r.keepAll(tx, e)
	}

	if err := tx.UpsertPrimary(datastore.LinkFromEntity(e)); err != nil {
		return nil, err
	}
	message := ""
	if plan.Op == privilege.OpHardlink {
		message = "hardlink"
	}
	return []output.Line{output.For(e, e.Destination, output.OutcomeNew, message)}, nil
}

// linkPlan picks a hardlink for root owned regular files living on the
// same device as the destination's directory, a symlink otherwise.
func (r *Reconciler) linkPlan(source, destination string, class types.Class) Plan {
	plan := Plan{Source: source, Destination: destination, Op: privilege.OpSymlink, Class: class}
	if class != types.ClassRoot {
		return plan
	}

	info, err := r.fs.Lstat(source)
	if err != nil || !info.Mode().IsRegular() {
		return plan
	}
	src, err := r.fs.Owner(source)
	if err != nil {
		return plan
	}
	_, dst, err := filesystem.NearestExisting(r.fs, destination)
	if err == nil && src.Dev == dst.Dev {
		plan.Op = privilege.OpHardlink
	}
	return plan
}

// verifyLink checks an existing destination: same-device root content by
// modification time, everything else by canonical target.
func (r *Reconciler) verifyLink(tx datastore.Tx, e types.Entity) ([]output.Line, error) {
	ok, err := r.sameLink(e)
	if err != nil {
		return []output.Line{output.Errorf(e, e.Destination, err)}, r.keepAll(tx, e)
	}

	if !ok {
		r.logger.Warn().Str("destination", e.Destination).Str("source", e.Source).Msg("Destination diverges from source")
		if _, err := tx.MarkKeep(e.ID); err != nil {
			return nil, err
		}
		conflict := errors.Newf(errors.ErrConflict, "destination exists and does not point to %s", e.Source)
		return []output.Line{output.For(e, e.Destination, output.OutcomeConflict, conflict.Message)}, nil
	}

	tracked, err := tx.MarkKeep(e.ID)
	if err != nil {
		return nil, err
	}
	if tracked {
		return []output.Line{output.For(e, e.Destination, output.OutcomeUnchanged, "")}, nil
	}

	// A correct link we have no record of, e.g. after the store was reset.
	if err := tx.UpsertPrimary(datastore.LinkFromEntity(e)); err != nil {
		return nil, err
	}
	return []output.Line{output.For(e, e.Destination, output.OutcomeConverged, "already linked, now tracked")}, nil
}

func (r *Reconciler) sameLink(e types.Entity) (bool, error) {
	if e.Class == types.ClassRoot {
		src, err := r.fs.Owner(e.Source)
		if err != nil {
			return false, err
		}
		dst, err := r.fs.Owner(e.Destination)
		if err != nil {
			return false, err
		}
		if src.Dev == dst.Dev {
			srcTime, err := filesystem.ModTime(r.fs, e.Source)
			if err != nil {
				return false, err
			}
			dstTime, err := filesystem.ModTime(r.fs, e.Destination)
			if err != nil {
				return false, err
			}
			return srcTime == dstTime, nil
		}
	}
	return filesystem.SameTarget(r.fs, e.Destination, e.Source), nil
}
