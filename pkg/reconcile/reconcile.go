package reconcile

import (
	"context"
	stderrors "errors"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/declarix/pkg/datastore"
	"github.com/arthur-debert/declarix/pkg/errors"
	"github.com/arthur-debert/declarix/pkg/filesystem"
	"github.com/arthur-debert/declarix/pkg/logging"
	"github.com/arthur-debert/declarix/pkg/output"
	"github.com/arthur-debert/declarix/pkg/privilege"
	"github.com/arthur-debert/declarix/pkg/types"
)

// Reconciler applies the algorithm selected by an entity's setting
type Reconciler struct {
	fs        filesystem.FS
	performer privilege.Performer
	identity  privilege.Identity
	logger    zerolog.Logger
}

// Option configures a Reconciler
type Option func(*Reconciler)

// WithIdentity sets the identity trusted to own secured sources besides root
func WithIdentity(id privilege.Identity) Option {
	return func(r *Reconciler) {
		r.identity = id
	}
}

// New creates a Reconciler mutating fsys through performer
func New(fsys filesystem.FS, performer privilege.Performer, opts ...Option) *Reconciler {
	r := &Reconciler{
		fs:        fsys,
		performer: performer,
		identity:  privilege.CurrentIdentity(),
		logger:    logging.GetLogger("reconcile"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile converges e and refreshes its rows in tx. Per-entity problems
// come back as lines; the error is reserved for storage failures.
func (r *Reconciler) Reconcile(ctx context.Context, tx datastore.Tx, e types.Entity) ([]output.Line, error) {
	logger := r.logger.With().
		Str("entity", e.Destination).
		Str("setting", string(e.Setting)).
		Logger()
	logger.Debug().Str("source", e.Source).Msg("Reconciling")

	if err := r.checkSource(e); err != nil {
		logger.Warn().Err(err).Msg("Entity skipped")
		return []output.Line{output.Errorf(e, e.Destination, err)}, r.keepAll(tx, e)
	}

	switch e.Setting.Base() {
	case types.SettingLink:
		return r.link(ctx, tx, e)
	case types.SettingRecursive, types.SettingCopy:
		return r.tree(ctx, tx, e)
	default:
		err := errors.Newf(errors.ErrInvalidInput, "unknown setting %q", e.Setting)
		return []output.Line{output.Errorf(e, e.Destination, err)}, nil
	}
}

// checkSource verifies the source exists and, for secured settings, is
// owned by root or the current user and writable by nobody else.
func (r *Reconciler) checkSource(e types.Entity) error {
	info, err := r.fs.Lstat(e.Source)
	if stderrors.Is(err, fs.ErrNotExist) {
		return errors.Newf(errors.ErrNotFound, "source path not found: %s", e.Source)
	}
	if err != nil {
		return errors.Wrapf(err, errors.ErrNotFound, "cannot read source %s", e.Source)
	}
	if !e.Setting.IsSecure() {
		return nil
	}
	return r.checkSecure(e.Source, info)
}

func (r *Reconciler) checkSecure(path string, info fs.FileInfo) error {
	owner, err := r.fs.Owner(path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInsecureSource, "cannot read owner of %s", path)
	}
	if owner.UID != 0 && owner.UID != r.identity.UID {
		return errors.Newf(errors.ErrInsecureSource, "%s is owned by uid %d", path, owner.UID).
			WithDetail("uid", owner.UID)
	}
	if !filesystem.IsSymlink(info) && info.Mode().Perm()&0o022 != 0 {
		return errors.Newf(errors.ErrInsecureSource, "%s is writable by group or others (%s)", path, info.Mode().Perm())
	}
	return nil
}

// keepAll re-marks an entity's existing rows so a failed pass never
// causes its previous results to be swept.
func (r *Reconciler) keepAll(tx datastore.Tx, e types.Entity) error {
	if _, err := tx.MarkKeep(e.ID); err != nil {
		return err
	}
	paths, err := tx.SelectPaths(e.ID)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := tx.UpsertPath(p); err != nil {
			return err
		}
	}
	return nil
}

// perform executes a plan through the privilege boundary
func (r *Reconciler) perform(ctx context.Context, p Plan) error {
	r.logger.Debug().
		Str("op", string(p.Op)).
		Str("source", p.Source).
		Str("destination", p.Destination).
		Str("class", string(p.Class)).
		Msg("Performing plan")
	return r.performer.Perform(ctx, p.Request())
}

// ensureParent creates the missing parents of dst
func (r *Reconciler) ensureParent(ctx context.Context, e types.Entity, dst string) error {
	parent := filepath.Dir(dst)
	exists, err := filesystem.Exists(r.fs, parent)
	if err != nil || exists {
		return err
	}
	return r.perform(ctx, Plan{Destination: parent, Op: privilege.OpCreateDirAll, Class: e.Class})
}
