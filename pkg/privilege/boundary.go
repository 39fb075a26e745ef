package privilege

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"

	"github.com/arthur-debert/declarix/pkg/errors"
	"github.com/arthur-debert/declarix/pkg/filesystem"
	"github.com/arthur-debert/declarix/pkg/logging"
	"github.com/rs/zerolog"
)

// Performer is what the reconciler and garbage collector depend on
type Performer interface {
	Perform(ctx context.Context, r Request) error
}

// Escalator hands a single request to something running with more
// privilege than the current process.
type Escalator interface {
	Escalate(ctx context.Context, r Request) error
}

// Identity is the user and group the in-process ownership check compares against
type Identity struct {
	UID uint32
	GID uint32
}

// CurrentIdentity returns the identity of the running process
func CurrentIdentity() Identity {
	return Identity{UID: uint32(os.Getuid()), GID: uint32(os.Getgid())}
}

// Boundary decides per request whether to run in-process or escalate
type Boundary struct {
	fs        filesystem.FS
	escalator Escalator
	identity  Identity
	logger    zerolog.Logger
}

// Option configures a Boundary
type Option func(*Boundary)

// WithIdentity overrides the identity used for the ownership check
func WithIdentity(id Identity) Option {
	return func(b *Boundary) {
		b.identity = id
	}
}

// New creates a Boundary over fsys that escalates through esc
func New(fsys filesystem.FS, esc Escalator, opts ...Option) *Boundary {
	b := &Boundary{
		fs:        fsys,
		escalator: esc,
		identity:  CurrentIdentity(),
		logger:    logging.GetLogger("privilege"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Perform validates r and executes it, escalating when the target is not
// owned by the current identity or the in-process attempt is denied.
func (b *Boundary) Perform(ctx context.Context, r Request) error {
	if err := r.Validate(); err != nil {
		return err
	}

	subject, owner, err := filesystem.NearestExisting(b.fs, r.Target)
	if err != nil {
		return errors.Wrapf(err, errors.ErrNotFound, "cannot resolve owner of %s", r.Target)
	}

	logger := b.logger.With().
		Str("op", string(r.Op)).
		Strs("args", r.Args()).
		Str("subject", subject).
		Logger()

	if owner.UID == b.identity.UID && owner.GID == b.identity.GID {
		err := Execute(b.fs, r)
		if err == nil {
			logger.Debug().Msg("Performed in-process")
			return nil
		}
		if !isPermission(err) {
			return err
		}
		logger.Debug().Err(err).Msg("In-process attempt denied, escalating")
	}

	if b.escalator == nil {
		return errors.Newf(errors.ErrPermission, "%s %s requires escalation but no helper is configured", r.Op, r.Target)
	}

	logger.Info().Msg("Escalating to helper")
	if err := b.escalator.Escalate(ctx, r); err != nil {
		return errors.Wrapf(err, errors.ErrPermission, "escalated %s failed for %s", r.Op, r.Target)
	}
	return nil
}

func isPermission(err error) bool {
	return stderrors.Is(err, fs.ErrPermission)
}
