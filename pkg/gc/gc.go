// Package gc sweeps what a group no longer declares.
//
// After every declared entity of a group has been reconciled, rows still
// carrying keep=0 name filesystem objects declarix created earlier and no
// longer wants. Each object is removed only when it provably still is what
// was created: a symlink that dangles or points at the recorded source, a
// file whose modification time is unchanged, or an empty directory that
// declarix created. Anything else is left in place and reported.
package gc

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

// Collector removes stale objects through the privilege boundary
type Collector struct {
	fs        filesystem.FS
	performer privilege.Performer
	logger    zerolog.Logger
}

// New creates a Collector
func New(fsys filesystem.FS, performer privilege.Performer) *Collector {
	return &Collector{
		fs:        fsys,
		performer: performer,
		logger:    logging.GetLogger("gc"),
	}
}

// verdict is what happened to one stale object
type verdict int

const (
	// gone: the object was removed or was already absent; drop the row
	gone verdict = iota
	// spared: the object no longer matches what was created; drop the row, keep the object
	spared
	// retry: removal failed; keep the row for the next run
	retry
)

// Sweep processes every stale row of g. Stale paths of tree entities go
// first, deepest first, then stale primaries. Only storage failures are
// returned as errors.
func (c *Collector) Sweep(ctx context.Context, tx datastore.Tx, g types.Group) ([]output.Line, error) {
	logger := c.logger.With().Str("group", g.String()).Logger()

	links, err := tx.SelectGroup(g)
	if err != nil {
		return nil, err
	}

	var lines []output.Line
	for _, l := range links {
		if !l.Setting.IsTree() {
			continue
		}
		swept, err := c.sweepPaths(ctx, tx, l)
		if err != nil {
			return nil, err
		}
		lines = append(lines, swept...)
	}

	stale, err := tx.SelectStale(g)
	if err != nil {
		return nil, err
	}
	for _, l := range stale {
		if l.Setting.IsTree() {
			remaining, err := tx.CountPaths(l.ID)
			if err != nil {
				return nil, err
			}
			if remaining > 0 {
				logger.Info().Str("destination", l.Destination).Int("paths", remaining).Msg("Keeping entity until its paths are removed")
				continue
			}
			if err := tx.DeletePrimary(l.ID); err != nil {
				return nil, err
			}
			continue
		}

		v, line := c.remove(ctx, l, l.Source, l.Destination, func() (int64, error) {
			return filesystem.ModTime(c.fs, l.Source)
		})
		if line != nil {
			lines = append(lines, *line)
		}
		if v == retry {
			continue
		}
		if err := tx.DeletePrimary(l.ID); err != nil {
			return nil, err
		}
	}

	logger.Debug().Int("stale", len(stale)).Int("lines", len(lines)).Msg("Sweep finished")
	return lines, nil
}

// sweepPaths removes the stale paths of one tree entity, children first
func (c *Collector) sweepPaths(ctx context.Context, tx datastore.Tx, l datastore.TrackedLink) ([]output.Line, error) {
	paths, err := tx.SelectStalePaths(l.ID)
	if err != nil {
		return nil, err
	}

	var lines []output.Line
	for _, p := range paths {
		src := filepath.Join(l.Source, p.Path)
		dst := filepath.Join(l.Destination, p.Path)
		recorded := p.Modified

		if recorded == datastore.Preexisting {
			c.logger.Debug().Str("destination", dst).Msg("Directory was not created here, forgetting it")
			if err := tx.DeletePath(l.ID, p.Path); err != nil {
				return nil, err
			}
			continue
		}

		v, line := c.remove(ctx, l, src, dst, func() (int64, error) {
			return recorded, nil
		})
		if line != nil {
			lines = append(lines, *line)
		}
		if v == retry {
			continue
		}
		if err := tx.DeletePath(l.ID, p.Path); err != nil {
			return nil, err
		}
	}
	return lines, nil
}

// remove applies the safety rules to dst. expected yields the
// modification time a regular file must still have to be removable.
func (c *Collector) remove(ctx context.Context, l datastore.TrackedLink, src, dst string, expected func() (int64, error)) (verdict, *output.Line) {
	line := func(outcome output.Outcome, message string) *output.Line {
		return &output.Line{
			Category: l.Category,
			Title:    l.Title,
			Setting:  l.Setting,
			Path:     dst,
			Outcome:  outcome,
			Message:  message,
		}
	}
	logger := c.logger.With().Str("destination", dst).Logger()

	info, err := c.fs.Lstat(dst)
	if stderrors.Is(err, fs.ErrNotExist) {
		logger.Debug().Msg("Already absent")
		return gone, nil
	}
	if err != nil {
		return retry, line(output.OutcomeError, errors.Wrap(err, errors.ErrRemoval, "cannot inspect").Error())
	}

	var req privilege.Request
	switch {
	case filesystem.IsSymlink(info):
		if !filesystem.IsDangling(c.fs, dst) && !filesystem.SameTarget(c.fs, dst, src) {
			logger.Warn().Str("source", src).Msg("Symlink was repointed, leaving it")
			return spared, line(output.OutcomeConflict, "symlink no longer points to "+src+", left in place")
		}
		req = privilege.RemoveFile(dst)
	case info.IsDir():
		entries, err := c.fs.ReadDir(dst)
		if err != nil {
			return retry, line(output.OutcomeError, errors.Wrap(err, errors.ErrRemoval, "cannot inspect").Error())
		}
		if len(entries) > 0 {
			logger.Warn().Int("entries", len(entries)).Msg("Directory is not empty, leaving it")
			return spared, line(output.OutcomeConflict, "not empty, left in place")
		}
		req = privilege.RemoveDir(dst)
	default:
		want, err := expected()
		if err != nil || want != info.ModTime().UnixNano() {
			logger.Warn().Int64("expected", want).Int64("actual", info.ModTime().UnixNano()).Msg("File was modified, leaving it")
			return spared, line(output.OutcomeConflict, "modified since it was created, left in place")
		}
		req = privilege.RemoveFile(dst)
	}

	if err := c.performer.Perform(ctx, req); err != nil {
		logger.Warn().Err(err).Msg("Removal failed, will retry")
		return retry, line(output.OutcomeError, errors.Wrap(err, errors.ErrRemoval, "removal failed").Error())
	}
	return gone, line(output.OutcomeRemoved, "")
}
