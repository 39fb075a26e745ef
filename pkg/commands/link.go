package commands

import (
	"context"

	"github.com/arthur-debert/declarix/pkg/logging"
	"github.com/arthur-debert/declarix/pkg/output"
)

// Link reconciles every declared file entity and sweeps what is no longer
// declared.
func Link(ctx context.Context, opts Options) ([]output.Line, error) {
	log := logging.GetLogger("commands.link")
	log.Debug().Strs("categories", opts.Categories).Msg("Executing command")

	s, err := open(opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()

	entities, err := s.entities()
	if err != nil {
		return nil, err
	}
	lines, err := s.engine.Link(ctx, entities, opts.Categories)
	if err != nil {
		log.Error().Err(err).Msg("Link failed")
		return lines, err
	}

	log.Info().Int("entities", len(entities)).Str("summary", output.Summary(lines)).Msg("Command finished")
	return lines, nil
}

// Status lists tracked entities without touching the filesystem
func Status(opts Options) ([]output.Line, error) {
	s, err := open(opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()
	return s.engine.Status(opts.Categories)
}
