package commands

import (
	"context"

	"github.com/arthur-debert/declarix/pkg/logging"
	"github.com/arthur-debert/declarix/pkg/managers"
	"github.com/arthur-debert/declarix/pkg/output"
)

// Install converges the [packages] tables through their managers
func Install(ctx context.Context, opts Options, runner managers.Runner) ([]output.Line, error) {
	log := logging.GetLogger("commands.install")

	s, err := open(opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()

	selected, err := s.config.PackageManagers()
	if err != nil {
		return nil, err
	}

	r := managers.NewReconciler(runner)
	var lines []output.Line
	for _, m := range selected {
		got, err := s.engine.Items(ctx, r, m, s.config.PackagesFor(m))
		if err != nil {
			return lines, err
		}
		lines = append(lines, got...)
	}
	log.Info().Int("managers", len(selected)).Str("summary", output.Summary(lines)).Msg("Command finished")
	return lines, nil
}

// Services converges the [services] tables through their managers
func Services(ctx context.Context, opts Options, runner managers.Runner) ([]output.Line, error) {
	log := logging.GetLogger("commands.services")

	s, err := open(opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()

	sets, err := s.config.ServiceManagers()
	if err != nil {
		return nil, err
	}

	r := managers.NewReconciler(runner)
	var lines []output.Line
	for _, set := range sets {
		got, err := s.engine.Items(ctx, r, set.Manager, set.Units)
		if err != nil {
			return lines, err
		}
		lines = append(lines, got...)
	}
	log.Info().Int("managers", len(sets)).Str("summary", output.Summary(lines)).Msg("Command finished")
	return lines, nil
}

// Apply runs install, link and services in that order, stopping at the
// first fatal error.
func Apply(ctx context.Context, opts Options, runner managers.Runner) ([]output.Line, error) {
	var lines []output.Line
	for _, step := range []func() ([]output.Line, error){
		func() ([]output.Line, error) { return Install(ctx, opts, runner) },
		func() ([]output.Line, error) { return Link(ctx, opts) },
		func() ([]output.Line, error) { return Services(ctx, opts, runner) },
	} {
		got, err := step()
		lines = append(lines, got...)
		if err != nil {
			return lines, err
		}
	}
	return lines, nil
}
