package managers

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/declarix/pkg/datastore"
	"github.com/arthur-debert/declarix/pkg/logging"
	"github.com/arthur-debert/declarix/pkg/output"
	"github.com/arthur-debert/declarix/pkg/types"
)

// Reconciler converges one manager's items to a declared list
type Reconciler struct {
	runner Runner
	logger zerolog.Logger
}

// NewReconciler creates a Reconciler running commands through runner
func NewReconciler(runner Runner) *Reconciler {
	return &Reconciler{runner: runner, logger: logging.GetLogger("managers")}
}

func line(m Manager, name string, outcome output.Outcome, message string) output.Line {
	return output.Line{
		Category: string(m.Kind),
		Setting:  types.Setting(m.Name),
		Path:     name,
		Outcome:  outcome,
		Message:  message,
	}
}

// Reconcile installs the declared names that are missing, records all of
// them, then uninstalls items recorded earlier and no longer declared.
// Only items declarix recorded are ever uninstalled. Command failures
// become lines; the error is reserved for storage failures.
func (r *Reconciler) Reconcile(ctx context.Context, tx datastore.Tx, m Manager, declared []string) ([]output.Line, error) {
	logger := r.logger.With().Str("manager", m.Name).Logger()
	kind := string(m.Kind)

	listed, err := r.runner.Run(ctx, m.List)
	if err != nil {
		logger.Warn().Err(err).Msg("Cannot list installed items")
		return []output.Line{line(m, m.Name, output.OutcomeError, err.Error())}, nil
	}
	present := m.Parse(listed)

	if err := tx.ResetItems(kind, m.Name); err != nil {
		return nil, err
	}

	var (
		lines   []output.Line
		missing []string
		seen    = map[string]bool{}
	)
	for _, raw := range declared {
		name := m.Normalize(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if !present[name] {
			missing = append(missing, name)
		}
		if err := tx.UpsertItem(datastore.Item{Kind: kind, Manager: m.Name, Name: name, Keep: true}); err != nil {
			return nil, err
		}
	}

	if len(missing) > 0 {
		outcome, message := output.OutcomeNew, ""
		if _, err := r.runner.Run(ctx, append(append([]string{}, m.Install...), missing...)); err != nil {
			logger.Warn().Err(err).Strs("items", missing).Msg("Install failed")
			outcome, message = output.OutcomeError, err.Error()
		}
		for _, name := range missing {
			lines = append(lines, line(m, name, outcome, message))
		}
	}

	stale, err := tx.SelectStaleItems(kind, m.Name)
	if err != nil {
		return nil, err
	}
	var remove []string
	for _, it := range stale {
		if present[it.Name] {
			remove = append(remove, it.Name)
			continue
		}
		// already gone
		if err := tx.DeleteItem(it); err != nil {
			return nil, err
		}
	}
	sort.Strings(remove)

	if len(remove) > 0 {
		if _, err := r.runner.Run(ctx, append(append([]string{}, m.Uninstall...), remove...)); err != nil {
			logger.Warn().Err(err).Strs("items", remove).Msg("Uninstall failed, will retry")
			for _, name := range remove {
				lines = append(lines, line(m, name, output.OutcomeError, err.Error()))
			}
		} else {
			for _, name := range remove {
				if err := tx.DeleteItem(datastore.Item{Kind: kind, Manager: m.Name, Name: name}); err != nil {
					return nil, err
				}
				lines = append(lines, line(m, name, output.OutcomeRemoved, ""))
			}
		}
	}

	if len(lines) == 0 {
		lines = append(lines, line(m, m.Name, output.OutcomeUnchanged, ""))
	}
	logger.Debug().Int("declared", len(seen)).Int("installed", len(missing)).Int("removed", len(remove)).Msg("Manager reconciled")
	return lines, nil
}
