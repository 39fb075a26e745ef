// Package engine drives one run: it groups built entities by category and
// setting, and for each group resets keep flags, reconciles every entity,
// sweeps what is left and commits, all in one store transaction.
package engine

import (
	"context"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/declarix/pkg/datastore"
	"github.com/arthur-debert/declarix/pkg/gc"
	"github.com/arthur-debert/declarix/pkg/logging"
	"github.com/arthur-debert/declarix/pkg/managers"
	"github.com/arthur-debert/declarix/pkg/output"
	"github.com/arthur-debert/declarix/pkg/reconcile"
	"github.com/arthur-debert/declarix/pkg/types"
)

// Engine owns the store for the duration of a run
type Engine struct {
	store      datastore.DataStore
	reconciler *reconcile.Reconciler
	collector  *gc.Collector
	logger     zerolog.Logger
}

// New creates an Engine
func New(store datastore.DataStore, reconciler *reconcile.Reconciler, collector *gc.Collector) *Engine {
	return &Engine{
		store:      store,
		reconciler: reconciler,
		collector:  collector,
		logger:     logging.GetLogger("engine"),
	}
}

// plan is the ordered list of groups with their declared entities
type plan struct {
	groups   []types.Group
	entities map[types.Group][]types.Entity
}

func (p *plan) add(g types.Group) {
	if _, ok := p.entities[g]; !ok {
		p.entities[g] = nil
		p.groups = append(p.groups, g)
	}
}

// Link reconciles entities and garbage collects every group of the store
// that is not declared anymore. When categories is not empty only those
// categories are touched. Lines come back in declaration order, each
// group followed by its removals.
func (e *Engine) Link(ctx context.Context, entities []types.Entity, categories []string) ([]output.Line, error) {
	wanted := selector(categories)
	p := &plan{entities: map[types.Group][]types.Entity{}}
	for _, ent := range entities {
		if !wanted(ent.Category) {
			continue
		}
		g := ent.Group()
		p.add(g)
		p.entities[g] = append(p.entities[g], ent)
	}

	orphans, err := e.groups(wanted)
	if err != nil {
		return nil, err
	}
	for _, g := range orphans {
		if _, ok := p.entities[g]; !ok {
			e.logger.Info().Str("group", g.String()).Msg("Group no longer declared, sweeping")
		}
		p.add(g)
	}

	var lines []output.Line
	for _, g := range p.groups {
		groupLines, err := e.runGroup(ctx, g, p.entities[g])
		if err != nil {
			return lines, err
		}
		lines = append(lines, groupLines...)
	}
	return lines, nil
}

// runGroup is one reset, reconcile, sweep and commit cycle
func (e *Engine) runGroup(ctx context.Context, g types.Group, entities []types.Entity) ([]output.Line, error) {
	done := logging.LogOperationStart(e.logger, "group "+g.String())
	defer done()

	tx, err := e.store.Begin()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.ResetKeep(g); err != nil {
		return nil, err
	}

	var lines []output.Line
	for _, ent := range entities {
		got, err := e.reconciler.Reconcile(ctx, tx, ent)
		if err != nil {
			e.logger.Error().Err(err).Str("group", g.String()).Msg("Store failure, group rolled back")
			return nil, err
		}
		lines = append(lines, got...)
	}

	swept, err := e.collector.Sweep(ctx, tx, g)
	if err != nil {
		return nil, err
	}
	lines = append(lines, swept...)

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (e *Engine) groups(wanted func(string) bool) ([]types.Group, error) {
	tx, err := e.store.Begin()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	all, err := tx.Groups()
	if err != nil {
		return nil, err
	}
	var groups []types.Group
	for _, g := range all {
		if wanted(g.Category) {
			groups = append(groups, g)
		}
	}
	return groups, nil
}

// Items reconciles one manager's declared names in its own transaction
func (e *Engine) Items(ctx context.Context, r *managers.Reconciler, m managers.Manager, names []string) ([]output.Line, error) {
	tx, err := e.store.Begin()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	lines, err := r.Reconcile(ctx, tx, m, names)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return lines, nil
}

// Status lists the tracked rows of the selected categories without
// looking at the filesystem, sorted by group then destination.
func (e *Engine) Status(categories []string) ([]output.Line, error) {
	wanted := selector(categories)
	tx, err := e.store.Begin()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	groups, err := tx.Groups()
	if err != nil {
		return nil, err
	}

	var lines []output.Line
	for _, g := range groups {
		if !wanted(g.Category) {
			continue
		}
		links, err := tx.SelectGroup(g)
		if err != nil {
			return nil, err
		}
		sort.Slice(links, func(i, j int) bool { return links[i].Destination < links[j].Destination })
		for _, l := range links {
			message := "-> " + l.Source
			if l.Setting.IsTree() {
				n, err := tx.CountPaths(l.ID)
				if err != nil {
					return nil, err
				}
				message = pathCount(n) + " from " + l.Source
			}
			lines = append(lines, output.Line{
				Category: l.Category,
				Title:    l.Title,
				Setting:  l.Setting,
				Path:     l.Destination,
				Outcome:  output.OutcomeTracked,
				Message:  message,
			})
		}
	}
	return lines, nil
}

func pathCount(n int) string {
	if n == 1 {
		return "1 path"
	}
	return strconv.Itoa(n) + " paths"
}

func selector(categories []string) func(string) bool {
	if len(categories) == 0 {
		return func(string) bool { return true }
	}
	set := map[string]bool{}
	for _, c := range categories {
		set[c] = true
	}
	return func(c string) bool { return set[c] }
}
