// pkg/engine/engine_test.go
// TEST TYPE: Integration Test
// DEPENDENCIES: Config file, source trees and SQLite store under t.TempDir()
// PURPOSE: Full runs from configuration to swept filesystem

package engine_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/declarix/pkg/config"
	"github.com/arthur-debert/declarix/pkg/datastore"
	"github.com/arthur-debert/declarix/pkg/engine"
	"github.com/arthur-debert/declarix/pkg/entity"
	"github.com/arthur-debert/declarix/pkg/filesystem"
	"github.com/arthur-debert/declarix/pkg/gc"
	"github.com/arthur-debert/declarix/pkg/output"
	"github.com/arthur-debert/declarix/pkg/privilege"
	"github.com/arthur-debert/declarix/pkg/reconcile"
	"github.com/arthur-debert/declarix/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	root      string
	sources   string
	home      string
	store     datastore.DataStore
	performer *countingPerformer
	engine    *engine.Engine
}

// countingPerformer records every mutation that crosses the boundary
type countingPerformer struct {
	privilege.Performer
	requests []privilege.Request
}

func (c *countingPerformer) Perform(ctx context.Context, r privilege.Request) error {
	c.requests = append(c.requests, r)
	return c.Performer.Perform(ctx, r)
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	store, err := datastore.Open(datastore.DriverSQLite, filepath.Join(root, "state", "declarix.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fsys := filesystem.NewOS()
	performer := &countingPerformer{Performer: privilege.New(fsys, nil)}
	return &env{
		root:      root,
		sources:   filepath.Join(root, "sources"),
		home:      filepath.Join(root, "home"),
		store:     store,
		performer: performer,
		engine:    engine.New(store, reconcile.New(fsys, performer), gc.New(fsys, performer)),
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// link loads body as the configuration and runs a full link pass
func (e *env) link(t *testing.T, body string, categories ...string) []output.Line {
	t.Helper()
	path := filepath.Join(e.root, "declarix.toml")
	content := fmt.Sprintf("[locations]\ndirectory = %q\n\n%s", e.sources, body)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path, true)
	require.NoError(t, err)
	table, err := cfg.AliasTable(e.home)
	require.NoError(t, err)
	declared, err := cfg.Declared(filesystem.NewOS(), table)
	require.NoError(t, err)

	lines, err := e.engine.Link(context.Background(), entity.NewBuilder(e.home).BuildAll(declared), categories)
	require.NoError(t, err)
	return lines
}

func (e *env) tx(t *testing.T) datastore.Tx {
	t.Helper()
	tx, err := e.store.Begin()
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })
	return tx
}

const treeConfig = `
[paths.config.recursive]
home = [["tree", ".config/tree"]]
`

func TestRecursiveEndToEnd(t *testing.T) {
	e := newEnv(t)
	src := filepath.Join(e.sources, "config", "recursive", "tree")
	dst := filepath.Join(e.home, ".config", "tree")
	writeFile(t, filepath.Join(src, "a.conf"), "a")
	writeFile(t, filepath.Join(src, "one", "b.conf"), "b")
	writeFile(t, filepath.Join(src, "two", "c.conf"), "c")

	lines := e.link(t, treeConfig)
	assert.Equal(t, 6, output.Count(lines, output.OutcomeNew))
	for _, rel := range []string{"a.conf", "one/b.conf", "two/c.conf"} {
		target, err := os.Readlink(filepath.Join(dst, rel))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(src, rel), target)
	}

	links, paths := e.counts(t, types.Group{Category: "config", Setting: types.SettingRecursive})
	assert.Equal(t, 1, links)
	assert.Equal(t, 6, paths)

	// second run changes nothing: no mutation, same rows
	group := types.Group{Category: "config", Setting: types.SettingRecursive}
	before := e.snapshot(t, group)
	e.performer.requests = nil
	again := e.link(t, treeConfig)
	require.Len(t, again, 1)
	assert.Equal(t, output.OutcomeUnchanged, again[0].Outcome)
	assert.Empty(t, e.performer.requests)
	assert.Equal(t, before, e.snapshot(t, group))

	require.NoError(t, os.Remove(filepath.Join(src, "two", "c.conf")))
	lines = e.link(t, treeConfig)
	require.Len(t, lines, 2)
	assert.Equal(t, output.OutcomeUnchanged, lines[0].Outcome)
	assert.Equal(t, output.OutcomeRemoved, lines[1].Outcome)
	assert.Equal(t, filepath.Join(dst, "two", "c.conf"), lines[1].Path)

	_, err := os.Lstat(filepath.Join(dst, "two", "c.conf"))
	assert.True(t, os.IsNotExist(err))
	for _, rel := range []string{"a.conf", "one/b.conf"} {
		_, err := os.Lstat(filepath.Join(dst, rel))
		assert.NoError(t, err, rel)
	}
	_, paths = e.counts(t, types.Group{Category: "config", Setting: types.SettingRecursive})
	assert.Equal(t, 5, paths)
}

// rows is the stored state of one group
type rows struct {
	links []datastore.TrackedLink
	paths map[uint64][]datastore.TrackedPath
}

func (e *env) snapshot(t *testing.T, g types.Group) rows {
	t.Helper()
	tx, err := e.store.Begin()
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	links, err := tx.SelectGroup(g)
	require.NoError(t, err)
	snap := rows{links: links, paths: map[uint64][]datastore.TrackedPath{}}
	for _, l := range links {
		paths, err := tx.SelectPaths(l.ID)
		require.NoError(t, err)
		snap.paths[l.ID] = paths
	}
	return snap
}

func (e *env) counts(t *testing.T, g types.Group) (links, paths int) {
	t.Helper()
	tx, err := e.store.Begin()
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.SelectGroup(g)
	require.NoError(t, err)
	for _, row := range rows {
		assert.True(t, row.Keep)
		n, err := tx.CountPaths(row.ID)
		require.NoError(t, err)
		paths += n
	}
	return len(rows), paths
}

const twoCategories = `
[paths.config.link]
home = [["zshrc", ".zshrc"]]

[paths.extra.link]
home = [["vimrc", ".vimrc"]]
`

func seedTwoCategories(t *testing.T, e *env) {
	t.Helper()
	writeFile(t, filepath.Join(e.sources, "config", "link", "zshrc"), "z")
	writeFile(t, filepath.Join(e.sources, "extra", "link", "vimrc"), "v")
	lines := e.link(t, twoCategories)
	require.Equal(t, 2, output.Count(lines, output.OutcomeNew))
}

func TestRemovedCategoryIsSwept(t *testing.T) {
	e := newEnv(t)
	seedTwoCategories(t, e)

	lines := e.link(t, "[paths.config.link]\nhome = [[\"zshrc\", \".zshrc\"]]\n")
	assert.Equal(t, 1, output.Count(lines, output.OutcomeUnchanged))
	assert.Equal(t, 1, output.Count(lines, output.OutcomeRemoved))

	_, err := os.Lstat(filepath.Join(e.home, ".vimrc"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Lstat(filepath.Join(e.home, ".zshrc"))
	assert.NoError(t, err)

	groups, err := e.tx(t).Groups()
	require.NoError(t, err)
	assert.Equal(t, []types.Group{{Category: "config", Setting: types.SettingLink}}, groups)
}

func TestNamedCategoriesLeaveOthersAlone(t *testing.T) {
	e := newEnv(t)
	seedTwoCategories(t, e)

	lines := e.link(t, "", "config")
	assert.Equal(t, 1, output.Count(lines, output.OutcomeRemoved))
	assert.Equal(t, filepath.Join(e.home, ".zshrc"), lines[0].Path)

	_, err := os.Lstat(filepath.Join(e.home, ".vimrc"))
	assert.NoError(t, err, "extra was not selected")
}

func TestMissingSourceDoesNotAbortRun(t *testing.T) {
	e := newEnv(t)
	writeFile(t, filepath.Join(e.sources, "config", "link", "zshrc"), "z")

	lines := e.link(t, `
[paths.config.link]
home = [["missing", ".missing"], ["zshrc", ".zshrc"]]
`)
	require.Len(t, lines, 2)
	assert.Equal(t, output.OutcomeError, lines[0].Outcome)
	assert.Equal(t, output.OutcomeNew, lines[1].Outcome)
}

func TestStatusListsTrackedRows(t *testing.T) {
	e := newEnv(t)
	seedTwoCategories(t, e)
	writeFile(t, filepath.Join(e.sources, "config", "recursive", "tree", "a"), "a")
	e.link(t, twoCategories+treeConfig)

	lines, err := e.engine.Status([]string{"config"})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.Equal(t, output.OutcomeTracked, l.Outcome)
		assert.Equal(t, "config", l.Category)
	}
	assert.Equal(t, filepath.Join(e.home, ".zshrc"), lines[0].Path)
	assert.Contains(t, lines[1].Message, "2 paths")

	all, err := e.engine.Status(nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
