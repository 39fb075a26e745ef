// pkg/commands/commands_test.go
// TEST TYPE: Integration Test
// DEPENDENCIES: HOME, config file, sources and store under t.TempDir(); fake runner
// PURPOSE: Commands open a full session from configuration and return lines

package commands_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arthur-debert/declarix/pkg/commands"
	"github.com/arthur-debert/declarix/pkg/errors"
	"github.com/arthur-debert/declarix/pkg/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type setup struct {
	home    string
	sources string
	config  string
}

func newSetup(t *testing.T, body string) *setup {
	t.Helper()
	root := t.TempDir()
	s := &setup{
		home:    filepath.Join(root, "home"),
		sources: filepath.Join(root, "sources"),
		config:  filepath.Join(root, "declarix.toml"),
	}
	require.NoError(t, os.MkdirAll(s.home, 0o755))
	t.Setenv("HOME", s.home)
	t.Setenv("DECLARIX_DATA_DIR", filepath.Join(root, "data"))
	t.Setenv("DECLARIX_STATE_DIR", filepath.Join(root, "state"))

	content := fmt.Sprintf("[locations]\ndirectory = %q\n\n%s", s.sources, body)
	require.NoError(t, os.WriteFile(s.config, []byte(content), 0o644))
	return s
}

func (s *setup) source(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(s.sources, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// recordingRunner reports nothing installed and remembers every call
type recordingRunner struct {
	calls []string
}

func (r *recordingRunner) Run(_ context.Context, argv []string) ([]byte, error) {
	r.calls = append(r.calls, strings.Join(argv, " "))
	return nil, nil
}

func TestLinkAndStatus(t *testing.T) {
	s := newSetup(t, `
[paths.config.link]
home = [["zshrc", ".zshrc"]]
`)
	s.source(t, "config/link/zshrc", "export A=1")
	opts := commands.Options{ConfigFile: s.config}

	lines, err := commands.Link(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, output.OutcomeNew, lines[0].Outcome)

	target, err := os.Readlink(filepath.Join(s.home, ".zshrc"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.sources, "config", "link", "zshrc"), target)

	status, err := commands.Status(opts)
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.Equal(t, output.OutcomeTracked, status[0].Outcome)

	_, err = os.Stat(filepath.Join(filepath.Dir(s.config), "data", "declarix.db"))
	assert.NoError(t, err, "the store lives in the data directory")
}

func TestMissingExplicitConfigIsFatal(t *testing.T) {
	s := newSetup(t, "")
	_, err := commands.Link(context.Background(), commands.Options{ConfigFile: s.config + ".missing"})
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestInstallAndServicesUseRunner(t *testing.T) {
	s := newSetup(t, `
[packages]
pacman = ["git"]

[services.systemd]
user = ["syncthing"]
`)
	runner := &recordingRunner{}
	opts := commands.Options{ConfigFile: s.config}

	lines, err := commands.Apply(context.Background(), opts, runner)
	require.NoError(t, err)
	assert.Equal(t, 2, output.Count(lines, output.OutcomeNew))
	assert.Contains(t, runner.calls, "sudo pacman -S --needed --noconfirm git")
	assert.Contains(t, runner.calls, "systemctl --user enable --now syncthing.service")
}

func TestWatchTargets(t *testing.T) {
	s := newSetup(t, `
[paths.config.link]
home = [["zshrc", ".zshrc"]]
`)
	files, roots, err := commands.WatchTargets(commands.Options{ConfigFile: s.config})
	require.NoError(t, err)
	assert.Equal(t, []string{s.config}, files)
	assert.Contains(t, roots, filepath.Join(s.sources, "config", "link"))
}

func TestShowConfig(t *testing.T) {
	s := newSetup(t, "[packages]\npacman = [\"git\"]\n")

	out, err := commands.ShowConfig(commands.Options{ConfigFile: s.config, Overrides: []string{"store.driver=bolt"}})
	require.NoError(t, err)
	assert.Contains(t, string(out), "[store]")
	assert.Contains(t, string(out), "bolt")
	assert.Contains(t, string(out), s.sources)

	_, err = commands.ShowConfig(commands.Options{ConfigFile: s.config, Overrides: []string{"broken"}})
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))
}
