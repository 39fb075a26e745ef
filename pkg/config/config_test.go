// pkg/config/config_test.go
// TEST TYPE: Integration Test
// DEPENDENCIES: Config files and scan roots under t.TempDir()
// PURPOSE: Layered loading, validation and normalization into declarations

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/declarix/pkg/config"
	"github.com/arthur-debert/declarix/pkg/errors"
	"github.com/arthur-debert/declarix/pkg/filesystem"
	"github.com/arthur-debert/declarix/pkg/types"
	gotoml "github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"), false)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, []string{"sudo", "--", "declarix-helper"}, cfg.Privilege.Helper)
	assert.Equal(t, "/etc/declarix/config/link", cfg.SourceRoot("config", types.SettingLink))
	assert.Empty(t, cfg.File)
	assert.Contains(t, config.DefaultContent(), "[store]")
}

func TestLoadMissingRequiredFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"), true)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "declarix.toml", `
[locations]
directory = "/srv/declarix/"

[locations.system]
copy = "/srv/backups"

[aliases]
"[dots]" = "/srv/dots"

[paths.config.link]
home = [["zshrc", ".zshrc"], ["gitconfig", ".gitconfig", ".config/git/config"]]

[paths.system.copy]
root = [["fstab", "/etc/fstab"]]

[store]
driver = "bolt"

[packages]
pacman = ["git", "vim"]
`)

	cfg, err := config.Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "bolt", cfg.Store.Driver)
	assert.Equal(t, []string{"git", "vim"}, cfg.Packages["pacman"])
	assert.Equal(t, "/srv/declarix/config/link", cfg.SourceRoot("config", types.SettingLink))
	assert.Equal(t, "/srv/backups", cfg.SourceRoot("system", types.SettingCopy))
	assert.Equal(t, []string{"config", "system"}, cfg.Categories())

	table, err := cfg.AliasTable("/home/tester")
	require.NoError(t, err)
	declared, err := cfg.Declared(filesystem.NewOS(), table)
	require.NoError(t, err)

	require.Len(t, declared, 4)
	assert.Equal(t, types.Declared{
		Category: "config", Title: "home", Setting: types.SettingLink, Class: types.ClassHome,
		SourceRoot: "/srv/declarix/config/link", SourceFragments: []string{"/zshrc"}, DestinationFragment: "/.zshrc",
	}, declared[0])
	assert.Equal(t, "/.gitconfig", declared[1].DestinationFragment)
	assert.Equal(t, "/.config/git/config", declared[2].DestinationFragment)
	assert.Equal(t, []string{"/gitconfig"}, declared[2].SourceFragments)
	assert.Equal(t, types.SettingCopy, declared[3].Setting)
	assert.Equal(t, "/srv/backups", declared[3].SourceRoot)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "declarix.yaml", `
paths:
  config:
    recursive:
      generic:
        - ["[home]/notes", "/var/notes"]
`)

	cfg, err := config.Load(path, true)
	require.NoError(t, err)

	table, err := cfg.AliasTable("/home/tester")
	require.NoError(t, err)
	declared, err := cfg.Declared(filesystem.NewOS(), table)
	require.NoError(t, err)
	require.Len(t, declared, 1)
	assert.Equal(t, []string{"/home/tester", "/notes"}, declared[0].SourceFragments)
	assert.Equal(t, types.ClassGeneric, declared[0].Class)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("DECLARIX_STORE_DRIVER", "bolt")
	t.Setenv("DECLARIX_STORE_PATH", "/tmp/state.bolt")

	cfg, err := config.Load("", false)
	require.NoError(t, err)
	assert.Equal(t, "bolt", cfg.Store.Driver)
	assert.Equal(t, "/tmp/state.bolt", cfg.Store.Path)
}

func TestSettingsFollowProcessingOrder(t *testing.T) {
	path := writeConfig(t, "declarix.toml", `
[paths.config.secure_link]
default = [["a", "/a"]]

[paths.config.copy]
default = [["b", "/b"]]

[paths.config.link]
root = [["c", "/c"]]
default = [["d", "/d"]]
`)
	cfg, err := config.Load(path, true)
	require.NoError(t, err)
	table, err := cfg.AliasTable("/home/tester")
	require.NoError(t, err)
	declared, err := cfg.Declared(filesystem.NewOS(), table)
	require.NoError(t, err)

	var order []string
	for _, d := range declared {
		order = append(order, d.DestinationFragment)
	}
	assert.Equal(t, []string{"/d", "/c", "/b", "/a"}, order)
}

func TestScanDeclaresEachEntry(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"nvim", "alacritty", "git"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, name), 0755))
	}

	path := writeConfig(t, "declarix.toml", `
[locations.config]
link = "`+root+`"

[scan.config]
link = "[config]"

[scan.missing]
link = "/nowhere"
`)
	cfg, err := config.Load(path, true)
	require.NoError(t, err)
	table, err := cfg.AliasTable("/home/tester")
	require.NoError(t, err)
	declared, err := cfg.Declared(filesystem.NewOS(), table)
	require.NoError(t, err)

	require.Len(t, declared, 3)
	assert.Equal(t, []string{root, "/alacritty"}, declared[0].SourceFragments)
	assert.Equal(t, types.ClassGeneric, declared[0].Class)
	assert.Equal(t, "/git", declared[1].SourceFragments[1])
	assert.Equal(t, "/nvim", declared[2].SourceFragments[1])
	assert.True(t, filepath.IsAbs(declared[2].DestinationFragment))
	assert.Equal(t, "nvim", filepath.Base(declared[2].DestinationFragment))
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{"unknown setting", "[paths.config.hardcopy]\ndefault = [[\"a\", \"/a\"]]\n", errors.ErrConfigValid},
		{"unknown class", "[paths.config.link]\nnobody = [[\"a\", \"/a\"]]\n", errors.ErrConfigValid},
		{"row without destination", "[paths.config.link]\ndefault = [[\"a\"]]\n", errors.ErrConfigValid},
		{"bad alias key", "[aliases]\nhome = \"/x\"\n", errors.ErrAliasInvalid},
		{"unknown store driver", "[store]\ndriver = \"postgres\"\n", errors.ErrConfigValid},
		{"malformed toml", "[paths\n", errors.ErrConfigParse},
		{"unknown package manager", "[packages]\nbrew = [\"git\"]\n", errors.ErrManagerUnknown},
		{"two system managers", "[packages]\npacman = [\"git\"]\napt = [\"git\"]\n", errors.ErrConfigValid},
		{"unknown service manager", "[services.launchd]\nuser = [\"x\"]\n", errors.ErrManagerUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "declarix.toml", tt.content)
			_, err := config.Load(path, true)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, tt.code), "got %v", err)
			assert.True(t, errors.IsFatal(err))
		})
	}
}

func TestDeclaredUnknownAlias(t *testing.T) {
	path := writeConfig(t, "declarix.toml", "[paths.config.link]\ndefault = [[\"[nope]/a\", \"/a\"]]\n")
	cfg, err := config.Load(path, true)
	require.NoError(t, err)
	table, err := cfg.AliasTable("/home/tester")
	require.NoError(t, err)

	_, err = cfg.Declared(filesystem.NewOS(), table)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAliasUnknown))
}

func TestManagersFromConfig(t *testing.T) {
	path := writeConfig(t, "declarix.toml", `
[packages]
apt-get = ["git"]
flatpak = ["org.gimp.GIMP"]

[services.systemd]
root = ["sshd"]
user = ["syncthing", "backup.timer"]
`)
	cfg, err := config.Load(path, true)
	require.NoError(t, err)

	packages, err := cfg.PackageManagers()
	require.NoError(t, err)
	require.Len(t, packages, 2)
	assert.Equal(t, "apt", packages[0].Name)
	assert.Equal(t, []string{"git"}, cfg.PackagesFor(packages[0]))

	services, err := cfg.ServiceManagers()
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "systemd", services[0].Manager.Name)
	assert.Equal(t, []string{"sshd"}, services[0].Units)
	assert.Equal(t, "systemd-user", services[1].Manager.Name)
	assert.Equal(t, []string{"backup.timer", "syncthing"}, services[1].Units)
}

func TestOverridesWinOverFileAndEnvironment(t *testing.T) {
	path := writeConfig(t, "declarix.toml", "[store]\ndriver = \"sqlite\"\n")
	t.Setenv("DECLARIX_STORE_DRIVER", "sqlite")

	overrides, err := config.ParseOverrides([]string{"store.driver=bolt", "locations.directory = /srv/dots"})
	require.NoError(t, err)
	cfg, err := config.LoadWithOverrides(path, true, overrides)
	require.NoError(t, err)
	assert.Equal(t, "bolt", cfg.Store.Driver)
	assert.Equal(t, "/srv/dots/config/copy", cfg.SourceRoot("config", types.SettingCopy))

	_, err = config.ParseOverrides([]string{"novalue"})
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))
}

func TestEffectiveMergesEveryLayer(t *testing.T) {
	path := writeConfig(t, "declarix.toml", "[packages]\npacman = [\"git\"]\n")
	overrides, err := config.ParseOverrides([]string{"store.driver=bolt"})
	require.NoError(t, err)

	out, err := config.Effective(path, true, overrides)
	require.NoError(t, err)

	var decoded struct {
		Locations struct {
			Directory string `toml:"directory"`
		} `toml:"locations"`
		Store struct {
			Driver string `toml:"driver"`
		} `toml:"store"`
		Packages map[string][]string `toml:"packages"`
	}
	require.NoError(t, gotoml.Unmarshal(out, &decoded))
	assert.Equal(t, "/etc/declarix", decoded.Locations.Directory)
	assert.Equal(t, "bolt", decoded.Store.Driver)
	assert.Equal(t, []string{"git"}, decoded.Packages["pacman"])

	_, err = config.Effective(writeConfig(t, "bad.toml", "[paths\n"), true, nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigParse))
}
