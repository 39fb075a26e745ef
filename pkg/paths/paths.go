package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/declarix/pkg/errors"
)

// Environment variable names
const (
	// EnvConfigFile points at an explicit configuration file
	EnvConfigFile = "DECLARIX_CONFIG"

	// EnvConfigDir overrides the XDG config directory for declarix
	EnvConfigDir = "DECLARIX_CONFIG_DIR"

	// EnvDataDir overrides the XDG data directory for declarix
	EnvDataDir = "DECLARIX_DATA_DIR"

	// EnvStateDir overrides the XDG state directory for declarix
	EnvStateDir = "DECLARIX_STATE_DIR"

	// EnvHome is the standard home directory variable
	EnvHome = "HOME"
)

// Fixed names inside the declarix directories
const (
	DirName        = "declarix"
	ConfigFileName = "declarix.toml"
	StoreFileName  = "declarix.db"
	BoltFileName   = "declarix.bolt"
	LogFileName    = "declarix.log"
)

// Paths provides centralized path management for declarix
type Paths interface {
	Home() string
	ConfigDir() string
	ConfigFile() string
	DataDir() string
	StateDir() string
	StorePath(driver string) string
	LogFilePath() string
}

type paths struct {
	home       string
	configDir  string
	configFile string
	dataDir    string
	stateDir   string
}

// New resolves every directory from the environment. configFile, when
// non-empty, wins over DECLARIX_CONFIG and the XDG default.
func New(configFile string) (Paths, error) {
	home, err := homeDir()
	if err != nil {
		return nil, err
	}

	p := &paths{home: home}
	p.configDir = fromEnv(EnvConfigDir, filepath.Join(xdg.ConfigHome, DirName), home)
	p.dataDir = fromEnv(EnvDataDir, filepath.Join(xdg.DataHome, DirName), home)
	p.stateDir = fromEnv(EnvStateDir, filepath.Join(xdg.StateHome, DirName), home)

	switch {
	case configFile != "":
		p.configFile = ExpandHome(configFile, home)
	case os.Getenv(EnvConfigFile) != "":
		p.configFile = ExpandHome(os.Getenv(EnvConfigFile), home)
	default:
		p.configFile = filepath.Join(p.configDir, ConfigFileName)
	}

	if abs, err := filepath.Abs(p.configFile); err == nil {
		p.configFile = abs
	}
	return p, nil
}

func homeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return home, nil
	}
	if home = os.Getenv(EnvHome); home != "" {
		return home, nil
	}
	return "", errors.Wrap(err, errors.ErrNotFound, "cannot determine home directory")
}

func fromEnv(name, fallback, home string) string {
	if v := os.Getenv(name); v != "" {
		return ExpandHome(v, home)
	}
	return fallback
}

// ExpandHome expands a leading ~ or ~/ to home
func ExpandHome(path, home string) string {
	switch {
	case path == "~":
		return home
	case len(path) > 1 && path[0] == '~' && path[1] == '/':
		return filepath.Join(home, path[2:])
	default:
		return path
	}
}

func (p *paths) Home() string       { return p.home }
func (p *paths) ConfigDir() string  { return p.configDir }
func (p *paths) ConfigFile() string { return p.configFile }
func (p *paths) DataDir() string    { return p.dataDir }
func (p *paths) StateDir() string   { return p.stateDir }

// StorePath returns the default store file for the given backend
func (p *paths) StorePath(driver string) string {
	if driver == "bolt" {
		return filepath.Join(p.dataDir, BoltFileName)
	}
	return filepath.Join(p.dataDir, StoreFileName)
}

// LogFilePath returns the append-only log file location
func (p *paths) LogFilePath() string {
	return filepath.Join(p.stateDir, LogFileName)
}
