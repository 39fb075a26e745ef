// Package commands provides the high level operations behind each CLI
// command. Every operation opens a session (paths, configuration, store
// and privilege boundary), does its work and returns output lines for the
// renderer. Only configuration and store failures come back as errors.
package commands

import (
	"path/filepath"

	"github.com/arthur-debert/declarix/pkg/config"
	"github.com/arthur-debert/declarix/pkg/datastore"
	"github.com/arthur-debert/declarix/pkg/engine"
	"github.com/arthur-debert/declarix/pkg/entity"
	"github.com/arthur-debert/declarix/pkg/filesystem"
	"github.com/arthur-debert/declarix/pkg/gc"
	"github.com/arthur-debert/declarix/pkg/logging"
	"github.com/arthur-debert/declarix/pkg/paths"
	"github.com/arthur-debert/declarix/pkg/privilege"
	"github.com/arthur-debert/declarix/pkg/reconcile"
	"github.com/arthur-debert/declarix/pkg/types"
)

// Options are shared by every command
type Options struct {
	// ConfigFile overrides DECLARIX_CONFIG and the XDG default
	ConfigFile string
	// Categories restricts link and status to these categories
	Categories []string
	// Overrides are key=value pairs applied over every other layer
	Overrides []string
}

// session is everything one command needs, opened in dependency order
type session struct {
	paths  paths.Paths
	config *config.Config
	fs     filesystem.FS
	store  datastore.DataStore
	engine *engine.Engine
}

// loadConfig resolves paths and loads the configuration. An explicit
// --config file must exist; the default location may be absent.
func loadConfig(opts Options) (paths.Paths, *config.Config, error) {
	p, err := paths.New(opts.ConfigFile)
	if err != nil {
		return nil, nil, err
	}
	overrides, err := config.ParseOverrides(opts.Overrides)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.LoadWithOverrides(p.ConfigFile(), opts.ConfigFile != "", overrides)
	if err != nil {
		return nil, nil, err
	}
	return p, cfg, nil
}

func open(opts Options) (*session, error) {
	logger := logging.GetLogger("commands")

	p, cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	storePath := cfg.Store.Path
	if storePath == "" {
		storePath = p.StorePath(cfg.Store.Driver)
	}
	storePath = paths.ExpandHome(storePath, p.Home())
	store, err := datastore.Open(cfg.Store.Driver, storePath)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Str("config", cfg.File).
		Str("store", storePath).
		Str("driver", cfg.Store.Driver).
		Msg("Session opened")

	fsys := filesystem.NewOS()
	boundary := privilege.New(fsys, privilege.NewHelperEscalator(cfg.Privilege.Helper))
	return &session{
		paths:  p,
		config: cfg,
		fs:     fsys,
		store:  store,
		engine: engine.New(store, reconcile.New(fsys, boundary), gc.New(fsys, boundary)),
	}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// entities normalizes the configuration and builds every entity
func (s *session) entities() ([]types.Entity, error) {
	table, err := s.config.AliasTable(s.paths.Home())
	if err != nil {
		return nil, err
	}
	declared, err := s.config.Declared(s.fs, table)
	if err != nil {
		return nil, err
	}
	return entity.NewBuilder(s.paths.Home()).BuildAll(declared), nil
}

// WatchTargets returns the configuration file and every distinct source
// root the configuration declares, for the watch command.
func WatchTargets(opts Options) (files, roots []string, err error) {
	p, cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, err
	}
	files = []string{p.ConfigFile()}

	seen := map[string]bool{}
	for _, category := range cfg.Categories() {
		for _, setting := range types.AllSettings() {
			root := filepath.Clean(cfg.SourceRoot(category, setting))
			if !seen[root] {
				seen[root] = true
				roots = append(roots, root)
			}
		}
	}
	return files, roots, nil
}

// ShowConfig returns the effective configuration after defaults, the file,
// the environment and overrides are merged.
func ShowConfig(opts Options) ([]byte, error) {
	p, err := paths.New(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	overrides, err := config.ParseOverrides(opts.Overrides)
	if err != nil {
		return nil, err
	}
	return config.Effective(p.ConfigFile(), opts.ConfigFile != "", overrides)
}
