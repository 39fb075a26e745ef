package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	gotoml "github.com/pelletier/go-toml/v2"

	"github.com/arthur-debert/declarix/pkg/alias"
	"github.com/arthur-debert/declarix/pkg/errors"
	"github.com/arthur-debert/declarix/pkg/logging"
	"github.com/arthur-debert/declarix/pkg/managers"
	"github.com/arthur-debert/declarix/pkg/types"
)

// EnvPrefix is stripped from environment overrides; the remainder maps
// to a key with "_" as separator, e.g. DECLARIX_STORE_DRIVER.
const EnvPrefix = "DECLARIX_"

// Config is the decoded configuration file
type Config struct {
	Locations Locations                                   `koanf:"locations"`
	Aliases   map[string]string                           `koanf:"aliases"`
	Paths     map[string]map[string]map[string][][]string `koanf:"paths"`
	Scan      map[string]map[string]string                `koanf:"scan"`
	Store     Store                                       `koanf:"store"`
	Privilege Privilege                                   `koanf:"privilege"`
	Packages  map[string][]string                         `koanf:"packages"`
	Services  map[string]map[string][]string              `koanf:"services"`

	// File is the configuration file that was loaded, empty when none
	File string `koanf:"-"`
}

// Locations holds the source roots
type Locations struct {
	// Directory is the root every category defaults under
	Directory string `koanf:"directory"`
	// Roots holds explicit <category>.<setting> overrides
	Roots map[string]interface{} `koanf:",remain"`
}

// Store selects the tracking store backend
type Store struct {
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
}

// Privilege configures escalation
type Privilege struct {
	Helper []string `koanf:"helper"`
}

// Load reads the defaults, then path (TOML, or YAML by extension) when it
// exists, then DECLARIX_* variables, and validates the result. A missing
// file is only an error when required is set.
func Load(path string, required bool) (*Config, error) {
	return LoadWithOverrides(path, required, nil)
}

// LoadWithOverrides is Load with a final layer of dotted keys, as given
// on the command line with --set.
func LoadWithOverrides(path string, required bool, overrides map[string]interface{}) (*Config, error) {
	cfg, _, err := load(path, required, overrides)
	return cfg, err
}

// Effective renders the merged configuration, after every layer, as TOML
func Effective(path string, required bool, overrides map[string]interface{}) ([]byte, error) {
	_, k, err := load(path, required, overrides)
	if err != nil {
		return nil, err
	}
	out, err := gotoml.Marshal(k.Raw())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to encode configuration")
	}
	return out, nil
}

func load(path string, required bool, overrides map[string]interface{}) (*Config, *koanf.Koanf, error) {
	logger := logging.GetLogger("config")
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrConfigParse, "failed to load defaults")
	}

	loaded := ""
	if path != "" {
		_, statErr := os.Stat(path)
		switch {
		case statErr == nil:
			if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
				return nil, nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to parse %s", path)
			}
			loaded = path
			logger.Debug().Str("path", path).Msg("Loaded configuration file")
		case os.IsNotExist(statErr) && !required:
			logger.Info().Str("path", path).Msg("No configuration file, using defaults")
		default:
			return nil, nil, errors.Wrapf(statErr, errors.ErrConfigLoad, "cannot read %s", path)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment")
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to apply overrides")
		}
		logger.Debug().Int("keys", len(overrides)).Msg("Applied overrides")
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrConfigParse, "failed to decode configuration")
	}
	cfg.File = loaded

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return &cfg, k, nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	default:
		return toml.Parser()
	}
}

// Validate checks every setting, class and alias key before anything
// touches the filesystem or the store.
func (c *Config) Validate() error {
	if _, err := alias.New(nil, c.Aliases); err != nil {
		return err
	}

	for category, settings := range c.Paths {
		for setting, classes := range settings {
			if _, err := types.ParseSetting(setting); err != nil {
				return errors.Wrapf(err, errors.ErrConfigValid, "[paths.%s]", category)
			}
			for class, rows := range classes {
				if _, err := types.ParseClass(class); err != nil {
					return errors.Wrapf(err, errors.ErrConfigValid, "[paths.%s.%s]", category, setting)
				}
				for i, row := range rows {
					if len(row) < 2 {
						return errors.Newf(errors.ErrConfigValid,
							"[paths.%s.%s] %s entry %d needs a source and at least one destination", category, setting, class, i+1)
					}
				}
			}
		}
	}

	for category, settings := range c.Scan {
		for setting := range settings {
			if _, err := types.ParseSetting(setting); err != nil {
				return errors.Wrapf(err, errors.ErrConfigValid, "[scan.%s]", category)
			}
		}
	}

	for category, v := range c.Locations.Roots {
		roots, ok := v.(map[string]interface{})
		if !ok {
			return errors.Newf(errors.ErrConfigValid, "[locations.%s] must be a table of setting = path", category)
		}
		for setting := range roots {
			if _, err := types.ParseSetting(setting); err != nil {
				return errors.Wrapf(err, errors.ErrConfigValid, "[locations.%s]", category)
			}
		}
	}

	if _, err := c.PackageManagers(); err != nil {
		return err
	}
	if _, err := c.ServiceManagers(); err != nil {
		return err
	}

	switch c.Store.Driver {
	case "", "sqlite", "bolt":
	default:
		return errors.Newf(errors.ErrConfigValid, "[store] unknown driver %q", c.Store.Driver)
	}
	return nil
}

// Categories returns every category named in paths or scan, sorted
func (c *Config) Categories() []string {
	seen := map[string]bool{}
	var categories []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			categories = append(categories, name)
		}
	}
	for name := range c.Paths {
		add(name)
	}
	for name := range c.Scan {
		add(name)
	}
	sort.Strings(categories)
	return categories
}

// SourceRoot returns where a category's sources for setting live: an
// explicit [locations.<category>] entry, else directory/category/setting.
func (c *Config) SourceRoot(category string, setting types.Setting) string {
	if roots, ok := c.Locations.Roots[category].(map[string]interface{}); ok {
		if root, ok := roots[string(setting)].(string); ok && root != "" {
			return alias.Fix(root)
		}
	}
	directory := c.Locations.Directory
	if directory == "" {
		directory = "/etc/declarix"
	}
	return filepath.Join(alias.Fix(directory), category, string(setting))
}

// AliasTable builds the alias table with the builtins for home
func (c *Config) AliasTable(home string) (*alias.Table, error) {
	return alias.New(alias.Builtins(home), c.Aliases)
}

// PackageManagers resolves the [packages] tables to capability records
func (c *Config) PackageManagers() ([]managers.Manager, error) {
	names := make([]string, 0, len(c.Packages))
	for name := range c.Packages {
		names = append(names, name)
	}
	sort.Strings(names)
	selected, err := managers.Select(managers.KindPackage, names)
	if err != nil {
		return nil, errors.Wrap(err, errors.GetErrorCode(err), "[packages]")
	}
	return selected, nil
}

// PackagesFor returns the names declared for a manager, whichever alias the
// file used for it.
func (c *Config) PackagesFor(m managers.Manager) []string {
	var names []string
	keys := make([]string, 0, len(c.Packages))
	for key := range c.Packages {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if managers.Canonical(key) == m.Name {
			names = append(names, c.Packages[key]...)
		}
	}
	return names
}

// ServiceSet is the units declared for one service manager scope
type ServiceSet struct {
	Manager managers.Manager
	Units   []string
}

// ServiceManagers resolves every [services.<manager>] scope, sorted by
// manager name.
func (c *Config) ServiceManagers() ([]ServiceSet, error) {
	byName := map[string]*ServiceSet{}
	var order []string
	for manager, scopes := range c.Services {
		for scope, units := range scopes {
			m, err := managers.ServiceManager(manager, scope)
			if err != nil {
				return nil, errors.Wrapf(err, errors.GetErrorCode(err), "[services.%s]", manager)
			}
			set, ok := byName[m.Name]
			if !ok {
				set = &ServiceSet{Manager: m}
				byName[m.Name] = set
				order = append(order, m.Name)
			}
			set.Units = append(set.Units, units...)
		}
	}
	sort.Strings(order)
	sets := make([]ServiceSet, 0, len(order))
	for _, name := range order {
		sort.Strings(byName[name].Units)
		sets = append(sets, *byName[name])
	}
	return sets, nil
}

// ParseOverrides turns key=value pairs into the map LoadWithOverrides takes
func ParseOverrides(pairs []string) (map[string]interface{}, error) {
	overrides := map[string]interface{}{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.Newf(errors.ErrConfigValid, "override %q is not key=value", pair)
		}
		overrides[key] = strings.TrimSpace(value)
	}
	return overrides, nil
}
