package config

import (
	"os"
	"sort"

	"github.com/arthur-debert/declarix/pkg/alias"
	"github.com/arthur-debert/declarix/pkg/errors"
	"github.com/arthur-debert/declarix/pkg/filesystem"
	"github.com/arthur-debert/declarix/pkg/logging"
	"github.com/arthur-debert/declarix/pkg/types"
)

// Declared normalizes the configuration into the ordered entity list the
// engine consumes: categories sorted, settings in processing order,
// classes sorted, rows and destinations in file order, then scanned
// entries sorted by name.
func (c *Config) Declared(fsys filesystem.FS, aliases *alias.Table) ([]types.Declared, error) {
	var out []types.Declared
	for _, category := range c.Categories() {
		for _, setting := range types.AllSettings() {
			items, err := c.declaredPaths(category, setting, aliases)
			if err != nil {
				return nil, err
			}
			out = append(out, items...)

			scanned, err := c.declaredScan(fsys, category, setting, aliases)
			if err != nil {
				return nil, err
			}
			out = append(out, scanned...)
		}
	}
	return out, nil
}

// lookupSetting finds the table for setting regardless of key case
func lookupSetting[V any](m map[string]V, setting types.Setting) (V, bool) {
	for key, v := range m {
		if parsed, err := types.ParseSetting(key); err == nil && parsed == setting {
			return v, true
		}
	}
	var zero V
	return zero, false
}

func (c *Config) declaredPaths(category string, setting types.Setting, aliases *alias.Table) ([]types.Declared, error) {
	classes, ok := lookupSetting(c.Paths[category], setting)
	if !ok {
		return nil, nil
	}

	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)

	root := c.SourceRoot(category, setting)
	var out []types.Declared
	for _, name := range names {
		class, err := types.ParseClass(name)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigValid, "[paths.%s.%s]", category, setting)
		}
		for _, row := range classes[name] {
			if len(row) < 2 {
				return nil, errors.Newf(errors.ErrConfigValid, "[paths.%s.%s] %s entry needs a destination", category, setting, name)
			}
			source, err := aliases.Resolve(row[0])
			if err != nil {
				return nil, err
			}
			for _, dst := range row[1:] {
				destination, err := aliases.Expand(dst)
				if err != nil {
					return nil, err
				}
				out = append(out, types.Declared{
					Category:            category,
					Title:               string(class),
					Setting:             setting,
					Class:               class,
					SourceRoot:          root,
					SourceFragments:     source,
					DestinationFragment: destination,
				})
			}
		}
	}
	return out, nil
}

// declaredScan declares every entry of a scanned category's source root
// individually, as generic items under the configured destination.
func (c *Config) declaredScan(fsys filesystem.FS, category string, setting types.Setting, aliases *alias.Table) ([]types.Declared, error) {
	dest, ok := lookupSetting(c.Scan[category], setting)
	if !ok {
		return nil, nil
	}

	destination, err := aliases.Expand(dest)
	if err != nil {
		return nil, err
	}

	root := c.SourceRoot(category, setting)
	entries, err := fsys.ReadDir(root)
	if os.IsNotExist(err) {
		logger := logging.GetLogger("config")
		logger.Debug().Str("root", root).Msg("Scan root does not exist, nothing declared")
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot scan %s", root)
	}

	var out []types.Declared
	for _, entry := range entries {
		name := alias.Fix(entry.Name())
		out = append(out, types.Declared{
			Category:            category,
			Title:               string(types.ClassGeneric),
			Setting:             setting,
			Class:               types.ClassGeneric,
			SourceRoot:          root,
			SourceFragments:     []string{root, name},
			DestinationFragment: alias.Join([]string{destination, name}),
		})
	}
	return out, nil
}
