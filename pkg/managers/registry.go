// Package managers reconciles declared packages and services through
// external command line tools. Every tool is described by a capability
// record in a registry; the reconciliation itself is the same
// mark-and-sweep used for files, with item rows in the tracking store.
package managers

import (
	"sort"
	"strings"

	"github.com/arthur-debert/declarix/pkg/errors"
	"github.com/arthur-debert/declarix/pkg/registry"
)

// Kind separates package managers from service managers in the store
type Kind string

const (
	KindPackage Kind = "package"
	KindService Kind = "service"
)

// Manager is the capability record of one external tool. Names are
// appended to Install and Uninstall; List prints what is present.
type Manager struct {
	Name string
	Kind Kind
	// Family groups tools that must not be mixed in one configuration
	Family    string
	Install   []string
	Uninstall []string
	List      []string
	// Field is the whitespace separated column of a List line holding the name
	Field int
	// FoldCase compares names case-insensitively
	FoldCase bool
	// Suffix is appended to declared names that carry no extension
	Suffix string
}

// Normalize returns the name as the tool reports it
func (m Manager) Normalize(name string) string {
	name = strings.TrimSpace(name)
	if m.Suffix != "" && !strings.Contains(name, ".") {
		name += m.Suffix
	}
	if m.FoldCase {
		name = strings.ToLower(name)
	}
	return name
}

// Parse extracts the present names from List output
func (m Manager) Parse(out []byte) map[string]bool {
	present := map[string]bool{}
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) <= m.Field {
			continue
		}
		name := fields[m.Field]
		if m.FoldCase {
			name = strings.ToLower(name)
		}
		present[name] = true
	}
	return present
}

var records = registry.New[Manager]()

// aliases maps canonical names onto their alternative spellings
var aliases = map[string][]string{
	"apt":          {"apt-get"},
	"code":         {"vscode"},
	"vscodium":     {"codium"},
	"systemd":      {"systemctl"},
	"systemd-user": {"user", "systemd_user"},
}

// Register adds a capability record together with its aliases
func Register(m Manager, alternatives ...string) error {
	return records.Register(m.Name, m, alternatives...)
}

func init() {
	for _, m := range []Manager{
		{
			Name:      "pacman",
			Kind:      KindPackage,
			Family:    "system",
			Install:   []string{"sudo", "pacman", "-S", "--needed", "--noconfirm"},
			Uninstall: []string{"sudo", "pacman", "-Rns", "--noconfirm"},
			List:      []string{"pacman", "-Qq"},
		},
		{
			Name:      "paru",
			Kind:      KindPackage,
			Family:    "aur",
			Install:   []string{"paru", "-S", "--needed", "--noconfirm"},
			Uninstall: []string{"paru", "-Rns", "--noconfirm"},
			List:      []string{"paru", "-Qq"},
		},
		{
			Name:      "yay",
			Kind:      KindPackage,
			Family:    "aur",
			Install:   []string{"yay", "-S", "--needed", "--noconfirm"},
			Uninstall: []string{"yay", "-Rns", "--noconfirm"},
			List:      []string{"yay", "-Qq"},
		},
		{
			Name:      "apt",
			Kind:      KindPackage,
			Family:    "system",
			Install:   []string{"sudo", "apt-get", "install", "-y"},
			Uninstall: []string{"sudo", "apt-get", "remove", "-y"},
			List:      []string{"dpkg-query", "-W", "-f=${Package}\n"},
		},
		{
			Name:      "zypper",
			Kind:      KindPackage,
			Family:    "system",
			Install:   []string{"sudo", "zypper", "--non-interactive", "install"},
			Uninstall: []string{"sudo", "zypper", "--non-interactive", "remove"},
			List:      []string{"rpm", "-qa", "--qf", "%{NAME}\n"},
		},
		{
			Name:      "flatpak",
			Kind:      KindPackage,
			Install:   []string{"flatpak", "install", "-y", "--noninteractive"},
			Uninstall: []string{"flatpak", "uninstall", "-y", "--noninteractive"},
			List:      []string{"flatpak", "list", "--app", "--columns=application"},
		},
		{
			Name:      "code",
			Kind:      KindPackage,
			Install:   []string{"code", "--install-extension"},
			Uninstall: []string{"code", "--uninstall-extension"},
			List:      []string{"code", "--list-extensions"},
			FoldCase:  true,
		},
		{
			Name:      "vscodium",
			Kind:      KindPackage,
			Install:   []string{"codium", "--install-extension"},
			Uninstall: []string{"codium", "--uninstall-extension"},
			List:      []string{"codium", "--list-extensions"},
			FoldCase:  true,
		},
		{
			Name:      "systemd",
			Kind:      KindService,
			Install:   []string{"sudo", "systemctl", "enable", "--now"},
			Uninstall: []string{"sudo", "systemctl", "disable", "--now"},
			List:      []string{"systemctl", "list-unit-files", "--state=enabled", "--no-legend", "--plain"},
			Suffix:    ".service",
		},
		{
			Name:      "systemd-user",
			Kind:      KindService,
			Install:   []string{"systemctl", "--user", "enable", "--now"},
			Uninstall: []string{"systemctl", "--user", "disable", "--now"},
			List:      []string{"systemctl", "--user", "list-unit-files", "--state=enabled", "--no-legend", "--plain"},
			Suffix:    ".service",
		},
	} {
		registry.MustRegister(records, m.Name, m, aliases[m.Name]...)
	}
}

// Canonical maps an alias onto its registered name
func Canonical(name string) string {
	return records.Canonical(name)
}

// Lookup returns the record of kind registered under name or one of its aliases
func Lookup(kind Kind, name string) (Manager, error) {
	m, err := records.Get(name)
	if err != nil || m.Kind != kind {
		return Manager{}, errors.Newf(errors.ErrManagerUnknown, "unknown %s manager %q", kind, name).
			WithDetail("available", Names(kind))
	}
	return m, nil
}

// ServiceManager resolves a [services.<manager>] scope: "user" selects
// the per-user variant, anything else the system one.
func ServiceManager(manager, scope string) (Manager, error) {
	name := Canonical(manager)
	if strings.EqualFold(scope, "user") && !strings.HasSuffix(name, "-user") {
		name += "-user"
	}
	return Lookup(KindService, name)
}

// Select resolves every name to its record, sorted by name, and refuses
// two tools of the same family.
func Select(kind Kind, names []string) ([]Manager, error) {
	var selected []Manager
	families := map[string]string{}
	for _, name := range names {
		m, err := Lookup(kind, name)
		if err != nil {
			return nil, err
		}
		if m.Family != "" {
			if other, ok := families[m.Family]; ok && other != m.Name {
				return nil, errors.Newf(errors.ErrConfigValid,
					"%s and %s both manage %s packages, keep one", other, m.Name, m.Family)
			}
			families[m.Family] = m.Name
		}
		selected = append(selected, m)
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].Name < selected[j].Name })
	return selected, nil
}

// Names lists the registered managers of kind
func Names(kind Kind) []string {
	var names []string
	for _, name := range records.List() {
		if m, err := records.Get(name); err == nil && m.Kind == kind {
			names = append(names, name)
		}
	}
	return names
}
