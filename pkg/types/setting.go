package types

import (
	"fmt"
	"strings"
)

// Setting selects the reconciliation algorithm applied to a declared entity
type Setting string

const (
	// SettingLink creates a single symlink (or hardlink) at the destination
	SettingLink Setting = "link"

	// SettingRecursive mirrors a source tree into the destination one path at a time
	SettingRecursive Setting = "recursive"

	// SettingCopy physically copies a source tree, tracking modification times
	SettingCopy Setting = "copy"

	// SettingSecureLink behaves like SettingLink but refuses loosely owned sources
	SettingSecureLink Setting = "secure_link"

	// SettingSecureRecursive behaves like SettingRecursive but refuses loosely owned sources
	SettingSecureRecursive Setting = "secure_recursive"
)

// AllSettings returns every setting in processing order
func AllSettings() []Setting {
	return []Setting{
		SettingLink,
		SettingRecursive,
		SettingCopy,
		SettingSecureLink,
		SettingSecureRecursive,
	}
}

// ParseSetting converts a configuration key into a Setting
func ParseSetting(s string) (Setting, error) {
	setting := Setting(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllSettings() {
		if setting == known {
			return setting, nil
		}
	}
	return "", fmt.Errorf("unknown setting %q", s)
}

// Base returns the algorithm a setting uses, folding secured variants
// onto their plain counterparts.
func (s Setting) Base() Setting {
	switch s {
	case SettingSecureLink:
		return SettingLink
	case SettingSecureRecursive:
		return SettingRecursive
	default:
		return s
	}
}

// IsSecure reports whether the setting requires a tightly owned source
func (s Setting) IsSecure() bool {
	return s == SettingSecureLink || s == SettingSecureRecursive
}

// IsTree reports whether the setting tracks one row per contained path
func (s Setting) IsTree() bool {
	base := s.Base()
	return base == SettingRecursive || base == SettingCopy
}

// Label is the human readable form used in output headers
func (s Setting) Label() string {
	return strings.ReplaceAll(string(s), "_", " ")
}
