package types

import (
	"fmt"
	"strings"
)

// Class is the ownership class of a declared entity. It controls path
// prefixing and whether a hardlink may replace a symlink.
type Class string

const (
	// ClassDefault applies the category source root and no destination prefix
	ClassDefault Class = "default"

	// ClassHome prefixes the destination with the invoking user's home directory
	ClassHome Class = "home"

	// ClassRoot marks root owned content; same-device links become hardlinks
	ClassRoot Class = "root"

	// ClassOther is content owned by some other account
	ClassOther Class = "other"

	// ClassGeneric takes the source fragment as an absolute path
	ClassGeneric Class = "generic"
)

// AllClasses returns every known ownership class
func AllClasses() []Class {
	return []Class{ClassDefault, ClassHome, ClassRoot, ClassOther, ClassGeneric}
}

// ParseClass converts a configuration key into a Class
func ParseClass(s string) (Class, error) {
	class := Class(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllClasses() {
		if class == known {
			return class, nil
		}
	}
	return "", fmt.Errorf("unknown ownership class %q", s)
}

// IsDefault reports whether the class is omitted from output
func (c Class) IsDefault() bool {
	return c == ClassDefault || c == ""
}
