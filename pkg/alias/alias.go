// Package alias substitutes bracketed placeholders in configured paths.
//
// A fragment may begin with one token written as [name], {name} or
// (name); the token is replaced by its table value and the rest of the
// fragment is kept literally. Every piece is normalized to "/x" form.
package alias

import (
	"regexp"
	"sort"
	"strings"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/declarix/pkg/errors"
)

var (
	keyPattern   = regexp.MustCompile(`^[\[{(][^\[\]{}()]+[\]})]$`)
	leadingToken = regexp.MustCompile(`^[\[{(][^\[\]{}()/]*[\]})]`)
)

// Table maps tokens, brackets included, to path fragments
type Table struct {
	entries map[string]string
}

// Builtins returns the tokens every configuration gets for free
func Builtins(home string) map[string]string {
	return map[string]string{
		"[home]":   home,
		"[config]": xdg.ConfigHome,
		"[data]":   xdg.DataHome,
	}
}

// New builds a table from builtins overlaid with user entries. Keys that
// are not a single bracketed token are rejected.
func New(builtins, user map[string]string) (*Table, error) {
	t := &Table{entries: make(map[string]string, len(builtins)+len(user))}
	for k, v := range builtins {
		t.entries[k] = v
	}

	keys := make([]string, 0, len(user))
	for k := range user {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !keyPattern.MatchString(k) {
			return nil, errors.Newf(errors.ErrAliasInvalid, "invalid alias %q: expected [name], {name} or (name)", k).
				WithDetail("alias", k)
		}
		t.entries[k] = user[k]
	}
	return t, nil
}

// Lookup returns the value of token
func (t *Table) Lookup(token string) (string, bool) {
	v, ok := t.entries[token]
	return v, ok
}

// Resolve splits fragment into its token value and literal remainder,
// each normalized. A fragment without a token resolves to itself.
func (t *Table) Resolve(fragment string) ([]string, error) {
	token := leadingToken.FindString(fragment)
	if token == "" {
		return []string{Fix(fragment)}, nil
	}

	value, ok := t.entries[token]
	if !ok {
		return nil, errors.Newf(errors.ErrAliasUnknown, "no matching alias for %s", token).
			WithDetail("alias", token)
	}

	parts := []string{Fix(value)}
	if rest := strings.TrimPrefix(fragment, token); strings.Trim(rest, "/") != "" {
		parts = append(parts, Fix(rest))
	}
	return parts, nil
}

// Expand resolves fragment and joins the pieces into one path
func (t *Table) Expand(fragment string) (string, error) {
	parts, err := t.Resolve(fragment)
	if err != nil {
		return "", err
	}
	return Join(parts), nil
}

// Fix normalizes p to a single leading slash and no trailing slash
func Fix(p string) string {
	return "/" + strings.Trim(p, "/")
}

// Join concatenates normalized fragments
func Join(parts []string) string {
	var b strings.Builder
	for _, p := range parts {
		if p != "/" {
			b.WriteString(p)
		}
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}
