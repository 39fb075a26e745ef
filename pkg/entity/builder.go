// Package entity turns normalized declarations into concrete entities:
// absolute source and destination paths plus their identity.
package entity

import (
	"path/filepath"

	"github.com/arthur-debert/declarix/pkg/alias"
	"github.com/arthur-debert/declarix/pkg/identity"
	"github.com/arthur-debert/declarix/pkg/types"
)

// Builder applies the ownership class prefix rules
type Builder struct {
	home string
}

// NewBuilder returns a builder prefixing home-class destinations with home
func NewBuilder(home string) *Builder {
	return &Builder{home: home}
}

// Build resolves d. Generic items take their source fragments as
// absolute; every other class is rooted at the category source root.
// Home items are placed under the invoking user's home.
func (b *Builder) Build(d types.Declared) types.Entity {
	source := alias.Join(d.SourceFragments)
	if d.Class != types.ClassGeneric {
		source = alias.Join([]string{d.SourceRoot, source})
	}

	destination := d.DestinationFragment
	if d.Class == types.ClassHome {
		destination = alias.Join([]string{alias.Fix(b.home), destination})
	}

	source = filepath.Clean(source)
	destination = filepath.Clean(destination)

	return types.Entity{
		ID:          identity.Hash(source, destination),
		Category:    d.Category,
		Title:       d.Title,
		Setting:     d.Setting,
		Class:       d.Class,
		Source:      source,
		Destination: destination,
	}
}

// BuildAll resolves every declaration in order
func (b *Builder) BuildAll(declared []types.Declared) []types.Entity {
	entities := make([]types.Entity, 0, len(declared))
	for _, d := range declared {
		entities = append(entities, b.Build(d))
	}
	return entities
}
