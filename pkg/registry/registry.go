package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/arthur-debert/declarix/pkg/errors"
)

// Registry stores items by canonical name. Lookups are case-insensitive
// and accept any alias registered for a name.
type Registry[T any] interface {
	// Register adds an item under name and its aliases
	Register(name string, item T, aliases ...string) error

	// Get retrieves an item by name or alias
	Get(name string) (T, error)

	// Canonical resolves an alias to its registered name
	Canonical(name string) string

	// List returns all canonical names, sorted
	List() []string

	// Has checks if a name or alias is registered
	Has(name string) bool

	// Count returns the number of registered items
	Count() int
}

type registry[T any] struct {
	mu      sync.RWMutex
	items   map[string]T
	aliases map[string]string
}

// New creates a new Registry instance
func New[T any]() Registry[T] {
	return &registry[T]{
		items:   make(map[string]T),
		aliases: make(map[string]string),
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *registry[T]) Register(name string, item T, aliases ...string) error {
	name = normalize(name)
	if name == "" {
		return errors.New(errors.ErrInvalidInput, "registry name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[name]; exists {
		return errors.Newf(errors.ErrAlreadyExists, "item '%s' is already registered", name)
	}
	if owner, exists := r.aliases[name]; exists {
		return errors.Newf(errors.ErrAlreadyExists, "'%s' is already an alias of '%s'", name, owner)
	}
	for _, alias := range aliases {
		alias = normalize(alias)
		if _, exists := r.items[alias]; exists {
			return errors.Newf(errors.ErrAlreadyExists, "alias '%s' shadows a registered item", alias)
		}
		if owner, exists := r.aliases[alias]; exists {
			return errors.Newf(errors.ErrAlreadyExists, "alias '%s' already points to '%s'", alias, owner)
		}
	}

	r.items[name] = item
	for _, alias := range aliases {
		r.aliases[normalize(alias)] = name
	}
	return nil
}

func (r *registry[T]) Canonical(name string) string {
	name = normalize(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if canonical, ok := r.aliases[name]; ok {
		return canonical
	}
	return name
}

func (r *registry[T]) Get(name string) (T, error) {
	canonical := r.Canonical(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[canonical]
	if !exists {
		var zero T
		return zero, errors.Newf(errors.ErrNotFound, "item '%s' not found in registry", name)
	}
	return item, nil
}

func (r *registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *registry[T]) Has(name string) bool {
	canonical := r.Canonical(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.items[canonical]
	return exists
}

func (r *registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// MustRegister registers an item and panics if registration fails.
// Meant for init() functions, where a failure is a programming error.
func MustRegister[T any](reg Registry[T], name string, item T, aliases ...string) {
	if err := reg.Register(name, item, aliases...); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", name, err))
	}
}
