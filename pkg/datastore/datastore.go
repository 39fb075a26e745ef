package datastore

import (
	"os"
	"path/filepath"

	"github.com/arthur-debert/declarix/pkg/errors"
	"github.com/arthur-debert/declarix/pkg/types"
)

// Backend names accepted by Open
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// TrackedLink is the primary row: one logical declared entity
type TrackedLink struct {
	ID          uint64        `json:"id"`
	Category    string        `json:"category"`
	Title       string        `json:"title"`
	Setting     types.Setting `json:"setting"`
	Source      string        `json:"source"`
	Destination string        `json:"destination"`
	Keep        bool          `json:"keep"`
}

// Group returns the mark-and-sweep group the row belongs to
func (l TrackedLink) Group() types.Group {
	return types.Group{Category: l.Category, Setting: l.Setting}
}

// LinkFromEntity builds the primary row for an entity
func LinkFromEntity(e types.Entity) TrackedLink {
	return TrackedLink{
		ID:          e.ID,
		Category:    e.Category,
		Title:       e.Title,
		Setting:     e.Setting,
		Source:      e.Source,
		Destination: e.Destination,
		Keep:        true,
	}
}

// RootPath is the relative path of the top of a mirrored tree
const RootPath = "."

// Preexisting is the Modified value of a directory row whose directory was
// already in place when the tree was first mirrored. The sweep forgets such
// rows without removing the directory.
const Preexisting int64 = -1

// TrackedPath is the secondary row: one path inside a mirrored tree.
// Modified is the last recorded destination mtime in nanoseconds, zero
// when untimed, Preexisting for directories declarix did not create.
type TrackedPath struct {
	ID       uint64 `json:"id"`
	Path     string `json:"path"`
	Modified int64  `json:"modified"`
	Order    int64  `json:"order"`
	Keep     bool   `json:"keep"`
}

// Item is a package or service declared for an external manager
type Item struct {
	Kind    string `json:"kind"`
	Manager string `json:"manager"`
	Name    string `json:"name"`
	Keep    bool   `json:"keep"`
}

// DataStore opens transactions over the persisted index
type DataStore interface {
	Begin() (Tx, error)
	Close() error
}

// Tx is one unit of bookkeeping. Rollback after Commit is a no-op so it
// can always be deferred.
type Tx interface {
	// UpsertPrimary inserts or replaces the row and marks it kept
	UpsertPrimary(l TrackedLink) error
	GetPrimary(id uint64) (TrackedLink, bool, error)
	// MarkKeep sets keep=1 and reports whether the row exists
	MarkKeep(id uint64) (bool, error)
	// ResetKeep clears the keep flag of every primary in g and of their paths
	ResetKeep(g types.Group) error
	SelectGroup(g types.Group) ([]TrackedLink, error)
	SelectStale(g types.Group) ([]TrackedLink, error)
	// DeletePrimary removes the row together with its paths
	DeletePrimary(id uint64) error
	Groups() ([]types.Group, error)

	// UpsertPath inserts or replaces the row and marks it kept
	UpsertPath(p TrackedPath) error
	GetPath(id uint64, path string) (TrackedPath, bool, error)
	SelectPaths(id uint64) ([]TrackedPath, error)
	// SelectStalePaths returns unkept rows deepest first (descending order)
	SelectStalePaths(id uint64) ([]TrackedPath, error)
	DeletePath(id uint64, path string) error
	CountPaths(id uint64) (int, error)

	UpsertItem(it Item) error
	ResetItems(kind, manager string) error
	SelectItems(kind, manager string) ([]Item, error)
	SelectStaleItems(kind, manager string) ([]Item, error)
	DeleteItem(it Item) error

	Commit() error
	Rollback() error
}

// Open opens the store at path with the named backend, creating the
// parent directory and schema as needed.
func Open(driver, path string) (DataStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrStorage, "cannot create store directory for %s", path)
	}

	switch driver {
	case DriverSQLite, "":
		return OpenSQLite(path)
	case DriverBolt:
		return OpenBolt(path)
	default:
		return nil, errors.Newf(errors.ErrConfigValid, "unknown store driver %q", driver)
	}
}
