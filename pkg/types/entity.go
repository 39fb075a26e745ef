package types

import "fmt"

// Declared is one normalized item produced by the configuration layer.
// Fragments are already alias resolved; the entity builder turns them into
// absolute paths.
type Declared struct {
	Category            string
	Title               string
	Setting             Setting
	Class               Class
	SourceRoot          string
	SourceFragments     []string
	DestinationFragment string
}

// Entity is a declared item with concrete paths and its identity
type Entity struct {
	ID          uint64
	Category    string
	Title       string
	Setting     Setting
	Class       Class
	Source      string
	Destination string
}

// Group returns the mark-and-sweep group the entity belongs to
func (e Entity) Group() Group {
	return Group{Category: e.Category, Setting: e.Setting}
}

// Group is the unit of one keep-flag reset, reconcile and sweep pass
type Group struct {
	Category string
	Setting  Setting
}

func (g Group) String() string {
	return fmt.Sprintf("%s/%s", g.Category, g.Setting)
}
