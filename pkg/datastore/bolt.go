package datastore

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	stderrors "errors"
	"sort"
	"time"

	"github.com/arthur-debert/declarix/pkg/errors"
	"github.com/arthur-debert/declarix/pkg/logging"
	"github.com/arthur-debert/declarix/pkg/types"
	"go.etcd.io/bbolt"
)

// Bucket names of the bolt backend
var (
	linksBucket = []byte("links")
	pathsBucket = []byte("paths")
	itemsBucket = []byte("items")
)

// BoltStore keeps the same index in a single bbolt file. Values are JSON;
// path keys are the 8 byte identity followed by the relative path so one
// entity's rows are contiguous.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBolt opens or creates the bolt file at path
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrStorage, "failed to open bolt store %s", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{linksBucket, pathsBucket, itemsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, errors.ErrStorage, "failed to create buckets in %s", path)
	}

	logger := logging.GetLogger("datastore")
	logger.Debug().Str("path", path).Msg("Opened bolt store")
	return &BoltStore{db: db}, nil
}

// Begin starts a writable transaction
func (s *BoltStore) Begin() (Tx, error) {
	tx, err := s.db.Begin(true)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStorage, "failed to begin transaction")
	}
	return &boltTx{tx: tx}, nil
}

// Close closes the bolt file
func (s *BoltStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type boltTx struct {
	tx *bbolt.Tx
}

func idKey(id uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, id)
	return k
}

func pathKey(id uint64, path string) []byte {
	return append(idKey(id), path...)
}

func itemKey(kind, manager, name string) []byte {
	return []byte(kind + "\x00" + manager + "\x00" + name)
}

func itemPrefix(kind, manager string) []byte {
	return []byte(kind + "\x00" + manager + "\x00")
}

func (t *boltTx) put(bucket, k []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return t.tx.Bucket(bucket).Put(k, data)
}

func (t *boltTx) UpsertPrimary(l TrackedLink) error {
	l.Keep = true
	return storageErr(t.put(linksBucket, idKey(l.ID), l), "upsert primary %016x", l.ID)
}

func (t *boltTx) GetPrimary(id uint64) (TrackedLink, bool, error) {
	data := t.tx.Bucket(linksBucket).Get(idKey(id))
	if data == nil {
		return TrackedLink{}, false, nil
	}
	var l TrackedLink
	if err := json.Unmarshal(data, &l); err != nil {
		return TrackedLink{}, false, storageErr(err, "decode primary %016x", id)
	}
	return l, true, nil
}

func (t *boltTx) MarkKeep(id uint64) (bool, error) {
	l, ok, err := t.GetPrimary(id)
	if err != nil || !ok {
		return false, err
	}
	l.Keep = true
	return true, storageErr(t.put(linksBucket, idKey(id), l), "mark primary %016x", id)
}

// eachLink visits every primary row, decoding it first
func (t *boltTx) eachLink(fn func(TrackedLink) error) error {
	return t.tx.Bucket(linksBucket).ForEach(func(_, v []byte) error {
		var l TrackedLink
		if err := json.Unmarshal(v, &l); err != nil {
			return err
		}
		return fn(l)
	})
}

func (t *boltTx) ResetKeep(g types.Group) error {
	var members []TrackedLink
	err := t.eachLink(func(l TrackedLink) error {
		if l.Group() == g {
			members = append(members, l)
		}
		return nil
	})
	if err != nil {
		return storageErr(err, "reset %s", g)
	}

	for _, l := range members {
		l.Keep = false
		if err := t.put(linksBucket, idKey(l.ID), l); err != nil {
			return storageErr(err, "reset %s", g)
		}
		paths, err := t.SelectPaths(l.ID)
		if err != nil {
			return err
		}
		for _, p := range paths {
			p.Keep = false
			if err := t.put(pathsBucket, pathKey(p.ID, p.Path), p); err != nil {
				return storageErr(err, "reset paths of %s", g)
			}
		}
	}
	return nil
}

func (t *boltTx) selectLinks(match func(TrackedLink) bool) ([]TrackedLink, error) {
	var links []TrackedLink
	err := t.eachLink(func(l TrackedLink) error {
		if match(l) {
			links = append(links, l)
		}
		return nil
	})
	if err != nil {
		return nil, storageErr(err, "select primaries")
	}
	return links, nil
}

func (t *boltTx) SelectGroup(g types.Group) ([]TrackedLink, error) {
	links, err := t.selectLinks(func(l TrackedLink) bool { return l.Group() == g })
	sort.Slice(links, func(i, j int) bool { return links[i].Destination < links[j].Destination })
	return links, err
}

func (t *boltTx) SelectStale(g types.Group) ([]TrackedLink, error) {
	links, err := t.selectLinks(func(l TrackedLink) bool { return l.Group() == g && !l.Keep })
	sort.Slice(links, func(i, j int) bool { return links[i].Destination > links[j].Destination })
	return links, err
}

func (t *boltTx) DeletePrimary(id uint64) error {
	paths, err := t.SelectPaths(id)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := t.DeletePath(id, p.Path); err != nil {
			return err
		}
	}
	return storageErr(t.tx.Bucket(linksBucket).Delete(idKey(id)), "delete primary %016x", id)
}

func (t *boltTx) Groups() ([]types.Group, error) {
	seen := map[types.Group]bool{}
	var groups []types.Group
	err := t.eachLink(func(l TrackedLink) error {
		if g := l.Group(); !seen[g] {
			seen[g] = true
			groups = append(groups, g)
		}
		return nil
	})
	if err != nil {
		return nil, storageErr(err, "list groups")
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Category != groups[j].Category {
			return groups[i].Category < groups[j].Category
		}
		return groups[i].Setting < groups[j].Setting
	})
	return groups, nil
}

func (t *boltTx) UpsertPath(p TrackedPath) error {
	p.Keep = true
	return storageErr(t.put(pathsBucket, pathKey(p.ID, p.Path), p), "upsert path %s of %016x", p.Path, p.ID)
}

func (t *boltTx) GetPath(id uint64, path string) (TrackedPath, bool, error) {
	data := t.tx.Bucket(pathsBucket).Get(pathKey(id, path))
	if data == nil {
		return TrackedPath{}, false, nil
	}
	var p TrackedPath
	if err := json.Unmarshal(data, &p); err != nil {
		return TrackedPath{}, false, storageErr(err, "decode path %s of %016x", path, id)
	}
	return p, true, nil
}

// pathsOf returns every path row of id in ascending order
func (t *boltTx) pathsOf(id uint64) ([]TrackedPath, error) {
	prefix := idKey(id)
	var paths []TrackedPath
	c := t.tx.Bucket(pathsBucket).Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		var p TrackedPath
		if err := json.Unmarshal(v, &p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i].Order < paths[j].Order })
	return paths, nil
}

func (t *boltTx) SelectPaths(id uint64) ([]TrackedPath, error) {
	paths, err := t.pathsOf(id)
	return paths, storageErr(err, "select paths of %016x", id)
}

func (t *boltTx) SelectStalePaths(id uint64) ([]TrackedPath, error) {
	paths, err := t.pathsOf(id)
	if err != nil {
		return nil, storageErr(err, "select paths of %016x", id)
	}
	var stale []TrackedPath
	for i := len(paths) - 1; i >= 0; i-- {
		if !paths[i].Keep {
			stale = append(stale, paths[i])
		}
	}
	return stale, nil
}

func (t *boltTx) DeletePath(id uint64, path string) error {
	return storageErr(t.tx.Bucket(pathsBucket).Delete(pathKey(id, path)), "delete path %s of %016x", path, id)
}

func (t *boltTx) CountPaths(id uint64) (int, error) {
	paths, err := t.pathsOf(id)
	return len(paths), storageErr(err, "count paths of %016x", id)
}

func (t *boltTx) UpsertItem(it Item) error {
	it.Keep = true
	return storageErr(t.put(itemsBucket, itemKey(it.Kind, it.Manager, it.Name), it), "upsert %s %s/%s", it.Kind, it.Manager, it.Name)
}

func (t *boltTx) itemsOf(kind, manager string) ([]Item, error) {
	prefix := itemPrefix(kind, manager)
	var items []Item
	c := t.tx.Bucket(itemsBucket).Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		var it Item
		if err := json.Unmarshal(v, &it); err != nil {
			return nil, storageErr(err, "decode item")
		}
		items = append(items, it)
	}
	return items, nil
}

func (t *boltTx) ResetItems(kind, manager string) error {
	items, err := t.itemsOf(kind, manager)
	if err != nil {
		return err
	}
	for _, it := range items {
		it.Keep = false
		if err := t.put(itemsBucket, itemKey(it.Kind, it.Manager, it.Name), it); err != nil {
			return storageErr(err, "reset %s %s", kind, manager)
		}
	}
	return nil
}

func (t *boltTx) SelectItems(kind, manager string) ([]Item, error) {
	return t.itemsOf(kind, manager)
}

func (t *boltTx) SelectStaleItems(kind, manager string) ([]Item, error) {
	items, err := t.itemsOf(kind, manager)
	if err != nil {
		return nil, err
	}
	var stale []Item
	for _, it := range items {
		if !it.Keep {
			stale = append(stale, it)
		}
	}
	return stale, nil
}

func (t *boltTx) DeleteItem(it Item) error {
	return storageErr(t.tx.Bucket(itemsBucket).Delete(itemKey(it.Kind, it.Manager, it.Name)), "delete %s %s/%s", it.Kind, it.Manager, it.Name)
}

func (t *boltTx) Commit() error {
	return storageErr(t.tx.Commit(), "commit")
}

func (t *boltTx) Rollback() error {
	err := t.tx.Rollback()
	if stderrors.Is(err, bbolt.ErrTxClosed) {
		return nil
	}
	return storageErr(err, "rollback")
}
