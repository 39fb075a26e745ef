package datastore

import (
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/arthur-debert/declarix/pkg/errors"
	"github.com/arthur-debert/declarix/pkg/logging"
	"github.com/arthur-debert/declarix/pkg/types"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS prime (
	hash        INTEGER PRIMARY KEY,
	category    TEXT NOT NULL,
	title       TEXT NOT NULL,
	setting     TEXT NOT NULL,
	source      TEXT NOT NULL,
	destination TEXT NOT NULL,
	to_keep     INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_prime_group ON prime(category, setting);

CREATE TABLE IF NOT EXISTS secondary (
	hash       INTEGER NOT NULL,
	path       TEXT NOT NULL,
	modified   INTEGER NOT NULL DEFAULT 0,
	path_order INTEGER NOT NULL,
	to_keep    INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (hash, path)
);

CREATE TABLE IF NOT EXISTS items (
	kind    TEXT NOT NULL,
	manager TEXT NOT NULL,
	name    TEXT NOT NULL,
	to_keep INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (kind, manager, name)
);
`

// SQLiteStore is the default backend
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database file at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrStorage, "failed to open database %s", path)
	}
	// one writer; the tool is single threaded
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, errors.ErrStorage, "failed to set up schema in %s", path)
	}

	logger := logging.GetLogger("datastore")
	logger.Debug().Str("path", path).Msg("Opened sqlite store")
	return &SQLiteStore{db: db, path: path}, nil
}

// Begin starts a transaction
func (s *SQLiteStore) Begin() (Tx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStorage, "failed to begin transaction")
	}
	return &sqliteTx{tx: tx}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type sqliteTx struct {
	tx *sql.Tx
}

// sqlite integers are signed; identities are stored bit for bit
func key(id uint64) int64 {
	return int64(id)
}

func storageErr(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, errors.ErrStorage, format, args...)
}

func (t *sqliteTx) UpsertPrimary(l TrackedLink) error {
	_, err := t.tx.Exec(`
		INSERT INTO prime (hash, category, title, setting, source, destination, to_keep)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(hash) DO UPDATE SET
			category = excluded.category,
			title = excluded.title,
			setting = excluded.setting,
			source = excluded.source,
			destination = excluded.destination,
			to_keep = 1`,
		key(l.ID), l.Category, l.Title, string(l.Setting), l.Source, l.Destination)
	return storageErr(err, "upsert primary %016x", l.ID)
}

func (t *sqliteTx) GetPrimary(id uint64) (TrackedLink, bool, error) {
	row := t.tx.QueryRow(`
		SELECT hash, category, title, setting, source, destination, to_keep
		FROM prime WHERE hash = ?`, key(id))
	l, err := scanLink(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return TrackedLink{}, false, nil
	}
	if err != nil {
		return TrackedLink{}, false, storageErr(err, "get primary %016x", id)
	}
	return l, true, nil
}

func (t *sqliteTx) MarkKeep(id uint64) (bool, error) {
	res, err := t.tx.Exec(`UPDATE prime SET to_keep = 1 WHERE hash = ?`, key(id))
	if err != nil {
		return false, storageErr(err, "mark primary %016x", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr(err, "mark primary %016x", id)
	}
	return n > 0, nil
}

func (t *sqliteTx) ResetKeep(g types.Group) error {
	if _, err := t.tx.Exec(`
		UPDATE secondary SET to_keep = 0
		WHERE hash IN (SELECT hash FROM prime WHERE category = ? AND setting = ?)`,
		g.Category, string(g.Setting)); err != nil {
		return storageErr(err, "reset paths of %s", g)
	}
	_, err := t.tx.Exec(`UPDATE prime SET to_keep = 0 WHERE category = ? AND setting = ?`,
		g.Category, string(g.Setting))
	return storageErr(err, "reset %s", g)
}

func (t *sqliteTx) SelectGroup(g types.Group) ([]TrackedLink, error) {
	return t.selectLinks(`
		SELECT hash, category, title, setting, source, destination, to_keep
		FROM prime WHERE category = ? AND setting = ?
		ORDER BY destination`, g.Category, string(g.Setting))
}

func (t *sqliteTx) SelectStale(g types.Group) ([]TrackedLink, error) {
	return t.selectLinks(`
		SELECT hash, category, title, setting, source, destination, to_keep
		FROM prime WHERE category = ? AND setting = ? AND to_keep = 0
		ORDER BY destination DESC`, g.Category, string(g.Setting))
}

func (t *sqliteTx) DeletePrimary(id uint64) error {
	if _, err := t.tx.Exec(`DELETE FROM secondary WHERE hash = ?`, key(id)); err != nil {
		return storageErr(err, "delete paths of %016x", id)
	}
	_, err := t.tx.Exec(`DELETE FROM prime WHERE hash = ?`, key(id))
	return storageErr(err, "delete primary %016x", id)
}

func (t *sqliteTx) Groups() ([]types.Group, error) {
	rows, err := t.tx.Query(`SELECT DISTINCT category, setting FROM prime ORDER BY category, setting`)
	if err != nil {
		return nil, storageErr(err, "list groups")
	}
	defer func() { _ = rows.Close() }()

	var groups []types.Group
	for rows.Next() {
		var g types.Group
		var setting string
		if err := rows.Scan(&g.Category, &setting); err != nil {
			return nil, storageErr(err, "scan group")
		}
		g.Setting = types.Setting(setting)
		groups = append(groups, g)
	}
	return groups, storageErr(rows.Err(), "list groups")
}

func (t *sqliteTx) UpsertPath(p TrackedPath) error {
	_, err := t.tx.Exec(`
		INSERT INTO secondary (hash, path, modified, path_order, to_keep)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(hash, path) DO UPDATE SET
			modified = excluded.modified,
			path_order = excluded.path_order,
			to_keep = 1`,
		key(p.ID), p.Path, p.Modified, p.Order)
	return storageErr(err, "upsert path %s of %016x", p.Path, p.ID)
}

func (t *sqliteTx) GetPath(id uint64, path string) (TrackedPath, bool, error) {
	row := t.tx.QueryRow(`
		SELECT hash, path, modified, path_order, to_keep
		FROM secondary WHERE hash = ? AND path = ?`, key(id), path)
	p, err := scanPath(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return TrackedPath{}, false, nil
	}
	if err != nil {
		return TrackedPath{}, false, storageErr(err, "get path %s of %016x", path, id)
	}
	return p, true, nil
}

func (t *sqliteTx) SelectPaths(id uint64) ([]TrackedPath, error) {
	return t.selectPaths(`
		SELECT hash, path, modified, path_order, to_keep
		FROM secondary WHERE hash = ? ORDER BY path_order`, key(id))
}

func (t *sqliteTx) SelectStalePaths(id uint64) ([]TrackedPath, error) {
	return t.selectPaths(`
		SELECT hash, path, modified, path_order, to_keep
		FROM secondary WHERE hash = ? AND to_keep = 0 ORDER BY path_order DESC`, key(id))
}

func (t *sqliteTx) DeletePath(id uint64, path string) error {
	_, err := t.tx.Exec(`DELETE FROM secondary WHERE hash = ? AND path = ?`, key(id), path)
	return storageErr(err, "delete path %s of %016x", path, id)
}

func (t *sqliteTx) CountPaths(id uint64) (int, error) {
	var n int
	err := t.tx.QueryRow(`SELECT COUNT(*) FROM secondary WHERE hash = ?`, key(id)).Scan(&n)
	return n, storageErr(err, "count paths of %016x", id)
}

func (t *sqliteTx) UpsertItem(it Item) error {
	_, err := t.tx.Exec(`INSERT OR REPLACE INTO items (kind, manager, name, to_keep) VALUES (?, ?, ?, 1)`,
		it.Kind, it.Manager, it.Name)
	return storageErr(err, "upsert %s %s/%s", it.Kind, it.Manager, it.Name)
}

func (t *sqliteTx) ResetItems(kind, manager string) error {
	_, err := t.tx.Exec(`UPDATE items SET to_keep = 0 WHERE kind = ? AND manager = ?`, kind, manager)
	return storageErr(err, "reset %s %s", kind, manager)
}

func (t *sqliteTx) SelectItems(kind, manager string) ([]Item, error) {
	return t.selectItems(`
		SELECT kind, manager, name, to_keep FROM items
		WHERE kind = ? AND manager = ? ORDER BY name`, kind, manager)
}

func (t *sqliteTx) SelectStaleItems(kind, manager string) ([]Item, error) {
	return t.selectItems(`
		SELECT kind, manager, name, to_keep FROM items
		WHERE kind = ? AND manager = ? AND to_keep = 0 ORDER BY name`, kind, manager)
}

func (t *sqliteTx) DeleteItem(it Item) error {
	_, err := t.tx.Exec(`DELETE FROM items WHERE kind = ? AND manager = ? AND name = ?`,
		it.Kind, it.Manager, it.Name)
	return storageErr(err, "delete %s %s/%s", it.Kind, it.Manager, it.Name)
}

func (t *sqliteTx) Commit() error {
	return storageErr(t.tx.Commit(), "commit")
}

func (t *sqliteTx) Rollback() error {
	err := t.tx.Rollback()
	if stderrors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return storageErr(err, "rollback")
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanLink(s scanner) (TrackedLink, error) {
	var l TrackedLink
	var hash int64
	var setting string
	var keep int
	if err := s.Scan(&hash, &l.Category, &l.Title, &setting, &l.Source, &l.Destination, &keep); err != nil {
		return TrackedLink{}, err
	}
	l.ID = uint64(hash)
	l.Setting = types.Setting(setting)
	l.Keep = keep != 0
	return l, nil
}

func scanPath(s scanner) (TrackedPath, error) {
	var p TrackedPath
	var hash int64
	var keep int
	if err := s.Scan(&hash, &p.Path, &p.Modified, &p.Order, &keep); err != nil {
		return TrackedPath{}, err
	}
	p.ID = uint64(hash)
	p.Keep = keep != 0
	return p, nil
}

func (t *sqliteTx) selectLinks(query string, args ...interface{}) ([]TrackedLink, error) {
	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, storageErr(err, "select primaries")
	}
	defer func() { _ = rows.Close() }()

	var links []TrackedLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, storageErr(err, "scan primary")
		}
		links = append(links, l)
	}
	return links, storageErr(rows.Err(), "select primaries")
}

func (t *sqliteTx) selectPaths(query string, args ...interface{}) ([]TrackedPath, error) {
	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, storageErr(err, "select paths")
	}
	defer func() { _ = rows.Close() }()

	var paths []TrackedPath
	for rows.Next() {
		p, err := scanPath(rows)
		if err != nil {
			return nil, storageErr(err, "scan path")
		}
		paths = append(paths, p)
	}
	return paths, storageErr(rows.Err(), "select paths")
}

func (t *sqliteTx) selectItems(query string, args ...interface{}) ([]Item, error) {
	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, storageErr(err, "select items")
	}
	defer func() { _ = rows.Close() }()

	var items []Item
	for rows.Next() {
		var it Item
		var keep int
		if err := rows.Scan(&it.Kind, &it.Manager, &it.Name, &keep); err != nil {
			return nil, storageErr(err, "scan item")
		}
		it.Keep = keep != 0
		items = append(items, it)
	}
	return items, storageErr(rows.Err(), "select items")
}
