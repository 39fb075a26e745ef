// Package datastore persists what declarix previously created so that a
// later run can tell "still declared" from "no longer declared".
//
// The store is a cache of past actions, never the source of truth for
// what exists on disk: callers always re-read the filesystem before
// deciding. Two backends implement the same contract, SQLite (the
// default) and bbolt. All mutations happen inside a Tx; a group pass
// commits once at the end or rolls back entirely.
package datastore
