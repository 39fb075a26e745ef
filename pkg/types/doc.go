// Package types defines the vocabulary shared by the configuration layer,
// the reconciliation engine and the state store: settings, ownership
// classes, declared items, resolved entities and sweep groups.
package types
