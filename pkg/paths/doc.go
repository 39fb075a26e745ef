// Package paths provides centralized path handling for declarix.
//
// It resolves the invoking user's home, the XDG config, data and state
// directories (each overridable with a DECLARIX_* variable), the default
// config file and the store file. Nothing here touches the filesystem
// beyond reading the environment.
package paths
