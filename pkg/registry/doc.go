// Package registry provides a generic, thread-safe table of named items
// with alternative spellings, used for capability records selected by
// name from the configuration.
package registry
