// Package storage defines sentinel errors shared by storage backends.
package storage

import "errors"

var (
	// ErrAssetNotFound is the single condition allowed to abort a risk
	// pipeline before any component runs.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrCacheMiss means no cached payload exists for the (asset, component) key.
	ErrCacheMiss = errors.New("component cache miss")
)
