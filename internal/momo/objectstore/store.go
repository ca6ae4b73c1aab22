// Package objectstore abstracts binary document storage behind a narrow
// interface, so ingest.Pipeline need not assume doc.SourcePath always names
// a local filesystem path. Grounded on
// _examples/intelligencedev-manifold/internal/objectstore/store.go; Momo
// trims its interface to the subset the ingestion pipeline actually needs
// (Get/Put/Exists), since Momo has no bucket-browsing UI to justify
// List/Head/Copy.
package objectstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get when the key has no object; Exists reports
// a missing key as (false, nil).
var ErrNotFound = errors.New("objectstore: not found")

// Store retrieves and stores binary document payloads by key. Implementations
// must be safe for concurrent use.
type Store interface {
	// Get retrieves an object's full contents by key. Returns ErrNotFound if
	// no object exists at key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores data under key, overwriting any existing object.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Exists reports whether an object exists at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// readAll drains r into a []byte, used by Store implementations whose
// backing SDK hands back an io.Reader rather than a byte slice.
func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}
