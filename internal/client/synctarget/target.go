// Package synctarget implements the storage backends items are synchronized
// with. A backend only has to store opaque files by path:
//
//	Put(path, content)  Get(path)  Delete(path)  List()
//
// Paths are slash separated and relative to the target root, e.g.
// "<id>.md" or "resources/<id>".
package synctarget

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get for a path the target does not hold.
	ErrNotFound = errors.New("sync target: path not found")

	// ErrRejected means the target will never accept this content, e.g.
	// because it is too large. Retrying does not help.
	ErrRejected = errors.New("sync target: content rejected")
)

type Target interface {
	Put(ctx context.Context, path string, content []byte) error
	Get(ctx context.Context, path string) ([]byte, error)

	// Delete removes path. Deleting a missing path is not an error.
	Delete(ctx context.Context, path string) error

	// List returns every path held by the target, sorted.
	List(ctx context.Context) ([]string, error)
}
