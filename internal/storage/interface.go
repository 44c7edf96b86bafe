package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Retrieve and Delete when no object has the name
var ErrNotFound = errors.New("storage: object not found")

// StorageInterface is where exported reports end up
type StorageInterface interface {
	Store(ctx context.Context, name string, data []byte) error
	Retrieve(ctx context.Context, name string) ([]byte, error)
	// List returns the names starting with prefix in ascending order
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}
