// Package memorystorage is the in-memory storage backend. It reuses the
// jsondb cache without ever touching the filesystem; data is lost on restart.
package memorystorage

import (
	"github.com/patric-chuzhbe/todolist/internal/db/jsondb"
)

// MemoryStorage wraps the jsondb cache with persistence disabled.
type MemoryStorage struct {
	*jsondb.JSONDB
}

// New returns an empty in-memory storage.
func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.NewCache(),
		},
	}, nil
}

// Close is a no-op; there is nothing to flush.
func (theStorage *MemoryStorage) Close() error {
	return nil
}
