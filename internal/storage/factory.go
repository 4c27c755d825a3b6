package storage

import (
	"errors"
	"fmt"
)

// ErrBackendUnavailable marks a backend that this binary was built without.
var ErrBackendUnavailable = errors.New("store backend unavailable in this build")

// NewStore builds an uninitialised store. path is the sqlite file or the
// badger directory; it is ignored for the memory backend.
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "badger":
		return NewBadgerStore(BadgerOptions{Path: path}), nil
	case "sqlite":
		return newSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
