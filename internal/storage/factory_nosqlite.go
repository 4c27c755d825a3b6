//go:build !sqlite

package storage

import "fmt"

func newSQLiteStore(path string) (Store, error) {
	return nil, fmt.Errorf("%w: sqlite (path %q); build with -tags sqlite or use the badger store", ErrBackendUnavailable, path)
}
