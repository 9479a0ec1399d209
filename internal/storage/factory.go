package storage

import "fmt"

// DefaultStoreKind is the backend used when none is named. It persists
// across CLI invocations without needing the sqlite build tag.
func DefaultStoreKind() string {
	return "bolt"
}

// NewStore builds an uninitialized store. path is the database file for the
// bolt and sqlite backends and is ignored for memory.
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "bolt", "bbolt":
		if path == "" {
			return nil, fmt.Errorf("bolt backend needs a database path")
		}
		return NewBoltStore(path), nil
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
