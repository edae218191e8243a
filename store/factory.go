package store

import (
	"fmt"
	"path/filepath"
)

// New creates a Slot based on the backend name.
//
// Supported backends:
//
//	"json"   - one JSON file per slot in dataDir (default)
//	"sqlite" - SQLite database at dataDir/slots.db
//	"memory" - In-memory (ephemeral, for testing)
//
// The "s3" backend needs bucket settings and is built with NewS3Store.
func New(backend, dataDir string) (Slot, error) {
	switch backend {
	case "json", "":
		return NewJsonFileStore(dataDir)
	case "sqlite":
		dbPath := filepath.Join(dataDir, "slots.db")
		return NewSqliteStore(dbPath)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: json, sqlite, memory; s3 is built with NewS3Store)", backend)
	}
}
