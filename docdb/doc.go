// Package docdb is a document store layered on a single backing slot.
//
// The whole database is one JSON object serialized under one slot key.
// A Collection addresses a sub-tree of that object by path and treats it as
// a mapping from record identifier to record. Child collections extend the
// path by one segment and share the slot.
//
// Every write reloads the document, patches only the collection's own
// sub-tree and persists the whole document, so writes to non-overlapping
// paths never clobber each other. Within a process the cycle runs under a
// per-slot lock; across processes the last write wins.
//
// Usage:
//
//	db := docdb.Open(ctx, store.NewMemoryStore(), "db1")
//	users := db.Child("users")
//	rec, err := users.Insert(ctx, map[string]any{"name": "ada"})
//
//	unsubscribe, _ := db.Live(func(doc map[string]any) { ... })
//	defer unsubscribe()
//
// Backing store failures are never returned to callers. They are logged and
// reads fall back to an empty mapping while writes are dropped.
package docdb
