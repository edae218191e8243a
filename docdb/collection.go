package docdb

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/stevemurr/slotdb/store"
)

// isoLayout matches JavaScript's Date.prototype.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z"

// Record is one stored item: identifier, timestamps and caller fields.
type Record = map[string]any

// Update pairs an identifier with the fields to merge into that record.
type Update struct {
	ID      string         `json:"id"`
	Changes map[string]any `json:"updates"`
}

// Collection is a handle on the sub-tree of one slot's document located by
// a path. Handles are cheap; children share the slot and configuration but
// keep their own listeners.
type Collection struct {
	store *pathStore
	opts  *options

	mu        sync.Mutex
	listeners []listener
	nextID    uint64
}

// Open returns the root collection of the document stored under ref.
// A nil slot models an unavailable backing store: reads are empty and
// writes are dropped. An absent slot is seeded with an empty document.
func Open(ctx context.Context, slot store.Slot, ref string, opts ...Option) *Collection {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	c := newCollection(slot, ref, nil, o)
	c.store.seed(ctx)
	return c
}

func newCollection(slot store.Slot, ref string, path []string, o *options) *Collection {
	return &Collection{
		store: newPathStore(slot, ref, path, o.logger.With("ref", ref)),
		opts:  o,
	}
}

// Ref returns the slot key holding the document.
func (c *Collection) Ref() string { return c.store.ref }

// Path returns a copy of the collection's path. The root path is empty.
func (c *Collection) Path() []string { return slices.Clone(c.store.path) }

// IdentifierField returns the field records carry their identifier in.
func (c *Collection) IdentifierField() IdentifierField { return c.opts.field }

// Child returns a handle on the sub-collection named segment.
func (c *Collection) Child(segment string) *Collection {
	path := append(slices.Clone(c.store.path), segment)
	return newCollection(c.store.slot, c.store.ref, path, c.opts)
}

// Select is an alias for Child.
func (c *Collection) Select(segment string) *Collection {
	return c.Child(segment)
}

// At returns the descendant collection addressed by a slash separated path
// such as "users/admins". An empty path returns c itself.
func (c *Collection) At(path string) *Collection {
	segs := ParsePath(path)
	if len(segs) == 0 {
		return c
	}
	full := append(slices.Clone(c.store.path), segs...)
	return newCollection(c.store.slot, c.store.ref, full, c.opts)
}

// ParsePath splits "a/b/c" into path segments. Empty segments are dropped,
// so "", "/" and "a//b" resolve to the root, [] and [a b] respectively.
func ParsePath(s string) []string {
	var segs []string
	for _, seg := range strings.Split(s, "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

// Load returns the collection's sub-tree, keyed by identifier.
func (c *Collection) Load(ctx context.Context) map[string]any {
	return c.store.read(ctx)
}

func (c *Collection) timestamp() string {
	return c.opts.now().UTC().Format(isoLayout)
}

// Insert stores data as a new record and returns it. The identifier is taken
// from data when present, otherwise generated. Fields in data are applied on
// top of the generated identifier and timestamps. An existing record with the
// same identifier is overwritten.
func (c *Collection) Insert(ctx context.Context, data map[string]any) (Record, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: data must be an object", ErrInvalidArgument)
	}

	field := string(c.opts.field)
	id, ok := identifierKey(data[field])
	if !ok {
		var err error
		if id, err = c.opts.newID(); err != nil {
			return nil, fmt.Errorf("generate identifier: %w", err)
		}
	}

	now := c.timestamp()
	record := Record{
		field:          id,
		CreatedAtField: now,
		UpdatedAtField: now,
	}
	maps.Copy(record, data)

	c.mutate(ctx, func(db map[string]any) bool {
		db[id] = record
		return true
	})
	return record, nil
}

// InsertMany inserts every item in order. Each insert is persisted on its own.
func (c *Collection) InsertMany(ctx context.Context, items []map[string]any) ([]Record, error) {
	if items == nil {
		return nil, fmt.Errorf("%w: data must be an array", ErrInvalidArgument)
	}
	inserted := make([]Record, 0, len(items))
	for _, item := range items {
		r, err := c.Insert(ctx, item)
		if err != nil {
			return inserted, err
		}
		inserted = append(inserted, r)
	}
	return inserted, nil
}

// Find returns the record stored under id, or nil.
func (c *Collection) Find(ctx context.Context, id string) Record {
	r, _ := c.store.read(ctx)[id].(map[string]any)
	return r
}

// FindOne is an alias for Find.
func (c *Collection) FindOne(ctx context.Context, id string) Record {
	return c.Find(ctx, id)
}

// Update merges updates into the record stored under id and refreshes its
// _updatedAt. Nothing is persisted when the record does not exist.
func (c *Collection) Update(ctx context.Context, id string, updates map[string]any) (Record, error) {
	if updates == nil {
		return nil, fmt.Errorf("%w: updates must be an object", ErrInvalidArgument)
	}

	var merged Record
	c.mutate(ctx, func(db map[string]any) bool {
		existing, ok := db[id].(map[string]any)
		if !ok {
			return false
		}
		merged = make(Record, len(existing)+len(updates)+1)
		maps.Copy(merged, existing)
		maps.Copy(merged, updates)
		merged[UpdatedAtField] = c.timestamp()
		db[id] = merged
		return true
	})
	if merged == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return merged, nil
}

// UpdateMany applies each update in order. The first failure is returned
// together with the records already updated; those are not rolled back.
func (c *Collection) UpdateMany(ctx context.Context, updates []Update) ([]Record, error) {
	if updates == nil {
		return nil, fmt.Errorf("%w: updates must be an array of objects containing 'id' and 'updates'", ErrInvalidArgument)
	}
	out := make([]Record, 0, len(updates))
	for _, u := range updates {
		r, err := c.Update(ctx, u.ID, u.Changes)
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Remove deletes the record stored under id. It reports false, without
// persisting anything, when there is no such record.
func (c *Collection) Remove(ctx context.Context, id string) bool {
	removed := false
	c.mutate(ctx, func(db map[string]any) bool {
		if v, ok := db[id]; !ok || v == nil {
			return false
		}
		delete(db, id)
		removed = true
		return true
	})
	return removed
}

// RemoveMany removes each id in order and reports the individual results.
func (c *Collection) RemoveMany(ctx context.Context, ids []string) ([]bool, error) {
	if ids == nil {
		return nil, fmt.Errorf("%w: IDs must be an array", ErrInvalidArgument)
	}
	results := make([]bool, len(ids))
	for i, id := range ids {
		results[i] = c.Remove(ctx, id)
	}
	return results, nil
}

// mutate applies fn to this collection's sub-tree as one locked cycle and,
// once the lock is released, notifies listeners with the persisted document.
func (c *Collection) mutate(ctx context.Context, fn func(db map[string]any) bool) {
	doc, ok := c.store.update(ctx, fn)
	if !ok {
		return
	}
	c.notify(doc)
}
