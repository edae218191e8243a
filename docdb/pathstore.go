package docdb

import (
	"context"
	"encoding/json"
	"log/slog"
	"reflect"
	"sync"

	"github.com/stevemurr/slotdb/store"
)

// slotLocks serializes read-modify-write cycles of every handle that shares
// a (slot, key) pair within the process. An entry lives only while some
// cycle holds or waits for it.
var (
	slotLocksMu sync.Mutex
	slotLocks   = map[slotLockKey]*slotLock{}
)

type slotLockKey struct {
	slot store.Slot
	ref  string
}

type slotLock struct {
	mu   sync.Mutex
	refs int
}

func lockSlot(key slotLockKey) (unlock func()) {
	slotLocksMu.Lock()
	l, ok := slotLocks[key]
	if !ok {
		l = &slotLock{}
		slotLocks[key] = l
	}
	l.refs++
	slotLocksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		slotLocksMu.Lock()
		if l.refs--; l.refs == 0 {
			delete(slotLocks, key)
		}
		slotLocksMu.Unlock()
	}
}

// pathStore maps a path onto a sub-tree of the JSON document held in one slot.
// Every failure of the backing slot is logged and converted to a safe default.
type pathStore struct {
	slot   store.Slot
	ref    string
	path   []string
	logger *slog.Logger

	// fallback guards slots that cannot key the shared registry.
	fallback sync.Mutex
}

func newPathStore(slot store.Slot, ref string, path []string, logger *slog.Logger) *pathStore {
	return &pathStore{
		slot:   slot,
		ref:    ref,
		path:   path,
		logger: logger,
	}
}

func (p *pathStore) lock() (unlock func()) {
	if p.slot == nil || !reflect.TypeOf(p.slot).Comparable() {
		p.fallback.Lock()
		return p.fallback.Unlock
	}
	return lockSlot(slotLockKey{slot: p.slot, ref: p.ref})
}

// seed writes an empty document into the slot if it has never been set.
func (p *pathStore) seed(ctx context.Context) {
	if p.slot == nil {
		return
	}
	defer p.lock()()
	_, ok, err := p.slot.Get(ctx, p.ref)
	if err != nil {
		p.logger.Error("error loading database", "ref", p.ref, "error", err)
		return
	}
	if ok {
		return
	}
	if err := p.slot.Set(ctx, p.ref, "{}"); err != nil {
		p.logger.Error("error saving database", "ref", p.ref, "error", err)
	}
}

// loadDocument reads and parses the whole document. It never fails: an
// absent, empty, malformed or unreachable slot yields an empty document.
func (p *pathStore) loadDocument(ctx context.Context) map[string]any {
	if p.slot == nil {
		p.logger.Debug("backing store unavailable", "ref", p.ref)
		return map[string]any{}
	}
	raw, ok, err := p.slot.Get(ctx, p.ref)
	if err != nil {
		p.logger.Error("error loading database", "ref", p.ref, "error", err)
		return map[string]any{}
	}
	if !ok {
		return map[string]any{}
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		p.logger.Warn("error loading database", "ref", p.ref, "error", err)
		return map[string]any{}
	}
	if doc == nil {
		// "null" in the slot
		return map[string]any{}
	}
	return doc
}

// read returns the sub-tree at the store's path. Missing or non-object
// segments resolve to an empty mapping.
func (p *pathStore) read(ctx context.Context) map[string]any {
	return resolve(p.loadDocument(ctx), p.path)
}

func resolve(doc map[string]any, path []string) map[string]any {
	working := doc
	for _, seg := range path {
		next, ok := working[seg].(map[string]any)
		if !ok {
			return map[string]any{}
		}
		working = next
	}
	return working
}

// update runs fn on the sub-tree at the store's path and persists the whole
// document if fn reports a change. Load, fn and persist happen under the slot
// lock, so concurrent cycles on the same slot never lose each other's writes.
// Intermediate segments that are missing (or not objects) are created;
// existing siblings are left untouched. It reports the persisted document and
// whether persisting succeeded. fn always runs, against an empty sub-tree when
// the slot is unavailable.
func (p *pathStore) update(ctx context.Context, fn func(sub map[string]any) bool) (map[string]any, bool) {
	defer p.lock()()

	doc := p.loadDocument(ctx)
	if !fn(materialize(doc, p.path)) {
		return nil, false
	}
	if p.slot == nil {
		p.logger.Debug("backing store unavailable, write dropped", "ref", p.ref)
		return nil, false
	}

	b, err := json.Marshal(doc)
	if err != nil {
		p.logger.Error("error saving database", "ref", p.ref, "error", err)
		return nil, false
	}
	if err := p.slot.Set(ctx, p.ref, string(b)); err != nil {
		p.logger.Error("error saving database", "ref", p.ref, "error", err)
		return nil, false
	}
	return doc, true
}

// materialize returns the object at path inside doc, creating it and any
// intermediate objects in place.
func materialize(doc map[string]any, path []string) map[string]any {
	target := doc
	for _, seg := range path {
		next, ok := target[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			target[seg] = next
		}
		target = next
	}
	return target
}
