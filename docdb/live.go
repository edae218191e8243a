package docdb

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"

	"github.com/stevemurr/slotdb/store"
)

type listener struct {
	id uint64
	fn func(doc map[string]any)
}

// Live registers callback to run after every successful write made through
// this collection. The callback receives the whole document, not the
// sub-tree. Callbacks run synchronously, in registration order, on the
// writer's goroutine. The returned function unregisters this callback; calling
// it more than once has no further effect.
func (c *Collection) Live(callback func(doc map[string]any)) (unsubscribe func(), err error) {
	if callback == nil {
		return nil, fmt.Errorf("%w: callback must be a function", ErrInvalidArgument)
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listener{id: id, fn: callback})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.listeners = slices.DeleteFunc(c.listeners, func(l listener) bool { return l.id == id })
	}, nil
}

// Subscribe is an alias for Live.
func (c *Collection) Subscribe(callback func(doc map[string]any)) (func(), error) {
	return c.Live(callback)
}

func (c *Collection) notify(doc map[string]any) {
	c.mu.Lock()
	ls := slices.Clone(c.listeners)
	c.mu.Unlock()
	for _, l := range ls {
		l.fn(doc)
	}
}

// OnLive polls the collection's sub-tree every interval and calls callback
// with the new sub-tree whenever its serialization differs from the previous
// tick. The first tick compares against no snapshot at all, so it always
// fires. If the backing slot implements store.Watcher, external changes
// trigger an early tick.
//
// Polling stops when ctx is done or when the returned stop function is called.
func (c *Collection) OnLive(ctx context.Context, callback func(subtree map[string]any), interval time.Duration) (stop func(), err error) {
	if callback == nil {
		return nil, fmt.Errorf("%w: callback must be a function", ErrInvalidArgument)
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &poller{coll: c, callback: callback, interval: interval}

	if w, ok := c.store.slot.(store.Watcher); ok {
		changes, err := w.Watch(ctx, c.store.ref)
		if err != nil {
			c.store.logger.Warn("watch unavailable, polling only", "error", err)
		} else {
			p.changes = changes
		}
	}

	lifecycle.Go(ctx, p.run, lifecycle.WithErrorHandler(func(err error) {
		c.store.logger.Error("poll loop failed", "path", c.store.path, "error", err)
	}))

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

// OnWatch is an alias for OnLive.
func (c *Collection) OnWatch(ctx context.Context, callback func(subtree map[string]any), interval time.Duration) (func(), error) {
	return c.OnLive(ctx, callback, interval)
}

// poller holds the state of one OnLive loop.
type poller struct {
	coll     *Collection
	callback func(subtree map[string]any)
	interval time.Duration
	changes  <-chan struct{}

	last *string // nil until the first tick
}

func (p *poller) run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.tick(ctx)
		case _, ok := <-p.changes:
			if !ok {
				p.changes = nil
				continue
			}
			p.tick(ctx)
		}
	}
}

func (p *poller) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	current := p.coll.store.read(ctx)
	b, err := json.Marshal(current)
	if err != nil {
		p.coll.store.logger.Error("poll snapshot failed", "error", err)
		return
	}
	snapshot := string(b)
	if p.last != nil && *p.last == snapshot {
		return
	}
	p.last = &snapshot
	p.callback(current)
}
