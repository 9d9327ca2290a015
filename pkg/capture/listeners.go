package capture

import "sync"

// callbacks is an ordered listener registry. Registration returns an
// unsubscribe function; notify snapshots the registry and invokes the
// listeners outside the lock, so listeners registered or removed during
// a notification do not affect it.
type callbacks[T any] struct {
	mu      sync.Mutex
	nextID  uint64
	entries []callbackEntry[T]
}

type callbackEntry[T any] struct {
	id uint64
	fn func(T)
}

func (c *callbacks[T]) add(fn func(T)) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.entries = append(c.entries, callbackEntry[T]{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		for i, e := range c.entries {
			if e.id == id {
				c.entries = append(c.entries[:i], c.entries[i+1:]...)
				break
			}
		}
		c.mu.Unlock()
	}
}

func (c *callbacks[T]) notify(v T) {
	c.mu.Lock()
	snapshot := make([]callbackEntry[T], len(c.entries))
	copy(snapshot, c.entries)
	c.mu.Unlock()

	for _, e := range snapshot {
		e.fn(v)
	}
}
