package cache

import (
	"sync"

	"go.uber.org/zap"
)

// Pending is a staged optimistic change. Exactly one of Commit, Confirm or
// Rollback takes effect; later calls are ignored.
type Pending[T any] struct {
	c        *Cache[T]
	key      string
	had      bool
	previous entry[T]
	gen      uint64

	once sync.Once
}

// Stage applies fn to the cached entry so readers see the projected value
// before the store write is confirmed. With nothing cached the returned
// Pending is inert.
func (c *Cache[T]) Stage(key string, fn func(T) T) *Pending[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := &Pending[T]{c: c, key: key}
	e, ok := c.entries[key]
	if !ok {
		return p
	}
	p.had = true
	p.previous = *e
	c.generation++
	p.gen = c.generation
	c.entries[key] = &entry[T]{value: c.copy(fn(c.copy(e.value))), fetchedAt: e.fetchedAt, gen: p.gen}
	return p
}

// Commit keeps the projected value.
func (p *Pending[T]) Commit() {
	p.once.Do(func() {})
}

// Confirm replaces the projection with the value the store actually holds.
func (p *Pending[T]) Confirm(v T) {
	p.once.Do(func() {
		p.c.mu.Lock()
		defer p.c.mu.Unlock()
		e, ok := p.c.entries[p.key]
		if !ok || e.gen != p.gen {
			// Superseded; whoever wrote later owns the entry.
			return
		}
		p.c.generation++
		p.c.entries[p.key] = &entry[T]{value: p.c.copy(v), fetchedAt: p.c.clock.Now(), gen: p.c.generation}
	})
}

// Rollback restores the entry as it was before Stage. If another write landed
// on top of the projection, the entry is dropped so the next read refetches.
func (p *Pending[T]) Rollback() {
	p.once.Do(func() {
		if !p.had {
			return
		}
		p.c.mu.Lock()
		defer p.c.mu.Unlock()
		e, ok := p.c.entries[p.key]
		if !ok {
			return
		}
		if e.gen != p.gen {
			p.c.log.Debug("rollback superseded; invalidating", zap.String("key", p.key))
			delete(p.c.entries, p.key)
			return
		}
		p.c.generation++
		prev := p.previous
		prev.gen = p.c.generation
		p.c.entries[p.key] = &prev
	})
}
