package snapshot

import "hifz_backend/internal/model"

// Collection is an immutable ordered set of documents keyed by id. Every
// change returns a new Collection; the receiver is never modified.
type Collection[T model.Entity] struct {
	items []T
	index map[string]int
}

func NewCollection[T model.Entity](items []T) Collection[T] {
	c := Collection[T]{
		items: make([]T, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for _, it := range items {
		id := it.EntityID()
		if i, ok := c.index[id]; ok {
			c.items[i] = it
			continue
		}
		c.index[id] = len(c.items)
		c.items = append(c.items, it)
	}
	return c
}

func (c Collection[T]) Len() int {
	return len(c.items)
}

func (c Collection[T]) Get(id string) (T, bool) {
	i, ok := c.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[i], true
}

func (c Collection[T]) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// All returns the documents in collection order. The slice is a copy; the
// documents it holds share memory with the snapshot and must not be mutated.
func (c Collection[T]) All() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Filter returns the documents matching keep, in collection order.
func (c Collection[T]) Filter(keep func(T) bool) []T {
	var out []T
	for _, it := range c.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// With replaces the document with the same id in place, or appends it.
func (c Collection[T]) With(item T) Collection[T] {
	items := make([]T, len(c.items), len(c.items)+1)
	copy(items, c.items)
	id := item.EntityID()
	if i, ok := c.index[id]; ok {
		items[i] = item
		return Collection[T]{items: items, index: c.index}
	}
	index := make(map[string]int, len(c.index)+1)
	for k, v := range c.index {
		index[k] = v
	}
	index[id] = len(items)
	return Collection[T]{items: append(items, item), index: index}
}

// Without drops the documents with the given ids. Unknown ids are ignored.
func (c Collection[T]) Without(ids ...string) Collection[T] {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if c.Has(id) {
			drop[id] = true
		}
	}
	if len(drop) == 0 {
		return c
	}
	kept := make([]T, 0, len(c.items)-len(drop))
	for _, it := range c.items {
		if !drop[it.EntityID()] {
			kept = append(kept, it)
		}
	}
	return NewCollection(kept)
}
