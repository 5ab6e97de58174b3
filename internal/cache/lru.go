package cache

import "container/list"

// LRU is a bounded, order-tracking container with recency-based eviction and
// a guaranteed, exactly-once eviction notification per entry. The front of
// the list is the most-recently-used position.
//
// LRU does not deduplicate: inserting a value the caller considers "the same
// key" as an existing entry creates a second independent entry. Avoiding
// duplicates is the caller's responsibility.
//
// LRU is not safe for concurrent use; callers wrap it in their own lock.
type LRU[V any] struct {
	maxSize int
	data    *list.List
	onEvict func(V)
	closed  bool
}

// New creates an empty LRU holding at most maxSize entries. The default
// eviction action simply releases the value.
func New[V any](maxSize int) *LRU[V] {
	return NewWithEvict[V](maxSize, nil)
}

// NewWithEvict creates an empty LRU that invokes onEvict with ownership of
// each value it evicts — on overflow during Insert and on Close. Whatever the
// handler does (including fallible I/O) is the handler's own concern; nothing
// is reported back through the container.
func NewWithEvict[V any](maxSize int, onEvict func(V)) *LRU[V] {
	return &LRU[V]{
		maxSize: maxSize,
		data:    list.New(),
		onEvict: onEvict,
	}
}

// Find returns the first value satisfying pred, scanning from most to least
// recently used, and promotes it to the most-recently-used position. A miss
// leaves the order untouched.
func (l *LRU[V]) Find(pred func(V) bool) (V, bool) {
	for e := l.data.Front(); e != nil; e = e.Next() {
		v := e.Value.(V)
		if pred(v) {
			l.data.MoveToFront(e)
			return v, true
		}
	}
	var zero V
	return zero, false
}

// Insert adds v at the most-recently-used position. If the container is at
// capacity, the least-recently-used entry is evicted through the handler
// before v is inserted.
func (l *LRU[V]) Insert(v V) {
	if l.data.Len() >= l.maxSize {
		if back := l.data.Back(); back != nil {
			l.data.Remove(back)
			l.evict(back.Value.(V))
		}
	}
	l.data.PushFront(v)
}

// Len returns the number of entries currently held.
func (l *LRU[V]) Len() int {
	return l.data.Len()
}

// Empty reports whether the container holds no entries.
func (l *LRU[V]) Empty() bool {
	return l.data.Len() == 0
}

// Values returns a snapshot of the current values, most-recently-used first.
func (l *LRU[V]) Values() []V {
	out := make([]V, 0, l.data.Len())
	for e := l.data.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(V))
	}
	return out
}

// Close evicts every remaining entry tail-first through the eviction handler.
// No entry is dropped without notification. Close is idempotent.
func (l *LRU[V]) Close() {
	if l.closed {
		return
	}
	l.closed = true
	for back := l.data.Back(); back != nil; back = l.data.Back() {
		l.data.Remove(back)
		l.evict(back.Value.(V))
	}
}

func (l *LRU[V]) evict(v V) {
	if l.onEvict != nil {
		l.onEvict(v)
	}
}
