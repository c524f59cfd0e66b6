package artnet

import (
	"sync"
	"sync/atomic"
)

// Subscription is returned by Subscribe and removes the handler again.
type Subscription struct {
	once   *sync.Once
	cancel func()
}

// Unsubscribe removes the handler. Calling it more than once is a no-op.
func (s Subscription) Unsubscribe() {
	if s.once != nil {
		s.once.Do(s.cancel)
	}
}

type observer[T any] struct {
	id uint64
	fn func(T)
}

// observerList is copy-on-write: notify reads the current slice without
// locking, subscribe and unsubscribe replace it under mu.
type observerList[T any] struct {
	mu     sync.Mutex
	nextID uint64
	list   atomic.Pointer[[]observer[T]]
}

func (l *observerList[T]) subscribe(fn func(T)) Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := l.nextID
	var cur []observer[T]
	if p := l.list.Load(); p != nil {
		cur = *p
	}
	next := make([]observer[T], len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, observer[T]{id: id, fn: fn})
	l.list.Store(&next)

	return Subscription{once: new(sync.Once), cancel: func() { l.unsubscribe(id) }}
}

func (l *observerList[T]) unsubscribe(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := l.list.Load()
	if p == nil {
		return
	}
	next := make([]observer[T], 0, len(*p))
	for _, o := range *p {
		if o.id != id {
			next = append(next, o)
		}
	}
	l.list.Store(&next)
}

func (l *observerList[T]) empty() bool {
	p := l.list.Load()
	return p == nil || len(*p) == 0
}

func (l *observerList[T]) notify(v T) {
	p := l.list.Load()
	if p == nil {
		return
	}
	for _, o := range *p {
		o.fn(v)
	}
}
