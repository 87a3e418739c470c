package email

import "sync"

// Lazy holds a handle that is opened on first use and reused afterwards.
// A failed open leaves the holder empty so the next Get tries again.
type Lazy[T any] struct {
	mu    sync.Mutex
	open  func() (T, error)
	value T
	ok    bool
}

// NewLazy creates a holder that opens its value with open
func NewLazy[T any](open func() (T, error)) *Lazy[T] {
	return &Lazy[T]{open: open}
}

// Get returns the held value, opening it first if needed
func (l *Lazy[T]) Get() (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ok {
		return l.value, nil
	}

	v, err := l.open()
	if err != nil {
		var zero T
		return zero, err
	}
	l.value, l.ok = v, true
	return v, nil
}

// Peek returns the held value without opening it
func (l *Lazy[T]) Peek() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.ok
}

// Reset empties the holder and returns the value it held, if any
func (l *Lazy[T]) Reset() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.value, l.ok
	var zero T
	l.value, l.ok = zero, false
	return v, ok
}
