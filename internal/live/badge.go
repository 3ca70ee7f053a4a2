package live

import "sync"

// Badge is a bounded counter for surfaces without a paginator, such as
// the notification bell.
type Badge struct {
	count int
	mu    sync.Mutex
}

// NewBadge creates a zeroed badge.
func NewBadge() *Badge {
	return &Badge{}
}

// IncrementNew bumps the count up to limit and returns it. A limit of zero
// or less is unbounded.
func (b *Badge) IncrementNew(limit int) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if limit <= 0 || b.count < limit {
		b.count++
	}
	return b.count
}

// Count returns the current count.
func (b *Badge) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Reset zeroes the count.
func (b *Badge) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count = 0
}
