package inflight

// defaultCapacityHint sizes the pending set for a typical burst of
// concurrent transitions.
const defaultCapacityHint = 256

// Option applies a configuration option to the inMemoryTracker.
type Option func(*inMemoryTracker)

// WithCapacityHint pre-sizes the pending set.
func WithCapacityHint(n int) Option {
	return func(t *inMemoryTracker) {
		if n > 0 {
			t.capacityHint = n
		}
	}
}
