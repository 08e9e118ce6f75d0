// Package repository defines the visit record store interface and errors.
package repository

// defaultInitialCapacity pre-sizes the id index for a typical rollout
// batch.
const defaultInitialCapacity = 1024

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithInitialCapacity pre-sizes the id index.
func WithInitialCapacity(n int) Option {
	return func(s *MemStore) {
		if n > 0 {
			s.initialCapacity = n
		}
	}
}
