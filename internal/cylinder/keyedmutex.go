package cylinder

import "sync"

// KeyedMutex serialises operations per cylinder name while letting
// unrelated cylinders proceed in parallel. Both the store and the telemetry
// service share one instance, so a device check-in and an admin update on
// the same cylinder can never interleave.
//
// Entries are never removed; the population of cylinder names is small and
// bounded by the fleet size.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the lock for the given key, creating it on first use.
func (k *KeyedMutex) Lock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
}

// Unlock releases the lock for the given key.
// Unlocking a key that was never locked panics, matching sync.Mutex.
func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	m := k.locks[key]
	k.mu.Unlock()
	m.Unlock()
}
