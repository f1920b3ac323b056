package worker

import "sync"

// KeyedMutex provides per-key mutual exclusion. The scrape worker uses it to
// guarantee at most one in-flight reconciliation per college, whatever the
// pool size or however a manual run overlaps a scheduled one.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex creates an empty keyed mutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use, and returns the
// matching unlock function. Mutexes are retained for the life of the worker;
// the college set is small and stable enough that reaping is not worth it.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
