package state

import "sync"

// keyedMutex hands out one mutex per key. Entries live only while some
// goroutine holds or waits for them.
type keyedMutex[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*keyedEntry
}

type keyedEntry struct {
	sync.Mutex
	waiters int
}

func (k *keyedMutex[K]) lock(key K) func() {
	k.mu.Lock()
	if k.entries == nil {
		k.entries = make(map[K]*keyedEntry)
	}
	e := k.entries[key]
	if e == nil {
		e = &keyedEntry{}
		k.entries[key] = e
	}
	e.waiters++
	k.mu.Unlock()

	e.Lock()
	return sync.OnceFunc(func() {
		e.Unlock()
		k.mu.Lock()
		if e.waiters--; e.waiters == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	})
}

func (k *keyedMutex[K]) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
