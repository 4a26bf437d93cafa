package service

import "sync"

// keyedLock serializes fetch-mutate-save cycles per logical record key so
// two writers for the same student (or quiz topic) cannot lose each other's
// update. Different keys proceed fully in parallel. Entries are never
// removed; the key space is bounded by the students and topics the process
// touches.
type keyedLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLock() *keyedLock {
	return &keyedLock{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedLock) lock(key string) *sync.Mutex {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m
}
