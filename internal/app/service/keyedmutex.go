package service

import "sync"

// keyedMutex serializa operaciones por key (subject id, guild id) sin un
// lock global. Las entradas se liberan cuando nadie las sostiene.
type keyedMutex struct {
	mu   sync.Mutex
	keys map[uint64]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{keys: map[uint64]*keyLock{}}
}

// Lock bloquea la key y devuelve el unlock.
func (k *keyedMutex) Lock(key uint64) func() {
	k.mu.Lock()
	l := k.keys[key]
	if l == nil {
		l = &keyLock{}
		k.keys[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.keys, key)
		}
		k.mu.Unlock()
	}
}
