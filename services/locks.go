package services

import "sync"

// keyedMutex hands out one mutex per id. Entries are never removed; ids are customer ids
// so the map stays as small as the customer table.
type keyedMutex struct {
	locks sync.Map // map[int64]*sync.Mutex
}

// Lock locks by id and returns the unlock function.
func (k *keyedMutex) Lock(id int64) func() {
	v, _ := k.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
