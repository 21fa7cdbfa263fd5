package drive

import "sync"

// rootLocks serializes root-folder resolution per user. The underlying
// read-then-insert has no uniqueness constraint to lean on, so without
// this two concurrent first-accesses could create two root folders.
type rootLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func (r *rootLocks) lock(userID uint) func() {
	r.mu.Lock()
	if r.locks == nil {
		r.locks = make(map[uint]*sync.Mutex)
	}
	l, ok := r.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[userID] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}
