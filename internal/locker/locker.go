// Package locker provides striped per-key mutexes. Operations on the
// same id always hit the same stripe, so read-compare-write sections for
// one product or one cart serialize in-process.
package locker

import "sync"

type KeyedMutex struct {
	stripes []sync.Mutex
}

func New(stripeCount int) *KeyedMutex {
	if stripeCount < 1 {
		stripeCount = 1
	}
	return &KeyedMutex{stripes: make([]sync.Mutex, stripeCount)}
}

func (m *KeyedMutex) stripe(id int64) int {
	idx := int(id % int64(len(m.stripes)))
	if idx < 0 {
		idx = -idx
	}
	return idx
}

// Lock locks the stripe for id and returns the matching unlock func.
func (m *KeyedMutex) Lock(id int64) func() {
	s := &m.stripes[m.stripe(id)]
	s.Lock()
	return s.Unlock
}
