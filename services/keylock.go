package services

import (
	"sync"
)

// GroupLocks serializes all mutations of one group behind a single lock,
// regardless of whether they arrive via the control plane or the event
// channel. Different groups proceed independently. One instance is
// shared by every service that mutates group-scoped state.
type GroupLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewGroupLocks() *GroupLocks {
	return &GroupLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *GroupLocks) Lock(key string) {
	k.get(key).Lock()
}

func (k *GroupLocks) Unlock(key string) {
	k.get(key).Unlock()
}

func (k *GroupLocks) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	return l
}
