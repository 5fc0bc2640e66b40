// Package locks provides the per-crate serialization used by all mutating
// pipelines. All writes touching a crate (publish, yank, unyank, owner
// changes) must run under the lock for its canonical name; reads do not take
// the lock.
package locks

import (
	"hash/fnv"
	"sync"
)

const shardCount = 64

// KeyedMutex is a sharded lock table keyed by string. Two distinct keys may
// map to the same shard; that only costs contention, never correctness.
type KeyedMutex struct {
	shards [shardCount]sync.Mutex
}

func New() *KeyedMutex {
	return &KeyedMutex{}
}

// Lock acquires the shard for key and returns the matching unlock function.
//
//	unlock := locks.Lock(canonName)
//	defer unlock()
func (m *KeyedMutex) Lock(key string) func() {
	shard := &m.shards[shardIndex(key)]
	shard.Lock()
	return shard.Unlock
}

func shardIndex(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % shardCount
}
