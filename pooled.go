// Copyright 2026 The CLHT Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package clht

import (
	"bytes"
	stdatomic "sync/atomic"

	"go.uber.org/atomic"
)

const pooledSlots = 3

// pooledSlot trades the pointer of ptrSlot for a 32-bit pool offset,
// shrinking the slot from 32 to 24 bytes.
type pooledSlot struct {
	hash   atomic.Uint64
	value  atomic.Uint64
	offset uint32
	keyLen uint32
}

type pooledBucket struct {
	lock  spinLock
	slots [pooledSlots]pooledSlot
	next  stdatomic.Pointer[pooledBucket]
	_     [40]byte
}

// PooledTable is the pooled-offset variant: key bytes live in a shared
// growable Pool and slots address them by 32-bit offset. Comparison costs
// one offset-to-pointer translation against the current pool snapshot.
type PooledTable struct {
	buckets   []pooledBucket
	mask      uint64
	count     atomic.Int64
	pool      *Pool
	hasher    Hasher
	spinLimit int
}

var _ Map = (*PooledTable)(nil)

// NewPooledTable returns a table sized for capacity entries, backed by a
// private pool unless WithPool supplies a shared one.
func NewPooledTable(capacity int, options ...Option) *PooledTable {
	cfg := defaultConfig()
	for _, op := range options {
		op.apply(&cfg)
	}
	pool := cfg.pool
	if pool == nil {
		pool = NewPool(cfg.poolCapacity)
	}
	n := bucketCount(capacity, pooledSlots)
	return &PooledTable{
		buckets:   make([]pooledBucket, n),
		mask:      n - 1,
		pool:      pool,
		hasher:    cfg.hasher,
		spinLimit: cfg.spinLimit,
	}
}

// Close releases the table's references to its buckets and pool.
func (t *PooledTable) Close() {
	t.buckets = nil
	t.pool = nil
}

func (t *PooledTable) hashKey(key []byte) uint64 {
	return normHash(t.hasher(key))
}

func (t *PooledTable) slotEqual(s *pooledSlot, key []byte) bool {
	if int(s.keyLen) != len(key) {
		return false
	}
	return bytes.Equal(t.pool.get(s.offset, s.keyLen), key)
}

// Insert adds or updates key. It returns false on lock-acquisition failure
// or when the pool's offset space is exhausted.
func (t *PooledTable) Insert(key []byte, value uint64) bool {
	h := t.hashKey(key)
	head := &t.buckets[h&t.mask]
	if !head.lock.tryAcquire(t.spinLimit) {
		return false
	}

	var empty *pooledSlot
	last := head
	for b := head; b != nil; b = b.next.Load() {
		last = b
		for i := range b.slots {
			s := &b.slots[i]
			sh := s.hash.Load()
			if sh == h && t.slotEqual(s, key) {
				s.value.Store(value)
				head.lock.release()
				return true
			}
			if sh == 0 && empty == nil {
				empty = s
			}
		}
	}

	off, err := t.pool.alloc(key)
	if err != nil {
		head.lock.release()
		return false
	}
	if empty == nil {
		nb := new(pooledBucket)
		empty = &nb.slots[0]
		fillPooledSlot(empty, h, off, key, value)
		last.next.Store(nb)
	} else {
		fillPooledSlot(empty, h, off, key, value)
	}
	t.count.Inc()
	head.lock.release()
	return true
}

// fillPooledSlot publishes the hash last; see ptrTable.fillSlot.
func fillPooledSlot(s *pooledSlot, h uint64, off uint32, key []byte, value uint64) {
	s.offset = off
	s.keyLen = uint32(len(key))
	s.value.Store(value)
	s.hash.Store(h)
}

// Lookup is lock-free and scans the full chain.
func (t *PooledTable) Lookup(key []byte) (uint64, bool) {
	h := t.hashKey(key)
	for b := &t.buckets[h&t.mask]; b != nil; b = b.next.Load() {
		for i := range b.slots {
			s := &b.slots[i]
			if s.hash.Load() == h && t.slotEqual(s, key) {
				return s.value.Load(), true
			}
		}
	}
	return 0, false
}

// Remove clears the slot; the key's pool bytes are not reclaimed.
func (t *PooledTable) Remove(key []byte) bool {
	h := t.hashKey(key)
	head := &t.buckets[h&t.mask]
	if !head.lock.tryAcquire(t.spinLimit) {
		return false
	}
	for b := head; b != nil; b = b.next.Load() {
		for i := range b.slots {
			s := &b.slots[i]
			if s.hash.Load() == h && t.slotEqual(s, key) {
				s.hash.Store(0)
				s.value.Store(0)
				t.count.Dec()
				head.lock.release()
				return true
			}
		}
	}
	head.lock.release()
	return false
}

// Len returns the entry count (approximate under concurrent mutation).
func (t *PooledTable) Len() int {
	return int(t.count.Load())
}
