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
	stdatomic "sync/atomic"

	"go.uber.org/atomic"
)

const ptrSlots = 3

// ptrSlot is one entry of a PtrTable bucket: the content hash doubles as
// the presence marker (0 = empty; normHash keeps live hashes nonzero), the
// key lives in the arena behind keyPtr.
type ptrSlot struct {
	hash   atomic.Uint64
	value  atomic.Uint64
	keyPtr atomic.UnsafePointer
	keyLen uint32
	_      uint32
}

// ptrBucket is 3 slots plus the chain lock and overflow link, padded to a
// multiple of the cache line so adjacent head buckets do not share lines.
type ptrBucket struct {
	lock  spinLock
	slots [ptrSlots]ptrSlot
	next  stdatomic.Pointer[ptrBucket]
	_     [16]byte
}

// PtrTable is the pointer+arena variant: keys of any length are copied
// into an append-only Arena and slots store a pointer to the copy. Full-key
// comparison costs one pointer chase.
type PtrTable struct {
	buckets   []ptrBucket
	mask      uint64
	count     atomic.Int64
	arena     *Arena
	hasher    Hasher
	spinLimit int
}

var _ Map = (*PtrTable)(nil)

// NewPtrTable returns a table sized for capacity entries. The bucket count
// is fixed for the table's lifetime; inserting past capacity grows overflow
// chains, not the bucket array.
func NewPtrTable(capacity int, options ...Option) *PtrTable {
	cfg := defaultConfig()
	for _, op := range options {
		op.apply(&cfg)
	}
	arena := cfg.arena
	if arena == nil {
		arena = NewArena(cfg.arenaChunkSize)
	}
	n := bucketCount(capacity, ptrSlots)
	return &PtrTable{
		buckets:   make([]ptrBucket, n),
		mask:      n - 1,
		arena:     arena,
		hasher:    cfg.hasher,
		spinLimit: cfg.spinLimit,
	}
}

// Close releases the table's references to its buckets and arena. The table
// must not be used afterwards. Unreachable tables are reclaimed by the
// garbage collector regardless; Close makes shared-arena lifetimes explicit.
func (t *PtrTable) Close() {
	t.buckets = nil
	t.arena = nil
}

func (t *PtrTable) hashKey(key []byte) uint64 {
	return normHash(t.hasher(key))
}

// Insert adds or updates key. A single pass over the chain both checks for
// an existing entry and records the first empty slot.
func (t *PtrTable) Insert(key []byte, value uint64) bool {
	h := t.hashKey(key)
	head := &t.buckets[h&t.mask]
	if !head.lock.tryAcquire(t.spinLimit) {
		return false
	}

	var empty *ptrSlot
	last := head
	for b := head; b != nil; b = b.next.Load() {
		last = b
		for i := range b.slots {
			s := &b.slots[i]
			sh := s.hash.Load()
			if sh == h && keyEqual(s.keyPtr.Load(), s.keyLen, key) {
				s.value.Store(value)
				head.lock.release()
				return true
			}
			if sh == 0 && empty == nil {
				empty = s
			}
		}
	}

	if empty != nil {
		t.fillSlot(empty, h, key, value)
	} else {
		nb := new(ptrBucket)
		t.fillSlot(&nb.slots[0], h, key, value)
		// Publishing the link makes the fully formed bucket visible to
		// lock-free readers.
		last.next.Store(nb)
	}
	t.count.Inc()
	head.lock.release()
	return true
}

// fillSlot populates an empty slot. The hash store comes last: it is the
// presence marker concurrent lookups key off, so everything else must be in
// place before it.
func (t *PtrTable) fillSlot(s *ptrSlot, h uint64, key []byte, value uint64) {
	s.keyPtr.Store(t.arena.alloc(key))
	s.keyLen = uint32(len(key))
	s.value.Store(value)
	s.hash.Store(h)
}

// Lookup is lock-free. It scans the whole chain: removals leave interior
// empty slots, so an empty slot says nothing about keys further along.
func (t *PtrTable) Lookup(key []byte) (uint64, bool) {
	h := t.hashKey(key)
	for b := &t.buckets[h&t.mask]; b != nil; b = b.next.Load() {
		for i := range b.slots {
			s := &b.slots[i]
			if s.hash.Load() == h && keyEqual(s.keyPtr.Load(), s.keyLen, key) {
				return s.value.Load(), true
			}
		}
	}
	return 0, false
}

// Remove clears the slot for reuse. The arena copy of the key is not
// reclaimed, and the slot's key pointer is left in place so a racing reader
// never sees a live hash with a cleared key.
func (t *PtrTable) Remove(key []byte) bool {
	h := t.hashKey(key)
	head := &t.buckets[h&t.mask]
	if !head.lock.tryAcquire(t.spinLimit) {
		return false
	}
	for b := head; b != nil; b = b.next.Load() {
		for i := range b.slots {
			s := &b.slots[i]
			if s.hash.Load() == h && keyEqual(s.keyPtr.Load(), s.keyLen, key) {
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
func (t *PtrTable) Len() int {
	return int(t.count.Load())
}
