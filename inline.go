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

// InlineKeySize is the fixed per-slot key capacity of InlineTable. Keys
// longer than this are truncated.
const InlineKeySize = 16

const inlineSlots = 2

// inlineSlot keeps the key bytes inside the bucket: no indirection on
// comparison, at the cost of the truncation policy.
type inlineSlot struct {
	hash   atomic.Uint64
	value  atomic.Uint64
	key    [InlineKeySize]byte
	keyLen uint8
	_      [7]byte
}

type inlineBucket struct {
	lock  spinLock
	slots [inlineSlots]inlineSlot
	next  stdatomic.Pointer[inlineBucket]
	_     [32]byte
}

// InlineTable stores keys directly in bucket slots, capped at InlineKeySize
// bytes. Keys longer than the cap are silently truncated before hashing and
// storage: two long keys sharing their first InlineKeySize bytes alias to
// the same entry and overwrite each other's value. That is the documented
// policy of this variant, not an error condition; use PtrTable or
// TaggedTable when exact long keys matter.
type InlineTable struct {
	buckets   []inlineBucket
	mask      uint64
	count     atomic.Int64
	hasher    Hasher
	spinLimit int
}

var _ Map = (*InlineTable)(nil)

// NewInlineTable returns a table sized for capacity entries. No external
// key storage is allocated; everything lives in the bucket array and its
// overflow buckets.
func NewInlineTable(capacity int, options ...Option) *InlineTable {
	cfg := defaultConfig()
	for _, op := range options {
		op.apply(&cfg)
	}
	n := bucketCount(capacity, inlineSlots)
	return &InlineTable{
		buckets:   make([]inlineBucket, n),
		mask:      n - 1,
		hasher:    cfg.hasher,
		spinLimit: cfg.spinLimit,
	}
}

// Close releases the table's reference to its buckets.
func (t *InlineTable) Close() {
	t.buckets = nil
}

// truncate applies the long-key policy. Hashing happens after truncation so
// that a long key and its truncated prefix land in the same slot.
func truncate(key []byte) []byte {
	if len(key) > InlineKeySize {
		return key[:InlineKeySize]
	}
	return key
}

func (t *InlineTable) hashKey(key []byte) uint64 {
	return normHash(t.hasher(key))
}

func slotKeyEqual(s *inlineSlot, key []byte) bool {
	if int(s.keyLen) != len(key) {
		return false
	}
	return bytes.Equal(s.key[:s.keyLen], key)
}

// Insert adds or updates key (truncated to InlineKeySize).
func (t *InlineTable) Insert(key []byte, value uint64) bool {
	key = truncate(key)
	h := t.hashKey(key)
	head := &t.buckets[h&t.mask]
	if !head.lock.tryAcquire(t.spinLimit) {
		return false
	}

	var empty *inlineSlot
	last := head
	for b := head; b != nil; b = b.next.Load() {
		last = b
		for i := range b.slots {
			s := &b.slots[i]
			sh := s.hash.Load()
			if sh == h && slotKeyEqual(s, key) {
				s.value.Store(value)
				head.lock.release()
				return true
			}
			if sh == 0 && empty == nil {
				empty = s
			}
		}
	}

	if empty == nil {
		nb := new(inlineBucket)
		empty = &nb.slots[0]
		fillInlineSlot(empty, h, key, value)
		last.next.Store(nb)
	} else {
		fillInlineSlot(empty, h, key, value)
	}
	t.count.Inc()
	head.lock.release()
	return true
}

func fillInlineSlot(s *inlineSlot, h uint64, key []byte, value uint64) {
	s.key = [InlineKeySize]byte{}
	copy(s.key[:], key)
	s.keyLen = uint8(len(key))
	s.value.Store(value)
	s.hash.Store(h)
}

// Lookup is lock-free and scans the full chain.
func (t *InlineTable) Lookup(key []byte) (uint64, bool) {
	key = truncate(key)
	h := t.hashKey(key)
	for b := &t.buckets[h&t.mask]; b != nil; b = b.next.Load() {
		for i := range b.slots {
			s := &b.slots[i]
			if s.hash.Load() == h && slotKeyEqual(s, key) {
				return s.value.Load(), true
			}
		}
	}
	return 0, false
}

// Remove deletes key (truncated to InlineKeySize).
func (t *InlineTable) Remove(key []byte) bool {
	key = truncate(key)
	h := t.hashKey(key)
	head := &t.buckets[h&t.mask]
	if !head.lock.tryAcquire(t.spinLimit) {
		return false
	}
	for b := head; b != nil; b = b.next.Load() {
		for i := range b.slots {
			s := &b.slots[i]
			if s.hash.Load() == h && slotKeyEqual(s, key) {
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
func (t *InlineTable) Len() int {
	return int(t.count.Load())
}
