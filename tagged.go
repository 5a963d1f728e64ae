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
	"fmt"
	stdatomic "sync/atomic"

	"go.uber.org/atomic"
)

const taggedSlots = 4

// taggedSlot stores the key like ptrSlot does, but presence is signaled by
// the bucket's tag word rather than the hash field.
type taggedSlot struct {
	hash   atomic.Uint64
	value  atomic.Uint64
	keyPtr atomic.UnsafePointer
	keyLen uint32
	_      uint32
}

// taggedBucket packs one 7-bit tag per slot into a single atomic word so a
// lookup filters all four slots with one load and a few ALU ops. overflow
// counts the live keys that probed through this bucket and were placed in a
// later bucket of the chain; zero means a miss here is a miss for the whole
// chain.
type taggedBucket struct {
	lock     spinLock
	overflow atomic.Uint32
	tags     atomic.Uint64
	slots    [taggedSlots]taggedSlot
	next     stdatomic.Pointer[taggedBucket]
	_        [32]byte
}

// TaggedTable is the tag-filtered pointer variant and the refined design of
// the family: arena-backed keys like PtrTable, plus SWAR tag pre-filtering
// that makes full-key comparisons rare (~1/128 false positive rate per
// slot) and outbound-overflow counts that let misses stop at the head
// bucket when nothing was ever displaced from it.
type TaggedTable struct {
	buckets   []taggedBucket
	mask      uint64
	count     atomic.Int64
	arena     *Arena
	hasher    Hasher
	spinLimit int

	// chainFollows counts lookups that crossed into an overflow bucket.
	// Cheap (overflow traversal is the rare path) and the basis for the
	// early-exit accounting in Stats.
	chainFollows atomic.Int64
}

var _ Map = (*TaggedTable)(nil)

// NewTaggedTable returns a table sized for capacity entries.
func NewTaggedTable(capacity int, options ...Option) *TaggedTable {
	cfg := defaultConfig()
	for _, op := range options {
		op.apply(&cfg)
	}
	arena := cfg.arena
	if arena == nil {
		arena = NewArena(cfg.arenaChunkSize)
	}
	n := bucketCount(capacity, taggedSlots)
	return &TaggedTable{
		buckets:   make([]taggedBucket, n),
		mask:      n - 1,
		arena:     arena,
		hasher:    cfg.hasher,
		spinLimit: cfg.spinLimit,
	}
}

// Close releases the table's references to its buckets and arena.
func (t *TaggedTable) Close() {
	t.buckets = nil
	t.arena = nil
}

// Insert adds or updates key. One pass over the chain performs both the
// existence check (tag filter, then hash, then bytes) and the empty-slot
// search (tag word empty scan).
func (t *TaggedTable) Insert(key []byte, value uint64) bool {
	h := t.hasher(key)
	tag := tagOf(h)
	head := &t.buckets[h&t.mask]
	if !head.lock.tryAcquire(t.spinLimit) {
		return false
	}

	var emptyBucket *taggedBucket
	emptySlot := -1
	last := head
	for b := head; b != nil; b = b.next.Load() {
		last = b
		w := b.tags.Load()
		if debug {
			fmt.Printf("insert(%q): tag=%02x match=%s empty=%s\n",
				key, tag, matchTag(w, tag), matchEmpty(w))
		}
		for m := matchTag(w, tag); m != 0; {
			i := m.next()
			m = m.clear(i)
			s := &b.slots[i]
			if s.hash.Load() == h && keyEqual(s.keyPtr.Load(), s.keyLen, key) {
				s.value.Store(value)
				head.lock.release()
				return true
			}
		}
		if emptyBucket == nil {
			if m := matchEmpty(w); m != 0 {
				emptyBucket, emptySlot = b, m.next()
			}
		}
	}

	if emptyBucket == nil {
		nb := new(taggedBucket)
		s := &nb.slots[0]
		s.keyPtr.Store(t.arena.alloc(key))
		s.keyLen = uint32(len(key))
		s.value.Store(value)
		s.hash.Store(h)
		nb.tags.Store(uint64(tag))
		// The new tail holds a key displaced from every bucket before it.
		for b := head; b != nil; b = b.next.Load() {
			b.overflow.Inc()
		}
		last.next.Store(nb)
	} else {
		s := &emptyBucket.slots[emptySlot]
		s.keyPtr.Store(t.arena.alloc(key))
		s.keyLen = uint32(len(key))
		s.value.Store(value)
		s.hash.Store(h)
		// The tag is the presence marker; it goes live last.
		emptyBucket.tags.Store(setLane(emptyBucket.tags.Load(), emptySlot, tag))
		for b := head; b != emptyBucket; b = b.next.Load() {
			b.overflow.Inc()
		}
	}
	t.count.Inc()
	head.lock.release()
	return true
}

// Lookup is lock-free. A bucket whose overflow count is zero terminates the
// scan: insert increments the count of every bucket a displaced key probed
// through, so zero proves no key that belongs here lives further down the
// chain.
func (t *TaggedTable) Lookup(key []byte) (uint64, bool) {
	h := t.hasher(key)
	tag := tagOf(h)
	b := &t.buckets[h&t.mask]
	for b != nil {
		w := b.tags.Load()
		if debug {
			fmt.Printf("lookup(%q): tag=%02x match=%s overflow=%d\n",
				key, tag, matchTag(w, tag), b.overflow.Load())
		}
		for m := matchTag(w, tag); m != 0; {
			i := m.next()
			m = m.clear(i)
			s := &b.slots[i]
			if s.hash.Load() == h && keyEqual(s.keyPtr.Load(), s.keyLen, key) {
				return s.value.Load(), true
			}
		}
		if b.overflow.Load() == 0 {
			return 0, false
		}
		t.chainFollows.Inc()
		b = b.next.Load()
	}
	return 0, false
}

// Remove clears the slot's tag lane and unwinds the overflow counts its
// insert added. Key bytes stay in the arena.
func (t *TaggedTable) Remove(key []byte) bool {
	h := t.hasher(key)
	tag := tagOf(h)
	head := &t.buckets[h&t.mask]
	if !head.lock.tryAcquire(t.spinLimit) {
		return false
	}
	for b := head; b != nil; b = b.next.Load() {
		w := b.tags.Load()
		for m := matchTag(w, tag); m != 0; {
			i := m.next()
			m = m.clear(i)
			s := &b.slots[i]
			if s.hash.Load() == h && keyEqual(s.keyPtr.Load(), s.keyLen, key) {
				b.tags.Store(setLane(w, i, tagEmpty))
				s.hash.Store(0)
				s.value.Store(0)
				for x := head; x != b; x = x.next.Load() {
					x.overflow.Dec()
				}
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
func (t *TaggedTable) Len() int {
	return int(t.count.Load())
}

// Stats is a point-in-time snapshot of table shape, useful when deciding
// whether a table was sized correctly for its workload.
type Stats struct {
	// Buckets is the head bucket count.
	Buckets int
	// OverflowBuckets is the total number of chained overflow buckets.
	OverflowBuckets int
	// DisplacedKeys is the number of live keys living outside their head
	// bucket.
	DisplacedKeys int
	// ChainFollows is the cumulative number of lookups that had to follow
	// an overflow link.
	ChainFollows int64
}

// Stats walks the table without locking; counts are approximate under
// concurrent mutation.
func (t *TaggedTable) Stats() Stats {
	st := Stats{
		Buckets:      len(t.buckets),
		ChainFollows: t.chainFollows.Load(),
	}
	for i := range t.buckets {
		head := &t.buckets[i]
		st.DisplacedKeys += int(head.overflow.Load())
		for b := head.next.Load(); b != nil; b = b.next.Load() {
			st.OverflowBuckets++
		}
	}
	return st
}
