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

// Package clht implements a family of concurrent, cache-line-oriented hash
// tables for byte-string keys, in the style of CLHT (Cache-Line Hash
// Tables). See https://dl.acm.org/doi/10.1145/2694344.2694359 for the
// original CLHT design and https://engineering.fb.com/2019/04/25/developer-tools/f14/
// for the tag-filtering idea borrowed from Folly's F14.
//
// # Design
//
// A table is a fixed, power-of-two sized array of buckets. Each bucket holds
// a small fixed number of slots and anchors a singly linked overflow chain
// of identically shaped buckets. A key hashes to exactly one head bucket
// (hash & mask); collisions are resolved by scanning the bucket's slots and,
// when a bucket fills up, by appending overflow buckets to its chain. The
// table never resizes: capacity is chosen at construction and skewed key
// distributions degrade to linear chain scans. In exchange, the bucket array
// never moves, so lookups need no locks and no coordination with writers.
//
// Four table variants differ only in how they retain key bytes for the full
// comparison that resolves hash collisions:
//
//   - PtrTable: keys are copied into an append-only Arena; slots store a
//     pointer and length. Unbounded key length, one pointer chase per
//     comparison.
//   - InlineTable: keys are copied into a fixed 16-byte field inside the
//     slot. No indirection at all, but longer keys are truncated (see
//     InlineTable for the aliasing consequences).
//   - PooledTable: keys are copied into a growable shared Pool and slots
//     store a 32-bit offset, halving slot size relative to PtrTable.
//   - TaggedTable: pointer storage plus a per-slot 7-bit tag matched eight
//     lanes at a time with SWAR, and a per-bucket outbound-overflow count
//     that lets lookups skip chain traversal entirely when no key was ever
//     displaced from the bucket. This is the variant to reach for unless
//     slot memory dominates.
//
// # Concurrency
//
// Each head bucket embeds a spin lock that serializes all mutation of its
// chain; writers to different chains proceed in parallel. Lookups never take
// the lock. Slot publication is ordered: key bytes, length, and value are
// written before the slot's presence marker (its hash, or its tag in the
// tagged variant) is atomically stored, so a concurrent reader observes
// either an empty slot or a fully formed entry. There is no snapshot
// isolation: a lookup racing a remove of the same key may see the entry or
// not, and a remove+reinsert cycle concurrent with a lookup of the affected
// key has undefined (but memory-safe) results for that key only.
//
// Lock acquisition spins a bounded number of times and then fails; Insert
// and Remove surface that as a false return rather than blocking forever.
// Retrying is the caller's decision.
//
// # Memory
//
// Key storage is append-only. Removing an entry frees its slot for reuse
// but never reclaims the key bytes in the arena or pool, so churny
// remove/reinsert workloads grow storage without bound. Size tables for
// their working set and prefer update-in-place over remove+insert.
package clht

import "math/bits"

// Map is the operation surface common to the four table variants. Values
// are opaque uint64 payloads (typically an index or pointer bits managed by
// the caller).
type Map interface {
	// Insert adds key with the given value, or updates the value in place
	// if key is already present. It returns false only when the bucket
	// chain's lock could not be acquired within the spin budget or when key
	// storage is exhausted.
	Insert(key []byte, value uint64) bool
	// Lookup returns the value stored for key. It never blocks.
	Lookup(key []byte) (value uint64, ok bool)
	// Remove deletes key, returning false if key is absent or the chain
	// lock could not be acquired. Key storage is not reclaimed.
	Remove(key []byte) bool
	// Len returns the number of entries. Under concurrent mutation the
	// result is approximate (relaxed counter).
	Len() int
}

// bucketCount returns the power-of-two number of buckets needed for a table
// of the given capacity with slotsPerBucket slots in each bucket.
func bucketCount(capacity, slotsPerBucket int) uint64 {
	if capacity < 1 {
		capacity = 1
	}
	n := (capacity + slotsPerBucket - 1) / slotsPerBucket
	return 1 << uint(bits.Len(uint(n-1)))
}
