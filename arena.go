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
	"sync"
	"unsafe"

	"go.uber.org/atomic"
)

// defaultArenaChunkSize is the granularity at which an Arena requests
// memory. 64 KiB amortizes allocation overhead over thousands of the short
// keys this package targets.
const defaultArenaChunkSize = 64 << 10

// Arena is an append-only allocator for key bytes used by PtrTable and
// TaggedTable. Allocation is mutex-protected; the returned pointers are
// immutable slices of arena chunks and may be read without synchronization.
// The arena never reclaims: removing a table entry leaks its key bytes
// until the arena itself becomes unreachable.
//
// An Arena is created per table by default. Pass one explicitly with
// WithArena to share key storage between tables; the arena must then
// outlive every table using it.
type Arena struct {
	chunkSize int
	used      atomic.Int64

	mu    sync.Mutex
	chunk []byte
	off   int
}

// NewArena returns an arena that allocates in chunks of chunkSize bytes
// (defaultArenaChunkSize if chunkSize is not positive).
func NewArena(chunkSize int) *Arena {
	if chunkSize <= 0 {
		chunkSize = defaultArenaChunkSize
	}
	return &Arena{chunkSize: chunkSize}
}

// alloc copies key into the arena and returns a pointer to the copy. Keys
// larger than the chunk size get a dedicated chunk. A zero-length key
// allocates nothing and returns nil.
func (a *Arena) alloc(key []byte) unsafe.Pointer {
	if len(key) == 0 {
		return nil
	}
	// Keep starts 8-byte aligned so word-at-a-time comparison of stored
	// keys never straddles an allocation boundary mid-word.
	size := (len(key) + 7) &^ 7

	a.mu.Lock()
	if a.off+size > len(a.chunk) {
		n := a.chunkSize
		if size > n {
			n = size
		}
		a.chunk = make([]byte, n)
		a.off = 0
	}
	dst := a.chunk[a.off : a.off+len(key)]
	copy(dst, key)
	a.off += size
	a.mu.Unlock()

	a.used.Add(int64(len(key)))
	return unsafe.Pointer(unsafe.SliceData(dst))
}

// Used returns the total key bytes stored, including bytes belonging to
// removed entries (those are never reclaimed).
func (a *Arena) Used() int {
	return int(a.used.Load())
}
