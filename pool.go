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
	"math"
	"sync"
	stdatomic "sync/atomic"

	"github.com/pkg/errors"
)

// defaultPoolCapacity is the initial byte pool size for PooledTable.
const defaultPoolCapacity = 16 << 20

// ErrPoolExhausted is returned when a Pool has consumed its 32-bit offset
// space. Pooled slots store 32-bit offsets rather than pointers, so a pool
// tops out at 4 GiB of key bytes.
var ErrPoolExhausted = errors.New("clht: pool offset space exhausted")

// Pool is a growable byte pool addressed by 32-bit offsets, used by
// PooledTable for key storage. Appends are mutex-protected and the pool
// doubles when full. Growth copies into a fresh buffer and publishes it
// with an atomic pointer swap; the old buffer is left to the garbage
// collector, so lock-free readers holding a pre-growth snapshot keep
// reading valid bytes. Offsets are stable across growth.
//
// Like Arena, a Pool never reclaims the bytes of removed entries.
type Pool struct {
	mu  sync.Mutex
	off uint32
	buf stdatomic.Pointer[[]byte]
}

// NewPool returns a pool with the given initial capacity in bytes
// (defaultPoolCapacity if capacity is not positive).
func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = defaultPoolCapacity
	}
	p := &Pool{}
	b := make([]byte, capacity)
	p.buf.Store(&b)
	return p
}

// alloc copies key into the pool and returns its offset.
func (p *Pool) alloc(key []byte) (uint32, error) {
	// 8-byte granularity, and at least one slot of space for empty keys so
	// every entry has a distinct offset.
	size := (len(key) + 7) &^ 7
	if size == 0 {
		size = 8
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if uint64(p.off)+uint64(size) > math.MaxUint32 {
		return 0, ErrPoolExhausted
	}
	buf := *p.buf.Load()
	if int(p.off)+size > len(buf) {
		newCap := len(buf) * 2
		for int(p.off)+size > newCap {
			newCap *= 2
		}
		grown := make([]byte, newCap)
		copy(grown, buf[:p.off])
		p.buf.Store(&grown)
		buf = grown
	}
	off := p.off
	copy(buf[off:], key)
	p.off += uint32(size)
	return off, nil
}

// get returns the n key bytes stored at off. The returned slice aliases a
// pool buffer snapshot and must not be modified.
func (p *Pool) get(off, n uint32) []byte {
	buf := *p.buf.Load()
	return buf[off : off+n]
}

// Used returns the bytes consumed so far, including removed entries.
func (p *Pool) Used() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(p.off)
}

// Cap returns the current pool capacity.
func (p *Pool) Cap() int {
	return len(*p.buf.Load())
}
