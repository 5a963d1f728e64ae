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
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolAlloc(t *testing.T) {
	p := NewPool(64)

	off, err := p.alloc([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), p.get(off, 5))
	require.Equal(t, 8, p.Used())

	// Empty keys still consume a granule so offsets stay distinct.
	off2, err := p.alloc(nil)
	require.NoError(t, err)
	require.NotEqual(t, off, off2)
	require.Equal(t, 16, p.Used())
}

func TestPoolGrowth(t *testing.T) {
	p := NewPool(32)
	require.Equal(t, 32, p.Cap())

	offs := make([]uint32, 0, 100)
	keys := make([][]byte, 0, 100)
	for i := 0; i < 100; i++ {
		k := []byte(fmt.Sprintf("key-%02d", i))
		off, err := p.alloc(k)
		require.NoError(t, err)
		offs = append(offs, off)
		keys = append(keys, k)
	}
	require.Greater(t, p.Cap(), 32)

	// Offsets handed out before growth still resolve to the same bytes.
	for i, off := range offs {
		require.Equal(t, keys[i], p.get(off, uint32(len(keys[i]))), "key %d", i)
	}
}

func TestPoolLargeKey(t *testing.T) {
	p := NewPool(16)
	big := bytes.Repeat([]byte("z"), 1000)
	off, err := p.alloc(big)
	require.NoError(t, err)
	require.Equal(t, big, p.get(off, uint32(len(big))))
	require.GreaterOrEqual(t, p.Cap(), 1000)
}

// TestPoolSnapshotReads takes slices before growth and keeps reading them
// while the pool doubles underneath. Pre-growth snapshots stay valid because
// growth swaps in a copy instead of reallocating in place.
func TestPoolSnapshotReads(t *testing.T) {
	p := NewPool(16)
	off, err := p.alloc([]byte("stable"))
	require.NoError(t, err)
	snapshot := p.get(off, 6)

	for i := 0; i < 64; i++ {
		_, err := p.alloc([]byte(fmt.Sprintf("filler-%02d", i)))
		require.NoError(t, err)
	}
	require.Equal(t, []byte("stable"), snapshot)
	require.Equal(t, []byte("stable"), p.get(off, 6))
}

func TestPoolConcurrent(t *testing.T) {
	p := NewPool(64)
	const (
		workers = 8
		per     = 500
	)
	type entry struct {
		off uint32
		key []byte
	}
	results := make([][]entry, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			es := make([]entry, 0, per)
			for i := 0; i < per; i++ {
				k := []byte(fmt.Sprintf("w%d-%04d", w, i))
				off, err := p.alloc(k)
				if err != nil {
					t.Error(err)
					return
				}
				es = append(es, entry{off, k})
			}
			results[w] = es
		}()
	}
	wg.Wait()

	for w := 0; w < workers; w++ {
		for _, e := range results[w] {
			require.Equal(t, e.key, p.get(e.off, uint32(len(e.key))))
		}
	}
}
