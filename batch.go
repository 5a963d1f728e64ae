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
	"context"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Batch operations are deliberately asymmetric: lookups are lock-free and
// scale near-linearly with cores, so they fan out across workers; inserts
// and removes serialize on bucket-chain locks, so parallelizing them buys
// contention rather than throughput and they run on the calling goroutine.

// lookupBatchGrain is the batch size below which fanning out costs more
// than it saves.
const lookupBatchGrain = 64

// LookupBatch looks up every key and returns the values and per-key found
// flags, partitioning the work across up to GOMAXPROCS goroutines. The
// context only bounds scheduling: a worker checks it between partitions,
// not between individual lookups (a lookup never blocks).
func LookupBatch(ctx context.Context, m Map, keys [][]byte) ([]uint64, []bool, error) {
	values := make([]uint64, len(keys))
	found := make([]bool, len(keys))

	workers := runtime.GOMAXPROCS(0)
	if w := (len(keys) + lookupBatchGrain - 1) / lookupBatchGrain; w < workers {
		workers = w
	}
	if workers <= 1 {
		if err := ctx.Err(); err != nil {
			return nil, nil, errors.Wrap(err, "batch lookup")
		}
		for i, k := range keys {
			values[i], found[i] = m.Lookup(k)
		}
		return values, found, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	chunk := (len(keys) + workers - 1) / workers
	for start := 0; start < len(keys); start += chunk {
		start := start
		end := min(start+chunk, len(keys))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				values[i], found[i] = m.Lookup(keys[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, errors.Wrap(err, "batch lookup")
	}
	return values, found, nil
}

// InsertBatch inserts the key/value pairs serially and returns the number
// of successful inserts. A shortfall means lock acquisition or key storage
// failed for some keys; which ones is visible to callers that need it by
// retrying individual Inserts.
func InsertBatch(m Map, keys [][]byte, values []uint64) (int, error) {
	if len(keys) != len(values) {
		return 0, errors.Errorf("batch insert: %d keys but %d values", len(keys), len(values))
	}
	n := 0
	for i, k := range keys {
		if m.Insert(k, values[i]) {
			n++
		}
	}
	return n, nil
}

// RemoveBatch removes the keys serially and returns the number actually
// removed (absent keys do not count).
func RemoveBatch(m Map, keys [][]byte) int {
	n := 0
	for _, k := range keys {
		if m.Remove(k) {
			n++
		}
	}
	return n
}
