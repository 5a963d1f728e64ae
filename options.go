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

// config collects the knobs shared by the table constructors.
type config struct {
	hasher         Hasher
	arena          *Arena
	pool           *Pool
	arenaChunkSize int
	poolCapacity   int
	spinLimit      int
}

func defaultConfig() config {
	return config{
		hasher:    defaultHasher,
		spinLimit: defaultSpinLimit,
	}
}

// Option configures a table at construction time.
type Option interface {
	apply(*config)
}

type hasherOption struct {
	hasher Hasher
}

func (op hasherOption) apply(c *config) {
	c.hasher = op.hasher
}

// WithHasher selects the content hash for a table. The default is xxhash;
// FastestHasher picks the hardware CRC variant when available. All
// operations on a table must use the same Hasher, which is why it is fixed
// at construction.
func WithHasher(hasher Hasher) Option {
	return hasherOption{hasher}
}

type arenaOption struct {
	arena *Arena
}

func (op arenaOption) apply(c *config) {
	c.arena = op.arena
}

// WithArena makes a PtrTable or TaggedTable store its keys in the supplied
// arena instead of a private one, allowing several tables to share key
// storage. The arena must outlive every table using it.
func WithArena(arena *Arena) Option {
	return arenaOption{arena}
}

type poolOption struct {
	pool *Pool
}

func (op poolOption) apply(c *config) {
	c.pool = op.pool
}

// WithPool makes a PooledTable store its keys in the supplied pool instead
// of a private one.
func WithPool(pool *Pool) Option {
	return poolOption{pool}
}

type arenaChunkSizeOption struct {
	size int
}

func (op arenaChunkSizeOption) apply(c *config) {
	c.arenaChunkSize = op.size
}

// WithArenaChunkSize sets the chunk size of the table's private arena.
// Ignored when WithArena supplies an arena.
func WithArenaChunkSize(size int) Option {
	return arenaChunkSizeOption{size}
}

type poolCapacityOption struct {
	capacity int
}

func (op poolCapacityOption) apply(c *config) {
	c.poolCapacity = op.capacity
}

// WithPoolCapacity sets the initial capacity of the table's private pool.
// Ignored when WithPool supplies a pool.
func WithPoolCapacity(capacity int) Option {
	return poolCapacityOption{capacity}
}

type spinLimitOption struct {
	limit int
}

func (op spinLimitOption) apply(c *config) {
	if op.limit > 0 {
		c.spinLimit = op.limit
	}
}

// WithSpinLimit bounds the number of lock acquisition attempts before
// Insert/Remove give up and return false.
func WithSpinLimit(limit int) Option {
	return spinLimitOption{limit}
}
