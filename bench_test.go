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
	"fmt"
	"io"
	"strconv"
	"testing"

	"github.com/aclements/go-perfevent/perfbench"
)

type benchVariant struct {
	name string
	mk   func(capacity int, options ...Option) Map
}

func benchVariants() []benchVariant {
	return []benchVariant{
		{"ptr", func(c int, o ...Option) Map { return NewPtrTable(c, o...) }},
		{"inline", func(c int, o ...Option) Map { return NewInlineTable(c, o...) }},
		{"pooled", func(c int, o ...Option) Map { return NewPooledTable(c, o...) }},
		{"tagged", func(c int, o ...Option) Map { return NewTaggedTable(c, o...) }},
	}
}

func benchSizes(f func(b *testing.B, n int, mk func(int, ...Option) Map), mk func(int, ...Option) Map) func(*testing.B) {
	// Powers of two so hit benchmarks can cycle keys with a mask.
	var cases = []int{
		16,
		256,
		4096,
		1 << 16,
	}
	return func(b *testing.B) {
		for _, n := range cases {
			b.Run("len="+strconv.Itoa(n), func(b *testing.B) { f(b, n, mk) })
		}
	}
}

// genBenchKeys returns keys at InlineKeySize so every variant stores the
// same bytes.
func genBenchKeys(start, end int) [][]byte {
	keys := make([][]byte, 0, end-start)
	for i := start; i < end; i++ {
		keys = append(keys, []byte(fmt.Sprintf("benchkey-%07d", i)))
	}
	return keys
}

func BenchmarkLookupHit(b *testing.B) {
	for _, v := range benchVariants() {
		b.Run("impl="+v.name, benchSizes(benchmarkLookupHit, v.mk))
	}
}

func benchmarkLookupHit(b *testing.B, n int, mk func(int, ...Option) Map) {
	cs := perfbench.Open(b)
	cs.Stop()
	m := mk(n)
	keys := genBenchKeys(0, n)
	for i, k := range keys {
		m.Insert(k, uint64(i))
	}
	b.ResetTimer()
	cs.Start()
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m.Lookup(keys[i&(n-1)])
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func BenchmarkLookupMiss(b *testing.B) {
	for _, v := range benchVariants() {
		b.Run("impl="+v.name, benchSizes(benchmarkLookupMiss, v.mk))
	}
}

func benchmarkLookupMiss(b *testing.B, n int, mk func(int, ...Option) Map) {
	cs := perfbench.Open(b)
	cs.Stop()
	m := mk(n)
	for i, k := range genBenchKeys(0, n) {
		m.Insert(k, uint64(i))
	}
	miss := genBenchKeys(n, 2*n)
	b.ResetTimer()
	cs.Start()
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m.Lookup(miss[i&(n-1)])
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func BenchmarkInsert(b *testing.B) {
	for _, v := range benchVariants() {
		b.Run("impl="+v.name, benchSizes(benchmarkInsert, v.mk))
	}
}

func benchmarkInsert(b *testing.B, n int, mk func(int, ...Option) Map) {
	cs := perfbench.Open(b)
	cs.Stop()
	keys := genBenchKeys(0, n)
	b.ResetTimer()
	cs.Start()
	for i := 0; i < b.N; i += n {
		cs.Stop()
		b.StopTimer()
		m := mk(n)
		b.StartTimer()
		cs.Start()
		for j, k := range keys {
			m.Insert(k, uint64(j))
		}
	}
}

func BenchmarkLookupParallel(b *testing.B) {
	for _, v := range benchVariants() {
		b.Run("impl="+v.name, benchSizes(benchmarkLookupParallel, v.mk))
	}
}

func benchmarkLookupParallel(b *testing.B, n int, mk func(int, ...Option) Map) {
	cs := perfbench.Open(b)
	cs.Stop()
	m := mk(n)
	keys := genBenchKeys(0, n)
	for i, k := range keys {
		m.Insert(k, uint64(i))
	}
	b.ResetTimer()
	cs.Start()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.Lookup(keys[i&(n-1)])
			i++
		}
	})
}

func BenchmarkLookupBatch(b *testing.B) {
	for _, v := range benchVariants() {
		b.Run("impl="+v.name, benchSizes(benchmarkLookupBatch, v.mk))
	}
}

func benchmarkLookupBatch(b *testing.B, n int, mk func(int, ...Option) Map) {
	cs := perfbench.Open(b)
	cs.Stop()
	m := mk(n)
	keys := genBenchKeys(0, n)
	for i, k := range keys {
		m.Insert(k, uint64(i))
	}
	ctx := context.Background()
	b.ResetTimer()
	cs.Start()
	for i := 0; i < b.N; i += n {
		if _, _, err := LookupBatch(ctx, m, keys); err != nil {
			b.Fatal(err)
		}
	}
}
