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
	"hash/crc32"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/cpuid/v2"
)

// Hasher computes the 64-bit content hash of a key. The hash must be
// deterministic for the lifetime of a table; it is not required to be (and
// should not be) security-hardened. The low bits select the bucket and, in
// the tagged variant, the top bits form the tag, so a Hasher must mix the
// key into the full 64-bit range.
type Hasher func(key []byte) uint64

// kMul is the multiplier used for avalanche mixing, borrowed from
// CityHash's Hash128to64.
const kMul = 0x9ddfea08eb382d69

// defaultHasher is xxhash: word-at-a-time bulk processing with a scalar
// tail and strong avalanche behavior, well suited to the short-to-medium
// keys this package targets.
func defaultHasher(key []byte) uint64 {
	return xxhash.Sum64(key)
}

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// crcHasher hashes with hardware CRC32-C (the stdlib dispatches to the
// SSE4.2/ARMv8 CRC instructions when present). The 32-bit CRC is widened by
// avalanche mixing so that the upper bits, which the tagged variant turns
// into its 7-bit tag, carry entropy; feeding raw CRC bits to tagOf would
// collapse every tag to 0x80.
func crcHasher(key []byte) uint64 {
	h := uint64(crc32.Checksum(key, castagnoli)) ^ uint64(len(key))*kMul
	h ^= h >> 47
	h *= kMul
	h ^= h >> 47
	return h
}

// FastestHasher returns crcHasher when the CPU has a hardware CRC32
// instruction and the xxhash default otherwise. Hash values differ between
// the two, so a table must use one Hasher for its whole lifetime; pick at
// construction via WithHasher(FastestHasher()).
func FastestHasher() Hasher {
	if cpuid.CPU.Supports(cpuid.SSE42) || cpuid.CPU.Supports(cpuid.CRC32) {
		return crcHasher
	}
	return defaultHasher
}

// tagOf derives the 7-bit slot tag from the top hash bits. The forced high
// bit guarantees the tag is never tagEmpty, and using bits 56-62 keeps the
// tag statistically independent of the bucket index taken from the low
// bits.
func tagOf(h uint64) uint8 {
	return uint8(h>>56) | 0x80
}

// normHash remaps a content hash of zero to a fixed nonzero value. The
// untagged variants overload hash==0 as the empty-slot sentinel, so without
// the remap a key hashing to exactly zero would be indistinguishable from
// an empty slot.
func normHash(h uint64) uint64 {
	if h == 0 {
		return kMul
	}
	return h
}
