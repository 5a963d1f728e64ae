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
	"math/bits"
	"strings"
)

// The tagged variant packs one byte per slot into a single uint64 so that
// all of a bucket's tags are matched with a handful of ALU ops (SIMD within
// a register). tagEmpty (0) marks a free slot; live tags always have the
// high bit set (see tagOf), so no live tag collides with the sentinel.
const (
	debug = false

	tagEmpty uint8 = 0

	bitsetLSB = 0x0101010101010101
	bitsetMSB = 0x8080808080808080

	// Only the low taggedSlots lanes of the tag word are backed by slots;
	// matches in the spare lanes are masked off.
	tagLaneMask bitset = (1<<(8*taggedSlots) - 1) & bitsetMSB
)

// bitset has the 0x80 bit of byte i set when lane i matched.
type bitset uint64

// next returns the lowest matching lane.
func (b bitset) next() int {
	return bits.TrailingZeros64(uint64(b)) >> 3
}

// clear unsets lane i.
func (b bitset) clear(i int) bitset {
	return b &^ (bitset(0x80) << (i << 3))
}

func (b bitset) String() string {
	var buf strings.Builder
	buf.Grow(taggedSlots)
	for i := 0; i < taggedSlots; i++ {
		if b&(bitset(0x80)<<(i<<3)) != 0 {
			buf.WriteString("1")
		} else {
			buf.WriteString("0")
		}
	}
	return buf.String()
}

// matchTag returns the lanes of w whose byte equals tag.
//
// NB: the subtract-and-mask trick can produce a false positive in the lane
// to the left of a true match when byte values are consecutive. That is a
// rare inefficiency, not a correctness problem: every candidate lane is
// verified against the full hash and key bytes.
func matchTag(w uint64, tag uint8) bitset {
	v := w ^ (bitsetLSB * uint64(tag))
	return bitset(((v-bitsetLSB)&^v)&bitsetMSB) & tagLaneMask
}

// matchEmpty returns the lanes of w holding tagEmpty. Live tags have their
// high bit set, so this is exact.
func matchEmpty(w uint64) bitset {
	return bitset(((w-bitsetLSB)&^w)&bitsetMSB) & tagLaneMask
}

// setLane returns w with lane i replaced by tag.
func setLane(w uint64, i int, tag uint8) uint64 {
	shift := uint(i) << 3
	return w&^(0xff<<shift) | uint64(tag)<<shift
}
