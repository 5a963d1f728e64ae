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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInlineTruncation(t *testing.T) {
	m := NewInlineTable(16)

	long := bytes.Repeat([]byte("x"), 1000)
	require.True(t, m.Insert(long, 7))

	// The stored entry is keyed by the first InlineKeySize bytes, so the
	// full key and any extension of the same prefix retrieve it.
	v, ok := m.Lookup(long)
	require.True(t, ok)
	require.EqualValues(t, 7, v)

	v, ok = m.Lookup(long[:InlineKeySize])
	require.True(t, ok)
	require.EqualValues(t, 7, v)

	// InlineKeySize-1 bytes is a different key.
	_, ok = m.Lookup(long[:InlineKeySize-1])
	require.False(t, ok)
}

func TestInlineAliasing(t *testing.T) {
	m := NewInlineTable(16)

	k1 := []byte("0123456789abcdefSUFFIX-ONE")
	k2 := []byte("0123456789abcdefSUFFIX-TWO")

	require.True(t, m.Insert(k1, 1))
	require.True(t, m.Insert(k2, 2))

	// Shared 16-byte prefix: the second insert overwrote the first.
	require.Equal(t, 1, m.Len())
	v, ok := m.Lookup(k1)
	require.True(t, ok)
	require.EqualValues(t, 2, v)

	// Removing via either alias clears the single entry.
	require.True(t, m.Remove(k1))
	_, ok = m.Lookup(k2)
	require.False(t, ok)
	require.Equal(t, 0, m.Len())
}

func TestInlineExactSizeKey(t *testing.T) {
	m := NewInlineTable(16)
	key := []byte("exactly16bytes!!")
	require.Len(t, key, InlineKeySize)
	require.True(t, m.Insert(key, 5))
	v, ok := m.Lookup(key)
	require.True(t, ok)
	require.EqualValues(t, 5, v)
}
