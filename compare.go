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
	"unsafe"
)

// keyEqual reports whether the stored key at p (n bytes) equals key. The
// length check comes first: keys are length-sensitive, so equal content at
// different declared lengths never matches. The byte comparison is
// bytes.Equal, which compares register-width blocks on the platforms we
// care about.
func keyEqual(p unsafe.Pointer, n uint32, key []byte) bool {
	if int(n) != len(key) {
		return false
	}
	if n == 0 {
		return true
	}
	return bytes.Equal(unsafe.Slice((*byte)(p), int(n)), key)
}
