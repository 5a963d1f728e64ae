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
	"runtime"

	"go.uber.org/atomic"
)

const (
	lockFree uint32 = iota
	lockHeld
	// lockResize is reserved for a future resize protocol. Nothing enters
	// this state today, but acquisition fails fast when it is observed so
	// that writers back off instead of spinning against a resizer.
	lockResize
)

// defaultSpinLimit bounds lock acquisition attempts before the operation
// gives up and reports failure to the caller.
const defaultSpinLimit = 10000

// spinLock is the per-bucket-chain lock embedded in each head bucket. One
// lock covers the head and its entire overflow chain.
type spinLock struct {
	state atomic.Uint32
}

// tryAcquire spins up to limit CAS attempts, yielding the processor
// periodically. It returns false on spin exhaustion or when the lock is in
// the resize state.
func (l *spinLock) tryAcquire(limit int) bool {
	for i := 0; i < limit; i++ {
		if l.state.CompareAndSwap(lockFree, lockHeld) {
			return true
		}
		if l.state.Load() == lockResize {
			return false
		}
		if i&63 == 63 {
			runtime.Gosched()
		}
	}
	return false
}

func (l *spinLock) release() {
	l.state.Store(lockFree)
}
