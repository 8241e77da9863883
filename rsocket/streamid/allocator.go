// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package streamid allocates per-connection stream identifiers respecting
// RSocket's client/server parity convention.
package streamid

import "sync/atomic"

// maxStreamID is the highest stream id the 31-bit wire field can carry;
// the top bit is reserved and always zero.
const maxStreamID = 1<<31 - 1

// Allocator produces monotonically increasing odd (client) or even
// (server) stream ids, wrapping back to its initial value.
type Allocator struct {
	initial uint32
	next    atomic.Uint32
}

// Client returns an allocator that starts at 1 and emits odd ids.
func Client() *Allocator {
	return New(1)
}

// Server returns an allocator that starts at 2 and emits even ids.
func Server() *Allocator {
	return New(2)
}

// New builds an allocator with an arbitrary initial value, mainly for
// tests that want deterministic small ids.
func New(initial uint32) *Allocator {
	a := &Allocator{initial: initial}
	a.next.Store(initial)
	return a
}

// Next atomically returns the current value and advances by 2.
func (a *Allocator) Next() uint32 {
	for {
		cur := a.next.Load()
		n := cur + 2
		if n > maxStreamID || n == 0 {
			n = a.initial
		}
		if a.next.CompareAndSwap(cur, n) {
			return cur
		}
	}
}
