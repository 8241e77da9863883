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

package handler

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// shardCount is a power of two so shardFor can mask instead of mod.
const shardCount = 16

// Table is a concurrent stream id -> *Handler map. It is sharded across
// shardCount independent mutex-guarded maps, keyed by a hash of the
// stream id, to reduce lock contention when many streams are in flight
// concurrently; the externally observable semantics are identical to a
// single mutex-guarded map; every operation below is linearizable per key.
type Table struct {
	shards [shardCount]shard
}

type shard struct {
	mut sync.RWMutex
	m   map[uint32]*Handler
}

func New() *Table {
	t := &Table{}
	for i := range t.shards {
		t.shards[i].m = make(map[uint32]*Handler)
	}
	return t
}

func (t *Table) shardFor(streamID uint32) *shard {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], streamID)
	h := xxhash.Sum64(b[:])
	return &t.shards[h&(shardCount-1)]
}

// Insert adds a handler for streamID. Per invariant 4, stream id 0 must
// never be inserted; callers are responsible for that precondition
// (connection-level frames never allocate a stream id).
func (t *Table) Insert(streamID uint32, h *Handler) {
	s := t.shardFor(streamID)
	s.mut.Lock()
	s.m[streamID] = h
	s.mut.Unlock()
}

// Remove deletes and returns the handler for streamID, if present.
func (t *Table) Remove(streamID uint32) (*Handler, bool) {
	s := t.shardFor(streamID)
	s.mut.Lock()
	h, ok := s.m[streamID]
	if ok {
		delete(s.m, streamID)
	}
	s.mut.Unlock()
	return h, ok
}

// Get looks up the handler for streamID without removing it.
func (t *Table) Get(streamID uint32) (*Handler, bool) {
	s := t.shardFor(streamID)
	s.mut.RLock()
	h, ok := s.m[streamID]
	s.mut.RUnlock()
	return h, ok
}

// Len returns the total number of live entries across all shards.
func (t *Table) Len() int {
	n := 0
	for i := range t.shards {
		t.shards[i].mut.RLock()
		n += len(t.shards[i].m)
		t.shards[i].mut.RUnlock()
	}
	return n
}

// Range iterates every live entry. The callback must not call back into
// the Table (no re-entrant lock acquisition); Range is used only at
// session teardown to drain outstanding handlers.
func (t *Table) Range(f func(streamID uint32, h *Handler)) {
	for i := range t.shards {
		t.shards[i].mut.Lock()
		for id, h := range t.shards[i].m {
			f(id, h)
		}
		t.shards[i].mut.Unlock()
	}
}

// Clear removes every entry, returning them for the caller to drain.
func (t *Table) Clear() map[uint32]*Handler {
	out := make(map[uint32]*Handler)
	for i := range t.shards {
		t.shards[i].mut.Lock()
		for id, h := range t.shards[i].m {
			out[id] = h
		}
		t.shards[i].m = make(map[uint32]*Handler)
		t.shards[i].mut.Unlock()
	}
	return out
}
