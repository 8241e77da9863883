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

package streamid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientServerParity(t *testing.T) {
	client := Client()
	assert.Equal(t, uint32(1), client.Next())
	assert.Equal(t, uint32(3), client.Next())
	assert.Equal(t, uint32(5), client.Next())

	server := Server()
	assert.Equal(t, uint32(2), server.Next())
	assert.Equal(t, uint32(4), server.Next())
}

func TestAllocatorWrapsToInitial(t *testing.T) {
	a := New(maxStreamID - 2)
	assert.Equal(t, uint32(maxStreamID-2), a.Next())
	assert.Equal(t, uint32(maxStreamID), a.Next())
	// maxStreamID + 2 overflows the 31-bit field, wrap back to initial.
	assert.Equal(t, a.initial, a.Next())
}

func TestAllocatorConcurrentNextIsUnique(t *testing.T) {
	a := New(1)
	const n = 1000

	seen := make(chan uint32, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- a.Next()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[uint32]struct{}, n)
	for id := range seen {
		_, dup := unique[id]
		assert.False(t, dup, "stream id %d issued twice", id)
		unique[id] = struct{}{}
	}
	assert.Len(t, unique, n)
}
