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

// Package fragment reassembles FOLLOW-chained frames into a single logical
// Payload (Joiner) and splits an oversized logical frame into a FOLLOW
// chain bounded by an MTU (Splitter).
package fragment

import (
	"github.com/rsocket-core/rsocket/rsocket/frame"
	"github.com/rsocket-core/rsocket/rsocket/payload"
)

// Joiner accumulates an ordered run of frames sharing a stream id, started
// by a head frame whose FOLLOW flag is set. It is not safe for concurrent
// use; callers own one Joiner per in-flight fragmentation chain and drive
// it from a single goroutine (the session's inbound loop).
type Joiner struct {
	frameType frame.Type
	data      [][]byte
	metadata  [][]byte
}

// NewJoiner starts a reassembly chain from a head frame. Callers must
// check that head carries FlagFollow before calling this; a head frame
// without FOLLOW should be materialized directly instead.
func NewJoiner(f frame.Frame) *Joiner {
	j := &Joiner{frameType: f.Header.Type}
	j.append(f)
	return j
}

func (j *Joiner) append(f frame.Frame) {
	metadata, data := bodySegments(f.Body)
	if data != nil {
		j.data = append(j.data, data)
	}
	if metadata != nil {
		j.metadata = append(j.metadata, metadata)
	}
}

// Push appends the next fragment and reports whether it was terminal
// (lacked FOLLOW).
func (j *Joiner) Push(f frame.Frame) (finished bool) {
	j.append(f)
	return !f.Header.Flags.Has(frame.FlagFollow)
}

func (j *Joiner) FrameType() frame.Type { return j.frameType }

// Payload concatenates every fragment's data and metadata segments in
// arrival order. A Payload field is nil iff no fragment contributed to it.
func (j *Joiner) Payload() payload.Payload {
	var data, metadata []byte
	for _, d := range j.data {
		data = append(data, d...)
	}
	for _, m := range j.metadata {
		metadata = append(metadata, m...)
	}
	return payload.New(data, metadata)
}

// PayloadOf extracts the logical Payload carried by a single, unfragmented
// frame body, for the common case where no FOLLOW chain was involved.
func PayloadOf(body frame.Body) payload.Payload {
	metadata, data := bodySegments(body)
	return payload.New(data, metadata)
}

// bodySegments extracts the (metadata, data) pair contributed by a single
// frame body. Bodies with no payload shape (e.g. CANCEL) contribute
// nothing, per the Joiner's contract.
func bodySegments(body frame.Body) (metadata, data []byte) {
	switch b := body.(type) {
	case *frame.RequestResponse:
		return b.Metadata, b.Data
	case *frame.RequestFNF:
		return b.Metadata, b.Data
	case *frame.RequestStream:
		return b.Metadata, b.Data
	case *frame.RequestChannel:
		return b.Metadata, b.Data
	case *frame.Payload:
		return b.Metadata, b.Data
	case *frame.MetadataPush:
		return b.Metadata, nil
	default:
		return nil, nil
	}
}
