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

package fragment

import "github.com/rsocket-core/rsocket/rsocket/frame"

// reservedHeaderBytes accounts for the 3-byte length prefix, the 6-byte
// frame header, and the worst-case 3-byte metadata-length field that every
// fragment pays for, regardless of body type.
const reservedHeaderBytes = 3 + 6 + 3

// HeadBuilder constructs the body for the first fragment of a chain, given
// the data/metadata slice that fragment will carry. Continuations are
// always plain PAYLOAD bodies, built internally.
type HeadBuilder func(data, metadata []byte, hasMetadata bool) frame.Body

// Splitter fragments an oversized logical frame into a FOLLOW chain
// against a fixed MTU.
type Splitter struct {
	MTU int
}

// Split returns one frame if data+metadata fit within the MTU budget, or a
// FOLLOW-chained sequence otherwise: the first frame uses build to
// construct its body (preserving the original frame type), and every
// continuation is a PAYLOAD frame. next/complete are applied only to the
// final fragment, matching PAYLOAD's own flag semantics; callers sending a
// REQUEST_* head that has no NEXT/COMPLETE concept should pass false/false.
func (s Splitter) Split(streamID uint32, build HeadBuilder, data, metadata []byte, next, complete bool) []frame.Frame {
	budget := s.MTU - reservedHeaderBytes
	if budget < 1 {
		budget = 1
	}

	total := len(data) + len(metadata)
	if total <= budget {
		body := build(data, metadata, len(metadata) > 0)
		applyTerminalFlags(body, next, complete)
		return []frame.Frame{{
			Header: frame.Header{StreamID: streamID, Type: body.FrameType()},
			Body:   body,
		}}
	}

	var frames []frame.Frame
	remMeta, remData := metadata, data
	first := true
	for {
		mChunk, remMeta2 := takeUpTo(remMeta, budget)
		dBudget := budget - len(mChunk)
		dChunk, remData2 := takeUpTo(remData, dBudget)
		remMeta, remData = remMeta2, remData2
		isLast := len(remMeta) == 0 && len(remData) == 0

		var body frame.Body
		var flags frame.Flags
		if first {
			body = build(dChunk, mChunk, len(mChunk) > 0)
			if isLast {
				applyTerminalFlags(body, next, complete)
			}
		} else {
			p := &frame.Payload{Data: dChunk, Metadata: mChunk, HasMetadata: len(mChunk) > 0}
			if isLast {
				p.Next = next
				p.Complete = complete
			}
			body = p
		}
		if !isLast {
			flags = frame.FlagFollow
		}

		frames = append(frames, frame.Frame{
			Header: frame.Header{StreamID: streamID, Type: body.FrameType(), Flags: flags},
			Body:   body,
		})
		first = false
		if isLast {
			break
		}
	}
	return frames
}

func takeUpTo(b []byte, n int) (head, rest []byte) {
	if n < 0 {
		n = 0
	}
	if len(b) <= n {
		return b, nil
	}
	return b[:n], b[n:]
}

func applyTerminalFlags(body frame.Body, next, complete bool) {
	switch b := body.(type) {
	case *frame.Payload:
		b.Next = next
		b.Complete = complete
	case *frame.RequestChannel:
		b.Complete = complete
	}
}
