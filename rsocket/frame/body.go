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

package frame

import "time"

// Setup is the sid=0 connection-establishment frame.
type Setup struct {
	Flags             Flags
	MajorVersion      uint16
	MinorVersion      uint16
	KeepaliveInterval time.Duration
	MaxLifetime       time.Duration
	MetadataMimeType  string
	DataMimeType      string
	Metadata          []byte
	Data              []byte
}

func (*Setup) FrameType() Type { return TypeSetup }

// Lease grants a number of requests over a time window. Accepted and
// ignored by the core (see spec Non-goals).
type Lease struct {
	TTL           time.Duration
	NumRequests   uint32
	Metadata      []byte
	HasMetadata   bool
}

func (*Lease) FrameType() Type { return TypeLease }

// Keepalive carries an echoed data blob and the last-observed position
// (unused by the core; resumption is unsupported).
type Keepalive struct {
	Respond        bool
	LastPosition   uint64
	Data           []byte
}

func (*Keepalive) FrameType() Type { return TypeKeepalive }

// RequestResponse initiates a single-response interaction.
type RequestResponse struct {
	HasMetadata bool
	Metadata    []byte
	Data        []byte
}

func (*RequestResponse) FrameType() Type { return TypeRequestResponse }

// RequestFNF initiates a fire-and-forget interaction.
type RequestFNF struct {
	HasMetadata bool
	Metadata    []byte
	Data        []byte
}

func (*RequestFNF) FrameType() Type { return TypeRequestFNF }

// RequestStream initiates a server-streaming interaction.
type RequestStream struct {
	InitialRequestN uint32
	HasMetadata     bool
	Metadata        []byte
	Data            []byte
}

func (*RequestStream) FrameType() Type { return TypeRequestStream }

// RequestChannel initiates a bidirectional streaming interaction. Complete
// set on this head frame means the requester has no further frames to send
// beyond this one.
type RequestChannel struct {
	InitialRequestN uint32
	Complete        bool
	HasMetadata     bool
	Metadata        []byte
	Data            []byte
}

func (*RequestChannel) FrameType() Type { return TypeRequestChannel }

// RequestN adjusts outbound credit for a stream.
type RequestN struct {
	N uint32
}

func (*RequestN) FrameType() Type { return TypeRequestN }

// Cancel terminates a stream from either side.
type Cancel struct{}

func (*Cancel) FrameType() Type { return TypeCancel }

// Payload carries a NEXT and/or COMPLETE fragment of a stream.
type Payload struct {
	Next        bool
	Complete    bool
	HasMetadata bool
	Metadata    []byte
	Data        []byte
}

func (*Payload) FrameType() Type { return TypePayload }

// Error carries an RSocket error code and UTF-8 error data.
type Error struct {
	Code ErrorCode
	Data string
}

func (*Error) FrameType() Type { return TypeError }

// MetadataPush is a sid=0 metadata-only frame.
type MetadataPush struct {
	Metadata []byte
}

func (*MetadataPush) FrameType() Type { return TypeMetadataPush }

// Resume and ResumeOK are decoded but never acted upon: session resumption
// is a declared Non-goal.
type Resume struct {
	ResumeToken       []byte
	LastReceivedPos   uint64
	FirstAvailablePos uint64
}

func (*Resume) FrameType() Type { return TypeResume }

type ResumeOK struct {
	LastReceivedPos uint64
}

func (*ResumeOK) FrameType() Type { return TypeResumeOK }
