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

// Package frame implements the RSocket binary frame layout: a 3-byte length
// prefix (for stream transports), a 4-byte stream id, a 6-bit type + 10-bit
// flags header, and a type-dependent body.
package frame

import "fmt"

// Type is the 6-bit RSocket frame type.
type Type uint8

const (
	TypeReserved        Type = 0x00
	TypeSetup           Type = 0x01
	TypeLease           Type = 0x02
	TypeKeepalive       Type = 0x03
	TypeRequestResponse Type = 0x04
	TypeRequestFNF      Type = 0x05
	TypeRequestStream   Type = 0x06
	TypeRequestChannel  Type = 0x07
	TypeRequestN        Type = 0x08
	TypeCancel          Type = 0x09
	TypePayload         Type = 0x0A
	TypeError           Type = 0x0B
	TypeMetadataPush    Type = 0x0C
	TypeResume          Type = 0x0D
	TypeResumeOK        Type = 0x0E
	TypeExt             Type = 0x3F
)

func (t Type) String() string {
	switch t {
	case TypeSetup:
		return "SETUP"
	case TypeLease:
		return "LEASE"
	case TypeKeepalive:
		return "KEEPALIVE"
	case TypeRequestResponse:
		return "REQUEST_RESPONSE"
	case TypeRequestFNF:
		return "REQUEST_FNF"
	case TypeRequestStream:
		return "REQUEST_STREAM"
	case TypeRequestChannel:
		return "REQUEST_CHANNEL"
	case TypeRequestN:
		return "REQUEST_N"
	case TypeCancel:
		return "CANCEL"
	case TypePayload:
		return "PAYLOAD"
	case TypeError:
		return "ERROR"
	case TypeMetadataPush:
		return "METADATA_PUSH"
	case TypeResume:
		return "RESUME"
	case TypeResumeOK:
		return "RESUME_OK"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(t))
	}
}

// Flags is the 10-bit flags field. Bit meaning depends on the frame type,
// mirroring the RSocket wire protocol.
type Flags uint16

const (
	FlagIgnore       Flags = 0x200
	FlagMetadata     Flags = 0x100
	FlagResumeEnable Flags = 0x080 // SETUP only
	FlagFollow       Flags = 0x080 // non-SETUP: fragment continues
	FlagRespond      Flags = 0x080 // KEEPALIVE only: request an echo
	FlagLease        Flags = 0x040 // SETUP only
	FlagComplete     Flags = 0x040 // PAYLOAD/REQUEST_CHANNEL only
	FlagNext         Flags = 0x020 // PAYLOAD only: carries data
)

func (f Flags) Has(bit Flags) bool { return f&bit == bit }

// Header is the fixed portion of every frame, independent of body.
type Header struct {
	StreamID uint32
	Type     Type
	Flags    Flags
}

// Body is implemented by every typed frame payload.
type Body interface {
	FrameType() Type
}

// Frame pairs a Header with its decoded Body.
type Frame struct {
	Header Header
	Body   Body
}

func (f Frame) StreamID() uint32 { return f.Header.StreamID }
func (f Frame) Type() Type       { return f.Header.Type }
func (f Frame) Flags() Flags     { return f.Header.Flags }

// New builds a Frame, deriving Type from the Body and masking in extra
// flags (e.g. FlagFollow when the caller is mid-fragmentation).
func New(streamID uint32, body Body, extra Flags) Frame {
	return Frame{
		Header: Header{StreamID: streamID, Type: body.FrameType(), Flags: extra},
		Body:   body,
	}
}

// HasMetadata reports whether a frame's body carries a metadata segment,
// for bodies that support the distinction.
func HasMetadata(body Body) ([]byte, bool) {
	switch b := body.(type) {
	case *Setup:
		return b.Metadata, b.Flags.Has(FlagMetadata)
	case *RequestResponse:
		return b.Metadata, b.HasMetadata
	case *RequestFNF:
		return b.Metadata, b.HasMetadata
	case *RequestStream:
		return b.Metadata, b.HasMetadata
	case *RequestChannel:
		return b.Metadata, b.HasMetadata
	case *Payload:
		return b.Metadata, b.HasMetadata
	case *MetadataPush:
		return b.Metadata, true
	default:
		return nil, false
	}
}
