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

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
)

func newError(format string, args ...any) error {
	return errors.Errorf("frame: "+format, args...)
}

var (
	errShortHeader  = newError("short header")
	errShortBody    = newError("short body")
	errUnknownType  = newError("unknown frame type")
	errStreamIDZero = newError("stream id must be zero for this frame type")
)

const (
	lengthPrefixSize = 3
	headerSize       = 6 // 4 bytes stream id + 2 bytes type/flags
)

var bufPool bytebufferpool.Pool

// Decode reads one length-prefixed frame from r.
func Decode(r io.Reader) (Frame, error) {
	var lb [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, lb[:]); err != nil {
		return Frame{}, err
	}
	n := int(lb[0])<<16 | int(lb[1])<<8 | int(lb[2])

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Frame{}, errors.Wrap(err, "read frame body")
	}
	return decodeHeaderAndBody(buf)
}

func decodeHeaderAndBody(buf []byte) (Frame, error) {
	if len(buf) < headerSize {
		return Frame{}, errShortHeader
	}
	streamID := binary.BigEndian.Uint32(buf[0:4])
	typeAndFlags := binary.BigEndian.Uint16(buf[4:6])
	typ := Type(typeAndFlags >> 10)
	flags := Flags(typeAndFlags & 0x03FF)
	rest := buf[headerSize:]

	body, err := decodeBody(typ, flags, rest)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Header: Header{StreamID: streamID, Type: typ, Flags: flags}, Body: body}, nil
}

func readUint24(b []byte) (int, []byte, error) {
	if len(b) < 3 {
		return 0, nil, errShortBody
	}
	return int(b[0])<<16 | int(b[1])<<8 | int(b[2]), b[3:], nil
}

func readLenString(b []byte) (string, []byte, error) {
	if len(b) < 1 {
		return "", nil, errShortBody
	}
	n := int(b[0])
	b = b[1:]
	if len(b) < n {
		return "", nil, errShortBody
	}
	return string(b[:n]), b[n:], nil
}

func splitMetadata(b []byte, hasMetadata bool) (metadata, data []byte, err error) {
	if !hasMetadata {
		return nil, b, nil
	}
	n, rest, err := readUint24(b)
	if err != nil {
		return nil, nil, err
	}
	if len(rest) < n {
		return nil, nil, errShortBody
	}
	return rest[:n], rest[n:], nil
}

func decodeBody(typ Type, flags Flags, b []byte) (Body, error) {
	hasMetadata := flags.Has(FlagMetadata)

	switch typ {
	case TypeSetup:
		if len(b) < 12 {
			return nil, errShortBody
		}
		major := binary.BigEndian.Uint16(b[0:2])
		minor := binary.BigEndian.Uint16(b[2:4])
		keepaliveMS := binary.BigEndian.Uint32(b[4:8])
		lifetimeMS := binary.BigEndian.Uint32(b[8:12])
		rest := b[12:]

		mimeMeta, rest, err := readLenString(rest)
		if err != nil {
			return nil, err
		}
		mimeData, rest, err := readLenString(rest)
		if err != nil {
			return nil, err
		}
		metadata, data, err := splitMetadata(rest, hasMetadata)
		if err != nil {
			return nil, err
		}
		return &Setup{
			Flags:             flags,
			MajorVersion:      major,
			MinorVersion:      minor,
			KeepaliveInterval: time.Duration(keepaliveMS) * time.Millisecond,
			MaxLifetime:       time.Duration(lifetimeMS) * time.Millisecond,
			MetadataMimeType:  mimeMeta,
			DataMimeType:      mimeData,
			Metadata:          metadata,
			Data:              data,
		}, nil

	case TypeLease:
		if len(b) < 8 {
			return nil, errShortBody
		}
		ttl := binary.BigEndian.Uint32(b[0:4])
		num := binary.BigEndian.Uint32(b[4:8])
		metadata, _, err := splitMetadata(b[8:], hasMetadata)
		if err != nil {
			return nil, err
		}
		return &Lease{TTL: time.Duration(ttl) * time.Millisecond, NumRequests: num, Metadata: metadata, HasMetadata: hasMetadata}, nil

	case TypeKeepalive:
		if len(b) < 8 {
			return nil, errShortBody
		}
		pos := binary.BigEndian.Uint64(b[0:8])
		return &Keepalive{Respond: flags.Has(FlagRespond), LastPosition: pos, Data: b[8:]}, nil

	case TypeRequestResponse:
		metadata, data, err := splitMetadata(b, hasMetadata)
		if err != nil {
			return nil, err
		}
		return &RequestResponse{HasMetadata: hasMetadata, Metadata: metadata, Data: data}, nil

	case TypeRequestFNF:
		metadata, data, err := splitMetadata(b, hasMetadata)
		if err != nil {
			return nil, err
		}
		return &RequestFNF{HasMetadata: hasMetadata, Metadata: metadata, Data: data}, nil

	case TypeRequestStream:
		if len(b) < 4 {
			return nil, errShortBody
		}
		n := binary.BigEndian.Uint32(b[0:4])
		metadata, data, err := splitMetadata(b[4:], hasMetadata)
		if err != nil {
			return nil, err
		}
		return &RequestStream{InitialRequestN: n, HasMetadata: hasMetadata, Metadata: metadata, Data: data}, nil

	case TypeRequestChannel:
		if len(b) < 4 {
			return nil, errShortBody
		}
		n := binary.BigEndian.Uint32(b[0:4])
		metadata, data, err := splitMetadata(b[4:], hasMetadata)
		if err != nil {
			return nil, err
		}
		return &RequestChannel{InitialRequestN: n, Complete: flags.Has(FlagComplete), HasMetadata: hasMetadata, Metadata: metadata, Data: data}, nil

	case TypeRequestN:
		if len(b) < 4 {
			return nil, errShortBody
		}
		return &RequestN{N: binary.BigEndian.Uint32(b[0:4])}, nil

	case TypeCancel:
		return &Cancel{}, nil

	case TypePayload:
		metadata, data, err := splitMetadata(b, hasMetadata)
		if err != nil {
			return nil, err
		}
		return &Payload{Next: flags.Has(FlagNext), Complete: flags.Has(FlagComplete), HasMetadata: hasMetadata, Metadata: metadata, Data: data}, nil

	case TypeError:
		if len(b) < 4 {
			return nil, errShortBody
		}
		code := ErrorCode(binary.BigEndian.Uint32(b[0:4]))
		return &Error{Code: code, Data: string(b[4:])}, nil

	case TypeMetadataPush:
		metadata, _, err := splitMetadata(b, true)
		if err != nil {
			return nil, err
		}
		return &MetadataPush{Metadata: metadata}, nil

	case TypeResume:
		return &Resume{}, nil

	case TypeResumeOK:
		if len(b) < 8 {
			return nil, errShortBody
		}
		return &ResumeOK{LastReceivedPos: binary.BigEndian.Uint64(b[0:8])}, nil

	default:
		return nil, errUnknownType
	}
}

// Encode writes a length-prefixed frame to w.
func Encode(w io.Writer, f Frame) error {
	buf := bufPool.Get()
	defer bufPool.Put(buf)

	if err := encodeHeaderAndBody(buf, f); err != nil {
		return err
	}

	n := len(buf.B)
	var lb [lengthPrefixSize]byte
	lb[0] = byte(n >> 16)
	lb[1] = byte(n >> 8)
	lb[2] = byte(n)

	if _, err := w.Write(lb[:]); err != nil {
		return err
	}
	_, err := w.Write(buf.B)
	return err
}

func encodeHeaderAndBody(buf *bytebufferpool.ByteBuffer, f Frame) error {
	flags := f.Header.Flags
	switch b := f.Body.(type) {
	case *Payload:
		flags = withBit(flags, FlagNext, b.Next)
		flags = withBit(flags, FlagComplete, b.Complete)
	case *RequestChannel:
		flags = withBit(flags, FlagComplete, b.Complete)
	case *Keepalive:
		flags = withBit(flags, FlagRespond, b.Respond)
	case *Setup:
		flags = b.Flags
	}
	if metadata, ok := HasMetadata(f.Body); ok && metadata != nil {
		flags |= FlagMetadata
	}

	typeAndFlags := uint16(f.Header.Type)<<10 | uint16(flags)&0x03FF
	var hb [headerSize]byte
	binary.BigEndian.PutUint32(hb[0:4], f.Header.StreamID)
	binary.BigEndian.PutUint16(hb[4:6], typeAndFlags)
	buf.Write(hb[:])

	return encodeBody(buf, f.Body)
}

func withBit(f, bit Flags, set bool) Flags {
	if set {
		return f | bit
	}
	return f &^ bit
}

func writeUint24(buf *bytebufferpool.ByteBuffer, n int) {
	buf.WriteByte(byte(n >> 16))
	buf.WriteByte(byte(n >> 8))
	buf.WriteByte(byte(n))
}

func writeLenString(buf *bytebufferpool.ByteBuffer, s string) {
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
}

func writeMetadataAndData(buf *bytebufferpool.ByteBuffer, metadata, data []byte, hasMetadata bool) {
	if hasMetadata {
		writeUint24(buf, len(metadata))
		buf.Write(metadata)
	}
	buf.Write(data)
}

func encodeBody(buf *bytebufferpool.ByteBuffer, body Body) error {
	switch b := body.(type) {
	case *Setup:
		var hb [12]byte
		binary.BigEndian.PutUint16(hb[0:2], b.MajorVersion)
		binary.BigEndian.PutUint16(hb[2:4], b.MinorVersion)
		binary.BigEndian.PutUint32(hb[4:8], uint32(b.KeepaliveInterval/time.Millisecond))
		binary.BigEndian.PutUint32(hb[8:12], uint32(b.MaxLifetime/time.Millisecond))
		buf.Write(hb[:])
		writeLenString(buf, b.MetadataMimeType)
		writeLenString(buf, b.DataMimeType)
		writeMetadataAndData(buf, b.Metadata, b.Data, b.Flags.Has(FlagMetadata))
		return nil

	case *Lease:
		var hb [8]byte
		binary.BigEndian.PutUint32(hb[0:4], uint32(b.TTL/time.Millisecond))
		binary.BigEndian.PutUint32(hb[4:8], b.NumRequests)
		buf.Write(hb[:])
		if b.HasMetadata {
			buf.Write(b.Metadata)
		}
		return nil

	case *Keepalive:
		var hb [8]byte
		binary.BigEndian.PutUint64(hb[:], b.LastPosition)
		buf.Write(hb[:])
		buf.Write(b.Data)
		return nil

	case *RequestResponse:
		writeMetadataAndData(buf, b.Metadata, b.Data, b.HasMetadata)
		return nil

	case *RequestFNF:
		writeMetadataAndData(buf, b.Metadata, b.Data, b.HasMetadata)
		return nil

	case *RequestStream:
		var hb [4]byte
		binary.BigEndian.PutUint32(hb[:], b.InitialRequestN)
		buf.Write(hb[:])
		writeMetadataAndData(buf, b.Metadata, b.Data, b.HasMetadata)
		return nil

	case *RequestChannel:
		var hb [4]byte
		binary.BigEndian.PutUint32(hb[:], b.InitialRequestN)
		buf.Write(hb[:])
		writeMetadataAndData(buf, b.Metadata, b.Data, b.HasMetadata)
		return nil

	case *RequestN:
		var hb [4]byte
		binary.BigEndian.PutUint32(hb[:], b.N)
		buf.Write(hb[:])
		return nil

	case *Cancel:
		return nil

	case *Payload:
		writeMetadataAndData(buf, b.Metadata, b.Data, b.HasMetadata)
		return nil

	case *Error:
		var hb [4]byte
		binary.BigEndian.PutUint32(hb[:], uint32(b.Code))
		buf.Write(hb[:])
		buf.WriteString(b.Data)
		return nil

	case *MetadataPush:
		writeMetadataAndData(buf, b.Metadata, nil, true)
		return nil

	case *Resume:
		return nil

	case *ResumeOK:
		var hb [8]byte
		binary.BigEndian.PutUint64(hb[:], b.LastReceivedPos)
		buf.Write(hb[:])
		return nil

	default:
		return errUnknownType
	}
}
