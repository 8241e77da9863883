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

// ErrorCode is the 32-bit RSocket ERROR frame code.
type ErrorCode uint32

const (
	ErrorInvalidSetup       ErrorCode = 0x00000001
	ErrorUnsupportedSetup   ErrorCode = 0x00000002
	ErrorRejectedSetup      ErrorCode = 0x00000003
	ErrorRejectedResume     ErrorCode = 0x00000004
	ErrorConnectionError    ErrorCode = 0x00000101
	ErrorConnectionClose    ErrorCode = 0x00000102
	ErrorApplicationError   ErrorCode = 0x00000201
	ErrorRejected           ErrorCode = 0x00000202
	ErrorCanceled           ErrorCode = 0x00000203
	ErrorInvalid            ErrorCode = 0x00000204
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorInvalidSetup:
		return "INVALID_SETUP"
	case ErrorUnsupportedSetup:
		return "UNSUPPORTED_SETUP"
	case ErrorRejectedSetup:
		return "REJECTED_SETUP"
	case ErrorRejectedResume:
		return "REJECTED_RESUME"
	case ErrorConnectionError:
		return "CONNECTION_ERROR"
	case ErrorConnectionClose:
		return "CONNECTION_CLOSE"
	case ErrorApplicationError:
		return "APPLICATION_ERROR"
	case ErrorRejected:
		return "REJECTED"
	case ErrorCanceled:
		return "CANCELED"
	case ErrorInvalid:
		return "INVALID"
	default:
		return "UNKNOWN_ERROR"
	}
}
