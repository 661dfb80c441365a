// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// Sentinel errors surfaced to callers of the socket-level API.
//
// These mirror the libzmq errno surface: EAGAIN/ETERM/EFSM/ENOTSUP/
// EHOSTUNREACH/EINVAL/EPROTO. Callers should compare with errors.Is.
var (
	// ErrAgain means a non-blocking operation could not make progress
	// right now (HWM full on send, no message available on recv). It is
	// the same control-flow signal the underlying transport uses for
	// "no further progress without waiting", so it is aliased directly
	// to iox.ErrWouldBlock rather than redefined.
	ErrAgain = iox.ErrWouldBlock

	// ErrTerm means the owning Context is terminating or terminated;
	// blocked Send/Recv unblock with this error.
	ErrTerm = errors.New("zmtp: context terminated")

	// ErrFSM means an operation was attempted in a state that does not
	// support it (programmer error). No function in this package returns
	// it; Send on a PULL socket returns ErrNotSupported.
	ErrFSM = errors.New("zmtp: operation not valid in current state")

	// ErrNotSupported means the operation is not supported by this
	// socket type or build configuration.
	ErrNotSupported = errors.New("zmtp: not supported")

	// ErrHostUnreachable means a connect() could not reach the peer.
	ErrHostUnreachable = errors.New("zmtp: host unreachable")

	// ErrInvalidArgument reports an invalid configuration, option value,
	// or endpoint.
	ErrInvalidArgument = errors.New("zmtp: invalid argument")

	// ErrProtocol is the generic wrapped form of ProtocolError; use
	// errors.As to recover the code and endpoint.
	ErrProtocol = errors.New("zmtp: protocol error")

	// ErrTooLong reports a frame length exceeding the decoder's
	// 2^63-1 cap or a configured read limit.
	ErrTooLong = errors.New("zmtp: message too long")

	// ErrClosed denotes use of an already-closed object. No function in
	// this package returns it: Message, Pipe and Session operations do
	// not check for a closed state.
	ErrClosed = errors.New("zmtp: use of closed object")
)

// ProtocolErrorCode enumerates the specific ZMTP/CURVE protocol violations
// a mechanism or decoder can raise.
type ProtocolErrorCode int

const (
	// ErrCodeUnexpectedCommand means a command frame arrived whose name
	// the current mechanism/state did not expect.
	ErrCodeUnexpectedCommand ProtocolErrorCode = iota + 1
	// ErrCodeMalformedCommand means a command frame's body violates the
	// documented command layout (too short, bad field).
	ErrCodeMalformedCommand
	// ErrCodeInvalidSequence means a CURVE MESSAGE's nonce counter was
	// not strictly greater than the last accepted counter (replay).
	ErrCodeInvalidSequence
	// ErrCodeCryptographic means secretbox/MAC verification failed.
	ErrCodeCryptographic
)

func (c ProtocolErrorCode) String() string {
	switch c {
	case ErrCodeUnexpectedCommand:
		return "UNEXPECTED_COMMAND"
	case ErrCodeMalformedCommand:
		return "MALFORMED_COMMAND_MESSAGE"
	case ErrCodeInvalidSequence:
		return "INVALID_SEQUENCE"
	case ErrCodeCryptographic:
		return "CRYPTOGRAPHIC"
	default:
		return "UNKNOWN"
	}
}

// ProtocolError is a fatal, connection-terminating error raised by a
// mechanism or decoder. Session/engine code tears the connection down
// on any ProtocolError and continues serving other connections.
type ProtocolError struct {
	Code     ProtocolErrorCode
	Endpoint string
}

func (e *ProtocolError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("zmtp: protocol error: %s", e.Code)
	}
	return fmt.Sprintf("zmtp: protocol error: %s (endpoint=%s)", e.Code, e.Endpoint)
}

func (e *ProtocolError) Unwrap() error { return ErrProtocol }

func newProtocolError(code ProtocolErrorCode, endpoint string) error {
	return &ProtocolError{Code: code, Endpoint: endpoint}
}
