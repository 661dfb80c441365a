// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

import "encoding/binary"

// Frame flag bits. Only the low three bits are defined by ZMTP; the
// rest are reserved and must be zero on the wire.
const (
	flagMore    byte = 0x01
	flagLong    byte = 0x02
	flagCommand byte = 0x04
)

// flagMask selects the bits a mechanism is permitted to carry across a
// CURVE MESSAGE's re-encryption: MORE and COMMAND, never anything a
// future flag bit might add. Same rule libzmq's curve_mechanism_base
// applies ("we only transport the lower two bit flags of zmq::msg_t").
const flagMask = flagMore | flagCommand

// ZMTP frames are always big-endian on the wire regardless of host
// order, so these wrap encoding/binary.BigEndian directly; there is no
// byte-order knob to configure.
func putU16(b []byte, v uint16) { binary.BigEndian.PutUint16(b, v) }
func putU32(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }
func putU64(b []byte, v uint64) { binary.BigEndian.PutUint64(b, v) }
func getU16(b []byte) uint16    { return binary.BigEndian.Uint16(b) }
func getU32(b []byte) uint32    { return binary.BigEndian.Uint32(b) }
func getU64(b []byte) uint64    { return binary.BigEndian.Uint64(b) }

// frameHeader is the decoded form of a frame's flags byte plus its
// (possibly extended) length. A frame is short (flags byte + 1-byte
// implicit length capped at 255) or long (LONG bit set, 8-byte length
// follows).
type frameHeader struct {
	flags  byte
	length uint64
	long   bool
}

// shortFrameMaxLen is the largest body size that fits in a short frame's
// single length byte; longer bodies require a LONG frame.
const shortFrameMaxLen = 255

// encodeFrameHeader writes either a 2-byte short header (flags, length)
// or a 9-byte long header (flags, 8-byte big-endian length) to dst,
// returning the number of bytes written. dst must have at least 9
// bytes of capacity; callers size their header scratch buffer to that.
func encodeFrameHeader(dst []byte, more, command bool, length uint64) int {
	flags := byte(0)
	if more {
		flags |= flagMore
	}
	if command {
		flags |= flagCommand
	}
	if length <= shortFrameMaxLen {
		dst[0] = flags
		dst[1] = byte(length)
		return 2
	}
	flags |= flagLong
	dst[0] = flags
	putU64(dst[1:9], length)
	return 9
}

// decodeFrameHeader parses the flags byte and, if present, the short or
// extended length fields out of hdr, which must already contain the
// whole header: 2 bytes for a short frame, 9 for a long one (see
// frameHeaderLen). Callers drive this
// incrementally via the decoder state machine (§4.C5); decodeFrameHeader
// itself is pure and allocation-free.
func decodeFrameHeader(hdr []byte) (fh frameHeader, headerLen int) {
	flags := hdr[0]
	fh.flags = flags
	if flags&flagLong != 0 {
		fh.long = true
		fh.length = getU64(hdr[1:9])
		return fh, 9
	}
	fh.length = uint64(hdr[1])
	return fh, 2
}

// frameHeaderLen returns how many header bytes decodeFrameHeader needs
// given just the flags byte (the only byte guaranteed available before
// the length is known).
func frameHeaderLen(flags byte) int {
	if flags&flagLong != 0 {
		return 9
	}
	return 2
}
