// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

import "bytes"

// Greeting layout (64 bytes total):
//
//	offset  size  field
//	0       10    signature: 0xFF, 8 filler bytes, 0x7F
//	10      1     version major (3)
//	11      1     version minor (0 or 1)
//	12      16    mechanism name, ASCII, NUL-padded
//	28      1     as-server (0 or 1)
//	29      35    filler, zero
const (
	greetingLen      = 64
	mechanismNameLen = 16
	asServerOffset   = 12 + mechanismNameLen
	versionMajor     = 3
	versionMinor     = 1
)

var greetingSignaturePrefix = byte(0xff)
var greetingSignatureSuffix = byte(0x7f)

// Greeting is the cleartext handshake both peers exchange before any
// mechanism-specific bytes flow.
type Greeting struct {
	VersionMajor byte
	VersionMinor byte
	Mechanism    string
	AsServer     bool
}

// Encode writes g into a freshly allocated 64-byte greeting.
func (g Greeting) Encode() [greetingLen]byte {
	var buf [greetingLen]byte
	buf[0] = greetingSignaturePrefix
	buf[9] = greetingSignatureSuffix
	buf[10] = g.VersionMajor
	buf[11] = g.VersionMinor
	copy(buf[12:12+mechanismNameLen], g.Mechanism)
	if g.AsServer {
		buf[asServerOffset] = 1
	}
	return buf
}

// NewGreeting returns the greeting this implementation sends: ZMTP
// 3.1, the given mechanism name, and the given as-server role.
func NewGreeting(mechanism string, asServer bool) Greeting {
	return Greeting{
		VersionMajor: versionMajor,
		VersionMinor: versionMinor,
		Mechanism:    mechanism,
		AsServer:     asServer,
	}
}

// ParseGreeting validates and decodes a 64-byte greeting received from
// a peer. A malformed signature is a fatal protocol error; a minor
// version mismatch is tolerated the way ZMTP requires (only the major
// version need match — a peer announcing a newer minor version still
// interoperates).
func ParseGreeting(b []byte) (Greeting, error) {
	if len(b) != greetingLen {
		return Greeting{}, ErrInvalidArgument
	}
	if b[0] != greetingSignaturePrefix || b[9] != greetingSignatureSuffix {
		return Greeting{}, newProtocolError(ErrCodeMalformedCommand, "")
	}
	if b[10] != versionMajor {
		return Greeting{}, newProtocolError(ErrCodeMalformedCommand, "")
	}
	name := bytes.TrimRight(b[12:12+mechanismNameLen], "\x00")
	return Greeting{
		VersionMajor: b[10],
		VersionMinor: b[11],
		Mechanism:    string(name),
		AsServer:     b[asServerOffset] != 0,
	}, nil
}
