// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

// decodePhase tracks which byte range the decoder is currently
// accumulating, the dual of Encoder's step chain: each phase declares
// the next byte range it needs.
type decodePhase int

const (
	phaseFlags decodePhase = iota
	phaseHeaderRest
	phasePayload
)

// Decoder parses framed bytes into Messages with memory bounded by
// MaxMessageSize. It is fed incrementally: a single Decode call may see
// anywhere from zero to many complete frames' worth of bytes, and
// partial progress survives across calls.
type Decoder struct {
	// MaxMessageSize bounds the allocation a single frame may trigger.
	// Zero means no additional bound beyond framePayloadMaxLen
	// (2^63-1).
	MaxMessageSize int

	phase      decodePhase
	header     [9]byte
	headerLen  int
	headerGot  int
	msg        Message
	payloadGot int
}

// NewDecoder returns a Decoder that rejects any single frame declaring a
// payload larger than maxMessageSize (0 = unbounded).
func NewDecoder(maxMessageSize int) *Decoder {
	d := &Decoder{MaxMessageSize: maxMessageSize}
	d.msg.Init()
	return d
}

func (d *Decoder) reset() {
	d.phase = phaseFlags
	d.headerGot = 0
	d.payloadGot = 0
}

// Decode consumes a prefix of p, returning how many bytes it used. If a
// complete frame was assembled during this call, msg is non-nil and
// belongs to the caller (Decode has moved it out of internal state, so
// the Decoder's own buffer is immediately ready for the next frame).
// At most one complete message is returned per call even if p contains
// several; callers loop, re-slicing by consumed, to drain a buffer.
//
// A non-nil error is always fatal — a malformed frame closes the
// connection — and the Decoder must not be reused afterward.
func (d *Decoder) Decode(p []byte) (consumed int, msg *Message, err error) {
	for consumed < len(p) {
		switch d.phase {
		case phaseFlags:
			d.header[0] = p[consumed]
			consumed++
			d.headerLen = frameHeaderLen(d.header[0])
			d.headerGot = 1
			d.phase = phaseHeaderRest

		case phaseHeaderRest:
			n := copy(d.header[d.headerGot:d.headerLen], p[consumed:])
			d.headerGot += n
			consumed += n
			if d.headerGot < d.headerLen {
				return consumed, nil, nil
			}
			fh, _ := decodeFrameHeader(d.header[:d.headerLen])
			if d.MaxMessageSize > 0 && fh.length > uint64(d.MaxMessageSize) {
				d.reset()
				return consumed, nil, ErrTooLong
			}
			if fh.length > framePayloadMaxLen {
				d.reset()
				return consumed, nil, ErrTooLong
			}
			d.msg.Init()
			d.msg.InitSize(int(fh.length))
			if fh.flags&flagMore != 0 {
				d.msg.SetFlags(More)
			}
			if fh.flags&flagCommand != 0 {
				d.msg.SetFlags(Command)
			}
			d.payloadGot = 0
			d.phase = phasePayload
			// A zero-length frame is complete the moment its header
			// is; waiting for the loop to re-enter would strand it
			// until the next byte arrives.
			if fh.length == 0 {
				out := new(Message)
				d.msg.Move(out)
				d.reset()
				return consumed, out, nil
			}

		case phasePayload:
			need := d.msg.Size()
			if d.payloadGot < need {
				n := copy(d.msg.Data()[d.payloadGot:], p[consumed:])
				d.payloadGot += n
				consumed += n
				if d.payloadGot < need {
					return consumed, nil, nil
				}
			}
			out := new(Message)
			d.msg.Move(out)
			d.reset()
			return consumed, out, nil
		}
	}
	return consumed, nil, nil
}

// framePayloadMaxLen caps a single frame's declared payload length.
// The long-form length field is a full 64-bit big-endian integer on the
// wire, but anything past int64 range cannot be allocated anyway, so
// lengths above it are rejected before the int conversion.
const framePayloadMaxLen = 1<<63 - 1
