// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

import "sync/atomic"

// Message flag bits, re-exported so callers don't need the unexported
// wire-level constants.
const (
	// More means another frame follows in the same logical message.
	More = flagMore
	// Command means this frame is a control frame, not user data.
	Command = flagCommand
)

// FreeFunc is called exactly once, when the last reference to an
// externally-owned Message buffer is released, so the owner can recycle
// or release it. hint is whatever was passed to InitData.
type FreeFunc func(data []byte, hint any)

// shared backs the "allocated" and "externally-owned" message
// representations: a ref-counted buffer that Copy shares and Close
// decrements. libzmq's msg_t additionally carries a VSM representation
// to avoid a heap allocation for tiny payloads; here small payloads are
// stored directly in the inline array instead (see Message.inline), and
// the rest is left to the runtime.
type shared struct {
	buf  []byte
	refs atomic.Int32
	free FreeFunc
	hint any
}

const inlineCap = 32

// Message is a variable-length payload plus a flag byte. The zero
// value is a closed Message; it must be Init'd (or InitSize/
// InitData'd) before use. Close is not idempotent: closing an already-
// closed Message is a programmer error, matching msg_t's contract, so
// Message does not defend against it.
type Message struct {
	inline    [inlineCap]byte
	inlineLen int
	useInline bool

	sh *shared

	flags byte
}

// Init makes msg an empty, open message ready for use.
func (m *Message) Init() {
	m.inlineLen = 0
	m.useInline = true
	m.sh = nil
	m.flags = 0
}

// InitSize allocates an owned buffer of n zeroed bytes.
func (m *Message) InitSize(n int) {
	if n <= inlineCap {
		clear(m.inline[:n])
		m.useInline = true
		m.inlineLen = n
		m.sh = nil
		m.flags = 0
		return
	}
	m.useInline = false
	m.sh = &shared{buf: make([]byte, n)}
	m.sh.refs.Store(1)
	m.flags = 0
}

// InitData wraps an externally-owned buffer. free, if non-nil, is
// invoked with hint when the last reference is closed.
func (m *Message) InitData(data []byte, free FreeFunc, hint any) {
	m.useInline = false
	m.sh = &shared{buf: data, free: free, hint: hint}
	m.sh.refs.Store(1)
	m.flags = 0
}

// Close releases msg's reference to its buffer, invoking FreeFunc if
// this was the last reference to an externally-owned buffer. msg must
// be re-Init'd before reuse.
func (m *Message) Close() {
	if m.sh != nil {
		if m.sh.refs.Add(-1) == 0 && m.sh.free != nil {
			m.sh.free(m.sh.buf, m.sh.hint)
		}
		m.sh = nil
	}
	m.inlineLen = 0
}

// Data returns the message payload. The returned slice is only valid
// until the next mutating call (Close, Shrink, Move as source).
func (m *Message) Data() []byte {
	if m.useInline {
		return m.inline[:m.inlineLen]
	}
	if m.sh == nil {
		return nil
	}
	return m.sh.buf
}

// Size returns len(m.Data()).
func (m *Message) Size() int {
	if m.useInline {
		return m.inlineLen
	}
	if m.sh == nil {
		return 0
	}
	return len(m.sh.buf)
}

// Flags returns the current flag byte (More|Command bits; other bits
// are reserved and always zero).
func (m *Message) Flags() byte { return m.flags }

// SetFlags ORs mask into the flag byte.
func (m *Message) SetFlags(mask byte) { m.flags |= mask }

// ResetFlags clears the bits in mask from the flag byte.
func (m *Message) ResetFlags(mask byte) { m.flags &^= mask }

// Shrink reduces the reported size to n without reallocating. n must be
// <= Size(); Shrink never grows a message.
func (m *Message) Shrink(n int) {
	if m.useInline {
		if n < m.inlineLen {
			m.inlineLen = n
		}
		return
	}
	if m.sh == nil || n >= len(m.sh.buf) {
		return
	}
	m.sh.buf = m.sh.buf[:n]
}

// Copy makes dst a shallow copy of m: for a shared buffer, this bumps
// the reference count; for an inline payload, the small fixed array is
// copied by value since there is no heap buffer to share.
func (m *Message) Copy(dst *Message) {
	dst.flags = m.flags
	dst.useInline = m.useInline
	if m.useInline {
		dst.inlineLen = m.inlineLen
		copy(dst.inline[:dst.inlineLen], m.inline[:m.inlineLen])
		dst.sh = nil
		return
	}
	if m.sh != nil {
		m.sh.refs.Add(1)
	}
	dst.sh = m.sh
}

// Move transfers ownership of m's buffer to dst without touching a
// refcount; m becomes an empty, open message, immediately reusable
// without a further Init. libzmq re-inits the donor slot after every
// move for the same reason; folding that into Move keeps the two-call
// sequence from being forgotten at call sites.
func (m *Message) Move(dst *Message) {
	dst.flags = m.flags
	dst.useInline = m.useInline
	dst.inlineLen = m.inlineLen
	dst.inline = m.inline
	dst.sh = m.sh

	m.useInline = true
	m.inlineLen = 0
	m.sh = nil
	m.flags = 0
}
