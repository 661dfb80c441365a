// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

// outBatchSize is the encoder's internal scratch buffer size, used only
// when the caller does not supply its own destination buffer to Encode.
// Allocated once per Encoder and reused across every call.
const outBatchSize = 8192

// encodeStep is the prototype of an encoder state-machine action, the
// Go analog of libzmq's encoder_base_t::step_t member-function pointer.
// Each step calls nextStep to declare what bytes to emit and what runs
// next.
type encodeStep func(e *Encoder)

// Encoder turns loaded Messages into ZMTP frame bytes. It follows
// encoder_base_t's encode() loop: a step chain drives a write-cursor/
// remaining-count pair, and Encode copies from that cursor into the
// caller's buffer — or, if the caller passed no buffer and a single
// step's remaining bytes would fill the internal one, hands back a
// slice aliasing the step's own backing array instead of copying.
type Encoder struct {
	buf [outBatchSize]byte

	writePos   []byte
	toWrite    int
	next       encodeStep
	newMsgFlag bool

	inProgress *Message
	header     [9]byte
}

// InProgress reports whether a message is currently loaded.
func (e *Encoder) InProgress() bool { return e.inProgress != nil }

// LoadMsg begins encoding msg. It is a programmer error to call LoadMsg
// while a previous message is still in progress; callers drive message
// loading from the pipe/session layer, which already serializes one
// message at a time.
func (e *Encoder) LoadMsg(msg *Message) {
	if e.inProgress != nil {
		panic("zmtp: LoadMsg called while a message is already in progress")
	}
	e.inProgress = msg
	e.messageHeaderStep()
}

func (e *Encoder) nextStep(writePos []byte, toWrite int, next encodeStep, newMsgFlag bool) {
	e.writePos = writePos
	e.toWrite = toWrite
	e.next = next
	e.newMsgFlag = newMsgFlag
}

func (e *Encoder) messageHeaderStep() {
	msg := e.inProgress
	more := msg.Flags()&More != 0
	command := msg.Flags()&Command != 0
	n := encodeFrameHeader(e.header[:], more, command, uint64(msg.Size()))
	if msg.Size() == 0 {
		// Header is also the last step: no payload step follows.
		e.nextStep(e.header[:n], n, nil, true)
		return
	}
	e.nextStep(e.header[:n], n, (*Encoder).messagePayloadStep, false)
}

func (e *Encoder) messagePayloadStep() {
	data := e.inProgress.Data()
	e.nextStep(data, len(data), nil, true)
}

// Encode fills dst with framed bytes and returns the slice actually
// produced along with its length. If dst is nil, Encode uses its own
// internal buffer, and may instead return a slice that aliases a
// Message's own payload array directly (the zero-copy path) when that
// payload is large enough to fill the internal buffer on its own. The
// returned slice (whether internal, caller-supplied, or aliased) is
// only valid until the next call to Encode.
func (e *Encoder) Encode(dst []byte) (out []byte, n int) {
	if e.inProgress == nil {
		return nil, 0
	}

	useInternal := dst == nil
	buffer := dst
	if useInternal {
		buffer = e.buf[:]
	}
	buffersize := len(buffer)

	pos := 0
	for pos < buffersize {
		if e.toWrite == 0 {
			if e.newMsgFlag {
				e.inProgress.Close()
				e.inProgress.Init()
				e.inProgress = nil
				break
			}
			e.next(e)
		}

		// Zero-copy path: no caller buffer, nothing copied into the
		// internal one yet, and the current step alone covers (or
		// exceeds) a full internal buffer's worth of bytes.
		if pos == 0 && useInternal && e.toWrite >= buffersize {
			out = e.writePos[:e.toWrite]
			pos = e.toWrite
			e.writePos = nil
			e.toWrite = 0
			return out, pos
		}

		toCopy := e.toWrite
		if room := buffersize - pos; toCopy > room {
			toCopy = room
		}
		copy(buffer[pos:pos+toCopy], e.writePos[:toCopy])
		pos += toCopy
		e.writePos = e.writePos[toCopy:]
		e.toWrite -= toCopy
	}

	return buffer[:pos], pos
}
