// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

import (
	"sync"

	"go.zmtp.dev/zmtp/internal/array"
)

// termPhase tracks the termination handshake a Pipe's two ends run
// before either side may be discarded: both peers must observe each
// other's intent to terminate before the pipe is fully torn down,
// mirroring the commit-based flow control Write/Read already use for
// ordinary traffic.
type termPhase int

const (
	termActive termPhase = iota
	termDelimiterReceived
	termWaitingAck
	termTerminated
)

// halfPipe is one direction of a Pipe: messages written by one endpoint
// and read by the other. The two Pipe values returned by NewPipePair
// share their halfPipes by pointer, so the HWM/LWM credit protocol is
// implemented as synchronized field updates rather than the literal
// activate_read/activate_write commands libzmq posts between threads —
// both ends of a Pipe are always local to one process, so there is
// nothing to serialize here.
type halfPipe struct {
	mu sync.Mutex

	hwm int // 0 means unbounded
	lwm int // compute_lwm(hwm); unused when hwm == 0

	queue []*Message // committed, FIFO, one entry per frame
	chain []*Message // writer's in-progress, uncommitted multipart chain

	msgsWritten   uint64 // incremented once per committed logical message
	msgsRead      uint64 // incremented once per logical message fully dequeued
	peersMsgsRead uint64 // writer's view of msgsRead, refreshed at the LWM

	terminating   bool
	stalledReader bool // Read/CheckRead found the queue empty since the last successful Read
}

func newHalfPipe(hwm int) *halfPipe {
	hp := &halfPipe{hwm: hwm}
	if hwm > 0 {
		hp.lwm = (hwm + 1) / 2
	}
	return hp
}

// raiseHWM grows the direction's high water mark by n once the peer
// endpoint's owner is known. An inproc pipe's capacity is the sum of
// the sender's SndHWM and the receiver's RcvHWM, the way libzmq sizes
// inproc pipes; the receiver's share is only learned when a bind
// attaches, possibly after the pipe was created. Zero on either side
// makes the direction unbounded.
func (hp *halfPipe) raiseHWM(n int) {
	hp.mu.Lock()
	defer hp.mu.Unlock()
	if hp.hwm == 0 || n == 0 {
		hp.hwm = 0
		hp.lwm = 0
		return
	}
	hp.hwm += n
	hp.lwm = (hp.hwm + 1) / 2
}

func (hp *halfPipe) checkWriteLocked() bool {
	if hp.terminating {
		return false
	}
	if hp.hwm == 0 {
		return true
	}
	return hp.msgsWritten-hp.peersMsgsRead < uint64(hp.hwm)
}

// Pipe is one endpoint of a bidirectional pipe pair. Operations are
// safe for concurrent use; libzmq's pipes instead assume single-
// threaded access from an owning I/O thread, and a mutex per direction
// is the equivalent of that single-writer discipline here.
type Pipe struct {
	out *halfPipe // this endpoint writes here; the peer reads it
	in  *halfPipe // the peer writes here; this endpoint reads it

	mu    sync.Mutex
	phase termPhase
	peer  *Pipe

	// array.Slot lets a Socket keep its connected pipes in an
	// array.Array for O(1) removal when pruning terminated ones,
	// instead of a linear scan-and-rebuild over a plain slice.
	array.Slot
}

// NewPipePair creates two connected Pipe endpoints. hwmAtoB bounds how
// many uncredited messages a may have outstanding toward b, and
// hwmBtoA bounds the reverse direction; zero means unbounded.
func NewPipePair(hwmAtoB, hwmBtoA int) (a, b *Pipe) {
	ab := newHalfPipe(hwmAtoB)
	ba := newHalfPipe(hwmBtoA)
	a = &Pipe{out: ab, in: ba, Slot: array.NewSlot()}
	b = &Pipe{out: ba, in: ab, Slot: array.NewSlot()}
	a.peer = b
	b.peer = a
	return a, b
}

// raiseHWMs adds the attaching endpoint's receive and send shares to
// the pipe's two directions. Called by the inproc accept path when a
// bind picks up a connecter's pipe.
func (p *Pipe) raiseHWMs(rcvShare, sndShare int) {
	p.in.raiseHWM(rcvShare)
	p.out.raiseHWM(sndShare)
}

// CheckWrite reports whether Write would currently accept a new logical
// message (i.e. flow control has credit). It does not reserve anything;
// concurrent writers must still handle Write returning false.
func (p *Pipe) CheckWrite() bool {
	p.out.mu.Lock()
	defer p.out.mu.Unlock()
	if len(p.out.chain) > 0 {
		// A chain is already in flight; more frames are always
		// accepted into it regardless of HWM. HWM accounting
		// counts the whole chain as one slot, decided at commit
		// time.
		return true
	}
	return p.out.checkWriteLocked()
}

// Write hands msg to the pipe. Ownership of msg transfers to the pipe
// immediately; the caller must not touch it again. Write returns true
// once msg completes a logical message (its More flag was clear) and
// the message has been committed to the queue the peer reads from; it
// returns false both when msg only extends an in-progress multipart
// chain and when flow control rejected a new chain outright (in the
// latter case msg is closed, not queued; callers are expected to
// CheckWrite before starting a new logical message).
func (p *Pipe) Write(msg *Message) bool {
	hp := p.out
	hp.mu.Lock()
	defer hp.mu.Unlock()

	if len(hp.chain) == 0 && !hp.checkWriteLocked() {
		msg.Close()
		return false
	}

	hp.chain = append(hp.chain, msg)
	if msg.Flags()&More != 0 {
		return false
	}

	hp.queue = append(hp.queue, hp.chain...)
	hp.chain = nil
	hp.msgsWritten++
	return true
}

// Rollback discards any uncommitted multipart chain started by Write,
// closing its buffered frames. It is a no-op if no chain is in flight.
func (p *Pipe) Rollback() {
	hp := p.out
	hp.mu.Lock()
	defer hp.mu.Unlock()
	for _, m := range hp.chain {
		m.Close()
	}
	hp.chain = nil
}

// Flush makes writes visible to the peer. Writes here are already
// visible as soon as committed (the two endpoints share the same
// halfPipe), so Flush exists for symmetry with the libzmq pipe API and
// to let callers signal readiness explicitly when driving a pipe from
// an event loop.
func (p *Pipe) Flush() {}

// CheckRead reports whether Read would currently return a message.
func (p *Pipe) CheckRead() bool {
	hp := p.in
	hp.mu.Lock()
	defer hp.mu.Unlock()
	if len(hp.queue) == 0 {
		hp.stalledReader = true
		return false
	}
	return true
}

// Read dequeues the next frame. It returns false if no frame is
// currently queued (matching CheckRead); the caller owns the returned
// Message and must Close it.
func (p *Pipe) Read() (*Message, bool) {
	hp := p.in
	hp.mu.Lock()
	defer hp.mu.Unlock()

	if len(hp.queue) == 0 {
		hp.stalledReader = true
		return nil, false
	}

	msg := hp.queue[0]
	hp.queue = hp.queue[1:]

	if msg.Flags()&More == 0 {
		hp.msgsRead++
		if hp.hwm == 0 {
			hp.peersMsgsRead = hp.msgsRead
		} else if hp.msgsRead-hp.lastAnnouncedRead() >= uint64(hp.lwm) {
			hp.peersMsgsRead = hp.msgsRead
		}
	}
	hp.stalledReader = false
	return msg, true
}

// lastAnnouncedRead returns the most recent peersMsgsRead value, which
// doubles as "the reader's last announcement" since both fields live on
// the same shared halfPipe.
func (hp *halfPipe) lastAnnouncedRead() uint64 { return hp.peersMsgsRead }

// Terminate begins (or acknowledges) the termination handshake for this
// endpoint. If drain is false, any messages this endpoint has written
// but the peer has not yet read are discarded; if true, they remain
// queued for the peer to drain before the pipe is considered fully
// terminated from the peer's perspective. Terminate is idempotent.
func (p *Pipe) Terminate(drain bool) {
	p.mu.Lock()
	if p.phase == termTerminated {
		p.mu.Unlock()
		return
	}

	p.out.mu.Lock()
	if !drain {
		for _, m := range p.out.queue {
			m.Close()
		}
		for _, m := range p.out.chain {
			m.Close()
		}
		p.out.queue = nil
		p.out.chain = nil
	}
	p.out.terminating = true
	p.out.mu.Unlock()

	switch p.phase {
	case termActive:
		p.phase = termWaitingAck
	case termDelimiterReceived:
		p.phase = termTerminated
	}
	peer := p.peer
	p.mu.Unlock()

	if peer != nil {
		peer.onPeerTerm()
	}
}

func (p *Pipe) onPeerTerm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.phase {
	case termActive:
		p.phase = termDelimiterReceived
	case termWaitingAck:
		p.phase = termTerminated
	}
}

// Terminated reports whether both ends have completed the termination
// handshake.
func (p *Pipe) Terminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase == termTerminated
}

// Stats returns the raw flow-control counters, chiefly for tests.
func (p *Pipe) Stats() (msgsWritten, msgsRead, peersMsgsRead uint64) {
	p.out.mu.Lock()
	msgsWritten = p.out.msgsWritten
	peersMsgsRead = p.out.peersMsgsRead
	p.out.mu.Unlock()
	p.in.mu.Lock()
	msgsRead = p.in.msgsRead
	p.in.mu.Unlock()
	return
}
