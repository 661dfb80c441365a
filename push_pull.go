// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

// sendPush implements PUSH's load-balancing send: round-robin over
// pipes that currently have write credit, skipping ones
// that don't. Starting each call from where the previous one left off
// keeps the distribution fair rather than always favoring pipe 0.
func (s *Socket) sendPush(msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneTerminated()
	n := s.pipes.Len()
	if n == 0 {
		msg.Close()
		return ErrHostUnreachable
	}
	for i := 0; i < n; i++ {
		idx := (s.nextOut + i) % n
		p := s.pipes.At(idx)
		if p.CheckWrite() {
			p.Write(msg)
			s.nextOut = (idx + 1) % n
			return nil
		}
	}
	return ErrAgain
}

// pruneTerminated drops pipes whose termination handshake has completed
// and that have no remaining messages to deliver (e.g. the peer
// disconnected after sending its last batch with Terminate(drain=true)),
// using array.Array's O(1) swap-with-last erase rather than rebuilding a
// slice. Walking backward means EraseAt's index-shuffle never skips an
// item that hasn't been checked yet. Callers hold s.mu.
func (s *Socket) pruneTerminated() {
	for i := s.pipes.Len() - 1; i >= 0; i-- {
		p := s.pipes.At(i)
		if p.Terminated() && !p.CheckRead() {
			s.pipes.EraseAt(i)
		}
	}
}

// recvPull implements PULL's fair-queued receive: round robin over
// pipes, taking the first one with a message ready.
func (s *Socket) recvPull() (*Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneTerminated()
	n := s.pipes.Len()
	if n == 0 {
		return nil, false
	}
	for i := 0; i < n; i++ {
		idx := (s.nextIn + i) % n
		p := s.pipes.At(idx)
		if msg, ok := p.Read(); ok {
			s.nextIn = (idx + 1) % n
			return msg, true
		}
	}
	return nil, false
}
