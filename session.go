// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

import (
	"bufio"
	"context"
	"net"
	"time"

	"go.uber.org/zap"
)

// Session is a ZMTP engine: it owns one net.Conn, runs the greeting and
// mechanism handshakes over it, and afterward shuttles Messages between
// the wire and a local Pipe. Where libzmq multiplexes many engines on a
// single-threaded reactor, a Session runs one goroutine per direction:
// one drains the socket into the pipe, the other drains the pipe onto
// the socket, and both exit together on the first error from either
// side or on ctx cancellation. Goroutine-per-direction does the same
// job the poll loop does without hand-rolled readiness bookkeeping.
type Session struct {
	conn     net.Conn
	pipe     *Pipe
	mech     Mechanism
	asServer bool
	logger   *zap.Logger

	enc *Encoder
	dec *Decoder
	br  *bufio.Reader

	pendingIn []byte

	pollInterval time.Duration
}

// NewSession wires conn to pipe through mech. maxMessageSize bounds
// Decoder allocation (0 = unbounded).
func NewSession(conn net.Conn, pipe *Pipe, mech Mechanism, asServer bool, maxMessageSize int, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		conn:         conn,
		pipe:         pipe,
		mech:         mech,
		asServer:     asServer,
		logger:       logger,
		enc:          new(Encoder),
		dec:          NewDecoder(maxMessageSize),
		br:           bufio.NewReader(conn),
		pollInterval: time.Millisecond,
	}
}

// Run performs the greeting and mechanism handshakes, then shuttles
// traffic until ctx is canceled or either direction errors. It always
// closes conn and terminates pipe before returning.
func (s *Session) Run(ctx context.Context) error {
	defer s.conn.Close()
	defer s.pipe.Terminate(false)

	hsErr := make(chan error, 1)
	go func() { hsErr <- s.handshake() }()
	select {
	case err := <-hsErr:
		if err != nil {
			s.logger.Debug("handshake failed", zap.String("mechanism", s.mech.Name()), zap.Error(err))
			return err
		}
	case <-ctx.Done():
		s.conn.Close()
		<-hsErr
		return ctx.Err()
	}

	errCh := make(chan error, 2)
	readerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() { errCh <- s.readLoop(readerCtx) }()
	go func() { errCh <- s.writeLoop(readerCtx) }()

	select {
	case err := <-errCh:
		cancel()
		s.conn.Close()
		<-errCh
		return err
	case <-ctx.Done():
		s.conn.Close()
		<-errCh
		<-errCh
		return ctx.Err()
	}
}

func (s *Session) handshake() error {
	if err := s.handshakeGreeting(); err != nil {
		return err
	}
	return s.handshakeMechanism()
}

// handshakeGreeting exchanges the 64-byte greeting. Both peers send
// before either reads, so the write runs concurrently with the read;
// a strictly write-then-read ordering deadlocks on transports with no
// intermediate buffering.
func (s *Session) handshakeGreeting() error {
	g := NewGreeting(s.mech.Name(), s.asServer)
	wire := g.Encode()
	writeErr := make(chan error, 1)
	go func() {
		_, err := s.conn.Write(wire[:])
		writeErr <- err
	}()
	var peer [greetingLen]byte
	if _, err := readFull(s.br, peer[:]); err != nil {
		return err
	}
	if err := <-writeErr; err != nil {
		return err
	}
	got, err := ParseGreeting(peer[:])
	if err != nil {
		return err
	}
	if got.Mechanism != s.mech.Name() {
		return newProtocolError(ErrCodeUnexpectedCommand, "")
	}
	return nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// handshakeMechanism alternates sending the mechanism's next command
// and handling the peer's, until the mechanism reports completion.
// Outgoing commands are written concurrently with the wait for the
// peer's, since some mechanisms (NULL's symmetric READY exchange) have
// both sides send before either reads.
func (s *Session) handshakeMechanism() error {
	for !s.mech.HandshakeDone() {
		msg, ok, err := s.mech.NextHandshakeCommand()
		if err != nil {
			return err
		}
		var writeErr chan error
		if ok {
			writeErr = make(chan error, 1)
			go func(m *Message) { writeErr <- s.writeFrame(m) }(msg)
		}
		if s.mech.HandshakeDone() {
			if writeErr != nil {
				if err := <-writeErr; err != nil {
					return err
				}
			}
			break
		}
		frame, err := s.readFrame()
		if err != nil {
			return err
		}
		if writeErr != nil {
			if err := <-writeErr; err != nil {
				return err
			}
		}
		if err := s.mech.HandleHandshakeCommand(frame); err != nil {
			return err
		}
	}
	return nil
}

// readLoop moves frames from the wire into the local pipe.
func (s *Session) readLoop(ctx context.Context) error {
	for {
		frame, err := s.readFrame()
		if err != nil {
			return err
		}

		app := frame
		if frame.Flags()&Command != 0 {
			decoded, err := s.mech.DecodeMessage(frame)
			if err != nil {
				return err
			}
			if decoded != frame {
				frame.Close()
			}
			app = decoded
		}

		for !s.pipe.CheckWrite() {
			if s.pipe.Terminated() {
				return ErrTerm
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.pollInterval):
			}
		}
		s.pipe.Write(app)
	}
}

// writeLoop moves frames from the local pipe onto the wire.
func (s *Session) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		app, ok := s.pipe.Read()
		if !ok {
			if s.pipe.Terminated() {
				return ErrTerm
			}
			time.Sleep(s.pollInterval)
			continue
		}

		wire, err := s.mech.EncodeMessage(app)
		if err != nil {
			return err
		}
		if err := s.writeFrame(wire); err != nil {
			return err
		}
		if wire != app {
			app.Close()
		}
	}
}

func (s *Session) readFrame() (*Message, error) {
	for {
		if len(s.pendingIn) > 0 {
			consumed, msg, err := s.dec.Decode(s.pendingIn)
			s.pendingIn = s.pendingIn[consumed:]
			if err != nil {
				return nil, err
			}
			if msg != nil {
				return msg, nil
			}
			if consumed == 0 {
				s.pendingIn = nil
			}
			continue
		}
		buf := make([]byte, 4096)
		n, err := s.br.Read(buf)
		if n > 0 {
			s.pendingIn = buf[:n]
		}
		if err != nil && n == 0 {
			return nil, err
		}
	}
}

func (s *Session) writeFrame(msg *Message) error {
	s.enc.LoadMsg(msg)
	buf := make([]byte, 4096)
	for s.enc.InProgress() {
		chunk, n := s.enc.Encode(buf)
		if n == 0 {
			continue
		}
		if _, err := s.conn.Write(chunk[:n]); err != nil {
			return err
		}
	}
	return nil
}
