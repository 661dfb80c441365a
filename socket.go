// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

import (
	"context"
	"net"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.zmtp.dev/zmtp/internal/array"
)

// pollInterval is how often Accept-style loops that have no blocking
// primitive to wait on (inproc Listener.Accept, pipe draining) retry.
const pollInterval = time.Millisecond

// SocketType identifies a socket's messaging pattern.
type SocketType int

const (
	Push SocketType = iota
	Pull
	Pub
	Sub
)

func (t SocketType) String() string {
	switch t {
	case Push:
		return "PUSH"
	case Pull:
		return "PULL"
	case Pub:
		return "PUB"
	case Sub:
		return "SUB"
	default:
		return "UNKNOWN"
	}
}

// Socket is the base implementation shared by every messaging pattern:
// pipe bookkeeping, bind/connect transport setup, and option storage.
// Pattern-specific Send/Recv behavior (push_pull.go, pub_sub.go) is
// plain functions over *Socket rather than a second type hierarchy,
// since Go composition has no use for an abstract base class here.
type Socket struct {
	typ  SocketType
	opts Options
	ctx  *Context

	mu           sync.Mutex
	pipes        array.Array[*Pipe]
	nextOut      int
	nextIn       int
	subs         *subTrie // SUB only: prefixes this socket wants
	lastEndpoint string
	closed       bool

	listeners []net.Listener
	inprocLns []*Listener
	sessCtx   context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func newSocket(ctx *Context, typ SocketType, opts Options) *Socket {
	s := &Socket{typ: typ, opts: opts, ctx: ctx}
	if typ == Sub {
		s.subs = newSubTrie()
	}
	s.sessCtx, s.cancel = context.WithCancel(context.Background())
	return s
}

// LastEndpoint returns the endpoint last bound, resolving a wildcard
// TCP port to the one actually chosen (ZMQ_LAST_ENDPOINT's behavior).
func (s *Socket) LastEndpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEndpoint
}

func splitScheme(endpoint string) (scheme, rest string, ok bool) {
	i := strings.Index(endpoint, "://")
	if i < 0 {
		return "", "", false
	}
	return endpoint[:i], endpoint[i+3:], true
}

// Bind starts accepting connections (TCP) or registers a rendezvous
// point (inproc) at endpoint.
func (s *Socket) Bind(endpoint string) error {
	scheme, rest, ok := splitScheme(endpoint)
	if !ok {
		return ErrInvalidArgument
	}
	switch scheme {
	case "inproc":
		return s.bindInproc(rest)
	case "tcp":
		return s.bindTCP(rest)
	default:
		return ErrNotSupported
	}
}

func (s *Socket) bindInproc(name string) error {
	l, err := InprocBind(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.inprocLns = append(s.inprocLns, l)
	s.lastEndpoint = "inproc://" + name
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptInprocLoop(l)
	}()
	return nil
}

func (s *Socket) acceptInprocLoop(l *Listener) {
	for {
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}
		p, ok := l.Accept()
		if !ok {
			time.Sleep(pollInterval)
			continue
		}
		p.raiseHWMs(s.opts.RcvHWM, s.opts.SndHWM)
		s.addPipe(p)
	}
}

func (s *Socket) bindTCP(hostport string) error {
	// "tcp://host:*" binds an ephemeral port, retrievable afterward via
	// LastEndpoint.
	if host, port, err := net.SplitHostPort(hostport); err == nil && port == "*" {
		hostport = net.JoinHostPort(host, "0")
	}
	ln, err := net.Listen("tcp", hostport)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, ln)
	s.lastEndpoint = "tcp://" + ln.Addr().String()
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptTCPLoop(ln)
	}()
	return nil
}

func (s *Socket) acceptTCPLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		appPipe, enginePipe := NewPipePair(s.opts.SndHWM, s.opts.RcvHWM)
		s.addPipe(appPipe)
		mech := s.newMechanism(true)
		sess := NewSession(conn, enginePipe, mech, true, 0, s.opts.Logger)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			_ = sess.Run(s.sessCtx)
		}()
	}
}

// Connect opens a connection (TCP) or rendezvous (inproc) to endpoint.
func (s *Socket) Connect(endpoint string) error {
	scheme, rest, ok := splitScheme(endpoint)
	if !ok {
		return ErrInvalidArgument
	}
	switch scheme {
	case "inproc":
		p, err := InprocConnect(rest, s.opts.SndHWM, s.opts.RcvHWM)
		if err != nil {
			return err
		}
		s.addPipe(p)
		return nil
	case "tcp":
		return s.connectTCP(rest)
	default:
		return ErrNotSupported
	}
}

func (s *Socket) connectTCP(hostport string) error {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return ErrInvalidArgument
	}
	if _, err := strconv.Atoi(port); err != nil {
		return ErrInvalidArgument
	}
	conn, err := net.Dial("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return ErrHostUnreachable
	}
	appPipe, enginePipe := NewPipePair(s.opts.SndHWM, s.opts.RcvHWM)
	s.addPipe(appPipe)
	mech := s.newMechanism(false)
	sess := NewSession(conn, enginePipe, mech, false, 0, s.opts.Logger)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = sess.Run(s.sessCtx)
	}()
	return nil
}

func (s *Socket) newMechanism(asServer bool) Mechanism {
	if s.opts.NewMechanism != nil {
		return s.opts.NewMechanism(asServer)
	}
	return NewNullMechanism(asServer)
}

func (s *Socket) addPipe(p *Pipe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipes.PushBack(p)
	if s.typ == Sub {
		for _, prefix := range s.subs.all() {
			sendSubscribe(p, prefix, true)
		}
	}
}

// Close releases all pipes and listeners. It is not safe to call Send/
// Recv concurrently with Close.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pipes := s.pipes.Items()
	s.pipes.Clear()
	listeners := s.listeners
	inprocLns := s.inprocLns
	s.mu.Unlock()

	for _, ln := range listeners {
		ln.Close()
	}
	for _, l := range inprocLns {
		l.Close()
	}
	drain := s.opts.Linger != 0
	for _, p := range pipes {
		p.Terminate(drain)
	}
	s.cancel()
	if s.ctx != nil {
		s.ctx.untrack(s)
	}
	return nil
}

// Send queues msg for delivery according to the socket's pattern
// (PUSH load-balances, PUB broadcasts). SUB and PULL sockets cannot
// send. Blocking behavior on a full pipe follows Options.RetryDelay.
func (s *Socket) Send(msg *Message) error {
	switch s.typ {
	case Push:
		return s.retrySend(func() error { return s.sendPush(msg) })
	case Pub:
		return s.retrySend(func() error { return s.sendPub(msg) })
	default:
		msg.Close()
		return ErrNotSupported
	}
}

func (s *Socket) retrySend(try func() error) error {
	for {
		err := try()
		if err != ErrAgain {
			return err
		}
		switch {
		case s.opts.RetryDelay < 0:
			return ErrAgain
		case s.opts.RetryDelay == 0:
			runtime.Gosched()
		default:
			time.Sleep(s.opts.RetryDelay)
		}
	}
}

// Recv dequeues the next message according to the socket's pattern
// (PULL/SUB fair-queue their pipes). PUSH and PUB sockets cannot
// receive. Blocking behavior when nothing is available follows
// Options.RetryDelay.
func (s *Socket) Recv() (*Message, error) {
	for {
		var msg *Message
		var ok bool
		switch s.typ {
		case Pull:
			msg, ok = s.recvPull()
		case Sub:
			msg, ok = s.recvSub()
		default:
			return nil, ErrNotSupported
		}
		if ok {
			return msg, nil
		}
		switch {
		case s.opts.RetryDelay < 0:
			return nil, ErrAgain
		case s.opts.RetryDelay == 0:
			runtime.Gosched()
		default:
			time.Sleep(s.opts.RetryDelay)
		}
	}
}
