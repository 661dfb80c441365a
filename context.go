// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

import "sync"

// Context is the factory and lifetime owner for a family of Sockets,
// mirroring libzmq's zmq_ctx_t. A Context has no state of its own
// beyond bookkeeping which Sockets it created, so that Terminate can
// tear all of them down together; the actual transport and pipe work
// lives entirely on Socket.
type Context struct {
	mu         sync.Mutex
	sockets    map[*Socket]struct{}
	terminated bool
}

// NewContext returns a ready-to-use Context. Unlike libzmq there is no
// global default context; callers always construct one explicitly.
func NewContext() *Context {
	return &Context{sockets: make(map[*Socket]struct{})}
}

// NewSocket creates a Socket of the given type owned by ctx, applying
// defaultOptions and then the supplied Option funcs in order. It
// returns ErrTerm if ctx has already been terminated.
func (ctx *Context) NewSocket(typ SocketType, opts ...Option) (*Socket, error) {
	ctx.mu.Lock()
	if ctx.terminated {
		ctx.mu.Unlock()
		return nil, ErrTerm
	}
	ctx.mu.Unlock()

	o := defaultOptions
	for _, apply := range opts {
		apply(&o)
	}

	s := newSocket(ctx, typ, o)

	ctx.mu.Lock()
	if ctx.terminated {
		ctx.mu.Unlock()
		s.Close()
		return nil, ErrTerm
	}
	ctx.sockets[s] = struct{}{}
	ctx.mu.Unlock()

	return s, nil
}

// untrack removes a closed Socket from ctx's bookkeeping. Called from
// Socket.Close so a long-lived Context does not accumulate references to
// sockets the caller has already discarded.
func (ctx *Context) untrack(s *Socket) {
	ctx.mu.Lock()
	delete(ctx.sockets, s)
	ctx.mu.Unlock()
}

// Terminate closes every Socket still owned by ctx and marks it so that
// further NewSocket calls fail with ErrTerm. It is safe to call more than
// once; subsequent calls are no-ops.
func (ctx *Context) Terminate() error {
	ctx.mu.Lock()
	if ctx.terminated {
		ctx.mu.Unlock()
		return nil
	}
	ctx.terminated = true
	sockets := make([]*Socket, 0, len(ctx.sockets))
	for s := range ctx.sockets {
		sockets = append(sockets, s)
	}
	ctx.sockets = nil
	ctx.mu.Unlock()

	for _, s := range sockets {
		s.Close()
	}
	return nil
}
