// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

import "sync"

// inprocEndpoint is one named inproc rendezvous point. Pipe creation is
// eager: Connect always builds a Pipe pair immediately and queues the
// bind side in waiting, regardless of whether a Listener is currently
// bound. A Bind's Listener drains waiting via Accept, so a connecter
// that arrives before any bind simply has its bind-side pipe wait in
// the same queue a late-arriving one would use.
//
// Unbinding must not discard bind-side pipes that were queued but
// never Accept-ed. Listener.Close clears the bound flag and removes the
// registry entry only when nothing is waiting; un-accepted pipes stay
// in waiting so the next Bind of the same name
// inherits them, preserving whatever the connecter already wrote.
// libzmq can drop such a pipe's backlog if the bind is torn down
// before its accept path drains it (zeromq/libzmq#792); this
// implementation deliberately does not.
type inprocEndpoint struct {
	mu      sync.Mutex
	bound   bool
	waiting []*Pipe
}

var (
	inprocRegistryMu sync.Mutex
	inprocRegistry   = map[string]*inprocEndpoint{}
)

func inprocEndpointFor(name string) *inprocEndpoint {
	inprocRegistryMu.Lock()
	defer inprocRegistryMu.Unlock()
	ep := inprocRegistry[name]
	if ep == nil {
		ep = &inprocEndpoint{}
		inprocRegistry[name] = ep
	}
	return ep
}

// Listener represents one bind of an inproc name. Only one Listener may
// be bound to a given name at a time.
type Listener struct {
	name   string
	ep     *inprocEndpoint
	closed bool
}

// InprocBind registers name as bound and returns a Listener whose
// Accept drains connecters. It returns ErrInvalidArgument if name is
// already bound.
func InprocBind(name string) (*Listener, error) {
	ep := inprocEndpointFor(name)
	ep.mu.Lock()
	defer ep.mu.Unlock()
	if ep.bound {
		return nil, ErrInvalidArgument
	}
	ep.bound = true
	return &Listener{name: name, ep: ep}, nil
}

// Accept returns the next bind-side Pipe queued for this Listener, or
// false if none is currently waiting.
func (l *Listener) Accept() (*Pipe, bool) {
	l.ep.mu.Lock()
	defer l.ep.mu.Unlock()
	if len(l.ep.waiting) == 0 {
		return nil, false
	}
	p := l.ep.waiting[0]
	l.ep.waiting = l.ep.waiting[1:]
	return p, true
}

// Close unbinds name. Pipes not yet Accept-ed remain queued for a
// future Bind of the same name; see inprocEndpoint's doc comment.
func (l *Listener) Close() {
	if l.closed {
		return
	}
	l.closed = true
	l.ep.mu.Lock()
	l.ep.bound = false
	empty := len(l.ep.waiting) == 0
	l.ep.mu.Unlock()
	if empty {
		inprocRegistryMu.Lock()
		if cur := inprocRegistry[l.name]; cur == l.ep && !cur.bound {
			delete(inprocRegistry, l.name)
		}
		inprocRegistryMu.Unlock()
	}
}

// InprocConnect creates a Pipe pair for name and queues the bind side
// for whichever Listener binds name next (immediately, if one already
// has). hwmOut/hwmIn bound the connecter's outbound/inbound directions.
func InprocConnect(name string, hwmOut, hwmIn int) (*Pipe, error) {
	ep := inprocEndpointFor(name)
	connectSide, bindSide := NewPipePair(hwmOut, hwmIn)
	ep.mu.Lock()
	ep.waiting = append(ep.waiting, bindSide)
	ep.mu.Unlock()
	return connectSide, nil
}
