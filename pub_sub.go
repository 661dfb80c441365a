// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

import (
	"sync"
	"time"
)

const (
	subscribeByte   = 0x01
	unsubscribeByte = 0x00
)

// trieNode is one node of a byte-keyed prefix trie, the SUB socket's
// subscription filter. terminal counts how many active
// Subscribe calls ended exactly here, so overlapping subscriptions
// (e.g. "a" and "ab") and repeated identical ones compose correctly
// under Unsubscribe.
type trieNode struct {
	children map[byte]*trieNode
	terminal int
}

// subTrie is a SUB socket's subscription set.
type subTrie struct {
	mu   sync.Mutex
	root *trieNode
}

func newSubTrie() *subTrie {
	return &subTrie{root: &trieNode{children: map[byte]*trieNode{}}}
}

func (t *subTrie) add(prefix string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.root
	for i := 0; i < len(prefix); i++ {
		b := prefix[i]
		next := n.children[b]
		if next == nil {
			next = &trieNode{children: map[byte]*trieNode{}}
			n.children[b] = next
		}
		n = next
	}
	n.terminal++
}

func (t *subTrie) remove(prefix string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.root
	for i := 0; i < len(prefix); i++ {
		next := n.children[prefix[i]]
		if next == nil {
			return
		}
		n = next
	}
	if n.terminal > 0 {
		n.terminal--
	}
}

// matches reports whether any subscribed prefix is a prefix of data.
func (t *subTrie) matches(data []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.root
	if n.terminal > 0 {
		return true
	}
	for _, b := range data {
		next := n.children[b]
		if next == nil {
			return false
		}
		n = next
		if n.terminal > 0 {
			return true
		}
	}
	return false
}

// all returns every distinct subscribed prefix, used to replay the
// current subscription set onto a newly connected pipe.
func (t *subTrie) all() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	var walk func(n *trieNode, prefix []byte)
	walk = func(n *trieNode, prefix []byte) {
		if n.terminal > 0 {
			out = append(out, string(prefix))
		}
		for b, child := range n.children {
			walk(child, append(prefix, b))
		}
	}
	walk(t.root, nil)
	return out
}

func subscribeFrame(prefix string, subscribe bool) *Message {
	m := new(Message)
	m.InitSize(1 + len(prefix))
	data := m.Data()
	if subscribe {
		data[0] = subscribeByte
	} else {
		data[0] = unsubscribeByte
	}
	copy(data[1:], prefix)
	return m
}

func sendSubscribe(p *Pipe, prefix string, subscribe bool) {
	for !p.CheckWrite() {
		if p.Terminated() {
			return
		}
		time.Sleep(pollInterval)
	}
	p.Write(subscribeFrame(prefix, subscribe))
}

// sendPub implements PUB's broadcast send: every currently-writable
// pipe gets a copy. If XPubNoDrop is set, a pipe at its HWM blocks the
// whole Send instead of being silently skipped.
func (s *Socket) sendPub(msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneTerminated()
	pipes := s.pipes.Items()
	for i, p := range pipes {
		last := i == len(pipes)-1
		var out *Message
		if last {
			out = msg
		} else {
			out = new(Message)
			msg.Copy(out)
		}
		if p.CheckWrite() {
			p.Write(out)
			continue
		}
		if s.opts.XPubNoDrop {
			for !p.CheckWrite() && !p.Terminated() {
				time.Sleep(pollInterval)
			}
			p.Write(out)
			continue
		}
		out.Close()
	}
	if len(pipes) == 0 {
		msg.Close()
	}
	return nil
}

// Subscribe adds prefix to this SUB socket's filter and propagates a
// SUBSCRIBE control frame to every currently connected pipe.
func (s *Socket) Subscribe(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs.add(prefix)
	for _, p := range s.pipes.Items() {
		sendSubscribe(p, prefix, true)
	}
}

// Unsubscribe removes prefix from this SUB socket's filter and
// propagates an UNSUBSCRIBE control frame to every connected pipe.
func (s *Socket) Unsubscribe(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs.remove(prefix)
	for _, p := range s.pipes.Items() {
		sendSubscribe(p, prefix, false)
	}
}

// recvSub implements SUB's filtered receive: pipes are drained round
// robin like PULL, but a message whose payload matches no subscribed
// prefix is dropped rather than returned.
func (s *Socket) recvSub() (*Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneTerminated()
	n := s.pipes.Len()
	for i := 0; i < n; i++ {
		idx := (s.nextIn + i) % n
		p := s.pipes.At(idx)
		for {
			msg, ok := p.Read()
			if !ok {
				break
			}
			if s.subs.matches(msg.Data()) {
				s.nextIn = (idx + 1) % n
				return msg, true
			}
			msg.Close()
		}
	}
	return nil, false
}
