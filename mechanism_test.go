// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

import "testing"

// driveHandshake alternates polling each side for an outgoing command
// and feeding it to the other, until both report done or neither has
// anything left to send (a stuck handshake, which fails the test).
func driveHandshake(t *testing.T, a, b Mechanism) {
	t.Helper()
	for i := 0; i < 16 && !(a.HandshakeDone() && b.HandshakeDone()); i++ {
		progressed := false
		if msg, ok, err := a.NextHandshakeCommand(); err != nil {
			t.Fatalf("a.NextHandshakeCommand: %v", err)
		} else if ok {
			progressed = true
			if err := b.HandleHandshakeCommand(msg); err != nil {
				t.Fatalf("b.HandleHandshakeCommand: %v", err)
			}
		}
		if msg, ok, err := b.NextHandshakeCommand(); err != nil {
			t.Fatalf("b.NextHandshakeCommand: %v", err)
		} else if ok {
			progressed = true
			if err := a.HandleHandshakeCommand(msg); err != nil {
				t.Fatalf("a.HandleHandshakeCommand: %v", err)
			}
		}
		if !progressed && !(a.HandshakeDone() && b.HandshakeDone()) {
			t.Fatalf("handshake stalled: a.done=%v b.done=%v", a.HandshakeDone(), b.HandshakeDone())
		}
	}
	if !a.HandshakeDone() || !b.HandshakeDone() {
		t.Fatalf("handshake did not complete: a.done=%v b.done=%v", a.HandshakeDone(), b.HandshakeDone())
	}
}

func TestNullMechanismHandshake(t *testing.T) {
	client := NewNullMechanism(false)
	server := NewNullMechanism(true)
	driveHandshake(t, client, server)
}

func TestPlainMechanismHandshakeSuccess(t *testing.T) {
	client := NewPlainClient("alice", "hunter2")
	server := NewPlainServer(func(u, p string) bool { return u == "alice" && p == "hunter2" })
	driveHandshake(t, client, server)
}

func TestPlainMechanismHandshakeBadCredentials(t *testing.T) {
	client := NewPlainClient("alice", "wrong")
	server := NewPlainServer(func(u, p string) bool { return u == "alice" && p == "hunter2" })

	msg, ok, err := client.NextHandshakeCommand()
	if err != nil || !ok {
		t.Fatalf("client hello: ok=%v err=%v", ok, err)
	}
	if err := server.HandleHandshakeCommand(msg); err == nil {
		t.Fatalf("expected authentication failure")
	}
}
