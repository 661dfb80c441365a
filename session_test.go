// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

import (
	"context"
	"net"
	"testing"
	"time"
)

func waitForMessage(t *testing.T, p *Pipe, timeout time.Duration) *Message {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if msg, ok := p.Read(); ok {
			return msg
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for a message")
	return nil
}

func TestSessionNullMechanismEndToEnd(t *testing.T) {
	clientApp, clientEngine := NewPipePair(0, 0)
	serverApp, serverEngine := NewPipePair(0, 0)

	connClient, connServer := net.Pipe()

	sessClient := NewSession(connClient, clientEngine, NewNullMechanism(false), false, 0, nil)
	sessServer := NewSession(connServer, serverEngine, NewNullMechanism(true), true, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientErrCh := make(chan error, 1)
	serverErrCh := make(chan error, 1)
	go func() { clientErrCh <- sessClient.Run(ctx) }()
	go func() { serverErrCh <- sessServer.Run(ctx) }()

	clientApp.Write(newTestMsg("ping"))
	got := waitForMessage(t, serverApp, 2*time.Second)
	if string(got.Data()) != "ping" {
		t.Fatalf("got %q want %q", got.Data(), "ping")
	}

	serverApp.Write(newTestMsg("pong"))
	got2 := waitForMessage(t, clientApp, 2*time.Second)
	if string(got2.Data()) != "pong" {
		t.Fatalf("got %q want %q", got2.Data(), "pong")
	}

	cancel()
	<-clientErrCh
	<-serverErrCh
}

func TestSessionCurveMechanismEndToEnd(t *testing.T) {
	serverKeys, err := GenerateCurveKeyPair()
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}
	clientMech, err := NewCurveClient(serverKeys.Public)
	if err != nil {
		t.Fatalf("new curve client: %v", err)
	}
	serverMech, err := NewCurveServer(serverKeys)
	if err != nil {
		t.Fatalf("new curve server: %v", err)
	}

	clientApp, clientEngine := NewPipePair(0, 0)
	serverApp, serverEngine := NewPipePair(0, 0)

	connClient, connServer := net.Pipe()

	sessClient := NewSession(connClient, clientEngine, clientMech, false, 0, nil)
	sessServer := NewSession(connServer, serverEngine, serverMech, true, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientErrCh := make(chan error, 1)
	serverErrCh := make(chan error, 1)
	go func() { clientErrCh <- sessClient.Run(ctx) }()
	go func() { serverErrCh <- sessServer.Run(ctx) }()

	clientApp.Write(newTestMsg("secret"))
	got := waitForMessage(t, serverApp, 2*time.Second)
	if string(got.Data()) != "secret" {
		t.Fatalf("got %q want %q", got.Data(), "secret")
	}

	cancel()
	<-clientErrCh
	<-serverErrCh
}
