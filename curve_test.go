// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

import "testing"

func newCurvePair(t *testing.T) (client, server *CurveMechanism) {
	t.Helper()
	serverKeys, err := GenerateCurveKeyPair()
	if err != nil {
		t.Fatalf("generate server keys: %v", err)
	}
	server, err = NewCurveServer(serverKeys)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	client, err = NewCurveClient(serverKeys.Public)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, server
}

func TestCurveHandshakeCompletes(t *testing.T) {
	client, server := newCurvePair(t)
	driveHandshake(t, client, server)
	if client.sessionKey != server.sessionKey {
		t.Fatalf("client and server derived different session keys")
	}
}

func TestCurveMessageRoundTrip(t *testing.T) {
	client, server := newCurvePair(t)
	driveHandshake(t, client, server)

	var app Message
	app.InitSize(len("hello over curve"))
	copy(app.Data(), "hello over curve")

	wire, err := client.EncodeMessage(&app)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := server.DecodeMessage(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(got.Data()) != "hello over curve" {
		t.Fatalf("payload mismatch: %q", got.Data())
	}
}

func TestCurveReplayRejected(t *testing.T) {
	client, server := newCurvePair(t)
	driveHandshake(t, client, server)

	var app Message
	app.InitSize(5)
	copy(app.Data(), "first")
	wire, err := client.EncodeMessage(&app)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := server.DecodeMessage(wire); err != nil {
		t.Fatalf("first decode: %v", err)
	}
	if _, err := server.DecodeMessage(wire); err == nil {
		t.Fatalf("expected replay of the same nonce counter to be rejected")
	}
}

func TestCurveTamperedCiphertextRejected(t *testing.T) {
	client, server := newCurvePair(t)
	driveHandshake(t, client, server)

	var app Message
	app.InitSize(5)
	copy(app.Data(), "tampr")
	wire, err := client.EncodeMessage(&app)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	data := wire.Data()
	data[len(data)-1] ^= 0xff

	if _, err := server.DecodeMessage(wire); err == nil {
		t.Fatalf("expected tampered ciphertext to be rejected")
	}
}

func TestCurveHelloFromWrongServerKeyFails(t *testing.T) {
	_, server := newCurvePair(t)
	wrongKeys, err := GenerateCurveKeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	client, err := NewCurveClient(wrongKeys.Public) // does not match server's actual key
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	msg, ok, err := client.NextHandshakeCommand()
	if err != nil || !ok {
		t.Fatalf("client hello: ok=%v err=%v", ok, err)
	}
	if err := server.HandleHandshakeCommand(msg); err == nil {
		t.Fatalf("expected server to reject a HELLO sealed for the wrong server key")
	}
}
