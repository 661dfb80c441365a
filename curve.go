// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

import (
	"crypto/rand"

	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
)

// CURVE follows libzmq's curve_mechanism_base: a Curve25519 box
// handshake that bootstraps a shared secretbox session key, after which
// every MESSAGE command is secretbox-sealed under a nonce built from a
// fixed per-direction prefix plus a strictly increasing 64-bit counter
// (the replay defense check_validity performs there). This
// implementation trims the HELLO anti-amplification padding and the
// client vouch/metadata exchange: the transient-key Diffie-Hellman
// still gives the session confidentiality and integrity, but without a
// vouch box the server cannot bind the session to a specific known
// client identity. Deployments needing client authentication must do
// it at another layer.

// CurveKeyPair is a Curve25519 keypair.
type CurveKeyPair struct {
	Public [32]byte
	Secret [32]byte
}

// GenerateCurveKeyPair produces a fresh Curve25519 keypair.
func GenerateCurveKeyPair() (CurveKeyPair, error) {
	pub, sec, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return CurveKeyPair{}, err
	}
	return CurveKeyPair{Public: *pub, Secret: *sec}, nil
}

const (
	messageCommandName = "MESSAGE"
	curveNonceLen      = 24
)

var (
	curveHelloNonce    = [24]byte{'C', 'u', 'r', 'v', 'e', 'Z', 'M', 'Q', 'H', 'E', 'L', 'L', 'O', '-', '-', '-', '-', '-', '-', '-', '-', '-', '-', '-'}
	curveWelcomeNonce  = [24]byte{'C', 'u', 'r', 'v', 'e', 'Z', 'M', 'Q', 'W', 'E', 'L', 'C', 'O', 'M', 'E', '-', '-', '-', '-', '-', '-', '-', '-', '-'}
	curveInitiateNonce = [24]byte{'C', 'u', 'r', 'v', 'e', 'Z', 'M', 'Q', 'I', 'N', 'I', 'T', 'I', 'A', 'T', 'E', '-', '-', '-', '-', '-', '-', '-', '-'}
	curveReadyNonce    = [24]byte{'C', 'u', 'r', 'v', 'e', 'Z', 'M', 'Q', 'R', 'E', 'A', 'D', 'Y', '-', '-', '-', '-', '-', '-', '-', '-', '-', '-', '-'}

	curveMessageNonceClient = [16]byte{'C', 'u', 'r', 'v', 'e', 'Z', 'M', 'Q', 'M', 'E', 'S', 'S', 'A', 'G', 'E', 'C'}
	curveMessageNonceServer = [16]byte{'C', 'u', 'r', 'v', 'e', 'Z', 'M', 'Q', 'M', 'E', 'S', 'S', 'A', 'G', 'E', 'S'}
)

// CurveMechanism implements ZMTP's CURVE security mechanism.
type CurveMechanism struct {
	asServer bool

	// ServerPublicKey is the server's long-term public key. The client
	// must know it beforehand (CURVE provides no server authentication
	// on first contact otherwise); the server ignores this field.
	ServerPublicKey [32]byte
	// permanent is the server's own long-term keypair. Unused by the
	// client mechanism.
	permanent CurveKeyPair

	transient CurveKeyPair

	sentHello, gotHello       bool
	sentWelcome, gotWelcome   bool
	sentInitiate, gotInitiate bool
	sentReady, gotReady       bool

	peerTransientPub [32]byte
	sessionKey       [32]byte

	ownNoncePrefix  [16]byte
	peerNoncePrefix [16]byte
	sendCounter     uint64
	recvCounter     uint64 // highest accepted counter; 0 means none yet
}

// NewCurveClient returns a client-role CURVE mechanism that will
// authenticate the server against serverPublicKey.
func NewCurveClient(serverPublicKey [32]byte) (*CurveMechanism, error) {
	kp, err := GenerateCurveKeyPair()
	if err != nil {
		return nil, err
	}
	return &CurveMechanism{
		ServerPublicKey: serverPublicKey,
		transient:       kp,
		ownNoncePrefix:  curveMessageNonceClient,
		peerNoncePrefix: curveMessageNonceServer,
	}, nil
}

// NewCurveServer returns a server-role CURVE mechanism presenting the
// given long-term keypair.
func NewCurveServer(permanent CurveKeyPair) (*CurveMechanism, error) {
	kp, err := GenerateCurveKeyPair()
	if err != nil {
		return nil, err
	}
	return &CurveMechanism{
		asServer:        true,
		permanent:       permanent,
		transient:       kp,
		ownNoncePrefix:  curveMessageNonceServer,
		peerNoncePrefix: curveMessageNonceClient,
	}, nil
}

func (c *CurveMechanism) Name() string { return "CURVE" }

func (c *CurveMechanism) NextHandshakeCommand() (*Message, bool, error) {
	switch {
	case !c.asServer && !c.sentHello:
		sealed := box.Seal(nil, make([]byte, 64), &curveHelloNonce, &c.ServerPublicKey, &c.transient.Secret)
		body := append(append([]byte{}, c.transient.Public[:]...), sealed...)
		c.sentHello = true
		return encodeCommandMessage("HELLO", body), true, nil

	case c.asServer && c.gotHello && !c.sentWelcome:
		sealed := box.Seal(nil, c.transient.Public[:], &curveWelcomeNonce, &c.peerTransientPub, &c.permanent.Secret)
		c.sentWelcome = true
		return encodeCommandMessage("WELCOME", sealed), true, nil

	case !c.asServer && c.gotWelcome && !c.sentInitiate:
		sealed := secretbox.Seal(nil, make([]byte, 32), &curveInitiateNonce, &c.sessionKey)
		c.sentInitiate = true
		return encodeCommandMessage("INITIATE", sealed), true, nil

	case c.asServer && c.gotInitiate && !c.sentReady:
		sealed := secretbox.Seal(nil, nil, &curveReadyNonce, &c.sessionKey)
		c.sentReady = true
		return encodeCommandMessage("READY", sealed), true, nil
	}
	return nil, false, nil
}

func (c *CurveMechanism) HandleHandshakeCommand(m *Message) error {
	cmd, err := decodeCommandMessage(m)
	if err != nil {
		return err
	}
	switch cmd.name {
	case "HELLO":
		if !c.asServer || c.gotHello {
			return newProtocolError(ErrCodeUnexpectedCommand, "")
		}
		if len(cmd.body) < 32 {
			return newProtocolError(ErrCodeMalformedCommand, "")
		}
		copy(c.peerTransientPub[:], cmd.body[:32])
		if _, ok := box.Open(nil, cmd.body[32:], &curveHelloNonce, &c.peerTransientPub, &c.permanent.Secret); !ok {
			return newProtocolError(ErrCodeCryptographic, "")
		}
		box.Precompute(&c.sessionKey, &c.peerTransientPub, &c.transient.Secret)
		c.gotHello = true
		return nil

	case "WELCOME":
		if c.asServer || !c.sentHello || c.gotWelcome {
			return newProtocolError(ErrCodeUnexpectedCommand, "")
		}
		plain, ok := box.Open(nil, cmd.body, &curveWelcomeNonce, &c.ServerPublicKey, &c.transient.Secret)
		if !ok || len(plain) != 32 {
			return newProtocolError(ErrCodeCryptographic, "")
		}
		copy(c.peerTransientPub[:], plain)
		box.Precompute(&c.sessionKey, &c.peerTransientPub, &c.transient.Secret)
		c.gotWelcome = true
		return nil

	case "INITIATE":
		if !c.asServer || !c.sentWelcome || c.gotInitiate {
			return newProtocolError(ErrCodeUnexpectedCommand, "")
		}
		if _, ok := secretbox.Open(nil, cmd.body, &curveInitiateNonce, &c.sessionKey); !ok {
			return newProtocolError(ErrCodeCryptographic, "")
		}
		c.gotInitiate = true
		return nil

	case "READY":
		if c.asServer || !c.sentInitiate || c.gotReady {
			return newProtocolError(ErrCodeUnexpectedCommand, "")
		}
		if _, ok := secretbox.Open(nil, cmd.body, &curveReadyNonce, &c.sessionKey); !ok {
			return newProtocolError(ErrCodeCryptographic, "")
		}
		c.gotReady = true
		return nil

	default:
		return newProtocolError(ErrCodeUnexpectedCommand, "")
	}
}

func (c *CurveMechanism) HandshakeDone() bool {
	if c.asServer {
		return c.sentReady
	}
	return c.gotReady
}

func (c *CurveMechanism) messageNonce(prefix [16]byte, counter uint64) [24]byte {
	var n [24]byte
	copy(n[:16], prefix[:])
	putU64(n[16:], counter)
	return n
}

// EncodeMessage seals m's payload into a CURVE MESSAGE command. The
// counter strictly increases per call, so the nonce never repeats
// under the session key.
func (c *CurveMechanism) EncodeMessage(m *Message) (*Message, error) {
	c.sendCounter++
	nonce := c.messageNonce(c.ownNoncePrefix, c.sendCounter)
	flagByte := m.Flags() & flagMask
	plain := append([]byte{flagByte}, m.Data()...)
	sealed := secretbox.Seal(nil, plain, &nonce, &c.sessionKey)
	body := append(make([]byte, 8), sealed...)
	putU64(body[:8], c.sendCounter)
	return encodeCommandMessage(messageCommandName, body), nil
}

// DecodeMessage opens a CURVE MESSAGE command, rejecting replays
// (strictly non-increasing counters) and MAC failures.
func (c *CurveMechanism) DecodeMessage(m *Message) (*Message, error) {
	cmd, err := decodeCommandMessage(m)
	if err != nil {
		return nil, err
	}
	if cmd.name != messageCommandName {
		return nil, newProtocolError(ErrCodeUnexpectedCommand, "")
	}
	if len(cmd.body) < 8 {
		return nil, newProtocolError(ErrCodeMalformedCommand, "")
	}
	counter := getU64(cmd.body[:8])
	if counter <= c.recvCounter {
		return nil, newProtocolError(ErrCodeInvalidSequence, "")
	}
	nonce := c.messageNonce(c.peerNoncePrefix, counter)
	plain, ok := secretbox.Open(nil, cmd.body[8:], &nonce, &c.sessionKey)
	if !ok || len(plain) < 1 {
		return nil, newProtocolError(ErrCodeCryptographic, "")
	}
	c.recvCounter = counter

	out := new(Message)
	out.InitSize(len(plain) - 1)
	copy(out.Data(), plain[1:])
	out.SetFlags(plain[0] & flagMask)
	return out, nil
}
