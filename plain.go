// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

// Authenticator validates PLAIN credentials. It is the caller's hook
// for wiring a real credential store; PlainMechanism never persists
// credentials itself.
type Authenticator func(username, password string) bool

// PlainMechanism implements ZMTP's PLAIN security mechanism: client
// sends HELLO with cleartext credentials, server replies WELCOME (or
// fails the connection), then both sides exchange READY.
type PlainMechanism struct {
	asServer bool

	// Client fields.
	Username, Password string

	// Server fields.
	Authenticate Authenticator

	sentHello, gotHello     bool
	sentWelcome, gotWelcome bool
	sentReady, gotReady     bool
}

// NewPlainClient returns a client-role PLAIN mechanism that will offer
// the given credentials.
func NewPlainClient(username, password string) *PlainMechanism {
	return &PlainMechanism{Username: username, Password: password}
}

// NewPlainServer returns a server-role PLAIN mechanism that validates
// incoming credentials with authenticate.
func NewPlainServer(authenticate Authenticator) *PlainMechanism {
	return &PlainMechanism{asServer: true, Authenticate: authenticate}
}

func (p *PlainMechanism) Name() string { return "PLAIN" }

func encodePlainHello(username, password string) []byte {
	body := make([]byte, 0, 2+len(username)+len(password))
	body = append(body, byte(len(username)))
	body = append(body, username...)
	body = append(body, byte(len(password)))
	body = append(body, password...)
	return body
}

func decodePlainHello(body []byte) (username, password string, err error) {
	if len(body) < 1 {
		return "", "", newProtocolError(ErrCodeMalformedCommand, "")
	}
	ulen := int(body[0])
	if len(body) < 1+ulen+1 {
		return "", "", newProtocolError(ErrCodeMalformedCommand, "")
	}
	username = string(body[1 : 1+ulen])
	rest := body[1+ulen:]
	plen := int(rest[0])
	if len(rest) < 1+plen {
		return "", "", newProtocolError(ErrCodeMalformedCommand, "")
	}
	password = string(rest[1 : 1+plen])
	return username, password, nil
}

// NextHandshakeCommand emits, in order: the client's HELLO; the
// server's WELCOME once it has validated an incoming HELLO; either
// side's READY once it has seen the other side's WELCOME/READY it was
// waiting on.
func (p *PlainMechanism) NextHandshakeCommand() (*Message, bool, error) {
	if !p.asServer && !p.sentHello {
		p.sentHello = true
		return encodeCommandMessage("HELLO", encodePlainHello(p.Username, p.Password)), true, nil
	}
	if p.asServer && p.gotHello && !p.sentWelcome {
		p.sentWelcome = true
		return encodeCommandMessage("WELCOME", nil), true, nil
	}
	if !p.asServer && p.gotWelcome && !p.sentReady {
		p.sentReady = true
		return encodeCommandMessage("READY", nil), true, nil
	}
	if p.asServer && p.gotReady && !p.sentReady {
		p.sentReady = true
		return encodeCommandMessage("READY", nil), true, nil
	}
	return nil, false, nil
}

func (p *PlainMechanism) HandleHandshakeCommand(m *Message) error {
	cmd, err := decodeCommandMessage(m)
	if err != nil {
		return err
	}
	switch cmd.name {
	case "HELLO":
		if !p.asServer || p.gotHello {
			return newProtocolError(ErrCodeUnexpectedCommand, "")
		}
		username, password, err := decodePlainHello(cmd.body)
		if err != nil {
			return err
		}
		if p.Authenticate == nil || !p.Authenticate(username, password) {
			return newProtocolError(ErrCodeCryptographic, "")
		}
		p.gotHello = true
		return nil
	case "WELCOME":
		if p.asServer || p.gotWelcome {
			return newProtocolError(ErrCodeUnexpectedCommand, "")
		}
		p.gotWelcome = true
		return nil
	case "READY":
		if p.gotReady {
			return newProtocolError(ErrCodeUnexpectedCommand, "")
		}
		p.gotReady = true
		return nil
	default:
		return newProtocolError(ErrCodeUnexpectedCommand, "")
	}
}

func (p *PlainMechanism) HandshakeDone() bool { return p.sentReady && p.gotReady }

func (p *PlainMechanism) EncodeMessage(m *Message) (*Message, error) { return m, nil }
func (p *PlainMechanism) DecodeMessage(m *Message) (*Message, error) { return m, nil }
