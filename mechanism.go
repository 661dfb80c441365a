// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

// command is a parsed ZMTP command frame: a short ASCII name (at most
// 255 bytes, length-prefixed per the wire format real ZMTP uses for
// command names) followed by a mechanism-specific body.
type command struct {
	name string
	body []byte
}

// encodeCommandMessage builds a Command-flagged Message carrying name
// and body in the wire layout mechanisms exchange during handshake.
func encodeCommandMessage(name string, body []byte) *Message {
	m := new(Message)
	m.InitSize(1 + len(name) + len(body))
	data := m.Data()
	data[0] = byte(len(name))
	copy(data[1:], name)
	copy(data[1+len(name):], body)
	m.SetFlags(Command)
	return m
}

func decodeCommandMessage(m *Message) (command, error) {
	data := m.Data()
	if len(data) < 1 {
		return command{}, newProtocolError(ErrCodeMalformedCommand, "")
	}
	n := int(data[0])
	if len(data) < 1+n {
		return command{}, newProtocolError(ErrCodeMalformedCommand, "")
	}
	return command{name: string(data[1 : 1+n]), body: data[1+n:]}, nil
}

// Mechanism drives a ZMTP security handshake and, once complete,
// transforms application traffic frames. Implementations: NULL (no-op),
// PLAIN (cleartext credentials), CURVE (see curve.go).
//
// Callers loop: call NextHandshakeCommand, send whatever it returns (if
// ok), feed any command received from the peer to
// HandleHandshakeCommand, and repeat until HandshakeDone. A non-nil
// error from either method is fatal to the connection.
type Mechanism interface {
	Name() string
	NextHandshakeCommand() (msg *Message, ok bool, err error)
	HandleHandshakeCommand(msg *Message) error
	HandshakeDone() bool
	EncodeMessage(msg *Message) (*Message, error)
	DecodeMessage(msg *Message) (*Message, error)
}

// NullMechanism implements ZMTP's NULL security mechanism: a bare
// READY exchange and an identity transform on traffic.
type NullMechanism struct {
	sentReady bool
	gotReady  bool
}

// NewNullMechanism returns a NULL mechanism. asServer is accepted for
// symmetry with the other mechanisms' constructors but does not affect
// NULL's behavior.
func NewNullMechanism(asServer bool) *NullMechanism { return &NullMechanism{} }

func (n *NullMechanism) Name() string { return "NULL" }

func (n *NullMechanism) NextHandshakeCommand() (*Message, bool, error) {
	if n.sentReady {
		return nil, false, nil
	}
	n.sentReady = true
	return encodeCommandMessage("READY", nil), true, nil
}

func (n *NullMechanism) HandleHandshakeCommand(m *Message) error {
	cmd, err := decodeCommandMessage(m)
	if err != nil {
		return err
	}
	if cmd.name != "READY" {
		return newProtocolError(ErrCodeUnexpectedCommand, "")
	}
	n.gotReady = true
	return nil
}

func (n *NullMechanism) HandshakeDone() bool { return n.sentReady && n.gotReady }

func (n *NullMechanism) EncodeMessage(m *Message) (*Message, error) { return m, nil }
func (n *NullMechanism) DecodeMessage(m *Message) (*Message, error) { return m, nil }
