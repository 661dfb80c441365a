// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

import (
	"bytes"
	"testing"
)

func TestEncoderZeroCopyPath(t *testing.T) {
	body := bytes.Repeat([]byte("Z"), outBatchSize*3)
	var msg Message
	msg.InitSize(len(body))
	copy(msg.Data(), body)
	data := msg.Data()

	var e Encoder
	e.LoadMsg(&msg)

	// With no caller buffer (dst == nil) the first Encode fills the
	// internal buffer (9-byte long-frame header plus a payload prefix);
	// from then on the payload remainder exceeds outBatchSize on its
	// own, so Encode must hand back a slice aliasing the message's own
	// backing array rather than copying through e.buf.
	const headerLen = 9
	total := 0
	zeroCopied := false
	for e.InProgress() {
		chunk, n := e.Encode(nil)
		if n == 0 {
			continue
		}
		if total >= headerLen && &chunk[0] == &data[total-headerLen] {
			zeroCopied = true
		}
		total += n
	}
	if total != headerLen+len(body) {
		t.Fatalf("emitted %d bytes want %d", total, headerLen+len(body))
	}
	if !zeroCopied {
		t.Fatalf("no Encode call aliased the payload; zero-copy path never taken")
	}
}

func TestEncoderTotalBytesExactlyOnce(t *testing.T) {
	body := bytes.Repeat([]byte("Q"), outBatchSize*2+37)
	var msg Message
	msg.InitSize(len(body))
	copy(msg.Data(), body)
	msg.SetFlags(More)

	var e Encoder
	e.LoadMsg(&msg)

	var total []byte
	for e.InProgress() {
		chunk, n := e.Encode(nil)
		total = append(total, chunk[:n]...)
	}

	d := NewDecoder(0)
	var got *Message
	consumed := 0
	for consumed < len(total) {
		n, m, err := d.Decode(total[consumed:])
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		consumed += n
		if m != nil {
			got = m
		}
	}
	if consumed != len(total) {
		t.Fatalf("decoder left %d bytes unconsumed", len(total)-consumed)
	}
	if got == nil || !bytes.Equal(got.Data(), body) {
		t.Fatalf("round trip mismatch")
	}
	if got.Flags()&More == 0 {
		t.Fatalf("More flag lost across zero-copy encode")
	}
}

func TestEncoderLoadMsgWhileInProgressPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	var m1, m2 Message
	m1.InitSize(1)
	m2.InitSize(1)
	var e Encoder
	e.LoadMsg(&m1)
	e.LoadMsg(&m2)
}
