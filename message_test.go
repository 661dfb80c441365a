// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

import (
	"bytes"
	"testing"
)

func TestMessageInitSizeAndData(t *testing.T) {
	var m Message
	m.InitSize(5)
	if m.Size() != 5 {
		t.Fatalf("Size()=%d want 5", m.Size())
	}
	copy(m.Data(), "hello")
	if string(m.Data()) != "hello" {
		t.Fatalf("Data()=%q want hello", m.Data())
	}
}

func TestMessageFlags(t *testing.T) {
	var m Message
	m.Init()
	m.SetFlags(More)
	if m.Flags()&More == 0 {
		t.Fatalf("More flag not set")
	}
	m.SetFlags(Command)
	m.ResetFlags(More)
	if m.Flags()&More != 0 {
		t.Fatalf("More flag still set after reset")
	}
	if m.Flags()&Command == 0 {
		t.Fatalf("Command flag lost")
	}
}

func TestMessageMoveEmptiesSource(t *testing.T) {
	var src, dst Message
	src.InitSize(3)
	copy(src.Data(), "abc")
	src.SetFlags(More)

	src.Move(&dst)

	if dst.Size() != 3 || string(dst.Data()) != "abc" {
		t.Fatalf("dst did not receive payload: %q", dst.Data())
	}
	if dst.Flags()&More == 0 {
		t.Fatalf("dst lost flags across move")
	}
	if src.Size() != 0 {
		t.Fatalf("src not emptied by move: size=%d", src.Size())
	}
	// src is reusable without a further Init per Move's contract.
	src.InitSize(1)
	if src.Size() != 1 {
		t.Fatalf("src not reusable after move")
	}
}

func TestMessageCopySharesExternalBuffer(t *testing.T) {
	freed := false
	data := []byte("external")
	var m Message
	m.InitData(data, func(b []byte, hint any) { freed = true }, nil)

	var dst Message
	m.Copy(&dst)

	m.Close()
	if freed {
		t.Fatalf("buffer freed while dst still holds a reference")
	}
	if !bytes.Equal(dst.Data(), []byte("external")) {
		t.Fatalf("dst lost data after source closed: %q", dst.Data())
	}
	dst.Close()
	if !freed {
		t.Fatalf("buffer not freed after last reference closed")
	}
}

func TestMessageShrink(t *testing.T) {
	var m Message
	m.InitSize(10)
	m.Shrink(4)
	if m.Size() != 4 {
		t.Fatalf("Size()=%d want 4", m.Size())
	}
	// Shrink never grows.
	m.Shrink(100)
	if m.Size() != 4 {
		t.Fatalf("Shrink grew the message: size=%d", m.Size())
	}
}

func TestMessageInitDataCallsFreeOnce(t *testing.T) {
	calls := 0
	var m, dst Message
	m.InitData([]byte("x"), func(b []byte, hint any) { calls++ }, nil)
	m.Copy(&dst)
	m.Close()
	dst.Close()
	if calls != 1 {
		t.Fatalf("free called %d times, want 1", calls)
	}
}
