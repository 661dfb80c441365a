// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

import "testing"

func newTestMsg(body string) *Message {
	m := new(Message)
	m.InitSize(len(body))
	copy(m.Data(), body)
	return m
}

func TestPipeHWMBlocksThenCreditRefreshesOnRead(t *testing.T) {
	a, b := NewPipePair(4, 0)

	for i := 0; i < 4; i++ {
		if !a.Write(newTestMsg("x")) {
			t.Fatalf("write %d: expected commit", i)
		}
	}
	if a.CheckWrite() {
		t.Fatalf("expected HWM to be full after 4 writes with hwm=4")
	}
	if a.Write(newTestMsg("overflow")) {
		t.Fatalf("write past HWM should not commit")
	}

	// lwm = (4+1)/2 = 2: reading 2 messages must restore credit.
	for i := 0; i < 2; i++ {
		if _, ok := b.Read(); !ok {
			t.Fatalf("read %d: expected a message", i)
		}
	}
	if !a.CheckWrite() {
		t.Fatalf("expected credit to be restored after draining to the LWM")
	}
}

func TestPipeUnboundedHWMNeverBlocks(t *testing.T) {
	a, _ := NewPipePair(0, 0)
	for i := 0; i < 10000; i++ {
		if !a.Write(newTestMsg("x")) {
			t.Fatalf("write %d: unbounded pipe should never reject", i)
		}
	}
}

func TestPipeMultipartAtomicCommit(t *testing.T) {
	a, b := NewPipePair(0, 0)

	m1 := newTestMsg("part1")
	m1.SetFlags(More)
	if a.Write(m1) {
		t.Fatalf("first frame of a chain must not report committed")
	}
	if b.CheckRead() {
		t.Fatalf("partial chain must not be visible to the reader")
	}

	m2 := newTestMsg("part2")
	if !a.Write(m2) {
		t.Fatalf("final frame must report committed")
	}

	got1, ok := b.Read()
	if !ok || string(got1.Data()) != "part1" || got1.Flags()&More == 0 {
		t.Fatalf("unexpected first frame: %+v ok=%v", got1, ok)
	}
	got2, ok := b.Read()
	if !ok || string(got2.Data()) != "part2" || got2.Flags()&More != 0 {
		t.Fatalf("unexpected second frame: %+v ok=%v", got2, ok)
	}
}

func TestPipeRollbackDropsUncommittedChain(t *testing.T) {
	a, b := NewPipePair(0, 0)
	m1 := newTestMsg("part1")
	m1.SetFlags(More)
	a.Write(m1)
	a.Rollback()

	m2 := newTestMsg("whole")
	if !a.Write(m2) {
		t.Fatalf("expected commit after rollback")
	}
	got, ok := b.Read()
	if !ok || string(got.Data()) != "whole" {
		t.Fatalf("rollback leaked the discarded chain: %+v ok=%v", got, ok)
	}
	if b.CheckRead() {
		t.Fatalf("no further messages expected")
	}
}

func TestPipeWriteDuringTerminationIsDropped(t *testing.T) {
	a, _ := NewPipePair(0, 0)
	a.Terminate(false)
	if a.Write(newTestMsg("x")) {
		t.Fatalf("write after Terminate must not commit")
	}
}

func TestPipeTerminationHandshakeCompletesOnBothEnds(t *testing.T) {
	a, b := NewPipePair(0, 0)
	a.Terminate(false)
	if a.Terminated() {
		t.Fatalf("a should be waiting for b's ack")
	}
	if b.Terminated() {
		t.Fatalf("b has not yet terminated")
	}
	b.Terminate(false)
	if !a.Terminated() || !b.Terminated() {
		t.Fatalf("both ends should be terminated after the handshake completes")
	}
}

func TestPipeTerminateDrainPreservesQueuedMessages(t *testing.T) {
	a, b := NewPipePair(0, 0)
	a.Write(newTestMsg("queued"))
	a.Terminate(true)
	got, ok := b.Read()
	if !ok || string(got.Data()) != "queued" {
		t.Fatalf("drain=true must preserve already-queued messages: %+v ok=%v", got, ok)
	}
}

func TestPipeTerminateNoDrainDropsQueuedMessages(t *testing.T) {
	a, b := NewPipePair(0, 0)
	a.Write(newTestMsg("queued"))
	a.Terminate(false)
	if b.CheckRead() {
		t.Fatalf("drain=false must discard already-queued messages")
	}
}
