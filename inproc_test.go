// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

import "testing"

func TestInprocConnectBeforeBind(t *testing.T) {
	name := "inproc-connect-before-bind"
	conn, err := InprocConnect(name, 0, 0)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	conn.Write(newTestMsg("hello"))

	l, err := InprocBind(name)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer l.Close()

	p, ok := l.Accept()
	if !ok {
		t.Fatalf("expected a queued connecter")
	}
	got, ok := p.Read()
	if !ok || string(got.Data()) != "hello" {
		t.Fatalf("unexpected message: %+v ok=%v", got, ok)
	}
}

func TestInprocBindBeforeConnect(t *testing.T) {
	name := "inproc-bind-before-connect"
	l, err := InprocBind(name)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer l.Close()

	conn, err := InprocConnect(name, 0, 0)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	conn.Write(newTestMsg("hi"))

	p, ok := l.Accept()
	if !ok {
		t.Fatalf("expected a queued connecter")
	}
	got, ok := p.Read()
	if !ok || string(got.Data()) != "hi" {
		t.Fatalf("unexpected message: %+v ok=%v", got, ok)
	}
}

func TestInprocDoubleBindFails(t *testing.T) {
	name := "inproc-double-bind"
	l1, err := InprocBind(name)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer l1.Close()

	if _, err := InprocBind(name); err != ErrInvalidArgument {
		t.Fatalf("err=%v want ErrInvalidArgument", err)
	}
}

// TestInprocBindCloseBeforeAcceptPreservesBacklog covers the resolved
// open question: a connecter's queued message must survive the bound
// Listener being closed before it ever Accepts, and be delivered to the
// next Listener that binds the same name.
func TestInprocBindCloseBeforeAcceptPreservesBacklog(t *testing.T) {
	name := "inproc-bind-close-before-accept"

	l1, err := InprocBind(name)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	conn, err := InprocConnect(name, 0, 0)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	conn.Write(newTestMsg("never lost"))

	l1.Close() // unbind before ever Accept-ing

	l2, err := InprocBind(name)
	if err != nil {
		t.Fatalf("rebind: %v", err)
	}
	defer l2.Close()

	p, ok := l2.Accept()
	if !ok {
		t.Fatalf("expected the orphaned connecter to be inherited by the new bind")
	}
	got, ok := p.Read()
	if !ok || string(got.Data()) != "never lost" {
		t.Fatalf("backlog was dropped across bind-close-before-accept: %+v ok=%v", got, ok)
	}
}
