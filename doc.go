// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package zmtp implements the ZMTP 3.1 wire protocol and a small set of
// ZeroMQ-compatible messaging patterns (PUSH/PULL, PUB/SUB) on top of it.
//
// Layering:
//   - Message (message.go) is the refcounted frame payload everything
//     else moves around.
//   - Greeting, Mechanism (greeting.go, mechanism.go, plain.go, curve.go)
//     implement the ZMTP handshake: NULL, PLAIN, and CURVE security
//     mechanisms.
//   - Pipe (pipe.go) is the in-process, credit-flow-controlled queue pair
//     joining a Socket to a Session; Session (session.go) bridges one
//     Pipe to one net.Conn through a Mechanism.
//   - Socket and Context (socket.go, context.go) are the public API:
//     Context creates Sockets, Socket.Bind/Connect wires up TCP or
//     inproc transports, and Send/Recv apply the pattern-specific
//     behavior in push_pull.go and pub_sub.go.
//
// Non-blocking first: Pipe operations never block, and Session keeps
// its blocking network I/O inside its own goroutines; Socket.Send/Recv
// turn that into optional cooperative blocking via Options.RetryDelay.
package zmtp
