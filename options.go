// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

import (
	"time"

	"go.uber.org/zap"
)

// Options configures a Socket. The zero value is never used directly;
// NewSocket starts from defaultOptions and applies the caller's Option
// funcs over it.
type Options struct {
	SndHWM int
	RcvHWM int

	// Linger selects what Close does with queued outbound messages:
	// zero discards them; any other value leaves them queued for the
	// peer to drain. Close does not block, and no time bound is applied
	// to the drain: the duration itself is not used.
	Linger time.Duration

	// XPubNoDrop makes a PUB socket block (rather than silently drop)
	// when a subscriber's pipe is at its HWM.
	XPubNoDrop bool

	// RetryDelay controls how Socket.Send/Recv handle ErrAgain from the
	// pipe layer when the caller asked for blocking behavior:
	//   - negative: nonblock, return ErrAgain immediately
	//   - zero: yield (runtime.Gosched) and retry
	//   - positive: sleep for the duration and retry
	RetryDelay time.Duration

	Logger *zap.Logger

	// NewMechanism selects the security mechanism a Bind/Connect-created
	// Session uses, given its role. Defaults to NULL.
	NewMechanism func(asServer bool) Mechanism
}

var defaultOptions = Options{
	SndHWM:     1000,
	RcvHWM:     1000,
	Linger:     30 * time.Second,
	XPubNoDrop: false,
	RetryDelay: -1,
	Logger:     zap.NewNop(),
}

// Option mutates an Options in place; see the With* constructors below.
type Option func(*Options)

// WithHWM sets both SndHWM and RcvHWM.
func WithHWM(n int) Option {
	return func(o *Options) {
		o.SndHWM = n
		o.RcvHWM = n
	}
}

// WithSndHWM sets the outbound high water mark.
func WithSndHWM(n int) Option {
	return func(o *Options) { o.SndHWM = n }
}

// WithRcvHWM sets the inbound high water mark.
func WithRcvHWM(n int) Option {
	return func(o *Options) { o.RcvHWM = n }
}

// WithLinger sets Options.Linger: zero makes Close discard queued
// outbound messages, any other value leaves them for the peer to drain.
func WithLinger(d time.Duration) Option {
	return func(o *Options) { o.Linger = d }
}

// WithXPubNoDrop makes a PUB socket block instead of dropping when a
// subscriber pipe is full.
func WithXPubNoDrop(enabled bool) Option {
	return func(o *Options) { o.XPubNoDrop = enabled }
}

// WithRetryDelay sets the retry/wait policy used when a pipe operation
// returns ErrAgain during a blocking Send/Recv.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Options) { o.RetryDelay = d }
}

// WithBlock enables cooperative blocking (yield-and-retry) on ErrAgain.
func WithBlock() Option {
	return func(o *Options) { o.RetryDelay = 0 }
}

// WithNonblock forces non-blocking behavior (return ErrAgain immediately).
func WithNonblock() Option {
	return func(o *Options) { o.RetryDelay = -1 }
}

// WithLogger attaches a structured logger; the default is a no-op one.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithMechanism sets the security mechanism factory Bind/Connect uses
// for transports that need one (TCP; inproc never encrypts).
func WithMechanism(factory func(asServer bool) Mechanism) Option {
	return func(o *Options) { o.NewMechanism = factory }
}
