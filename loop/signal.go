// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package loop

// Signal is a typed broadcaster for in-process events. Emit invokes direct
// listeners synchronously on the caller's thread; listeners attached with
// ConnectQueued are wrapped in a queuer that captures the argument by value
// and enqueues the call onto the target loop instead. Delivery through a
// queuer is asynchronous and in-order per (signal, loop) pair; if the
// target loop has exited the call is discarded without failure.
//
// Signals are not self-synchronizing: Connect and Emit are expected from
// the owning component's thread, matching the single-threaded model.
type Signal[T any] struct {
	listeners []func(T)
}

// Connect attaches a listener invoked synchronously on the emitter's thread.
func (s *Signal[T]) Connect(fn func(T)) {
	s.listeners = append(s.listeners, fn)
}

// ConnectQueued attaches a listener delivered through the target loop's
// call queue.
func (s *Signal[T]) ConnectQueued(target *Loop, fn func(T)) {
	s.listeners = append(s.listeners, func(arg T) {
		target.Queue(func() {
			fn(arg)
		})
	})
}

// Emit invokes every listener with the given argument.
func (s *Signal[T]) Emit(arg T) {
	for _, fn := range s.listeners {
		fn(arg)
	}
}
