// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package multiplexer

import (
	"errors"
	"sync"
)

// ManyToOne funnels messages from any number of goroutines into one
// receiver channel. A raw channel already is that, except that sending
// on a closed channel panics; this wrapper turns the race into an error.
// The client library funnels outbound packets through one of these so
// any goroutine may send while a single writer drains the socket.
type ManyToOne[T any] struct {
	outbound chan T
	lock     sync.Mutex
	closed   bool
}

// NewManyToOne wraps the given channel; all sent messages land there.
func NewManyToOne[T any](receiver chan T) ManyToOne[T] {
	return ManyToOne[T]{
		outbound: receiver,
	}
}

// Send delivers a message unless the plexer has been closed.
func (m *ManyToOne[T]) Send(msg T) error {
	m.lock.Lock()
	if m.closed {
		m.lock.Unlock()
		return errors.New("multiplexer has been closed")
	}
	m.lock.Unlock()
	m.outbound <- msg
	return nil
}

// Close closes the underlying channel. Further sends fail.
func (m *ManyToOne[T]) Close() {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed {
		return
	}
	close(m.outbound)
	m.closed = true
}
