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

// OneToMany distributes every inbound message to a set of named receiver
// channels. The client library uses it to fan incoming notification
// packets out to whoever subscribed.
type OneToMany[T any] struct {
	inbound   chan T
	outbound  map[string]chan T // named so receivers can be detached again
	lock      sync.Mutex
	closeChan chan struct{}
	closed    bool
}

func NewOneToMany[T any]() OneToMany[T] {
	return OneToMany[T]{
		inbound:   make(chan T),
		outbound:  make(map[string]chan T),
		closeChan: make(chan struct{}),
	}
}

// GetSender is the channel distributed messages are pushed into.
func (o *OneToMany[T]) GetSender() chan T {
	return o.inbound
}

// MakeReceiver registers a new named receiver channel. Close it through
// CloseReceiver, never directly.
func (o *OneToMany[T]) MakeReceiver(name string) (chan T, error) {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.closed {
		return nil, errors.New("multiplexer has been closed")
	}
	if _, ok := o.outbound[name]; ok {
		return nil, errors.New("receiver with that name already exists")
	}
	rec := make(chan T, 16)
	o.outbound[name] = rec
	return rec, nil
}

// CloseReceiver detaches and closes the named receiver channel.
func (o *OneToMany[T]) CloseReceiver(name string) {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.closed {
		return
	}
	if val, ok := o.outbound[name]; ok {
		close(val)
		delete(o.outbound, name)
	}
}

// StartPlexer runs the distribution loop until CloseSender. Intended as
// a goroutine (`go plexer.StartPlexer()`).
func (o *OneToMany[T]) StartPlexer() {
	for {
		select {
		case msg := <-o.inbound:
			o.lock.Lock()
			for _, c := range o.outbound {
				// A receiver that stopped draining loses messages
				// rather than stalling every other receiver.
				select {
				case c <- msg:
				default:
				}
			}
			o.lock.Unlock()
		case <-o.closeChan:
			o.lock.Lock()
			for _, c := range o.outbound {
				close(c)
			}
			o.outbound = map[string]chan T{}
			o.closed = true
			o.lock.Unlock()
			return
		}
	}
}

// CloseSender stops the distribution loop and closes every receiver.
func (o *OneToMany[T]) CloseSender() {
	o.closeChan <- struct{}{}
}
