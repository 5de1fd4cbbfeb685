// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package loop

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// callQueue carries closures from arbitrary threads onto the loop thread.
// It is itself an event source: pushes write to an eventfd, the loop wakes
// up and drains the pending list in FIFO order.
type callQueue struct {
	loop *Loop
	efd  int

	mu      sync.Mutex
	pending []func()
}

func newCallQueue(l *Loop) (*callQueue, error) {
	efd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, errors.Wrap(err, "eventfd")
	}
	return &callQueue{loop: l, efd: efd}, nil
}

func (q *callQueue) Fd() int {
	return q.efd
}

func (q *callQueue) push(fn func()) {
	if q.loop.exiting.Load() {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
	q.wake()
}

func (q *callQueue) wake() {
	var one [8]byte
	binary.LittleEndian.PutUint64(one[:], 1)
	unix.Write(q.efd, one[:])
}

func (q *callQueue) Dispatch(events uint32) {
	var buf [8]byte
	unix.Read(q.efd, buf[:])

	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, fn := range batch {
		if q.loop.exiting.Load() {
			return
		}
		fn()
	}
}

func (q *callQueue) close() {
	unix.Close(q.efd)
}
