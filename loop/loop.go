// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package loop implements the single-threaded reactor every other component
// runs on: an epoll wrapper that dispatches registered file-descriptor
// sources, plus a thread-safe call queue for handing work to the loop
// thread from outside.
package loop

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Source is anything that owns a file descriptor and wants readiness
// callbacks. Dispatch always runs on the loop thread.
type Source interface {
	Fd() int
	Dispatch(events uint32)
}

// Readiness masks for Register, re-exported so callers don't need to
// import x/sys/unix themselves.
const (
	EventIn  = uint32(unix.EPOLLIN)
	EventOut = uint32(unix.EPOLLOUT)
	EventErr = uint32(unix.EPOLLERR)
	EventHup = uint32(unix.EPOLLHUP)
)

type Loop struct {
	epfd int

	mu      sync.Mutex
	sources map[int]Source

	calls *callQueue

	exiting atomic.Bool
	done    chan struct{}
}

// New creates an event loop with its wakeup queue already registered.
func New() (*Loop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "epoll_create1")
	}

	l := &Loop{
		epfd:    epfd,
		sources: make(map[int]Source),
	}

	l.calls, err = newCallQueue(l)
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}
	if err := l.Register(l.calls, EventIn); err != nil {
		l.calls.close()
		unix.Close(epfd)
		return nil, err
	}

	return l, nil
}

// Register adds a source to the reactor for the given readiness mask.
func (l *Loop) Register(s Source, events uint32) error {
	ev := unix.EpollEvent{Events: events, Fd: int32(s.Fd())}
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, s.Fd(), &ev); err != nil {
		return errors.Wrapf(err, "epoll add fd %d", s.Fd())
	}
	l.mu.Lock()
	l.sources[s.Fd()] = s
	l.mu.Unlock()
	return nil
}

// Modify changes the readiness mask of an already registered source.
func (l *Loop) Modify(s Source, events uint32) error {
	ev := unix.EpollEvent{Events: events, Fd: int32(s.Fd())}
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_MOD, s.Fd(), &ev); err != nil {
		return errors.Wrapf(err, "epoll mod fd %d", s.Fd())
	}
	return nil
}

func (l *Loop) Unregister(s Source) error {
	l.mu.Lock()
	delete(l.sources, s.Fd())
	l.mu.Unlock()
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, s.Fd(), nil); err != nil {
		return errors.Wrapf(err, "epoll del fd %d", s.Fd())
	}
	return nil
}

// Queue hands a closure to the loop thread. Safe from any thread, FIFO.
// Calls queued after Exit are discarded.
func (l *Loop) Queue(fn func()) {
	l.calls.push(fn)
}

func (l *Loop) source(fd int) Source {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sources[fd]
}

// Run blocks dispatching events until Exit is called.
func (l *Loop) Run() {
	events := make([]unix.EpollEvent, 16)
	for !l.exiting.Load() {
		n, err := unix.EpollWait(l.epfd, events, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			logrus.WithError(err).Errorln("epoll_wait failed, leaving event loop")
			break
		}
		for i := 0; i < n; i++ {
			if l.exiting.Load() {
				break
			}
			src := l.source(int(events[i].Fd))
			if src == nil {
				// Unregistered by an earlier handler this iteration.
				continue
			}
			src.Dispatch(events[i].Events)
		}
	}
	if l.done != nil {
		close(l.done)
	}
}

// RunThread starts Run on its own OS goroutine.
func (l *Loop) RunThread() {
	l.done = make(chan struct{})
	go l.Run()
}

// Exit asks Run to return after the current iteration. Idempotent.
func (l *Loop) Exit() {
	if l.exiting.Swap(true) {
		return
	}
	l.calls.wake()
}

// Wait blocks until a loop started with RunThread has returned.
func (l *Loop) Wait() {
	if l.done != nil {
		<-l.done
	}
}

// Close releases the reactor descriptors. The loop must not be running.
func (l *Loop) Close() {
	l.calls.close()
	unix.Close(l.epfd)
}
