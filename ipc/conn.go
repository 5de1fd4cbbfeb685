// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ipc

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/dogelands/sparkle/loop"
	"github.com/dogelands/sparkle/packet"
)

// maxSendBuffer bounds the unsent bytes queued on one connection. A peer
// that stops reading gets closed rather than buffered without limit.
const maxSendBuffer = 1 << 20

// Conn is one accepted stream peer. All methods run on the loop thread.
type Conn struct {
	server *Server
	fd     int

	recv  []byte
	files []*os.File

	send   [][]byte
	queued int
	closed bool
}

func newConn(server *Server, fd int) *Conn {
	return &Conn{server: server, fd: fd}
}

func (c *Conn) Fd() int {
	return c.fd
}

// Send enqueues one packet frame for asynchronous writing. The frame's
// file descriptor, if any, rides along as ancillary data on its first
// byte. Errors close the connection and are otherwise swallowed.
func (c *Conn) Send(p *packet.Packet) {
	if c.closed {
		return
	}
	frame := p.Frame()
	if p.File != nil {
		// Descriptor-bearing packets go out immediately so the
		// ancillary data stays attached to the right frame.
		oob := unix.UnixRights(int(p.File.Fd()))
		if err := c.flush(); err != nil {
			c.fail(err)
			return
		}
		if len(c.send) > 0 {
			c.fail(errors.New("send queue congested with fd packet pending"))
			return
		}
		if _, err := unix.SendmsgN(c.fd, frame, oob, nil, 0); err != nil {
			c.fail(errors.Wrap(err, "sendmsg"))
		}
		return
	}

	c.send = append(c.send, frame)
	c.queued += len(frame)
	if c.queued > maxSendBuffer {
		c.fail(errors.Errorf("send buffer exceeded %d bytes", maxSendBuffer))
		return
	}
	if err := c.flush(); err != nil {
		c.fail(err)
	}
}

// flush writes queued frames until done or the socket would block, and
// keeps the epoll mask in sync with whether unsent data remains.
func (c *Conn) flush() error {
	for len(c.send) > 0 {
		n, err := unix.Write(c.fd, c.send[0])
		if err == unix.EAGAIN {
			return c.server.loop.Modify(c, loop.EventIn|loop.EventOut)
		}
		if err != nil {
			return errors.Wrap(err, "write")
		}
		c.queued -= n
		if n < len(c.send[0]) {
			c.send[0] = c.send[0][n:]
			continue
		}
		c.send = c.send[1:]
	}
	return c.server.loop.Modify(c, loop.EventIn)
}

// Dispatch handles socket readiness for this connection.
func (c *Conn) Dispatch(events uint32) {
	if c.closed {
		return
	}
	if events&(loop.EventErr|loop.EventHup) != 0 {
		c.Close()
		return
	}
	if events&loop.EventOut != 0 {
		if err := c.flush(); err != nil {
			c.fail(err)
			return
		}
	}
	if events&loop.EventIn != 0 {
		c.readable()
	}
}

func (c *Conn) readable() {
	buf := make([]byte, 64*1024)
	oob := make([]byte, 256)

	for {
		n, oobn, _, _, err := unix.Recvmsg(c.fd, buf, oob, 0)
		if err == unix.EAGAIN {
			break
		}
		if err != nil || n == 0 {
			// EOF or transport error: terminal and silent.
			c.Close()
			return
		}
		if oobn > 0 {
			c.acceptFiles(oob[:oobn])
		}
		c.recv = append(c.recv, buf[:n]...)
		if !c.deliverFrames() {
			return
		}
	}
}

// acceptFiles queues descriptors received as ancillary data until a frame
// that wants one is decoded.
func (c *Conn) acceptFiles(oob []byte) {
	scms, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		logrus.WithError(err).Debugln("Dropping unparsable control message")
		return
	}
	for _, scm := range scms {
		fds, err := unix.ParseUnixRights(&scm)
		if err != nil {
			continue
		}
		for _, fd := range fds {
			c.files = append(c.files, os.NewFile(uintptr(fd), "sparkle-surface"))
		}
	}
}

// deliverFrames peels complete frames off the accumulator and emits them.
// Returns false if the connection died while parsing.
func (c *Conn) deliverFrames() bool {
	for {
		p, n, err := packet.Deframe(c.recv)
		if err != nil {
			// Framing is unrecoverable, there is no way to resync.
			c.fail(err)
			return false
		}
		if p == nil {
			return true
		}
		c.recv = c.recv[n:]
		if wantsFile(p.Op) && len(c.files) > 0 {
			p.File = c.files[0]
			c.files = c.files[1:]
		}
		c.server.SignalPacket.Emit(PacketEvent{Conn: c, Packet: p})
		if c.closed {
			return false
		}
	}
}

func wantsFile(op uint32) bool {
	return op == packet.OpRegisterSurfaceAshmem
}

func (c *Conn) fail(err error) {
	logrus.WithError(err).WithField("fd", c.fd).Debugln("Closing connection")
	c.Close()
}

// Close tears the connection down and forgets it on the server. Idempotent.
func (c *Conn) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.server.forget(c)
	for _, f := range c.files {
		f.Close()
	}
	c.files = nil
	unix.Close(c.fd)
}
