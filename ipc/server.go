// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package ipc serves the compositor's local stream socket: it accepts
// client connections, reassembles length-prefixed packet frames (with
// SCM_RIGHTS descriptor passing), and fans packets out to the owning
// event loop through signals.
package ipc

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/dogelands/sparkle/loop"
	"github.com/dogelands/sparkle/packet"
)

// PacketEvent pairs a decoded frame with the connection it arrived on.
type PacketEvent struct {
	Conn   *Conn
	Packet *packet.Packet
}

// Server listens on a unix stream socket and owns all live connections.
// Everything after New runs on the loop thread.
type Server struct {
	loop *loop.Loop
	path string
	fd   int

	conns map[int]*Conn

	SignalConnected loop.Signal[*Conn]
	SignalPacket    loop.Signal[PacketEvent]
}

// New unlink-and-binds the socket at path and registers the listener with
// the event loop.
func New(l *loop.Loop, path string) (*Server, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrap(err, "socket")
	}

	os.Remove(path)
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "bind %s", path)
	}
	if err := unix.Listen(fd, 16); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "listen %s", path)
	}

	s := &Server{
		loop:  l,
		path:  path,
		fd:    fd,
		conns: make(map[int]*Conn),
	}
	if err := l.Register(s, loop.EventIn); err != nil {
		unix.Close(fd)
		return nil, err
	}

	logrus.WithField("socket", path).Infoln("Listening for clients")
	return s, nil
}

func (s *Server) Fd() int {
	return s.fd
}

// Path is the socket's filesystem location.
func (s *Server) Path() string {
	return s.path
}

// Dispatch accepts every pending connection.
func (s *Server) Dispatch(events uint32) {
	for {
		fd, _, err := unix.Accept4(s.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err == unix.EAGAIN {
			return
		}
		if err != nil {
			logrus.WithError(err).Errorln("accept failed")
			return
		}

		conn := newConn(s, fd)
		if err := s.loop.Register(conn, loop.EventIn); err != nil {
			logrus.WithError(err).Errorln("registering connection failed")
			unix.Close(fd)
			continue
		}
		s.conns[fd] = conn
		logrus.WithField("fd", fd).Debugln("Client connected")
		s.SignalConnected.Emit(conn)
	}
}

// Broadcast sends a packet to every live connection. A failure on one
// connection closes only that connection.
func (s *Server) Broadcast(p *packet.Packet) {
	for _, conn := range s.conns {
		conn.Send(p)
	}
}

// Connections reports the number of live peers.
func (s *Server) Connections() int {
	return len(s.conns)
}

func (s *Server) forget(c *Conn) {
	if _, ok := s.conns[c.fd]; !ok {
		return
	}
	delete(s.conns, c.fd)
	s.loop.Unregister(c)
	logrus.WithField("fd", c.fd).Debugln("Client disconnected")
}

// Close drops every connection and the listening socket.
func (s *Server) Close() {
	for _, conn := range s.conns {
		conn.Close()
	}
	s.loop.Unregister(s)
	unix.Close(s.fd)
	os.Remove(s.path)
}
