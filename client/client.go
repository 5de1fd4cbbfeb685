// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package client is the library side of the protocol, symmetric to the
// server: it connects to the compositor socket, sends surface requests
// (including descriptor-passing registration), and fans incoming
// notifications out to named subscribers.
package client

import (
	"net"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/dogelands/sparkle/packet"
	"github.com/dogelands/sparkle/util/multiplexer"
)

type Client struct {
	conn *net.UnixConn

	sendCh chan *packet.Packet
	sends  multiplexer.ManyToOne[*packet.Packet]
	notify multiplexer.OneToMany[packet.Message]

	closeOnce sync.Once
}

// Connect dials the compositor socket and starts the reader and writer
// goroutines.
func Connect(path string) (*Client, error) {
	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", path)
	}

	sendCh := make(chan *packet.Packet, 16)
	c := &Client{
		conn:   conn,
		sendCh: sendCh,
		sends:  multiplexer.NewManyToOne(sendCh),
		notify: multiplexer.NewOneToMany[packet.Message](),
	}

	go c.notify.StartPlexer()
	go c.writeLoop()
	go c.readLoop()

	return c, nil
}

// Subscribe registers a named channel receiving every decoded
// notification from the server.
func (c *Client) Subscribe(name string) (chan packet.Message, error) {
	return c.notify.MakeReceiver(name)
}

func (c *Client) Unsubscribe(name string) {
	c.notify.CloseReceiver(name)
}

// Close drops the connection; subscribers' channels are closed.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.sends.Close()
		c.conn.Close()
		c.notify.CloseSender()
	})
}

// Send enqueues any message. Safe from any goroutine.
func (c *Client) Send(m packet.Message) error {
	return c.sends.Send(packet.Marshal(m))
}

// RegisterSurfaceFile announces a surface backed by a pixel file.
func (c *Client) RegisterSurfaceFile(name, path string, width, height int) error {
	return c.Send(&packet.RegisterSurfaceFile{
		Name: name, Path: path, Width: int32(width), Height: int32(height),
	})
}

// RegisterSurfaceAshmem announces a surface backed by the given
// shared-memory descriptor; the descriptor travels as ancillary data.
// The caller keeps ownership of f.
func (c *Client) RegisterSurfaceAshmem(name string, f *os.File, width, height int) error {
	return c.Send(&packet.RegisterSurfaceAshmem{
		Name: name, Width: int32(width), Height: int32(height), File: f,
	})
}

func (c *Client) UnregisterSurface(name string) error {
	return c.Send(&packet.UnregisterSurface{Name: name})
}

func (c *Client) SetSurfacePosition(name string, x1, y1, x2, y2 int) error {
	return c.Send(&packet.SetSurfacePosition{
		Name: name, X1: int32(x1), Y1: int32(y1), X2: int32(x2), Y2: int32(y2),
	})
}

func (c *Client) SetSurfaceStrata(name string, strata int) error {
	return c.Send(&packet.SetSurfaceStrata{Name: name, Strata: int32(strata)})
}

func (c *Client) SetSurfaceAlpha(name string, alpha float32) error {
	return c.Send(&packet.SetSurfaceAlpha{Name: name, Alpha: alpha})
}

func (c *Client) AddSurfaceDamage(name string, x1, y1, x2, y2 int) error {
	return c.Send(&packet.AddSurfaceDamage{
		Name: name, X1: int32(x1), Y1: int32(y1), X2: int32(x2), Y2: int32(y2),
	})
}

func (c *Client) KeyDown(code int) error {
	return c.Send(&packet.KeyDownRequest{Code: int32(code)})
}

func (c *Client) KeyUp(code int) error {
	return c.Send(&packet.KeyUpRequest{Code: int32(code)})
}

func (c *Client) Echo(data []byte) error {
	return c.Send(&packet.Echo{Data: data})
}

func (c *Client) writeLoop() {
	for p := range c.sendCh {
		frame := p.Frame()
		var oob []byte
		if p.File != nil {
			oob = unix.UnixRights(int(p.File.Fd()))
		}
		if _, _, err := c.conn.WriteMsgUnix(frame, oob, nil); err != nil {
			logrus.WithError(err).Debugln("client write failed")
			c.Close()
			return
		}
	}
}

func (c *Client) readLoop() {
	var acc []byte
	buf := make([]byte, 64*1024)

	for {
		n, _, _, _, err := c.conn.ReadMsgUnix(buf, nil)
		if err != nil || n == 0 {
			c.Close()
			return
		}
		acc = append(acc, buf[:n]...)

		for {
			p, used, err := packet.Deframe(acc)
			if err != nil {
				logrus.WithError(err).Debugln("client framing error")
				c.Close()
				return
			}
			if p == nil {
				break
			}
			acc = acc[used:]

			msg, err := packet.Unmarshal(p)
			if err != nil {
				logrus.WithError(err).WithField("op", p.Op).Debugln("Dropping notification")
				continue
			}
			c.notify.GetSender() <- msg
		}
	}
}
