// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package compositor multiplexes client surfaces onto one GPU-rendered
// output and routes input back to the owning clients. Everything runs on
// a single event loop: platform signals arrive through queued delivery,
// client packets through the IPC server, and each draw tick walks the
// surface registry in strata order.
package compositor

import (
	"encoding/binary"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/mobile/gl"

	"github.com/dogelands/sparkle/ipc"
	"github.com/dogelands/sparkle/loop"
	"github.com/dogelands/sparkle/packet"
	"github.com/dogelands/sparkle/platform"
)

// Options configure a compositor instance.
type Options struct {
	// SocketPath is where the IPC server listens.
	SocketPath string
	// EnableEcho allows the echo request, an unauthenticated broadcast
	// channel only useful for testing.
	EnableEcho bool
}

type Compositor struct {
	loop     *loop.Loop
	platform *platform.Events
	opener   DisplayOpener
	server   *ipc.Server
	registry *Registry

	display Display
	gl      *glState

	// plane is the reusable vertex scratch for one textured quad:
	// 4 vertices of x y z u v. The UV columns never change.
	plane      [20]float32
	planeBytes [20 * floatSize]byte

	enableEcho bool

	// SignalFrame fires after every swapped frame.
	SignalFrame loop.Signal[struct{}]
}

// New wires a compositor onto the given loop and platform and starts the
// IPC server at opts.SocketPath.
func New(l *loop.Loop, p platform.Platform, opener DisplayOpener, opts Options) (*Compositor, error) {
	server, err := ipc.New(l, opts.SocketPath)
	if err != nil {
		return nil, err
	}

	c := &Compositor{
		loop:       l,
		platform:   p.Events(),
		opener:     opener,
		server:     server,
		registry:   NewRegistry(),
		enableEcho: opts.EnableEcho,
	}

	c.plane = [20]float32{
		-1, -1, 0, 0, 0,
		1, -1, 0, 1, 0,
		-1, 1, 0, 0, 1,
		1, 1, 0, 1, 1,
	}

	ev := c.platform
	ev.InitializeForNativeDisplay.ConnectQueued(l, c.initializeForNativeDisplay)
	ev.FinishForNativeDisplay.ConnectQueued(l, func(struct{}) { c.finishForNativeDisplay() })
	ev.InitializeForNativeWindow.ConnectQueued(l, c.initializeForNativeWindow)
	ev.FinishForNativeWindow.ConnectQueued(l, func(struct{}) { c.finishForNativeWindow() })

	ev.Draw.ConnectQueued(l, func(struct{}) { c.draw() })

	ev.PointerDown.ConnectQueued(l, c.pointerDown)
	ev.PointerUp.ConnectQueued(l, c.pointerUp)
	ev.PointerMotion.ConnectQueued(l, c.pointerMotion)
	ev.KeyDown.ConnectQueued(l, c.keyDown)
	ev.KeyUp.ConnectQueued(l, c.keyUp)
	ev.ButtonPress.ConnectQueued(l, c.buttonPress)
	ev.ButtonRelease.ConnectQueued(l, c.buttonRelease)
	ev.CursorMotion.ConnectQueued(l, c.cursorMotion)

	server.SignalConnected.Connect(c.connection)
	server.SignalPacket.Connect(c.packet)

	return c, nil
}

// Registry exposes the surface collection for inspection (repl, tests).
func (c *Compositor) Registry() *Registry {
	return c.registry
}

func (c *Compositor) Server() *ipc.Server {
	return c.server
}

func (c *Compositor) DisplayWidth() int {
	if c.gl == nil {
		return 0
	}
	return c.gl.surfaceWidth
}

func (c *Compositor) DisplayHeight() int {
	if c.gl == nil {
		return 0
	}
	return c.gl.surfaceHeight
}

// Close releases the server, surfaces and any GL state.
func (c *Compositor) Close() {
	c.finishForNativeWindow()
	c.finishForNativeDisplay()
	for _, s := range c.registry.Surfaces() {
		s.release()
	}
	c.registry.surfaces = nil
	c.server.Close()
}

// -- platform lifecycle ------------------------------------------------------

func (c *Compositor) initializeForNativeDisplay(d platform.NativeDisplay) {
	if c.opener == nil {
		logrus.Fatalln("native display announced but no display opener configured")
	}
	display, err := c.opener.OpenDisplay(d)
	if err != nil {
		// Display-level init failure leaves nothing to composite on.
		logrus.WithError(err).Fatalln("opening native display failed")
	}
	c.display = display
	c.platform.GetVID = display.VisualID
}

func (c *Compositor) finishForNativeDisplay() {
	if c.display != nil {
		c.display.Close()
		c.display = nil
		c.platform.GetVID = nil
	}
}

func (c *Compositor) initializeForNativeWindow(w platform.NativeWindow) {
	ctx, err := c.display.CreateWindowContext(w)
	if err != nil {
		logrus.WithError(err).Fatalln("creating window context failed")
	}
	state, err := newGLState(ctx)
	if err != nil {
		logrus.WithError(err).Fatalln("initializing GL pipeline failed")
	}
	c.gl = state

	c.server.Broadcast(packet.Marshal(&packet.DisplaySize{
		Width:  int32(c.gl.surfaceWidth),
		Height: int32(c.gl.surfaceHeight),
	}))

	c.registry.MarkDirty()
}

func (c *Compositor) finishForNativeWindow() {
	if c.gl == nil {
		return
	}
	// Textures must die before the context that owns them.
	for _, s := range c.registry.Surfaces() {
		s.destroyTexture(c.gl.glc)
	}
	c.gl.destroy()
	c.gl = nil
}

// -- frame -------------------------------------------------------------------

func (c *Compositor) draw() {
	if c.gl == nil {
		return
	}
	glc := c.gl.glc

	width, height := c.gl.ctx.Size()
	if width != c.gl.surfaceWidth || height != c.gl.surfaceHeight {
		c.gl.surfaceWidth = width
		c.gl.surfaceHeight = height
		glc.Viewport(0, 0, width, height)

		c.server.Broadcast(packet.Marshal(&packet.DisplaySize{
			Width:  int32(width),
			Height: int32(height),
		}))
		c.registry.MarkDirty()
	}

	for _, s := range c.registry.Surfaces() {
		if s.updateTexture(glc) {
			c.registry.MarkDirty()
		}
	}

	if !c.registry.Dirty() {
		return
	}
	c.registry.ClearDirty()

	glc.ClearColor(0, 0, 0, 0)
	glc.Clear(gl.DEPTH_BUFFER_BIT | gl.COLOR_BUFFER_BIT)

	glc.BindFramebuffer(gl.FRAMEBUFFER, gl.Framebuffer{})
	glc.UseProgram(c.gl.program)

	for _, s := range c.registry.Surfaces() {
		c.drawSurface(s)
	}

	glc.Finish()
	if err := c.gl.ctx.Swap(); err != nil {
		logrus.WithError(err).Errorln("buffer swap failed")
	}

	c.SignalFrame.Emit(struct{}{})
}

func (c *Compositor) drawSurface(s *Surface) {
	glc := c.gl.glc

	// Display pixels to normalized device coordinates, Y flipped.
	x1 := 2*float32(s.position.From.X)/float32(c.gl.surfaceWidth) - 1
	y1 := 1 - 2*float32(s.position.From.Y)/float32(c.gl.surfaceHeight)
	x2 := 2*float32(s.position.To.X)/float32(c.gl.surfaceWidth) - 1
	y2 := 1 - 2*float32(s.position.To.Y)/float32(c.gl.surfaceHeight)

	c.plane[0], c.plane[1] = x1, y1
	c.plane[5], c.plane[6] = x2, y1
	c.plane[10], c.plane[11] = x1, y2
	c.plane[15], c.plane[16] = x2, y2

	for i, v := range c.plane {
		binary.LittleEndian.PutUint32(c.planeBytes[i*floatSize:], math.Float32bits(v))
	}

	glc.BindBuffer(gl.ARRAY_BUFFER, c.gl.vbo)
	glc.BufferData(gl.ARRAY_BUFFER, c.planeBytes[:], gl.STREAM_DRAW)
	glc.VertexAttribPointer(c.gl.position, 3, gl.FLOAT, false, vertexStride, 0)
	glc.VertexAttribPointer(c.gl.texCoords, 2, gl.FLOAT, false, vertexStride, 3*floatSize)
	glc.EnableVertexAttribArray(c.gl.position)
	glc.EnableVertexAttribArray(c.gl.texCoords)

	blending := s.alpha != 1.0
	glc.Uniform1f(c.gl.alpha, s.alpha)
	if blending {
		glc.Enable(gl.BLEND)
		glc.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	}

	glc.BindTexture(gl.TEXTURE_2D, s.tex.id)
	glc.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)

	if blending {
		glc.Disable(gl.BLEND)
	}

	glc.DisableVertexAttribArray(c.gl.position)
	glc.DisableVertexAttribArray(c.gl.texCoords)
}

// -- ipc ---------------------------------------------------------------------

func (c *Compositor) connection(conn *ipc.Conn) {
	if c.gl != nil {
		conn.Send(packet.Marshal(&packet.DisplaySize{
			Width:  int32(c.gl.surfaceWidth),
			Height: int32(c.gl.surfaceHeight),
		}))
	}
}

func (c *Compositor) packet(ev ipc.PacketEvent) {
	msg, err := packet.Unmarshal(ev.Packet)
	if err != nil {
		// Protocol errors drop the frame, never the connection.
		logrus.WithError(err).WithField("op", ev.Packet.Op).Debugln("Dropping packet")
		return
	}

	switch m := msg.(type) {
	case *packet.RegisterSurfaceFile:
		c.registerSurfaceFile(m.Name, m.Path, int(m.Width), int(m.Height))
	case *packet.RegisterSurfaceAshmem:
		c.registerSurfaceAshmem(m.Name, m, int(m.Width), int(m.Height))
	case *packet.UnregisterSurface:
		c.unregisterSurface(m.Name)
	case *packet.SetSurfacePosition:
		c.registry.SetPosition(m.Name, int(m.X1), int(m.Y1), int(m.X2), int(m.Y2))
	case *packet.SetSurfaceStrata:
		c.registry.SetStrata(m.Name, int(m.Strata))
	case *packet.SetSurfaceAlpha:
		c.registry.SetAlpha(m.Name, m.Alpha)
	case *packet.AddSurfaceDamage:
		c.registry.AddDamage(m.Name, int(m.X1), int(m.Y1), int(m.X2), int(m.Y2))
	case *packet.KeyDownRequest:
		c.server.Broadcast(packet.Marshal(&packet.KeyDownNotification{Code: m.Code}))
	case *packet.KeyUpRequest:
		c.server.Broadcast(packet.Marshal(&packet.KeyUpNotification{Code: m.Code}))
	case *packet.Echo:
		if c.enableEcho {
			c.server.Broadcast(packet.Marshal(m))
		} else {
			logrus.Debugln("Echo request ignored, echo is disabled")
		}
	default:
		logrus.WithField("op", ev.Packet.Op).Debugln("Request not handled")
	}
}

func (c *Compositor) registerSurfaceFile(name, path string, width, height int) {
	surface, err := NewFileSurface(name, path, width, height)
	if err != nil {
		logrus.WithError(err).WithField("surface", name).Errorln("Registering file surface failed")
		return
	}
	c.adopt(surface)
}

func (c *Compositor) registerSurfaceAshmem(name string, m *packet.RegisterSurfaceAshmem, width, height int) {
	surface, err := NewAshmemSurface(name, m.File, width, height)
	if err != nil {
		logrus.WithError(err).WithField("surface", name).Errorln("Registering ashmem surface failed")
		return
	}
	c.adopt(surface)
}

// adopt replaces any same-named surface, releasing its resources first.
func (c *Compositor) adopt(surface *Surface) {
	c.unregisterSurface(surface.name)
	c.registry.Add(surface)
}

func (c *Compositor) unregisterSurface(name string) {
	for _, old := range c.registry.Remove(name) {
		if c.gl != nil {
			old.destroyTexture(c.gl.glc)
		}
		old.release()
	}
}
