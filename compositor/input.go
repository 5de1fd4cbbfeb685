// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package compositor

import (
	"github.com/dogelands/sparkle/packet"
	"github.com/dogelands/sparkle/platform"
)

// hitSurface scans surfaces topmost-first (reverse draw order) for one
// whose rectangle contains the display point, and maps the point into
// surface-local pixels. The first hit wins; no hit drops the event.
func (c *Compositor) hitSurface(x, y int) (*Surface, int, int) {
	surfaces := c.registry.Surfaces()
	for i := len(surfaces) - 1; i >= 0; i-- {
		s := surfaces[i]
		if lx, ly, ok := transformCoordinates(x, y, s); ok {
			return s, lx, ly
		}
	}
	return nil, 0, 0
}

// transformCoordinates maps a display point into s's texture pixels.
// Containment is inclusive on all four edges.
func transformCoordinates(x, y int, s *Surface) (int, int, bool) {
	pos := s.Position()
	if !pos.Contains(x, y) {
		return 0, 0, false
	}
	if pos.Width() <= 0 || pos.Height() <= 0 {
		return 0, 0, false
	}
	texW, texH := s.TextureSize()
	lx := (x - pos.From.X) * texW / pos.Width()
	ly := (y - pos.From.Y) * texH / pos.Height()
	return lx, ly, true
}

func (c *Compositor) pointerDown(ev platform.PointerEvent) {
	if s, lx, ly, ok := c.route(ev.X, ev.Y); ok {
		c.server.Broadcast(packet.Marshal(&packet.PointerDown{
			Surface: s.name, Slot: int32(ev.Slot), X: int32(lx), Y: int32(ly),
		}))
	}
}

func (c *Compositor) pointerUp(ev platform.PointerEvent) {
	if s, lx, ly, ok := c.route(ev.X, ev.Y); ok {
		c.server.Broadcast(packet.Marshal(&packet.PointerUp{
			Surface: s.name, Slot: int32(ev.Slot), X: int32(lx), Y: int32(ly),
		}))
	}
}

func (c *Compositor) pointerMotion(ev platform.PointerEvent) {
	if s, lx, ly, ok := c.route(ev.X, ev.Y); ok {
		c.server.Broadcast(packet.Marshal(&packet.PointerMotion{
			Surface: s.name, Slot: int32(ev.Slot), X: int32(lx), Y: int32(ly),
		}))
	}
}

func (c *Compositor) buttonPress(ev platform.ButtonEvent) {
	if s, lx, ly, ok := c.route(ev.X, ev.Y); ok {
		c.server.Broadcast(packet.Marshal(&packet.ButtonPress{
			Surface: s.name, Button: int32(ev.Button), X: int32(lx), Y: int32(ly),
		}))
	}
}

func (c *Compositor) buttonRelease(ev platform.ButtonEvent) {
	if s, lx, ly, ok := c.route(ev.X, ev.Y); ok {
		c.server.Broadcast(packet.Marshal(&packet.ButtonRelease{
			Surface: s.name, Button: int32(ev.Button), X: int32(lx), Y: int32(ly),
		}))
	}
}

func (c *Compositor) cursorMotion(ev platform.CursorEvent) {
	if s, lx, ly, ok := c.route(ev.X, ev.Y); ok {
		c.server.Broadcast(packet.Marshal(&packet.CursorMotion{
			Surface: s.name, X: int32(lx), Y: int32(ly),
		}))
	}
}

// Key events carry no coordinates and go to every client.
func (c *Compositor) keyDown(ev platform.KeyEvent) {
	c.server.Broadcast(packet.Marshal(&packet.KeyDownNotification{Code: int32(ev.Code)}))
}

func (c *Compositor) keyUp(ev platform.KeyEvent) {
	c.server.Broadcast(packet.Marshal(&packet.KeyUpNotification{Code: int32(ev.Code)}))
}

func (c *Compositor) route(x, y int) (*Surface, int, int, bool) {
	s, lx, ly := c.hitSurface(x, y)
	if s == nil {
		return nil, 0, 0, false
	}
	return s, lx, ly, true
}
