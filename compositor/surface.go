// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package compositor

import (
	"os"

	"golang.org/x/mobile/gl"

	"github.com/dogelands/sparkle/geom"
	"github.com/dogelands/sparkle/shm"
)

// GL ES 2 BGRA extension format, not exported by x/mobile/gl.
const texFormatBGRA gl.Enum = 0x80e1

// texture shadows a surface's pixel buffer on the GPU. Created lazily on
// the first update, resized whenever the source changes shape.
type texture struct {
	id     gl.Texture
	width  int
	height int
}

// Surface is one registered client layer: a mapped pixel source, a
// display rectangle, stacking and opacity state, and the accumulated
// damage still to be uploaded.
type Surface struct {
	name     string
	buf      *shm.Buffer
	position geom.Rect
	strata   int
	alpha    float32
	damage   geom.Rect
	tex      texture
}

func newSurface(name string, buf *shm.Buffer) *Surface {
	return &Surface{name: name, buf: buf, alpha: 1.0}
}

// NewFileSurface maps a surface backed by a pixel file on disk.
func NewFileSurface(name, path string, width, height int) (*Surface, error) {
	buf, err := shm.MapFile(path, width, height)
	if err != nil {
		return nil, err
	}
	return newSurface(name, buf), nil
}

// NewAshmemSurface maps a surface from a descriptor received over the
// socket. The surface owns the file.
func NewAshmemSurface(name string, f *os.File, width, height int) (*Surface, error) {
	buf, err := shm.MapFd(f, width, height)
	if err != nil {
		return nil, err
	}
	return newSurface(name, buf), nil
}

func (s *Surface) Name() string {
	return s.name
}

func (s *Surface) Position() geom.Rect {
	return s.position
}

func (s *Surface) Strata() int {
	return s.strata
}

func (s *Surface) Alpha() float32 {
	return s.alpha
}

func (s *Surface) Damage() geom.Rect {
	return s.damage
}

// TextureSize is the shadow texture's dimensions, falling back to the
// source buffer before the first upload. Input routing uses this to map
// display coordinates into surface pixels.
func (s *Surface) TextureSize() (int, int) {
	if s.tex.width > 0 && s.tex.height > 0 {
		return s.tex.width, s.tex.height
	}
	return s.buf.Width(), s.buf.Height()
}

func (s *Surface) setPosition(x1, y1, x2, y2 int) {
	s.position = geom.MakeRect(x1, y1, x2, y2)
}

func (s *Surface) setStrata(strata int) {
	s.strata = strata
}

func (s *Surface) setAlpha(alpha float32) {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	s.alpha = alpha
}

// addDamage unions the rectangle into the pending damage, clamped to the
// source bounds.
func (s *Surface) addDamage(x1, y1, x2, y2 int) {
	r := geom.MakeRect(x1, y1, x2, y2)
	if r.From.X < 0 {
		r.From.X = 0
	}
	if r.From.Y < 0 {
		r.From.Y = 0
	}
	if r.To.X > s.buf.Width() {
		r.To.X = s.buf.Width()
	}
	if r.To.Y > s.buf.Height() {
		r.To.Y = s.buf.Height()
	}
	s.damage = s.damage.Union(r)
}

// updateTexture brings the shadow texture up to date and reports whether
// anything changed (forcing a redraw). Damage is consumed: after a
// successful update it is empty again. Only the damaged row band is
// uploaded, full width, as the source layout is row-contiguous BGRA.
func (s *Surface) updateTexture(glc gl.Context) bool {
	result := false

	if s.tex.id.Value == 0 {
		s.tex.id = glc.CreateTexture()
		glc.BindTexture(gl.TEXTURE_2D, s.tex.id)
		glc.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		glc.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
		glc.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		glc.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	}

	if s.tex.width != s.buf.Width() || s.tex.height != s.buf.Height() {
		s.tex.width = s.buf.Width()
		s.tex.height = s.buf.Height()
		glc.ActiveTexture(gl.TEXTURE0)
		glc.BindTexture(gl.TEXTURE_2D, s.tex.id)
		glc.TexImage2D(gl.TEXTURE_2D, 0, int(texFormatBGRA), s.tex.width, s.tex.height,
			texFormatBGRA, gl.UNSIGNED_BYTE, nil)
		s.damage = geom.MakeRect(0, 0, s.tex.width, s.tex.height)
		result = true
	}

	if !s.damage.Empty() {
		data := s.buf.Data()
		rowBytes := s.tex.width * shm.BytesPerPixel
		from := s.damage.From.Y * rowBytes
		to := s.damage.To.Y * rowBytes

		glc.ActiveTexture(gl.TEXTURE0)
		glc.BindTexture(gl.TEXTURE_2D, s.tex.id)
		glc.TexSubImage2D(gl.TEXTURE_2D, 0,
			0, s.damage.From.Y,
			s.tex.width, s.damage.Height(),
			texFormatBGRA, gl.UNSIGNED_BYTE,
			data[from:to])

		s.damage = geom.Rect{}
		result = true
	}

	return result
}

// destroyTexture drops the GPU shadow; the next update recreates it. Must
// run before the GL context goes away.
func (s *Surface) destroyTexture(glc gl.Context) {
	if s.tex.id.Value != 0 {
		glc.DeleteTexture(s.tex.id)
		s.tex = texture{}
	}
}

// release unmaps the pixel source. The surface is dead afterwards.
func (s *Surface) release() {
	s.buf.Close()
}
