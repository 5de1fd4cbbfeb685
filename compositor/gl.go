// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package compositor

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/mobile/gl"

	"github.com/dogelands/sparkle/platform"
)

// Display is the EGL-level port for an opened native display: it answers
// the visual id query and mints GL window contexts. Concrete EGL bindings
// live outside this package.
type Display interface {
	VisualID() (int, error)
	CreateWindowContext(win platform.NativeWindow) (WindowContext, error)
	Close()
}

// DisplayOpener is the EGL entry point a backend provides.
type DisplayOpener interface {
	OpenDisplay(d platform.NativeDisplay) (Display, error)
}

// WindowContext is one current GL ES 2 context on a native window.
type WindowContext interface {
	GL() gl.Context
	// Size re-queries the native surface dimensions.
	Size() (width, height int)
	Swap() error
	Close()
}

const vertexShaderSource = `attribute vec4 position;
attribute vec2 texCoords;
varying vec2 outTexCoords;

void main(void) {
    outTexCoords = texCoords;
    gl_Position = position;
}
`

const fragmentShaderSource = `precision mediump float;

varying vec2 outTexCoords;
uniform sampler2D texture;
uniform float alpha;

void main(void) {
    gl_FragColor = texture2D(texture, outTexCoords);
    gl_FragColor.a = alpha;
}
`

// Vertex layout: x y z u v per vertex, four vertices of a triangle strip.
const (
	floatSize    = 4
	vertexStride = 5 * floatSize
)

// glState owns every GL object of the textured-quad pipeline. It exists
// only between initializeForNativeWindow and finishForNativeWindow.
type glState struct {
	ctx WindowContext
	glc gl.Context

	vertexShader gl.Shader
	pixelShader  gl.Shader
	program      gl.Program
	position     gl.Attrib
	texCoords    gl.Attrib
	alpha        gl.Uniform

	vbo gl.Buffer

	surfaceWidth  int
	surfaceHeight int
}

func newGLState(ctx WindowContext) (*glState, error) {
	glc := ctx.GL()
	s := &glState{ctx: ctx, glc: glc}

	var err error
	s.vertexShader, err = loadShader(glc, gl.VERTEX_SHADER, vertexShaderSource)
	if err != nil {
		return nil, err
	}
	s.pixelShader, err = loadShader(glc, gl.FRAGMENT_SHADER, fragmentShaderSource)
	if err != nil {
		return nil, err
	}

	s.program = glc.CreateProgram()
	glc.AttachShader(s.program, s.vertexShader)
	glc.AttachShader(s.program, s.pixelShader)
	glc.LinkProgram(s.program)
	if glc.GetProgrami(s.program, gl.LINK_STATUS) == 0 {
		return nil, errors.Errorf("program link failed: %s", glc.GetProgramInfoLog(s.program))
	}

	s.position = glc.GetAttribLocation(s.program, "position")
	s.texCoords = glc.GetAttribLocation(s.program, "texCoords")
	s.alpha = glc.GetUniformLocation(s.program, "alpha")

	s.vbo = glc.CreateBuffer()

	glc.BindFramebuffer(gl.FRAMEBUFFER, gl.Framebuffer{})
	s.surfaceWidth, s.surfaceHeight = ctx.Size()
	glc.Viewport(0, 0, s.surfaceWidth, s.surfaceHeight)

	logrus.WithFields(logrus.Fields{
		"width":  s.surfaceWidth,
		"height": s.surfaceHeight,
	}).Infoln("GL pipeline ready")

	return s, nil
}

func loadShader(glc gl.Context, shaderType gl.Enum, source string) (gl.Shader, error) {
	shader := glc.CreateShader(shaderType)
	glc.ShaderSource(shader, source)
	glc.CompileShader(shader)
	if glc.GetShaderi(shader, gl.COMPILE_STATUS) == 0 {
		return gl.Shader{}, errors.Errorf("shader compile failed: %s", glc.GetShaderInfoLog(shader))
	}
	return shader, nil
}

// destroy drops the pipeline objects and the context. Callers must have
// destroyed surface textures already.
func (s *glState) destroy() {
	s.glc.DeleteBuffer(s.vbo)
	s.glc.DeleteProgram(s.program)
	s.glc.DeleteShader(s.pixelShader)
	s.glc.DeleteShader(s.vertexShader)
	s.ctx.Close()
	logrus.Debugln("GL pipeline destroyed")
}
