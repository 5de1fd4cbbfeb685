// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package platform defines the contract between the compositor and a
// concrete windowing backend (X11, DRM, an Android native window). The
// backend pushes lifecycle, draw and input through the signal set; the
// compositor answers the one pull-style query, the EGL visual id, through
// GetVID.
package platform

import "github.com/dogelands/sparkle/loop"

// NativeDisplay and NativeWindow are backend-specific handles the
// compositor forwards to its display port without inspecting.
type (
	NativeDisplay interface{}
	NativeWindow  interface{}
)

// PointerEvent is a touch contact in display coordinates.
type PointerEvent struct {
	Slot int
	X, Y int
}

// ButtonEvent is a mouse button in display coordinates.
type ButtonEvent struct {
	Button int
	X, Y   int
}

type CursorEvent struct {
	X, Y int
}

type KeyEvent struct {
	Code int
}

// Events is the signal set a backend emits. Backends may run their own
// threads; consumers attach through ConnectQueued so delivery lands on
// the compositor loop.
type Events struct {
	InitializeForNativeDisplay loop.Signal[NativeDisplay]
	FinishForNativeDisplay     loop.Signal[struct{}]
	InitializeForNativeWindow  loop.Signal[NativeWindow]
	FinishForNativeWindow      loop.Signal[struct{}]

	Draw loop.Signal[struct{}]

	PointerDown   loop.Signal[PointerEvent]
	PointerUp     loop.Signal[PointerEvent]
	PointerMotion loop.Signal[PointerEvent]
	KeyDown       loop.Signal[KeyEvent]
	KeyUp         loop.Signal[KeyEvent]
	ButtonPress   loop.Signal[ButtonEvent]
	ButtonRelease loop.Signal[ButtonEvent]
	CursorMotion  loop.Signal[CursorEvent]

	// GetVID is assigned by the compositor once a display exists; the
	// backend calls it while creating its native window.
	GetVID func() (int, error)
}

// Platform is a concrete windowing backend.
type Platform interface {
	Events() *Events
	Start() error
	Stop() error
}
