// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package headless is a platform backend without a native window. It
// emits nothing on its own; tests and socket-only deployments drive the
// signal set by hand through the Emit helpers.
package headless

import (
	"github.com/dogelands/sparkle/platform"
)

type Headless struct {
	events platform.Events
}

func New() *Headless {
	return &Headless{}
}

func (h *Headless) Events() *platform.Events {
	return &h.events
}

func (h *Headless) Start() error {
	return nil
}

func (h *Headless) Stop() error {
	return nil
}

// EmitDisplay announces a native display handle.
func (h *Headless) EmitDisplay(d platform.NativeDisplay) {
	h.events.InitializeForNativeDisplay.Emit(d)
}

// EmitWindow announces a native window handle.
func (h *Headless) EmitWindow(w platform.NativeWindow) {
	h.events.InitializeForNativeWindow.Emit(w)
}

func (h *Headless) FinishWindow() {
	h.events.FinishForNativeWindow.Emit(struct{}{})
}

func (h *Headless) FinishDisplay() {
	h.events.FinishForNativeDisplay.Emit(struct{}{})
}

// EmitDraw requests one compositor frame.
func (h *Headless) EmitDraw() {
	h.events.Draw.Emit(struct{}{})
}

func (h *Headless) EmitPointerDown(slot, x, y int) {
	h.events.PointerDown.Emit(platform.PointerEvent{Slot: slot, X: x, Y: y})
}

func (h *Headless) EmitPointerUp(slot, x, y int) {
	h.events.PointerUp.Emit(platform.PointerEvent{Slot: slot, X: x, Y: y})
}

func (h *Headless) EmitPointerMotion(slot, x, y int) {
	h.events.PointerMotion.Emit(platform.PointerEvent{Slot: slot, X: x, Y: y})
}

func (h *Headless) EmitKeyDown(code int) {
	h.events.KeyDown.Emit(platform.KeyEvent{Code: code})
}

func (h *Headless) EmitKeyUp(code int) {
	h.events.KeyUp.Emit(platform.KeyEvent{Code: code})
}

func (h *Headless) EmitButtonPress(button, x, y int) {
	h.events.ButtonPress.Emit(platform.ButtonEvent{Button: button, X: x, Y: y})
}

func (h *Headless) EmitButtonRelease(button, x, y int) {
	h.events.ButtonRelease.Emit(platform.ButtonEvent{Button: button, X: x, Y: y})
}

func (h *Headless) EmitCursorMotion(x, y int) {
	h.events.CursorMotion.Emit(platform.CursorEvent{X: x, Y: y})
}
