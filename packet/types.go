// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package packet

import "os"

// Operation codes. Stable across client and server; requests live below
// 100, notifications from 100 up.
const (
	OpRegisterSurfaceFile   = 1
	OpRegisterSurfaceAshmem = 2
	OpUnregisterSurface     = 3
	OpSetSurfacePosition    = 4
	OpSetSurfaceStrata      = 5
	OpSetSurfaceAlpha       = 6
	OpAddSurfaceDamage      = 7
	OpKeyDownRequest        = 8
	OpKeyUpRequest          = 9
	OpEcho                  = 10

	OpDisplaySize         = 100
	OpPointerDown         = 101
	OpPointerUp           = 102
	OpPointerMotion       = 103
	OpButtonPress         = 104
	OpButtonRelease       = 105
	OpCursorMotion        = 106
	OpKeyDownNotification = 107
	OpKeyUpNotification   = 108
	OpSoundStart          = 109
	OpSoundData           = 110
	OpSoundStop           = 111
)

// Message is one typed payload of the protocol.
type Message interface {
	Op() uint32
	encode(w *Writer)
	decode(r *Reader)
}

// Marshal encodes m into a packet ready for framing.
func Marshal(m Message) *Packet {
	var w Writer
	m.encode(&w)
	p := &Packet{Op: m.Op(), Payload: w.Bytes()}
	if fm, ok := m.(fileMessage); ok {
		p.File = fm.file()
	}
	return p
}

// Unmarshal decodes the typed message carried by p. Unknown opcodes yield
// ErrUnknownOp, truncated payloads ErrShortFrame, and a packet that needs
// a descriptor which is absent ErrFdMissing.
func Unmarshal(p *Packet) (Message, error) {
	m := messageFor(p.Op)
	if m == nil {
		return nil, ErrUnknownOp
	}
	r := NewReader(p.Payload)
	m.decode(r)
	if r.Err() != nil {
		return nil, r.Err()
	}
	if fm, ok := m.(fileMessage); ok {
		if p.File == nil {
			return nil, ErrFdMissing
		}
		fm.setFile(p.File)
	}
	return m, nil
}

func messageFor(op uint32) Message {
	switch op {
	case OpRegisterSurfaceFile:
		return &RegisterSurfaceFile{}
	case OpRegisterSurfaceAshmem:
		return &RegisterSurfaceAshmem{}
	case OpUnregisterSurface:
		return &UnregisterSurface{}
	case OpSetSurfacePosition:
		return &SetSurfacePosition{}
	case OpSetSurfaceStrata:
		return &SetSurfaceStrata{}
	case OpSetSurfaceAlpha:
		return &SetSurfaceAlpha{}
	case OpAddSurfaceDamage:
		return &AddSurfaceDamage{}
	case OpKeyDownRequest:
		return &KeyDownRequest{}
	case OpKeyUpRequest:
		return &KeyUpRequest{}
	case OpEcho:
		return &Echo{}
	case OpDisplaySize:
		return &DisplaySize{}
	case OpPointerDown:
		return &PointerDown{}
	case OpPointerUp:
		return &PointerUp{}
	case OpPointerMotion:
		return &PointerMotion{}
	case OpButtonPress:
		return &ButtonPress{}
	case OpButtonRelease:
		return &ButtonRelease{}
	case OpCursorMotion:
		return &CursorMotion{}
	case OpKeyDownNotification:
		return &KeyDownNotification{}
	case OpKeyUpNotification:
		return &KeyUpNotification{}
	case OpSoundStart:
		return &SoundStart{}
	case OpSoundData:
		return &SoundData{}
	case OpSoundStop:
		return &SoundStop{}
	}
	return nil
}

// fileMessage is implemented by messages that transport one descriptor as
// ancillary data.
type fileMessage interface {
	file() *os.File
	setFile(*os.File)
}

// -- client to server --------------------------------------------------------

type RegisterSurfaceFile struct {
	Name   string
	Path   string
	Width  int32
	Height int32
}

func (*RegisterSurfaceFile) Op() uint32 { return OpRegisterSurfaceFile }

func (m *RegisterSurfaceFile) encode(w *Writer) {
	w.PutString(m.Name)
	w.PutString(m.Path)
	w.PutInt32(m.Width)
	w.PutInt32(m.Height)
}

func (m *RegisterSurfaceFile) decode(r *Reader) {
	m.Name = r.String()
	m.Path = r.String()
	m.Width = r.Int32()
	m.Height = r.Int32()
}

// RegisterSurfaceAshmem carries its shared-memory descriptor out-of-band.
type RegisterSurfaceAshmem struct {
	Name   string
	Width  int32
	Height int32
	File   *os.File
}

func (*RegisterSurfaceAshmem) Op() uint32 { return OpRegisterSurfaceAshmem }

func (m *RegisterSurfaceAshmem) encode(w *Writer) {
	w.PutString(m.Name)
	w.PutInt32(m.Width)
	w.PutInt32(m.Height)
}

func (m *RegisterSurfaceAshmem) decode(r *Reader) {
	m.Name = r.String()
	m.Width = r.Int32()
	m.Height = r.Int32()
}

func (m *RegisterSurfaceAshmem) file() *os.File { return m.File }
func (m *RegisterSurfaceAshmem) setFile(f *os.File) { m.File = f }

type UnregisterSurface struct {
	Name string
}

func (*UnregisterSurface) Op() uint32 { return OpUnregisterSurface }
func (m *UnregisterSurface) encode(w *Writer) { w.PutString(m.Name) }
func (m *UnregisterSurface) decode(r *Reader) { m.Name = r.String() }

type SetSurfacePosition struct {
	Name           string
	X1, Y1, X2, Y2 int32
}

func (*SetSurfacePosition) Op() uint32 { return OpSetSurfacePosition }

func (m *SetSurfacePosition) encode(w *Writer) {
	w.PutString(m.Name)
	w.PutInt32(m.X1)
	w.PutInt32(m.Y1)
	w.PutInt32(m.X2)
	w.PutInt32(m.Y2)
}

func (m *SetSurfacePosition) decode(r *Reader) {
	m.Name = r.String()
	m.X1 = r.Int32()
	m.Y1 = r.Int32()
	m.X2 = r.Int32()
	m.Y2 = r.Int32()
}

type SetSurfaceStrata struct {
	Name   string
	Strata int32
}

func (*SetSurfaceStrata) Op() uint32 { return OpSetSurfaceStrata }

func (m *SetSurfaceStrata) encode(w *Writer) {
	w.PutString(m.Name)
	w.PutInt32(m.Strata)
}

func (m *SetSurfaceStrata) decode(r *Reader) {
	m.Name = r.String()
	m.Strata = r.Int32()
}

type SetSurfaceAlpha struct {
	Name  string
	Alpha float32
}

func (*SetSurfaceAlpha) Op() uint32 { return OpSetSurfaceAlpha }

func (m *SetSurfaceAlpha) encode(w *Writer) {
	w.PutString(m.Name)
	w.PutFloat32(m.Alpha)
}

func (m *SetSurfaceAlpha) decode(r *Reader) {
	m.Name = r.String()
	m.Alpha = r.Float32()
}

type AddSurfaceDamage struct {
	Name           string
	X1, Y1, X2, Y2 int32
}

func (*AddSurfaceDamage) Op() uint32 { return OpAddSurfaceDamage }

func (m *AddSurfaceDamage) encode(w *Writer) {
	w.PutString(m.Name)
	w.PutInt32(m.X1)
	w.PutInt32(m.Y1)
	w.PutInt32(m.X2)
	w.PutInt32(m.Y2)
}

func (m *AddSurfaceDamage) decode(r *Reader) {
	m.Name = r.String()
	m.X1 = r.Int32()
	m.Y1 = r.Int32()
	m.X2 = r.Int32()
	m.Y2 = r.Int32()
}

type KeyDownRequest struct {
	Code int32
}

func (*KeyDownRequest) Op() uint32 { return OpKeyDownRequest }
func (m *KeyDownRequest) encode(w *Writer) { w.PutInt32(m.Code) }
func (m *KeyDownRequest) decode(r *Reader) { m.Code = r.Int32() }

type KeyUpRequest struct {
	Code int32
}

func (*KeyUpRequest) Op() uint32 { return OpKeyUpRequest }
func (m *KeyUpRequest) encode(w *Writer) { w.PutInt32(m.Code) }
func (m *KeyUpRequest) decode(r *Reader) { m.Code = r.Int32() }

// Echo asks the server to re-broadcast the payload verbatim to every
// connected client. Disabled unless the server was configured to allow it.
type Echo struct {
	Data []byte
}

func (*Echo) Op() uint32 { return OpEcho }
func (m *Echo) encode(w *Writer) { w.PutBytes(m.Data) }
func (m *Echo) decode(r *Reader) { m.Data = append([]byte(nil), r.Bytes()...) }

// -- server to clients -------------------------------------------------------

type DisplaySize struct {
	Width  int32
	Height int32
}

func (*DisplaySize) Op() uint32 { return OpDisplaySize }

func (m *DisplaySize) encode(w *Writer) {
	w.PutInt32(m.Width)
	w.PutInt32(m.Height)
}

func (m *DisplaySize) decode(r *Reader) {
	m.Width = r.Int32()
	m.Height = r.Int32()
}

type PointerDown struct {
	Surface string
	Slot    int32
	X, Y    int32
}

func (*PointerDown) Op() uint32 { return OpPointerDown }

func (m *PointerDown) encode(w *Writer) {
	w.PutString(m.Surface)
	w.PutInt32(m.Slot)
	w.PutInt32(m.X)
	w.PutInt32(m.Y)
}

func (m *PointerDown) decode(r *Reader) {
	m.Surface = r.String()
	m.Slot = r.Int32()
	m.X = r.Int32()
	m.Y = r.Int32()
}

type PointerUp struct {
	Surface string
	Slot    int32
	X, Y    int32
}

func (*PointerUp) Op() uint32 { return OpPointerUp }

func (m *PointerUp) encode(w *Writer) {
	w.PutString(m.Surface)
	w.PutInt32(m.Slot)
	w.PutInt32(m.X)
	w.PutInt32(m.Y)
}

func (m *PointerUp) decode(r *Reader) {
	m.Surface = r.String()
	m.Slot = r.Int32()
	m.X = r.Int32()
	m.Y = r.Int32()
}

type PointerMotion struct {
	Surface string
	Slot    int32
	X, Y    int32
}

func (*PointerMotion) Op() uint32 { return OpPointerMotion }

func (m *PointerMotion) encode(w *Writer) {
	w.PutString(m.Surface)
	w.PutInt32(m.Slot)
	w.PutInt32(m.X)
	w.PutInt32(m.Y)
}

func (m *PointerMotion) decode(r *Reader) {
	m.Surface = r.String()
	m.Slot = r.Int32()
	m.X = r.Int32()
	m.Y = r.Int32()
}

type ButtonPress struct {
	Surface string
	Button  int32
	X, Y    int32
}

func (*ButtonPress) Op() uint32 { return OpButtonPress }

func (m *ButtonPress) encode(w *Writer) {
	w.PutString(m.Surface)
	w.PutInt32(m.Button)
	w.PutInt32(m.X)
	w.PutInt32(m.Y)
}

func (m *ButtonPress) decode(r *Reader) {
	m.Surface = r.String()
	m.Button = r.Int32()
	m.X = r.Int32()
	m.Y = r.Int32()
}

type ButtonRelease struct {
	Surface string
	Button  int32
	X, Y    int32
}

func (*ButtonRelease) Op() uint32 { return OpButtonRelease }

func (m *ButtonRelease) encode(w *Writer) {
	w.PutString(m.Surface)
	w.PutInt32(m.Button)
	w.PutInt32(m.X)
	w.PutInt32(m.Y)
}

func (m *ButtonRelease) decode(r *Reader) {
	m.Surface = r.String()
	m.Button = r.Int32()
	m.X = r.Int32()
	m.Y = r.Int32()
}

type CursorMotion struct {
	Surface string
	X, Y    int32
}

func (*CursorMotion) Op() uint32 { return OpCursorMotion }

func (m *CursorMotion) encode(w *Writer) {
	w.PutString(m.Surface)
	w.PutInt32(m.X)
	w.PutInt32(m.Y)
}

func (m *CursorMotion) decode(r *Reader) {
	m.Surface = r.String()
	m.X = r.Int32()
	m.Y = r.Int32()
}

type KeyDownNotification struct {
	Code int32
}

func (*KeyDownNotification) Op() uint32 { return OpKeyDownNotification }
func (m *KeyDownNotification) encode(w *Writer) { w.PutInt32(m.Code) }
func (m *KeyDownNotification) decode(r *Reader) { m.Code = r.Int32() }

type KeyUpNotification struct {
	Code int32
}

func (*KeyUpNotification) Op() uint32 { return OpKeyUpNotification }
func (m *KeyUpNotification) encode(w *Writer) { w.PutInt32(m.Code) }
func (m *KeyUpNotification) decode(r *Reader) { m.Code = r.Int32() }

type SoundStart struct{}

func (*SoundStart) Op() uint32 { return OpSoundStart }
func (*SoundStart) encode(*Writer) {}
func (*SoundStart) decode(*Reader) {}

type SoundData struct {
	Data []byte
}

func (*SoundData) Op() uint32 { return OpSoundData }
func (m *SoundData) encode(w *Writer) { w.PutBytes(m.Data) }
func (m *SoundData) decode(r *Reader) { m.Data = append([]byte(nil), r.Bytes()...) }

type SoundStop struct{}

func (*SoundStop) Op() uint32 { return OpSoundStop }
func (*SoundStop) encode(*Writer) {}
func (*SoundStop) decode(*Reader) {}
