// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package packet implements the wire codec: typed messages serialized into
// length-prefixed byte frames, with file descriptors carried out-of-band
// on the socket rather than in the byte stream.
package packet

import (
	"encoding/binary"
	"math"
	"os"

	"github.com/pkg/errors"
)

var (
	// ErrUnknownOp marks a frame whose opcode has no registered message.
	ErrUnknownOp = errors.New("packet: unknown operation code")
	// ErrShortFrame marks a truncated or otherwise malformed frame.
	ErrShortFrame = errors.New("packet: short frame")
	// ErrFdMissing marks a packet that requires an out-of-band file
	// descriptor which did not arrive with it.
	ErrFdMissing = errors.New("packet: file descriptor missing")
)

// MaxFrameSize bounds a single frame. Anything larger cannot be resynced
// and is treated as a transport error by the connection layer.
const MaxFrameSize = 16 << 20

// Packet is one framed message: an operation code, the encoded payload,
// and optionally one file descriptor received or sent as ancillary data.
type Packet struct {
	Op      uint32
	Payload []byte
	File    *os.File
}

// Frame serializes p for the wire: a little-endian u32 length covering the
// opcode and payload, then the opcode, then the payload.
func (p *Packet) Frame() []byte {
	buf := make([]byte, 8+len(p.Payload))
	binary.LittleEndian.PutUint32(buf[0:], uint32(4+len(p.Payload)))
	binary.LittleEndian.PutUint32(buf[4:], p.Op)
	copy(buf[8:], p.Payload)
	return buf
}

// Deframe extracts the first complete frame from buf. It returns the
// packet (nil if buf does not yet hold a whole frame) and the number of
// bytes consumed. A length outside [4, MaxFrameSize] is unrecoverable and
// reported as an error.
func Deframe(buf []byte) (*Packet, int, error) {
	if len(buf) < 4 {
		return nil, 0, nil
	}
	size := binary.LittleEndian.Uint32(buf)
	if size < 4 || size > MaxFrameSize {
		return nil, 0, errors.Wrapf(ErrShortFrame, "frame length %d", size)
	}
	if len(buf) < int(4+size) {
		return nil, 0, nil
	}
	p := &Packet{
		Op:      binary.LittleEndian.Uint32(buf[4:]),
		Payload: append([]byte(nil), buf[8:4+size]...),
	}
	return p, int(4 + size), nil
}

// Writer accumulates an encoded payload. Integers are little-endian u32,
// signed values cast through unsigned, floats IEEE-754 32-bit, strings and
// blobs length-prefixed with no terminator.
type Writer struct {
	buf []byte
}

func (w *Writer) PutUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) PutInt32(v int32) {
	w.PutUint32(uint32(v))
}

func (w *Writer) PutFloat32(v float32) {
	w.PutUint32(math.Float32bits(v))
}

func (w *Writer) PutString(s string) {
	w.PutUint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) PutBytes(b []byte) {
	w.PutUint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

// Reader decodes a payload written by Writer. The first decode failure
// sticks; Err reports it.
type Reader struct {
	buf []byte
	off int
	err error
}

func NewReader(payload []byte) *Reader {
	return &Reader{buf: payload}
}

func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) fail() {
	if r.err == nil {
		r.err = ErrShortFrame
	}
}

func (r *Reader) Uint32() uint32 {
	if r.err != nil {
		return 0
	}
	if r.off+4 > len(r.buf) {
		r.fail()
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *Reader) Int32() int32 {
	return int32(r.Uint32())
}

func (r *Reader) Float32() float32 {
	return math.Float32frombits(r.Uint32())
}

func (r *Reader) String() string {
	return string(r.Bytes())
}

func (r *Reader) Bytes() []byte {
	n := r.Uint32()
	if r.err != nil {
		return nil
	}
	if uint32(len(r.buf)-r.off) < n {
		r.fail()
		return nil
	}
	b := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	return b
}
