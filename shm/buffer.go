// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package shm maps client-provided pixel buffers into the compositor.
// A buffer is backed either by a regular file on disk or by an anonymous
// shared-memory descriptor passed over the socket; both expose the same
// read-only BGRA byte view.
package shm

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// BytesPerPixel is fixed: surfaces are 4-byte BGRA.
const BytesPerPixel = 4

// Buffer is a mapped pixel store of width*height*4 bytes. The owning
// client keeps writing to the memory while it is mapped here; reads may
// observe torn rows, which the renderer tolerates by always uploading the
// newest bytes.
type Buffer struct {
	data   []byte
	width  int
	height int
	file   *os.File
}

// MapFile maps path read-only.
func MapFile(path string, width, height int) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open surface file %s", path)
	}
	b, err := mapPixels(f, width, height)
	if err != nil {
		f.Close()
		return nil, err
	}
	return b, nil
}

// MapFd maps an ashmem-style descriptor. The buffer takes ownership of
// the file and closes it on Close.
func MapFd(f *os.File, width, height int) (*Buffer, error) {
	b, err := mapPixels(f, width, height)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func mapPixels(f *os.File, width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("bad surface dimensions %dx%d", width, height)
	}
	size := width * height * BytesPerPixel
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %d bytes", size)
	}
	return &Buffer{data: data, width: width, height: height, file: f}, nil
}

func (b *Buffer) Width() int {
	return b.width
}

func (b *Buffer) Height() int {
	return b.height
}

// Data is the mapped pixel view. Callers must treat it as read-only.
func (b *Buffer) Data() []byte {
	return b.data
}

// Close unmaps the pixels and closes the owned descriptor.
func (b *Buffer) Close() {
	if b.data != nil {
		unix.Munmap(b.data)
		b.data = nil
	}
	if b.file != nil {
		b.file.Close()
		b.file = nil
	}
}
