// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package wrappers provides closable views over streams that must not be
// closed themselves. The repl runs on stdin/stdout and closes its ends on
// shutdown; these wrappers absorb that close.
package wrappers

import (
	"errors"
	"io"
)

var ErrClosed = errors.New("closed")

type ReaderWrapper struct {
	isClosed bool
	wrapped  io.Reader
}

func NewReaderWrapper(wraps io.Reader) *ReaderWrapper {
	return &ReaderWrapper{wrapped: wraps}
}

// Close implements repl.ReadCloser without closing the wrapped reader.
func (r *ReaderWrapper) Close() error {
	r.isClosed = true
	return nil
}

func (r *ReaderWrapper) Read(p []byte) (n int, err error) {
	if r.isClosed {
		return 0, ErrClosed
	}
	return r.wrapped.Read(p)
}

type WriterWrapper struct {
	isClosed bool
	wrapped  io.Writer
}

func NewWriterWrapper(wraps io.Writer) *WriterWrapper {
	return &WriterWrapper{wrapped: wraps}
}

func (w *WriterWrapper) Close() error {
	w.isClosed = true
	return nil
}

func (w *WriterWrapper) Write(p []byte) (n int, err error) {
	if w.isClosed {
		return 0, ErrClosed
	}
	return w.wrapped.Write(p)
}
