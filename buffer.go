// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 Julien Schmidt. All rights reserved.
// http://www.julienschmidt.com
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import "io"

const defaultBufSize = 4096

// readBuffer is a bufio.Reader-alike, zero-copy where possible and
// specialized for pulling fixed-size packet frames off the wire.
type readBuffer struct {
	buf    []byte
	rd     io.Reader
	idx    int
	length int
}

func newReadBuffer(rd io.Reader) *readBuffer {
	var b [defaultBufSize]byte
	return &readBuffer{
		buf: b[:],
		rd:  rd,
	}
}

// fill reads into the buffer until at least need bytes are available.
func (b *readBuffer) fill(need int) (err error) {
	if b.length > 0 && b.idx > 0 {
		copy(b.buf[0:b.length], b.buf[b.idx:])
	}

	if need > len(b.buf) {
		newBuf := make([]byte, need)
		copy(newBuf, b.buf)
		b.buf = newBuf
	}

	b.idx = 0

	var n int
	for {
		n, err = b.rd.Read(b.buf[b.length:])
		b.length += n

		if b.length < need && err == nil {
			continue
		}
		return
	}
}

// readNext returns the next need bytes from the buffer. The slice is only
// valid until the following call to readNext.
func (b *readBuffer) readNext(need int) (p []byte, err error) {
	if b.length < need {
		err = b.fill(need)
	}

	p = b.buf[b.idx : b.idx+need]
	b.idx += need
	b.length -= need
	return
}

// writeBuffer accumulates an outgoing packet payload. reset reserves the
// 4-byte packet header up front so the
// framer (packet.go) can patch length/sequence in place instead of
// allocating a second time; grounded on shogo82148-mysql's buffer.go.
type writeBuffer struct {
	buf []byte
}

const packetHeaderSize = 4

func (w *writeBuffer) reset() []byte {
	if cap(w.buf) < packetHeaderSize {
		w.buf = make([]byte, packetHeaderSize, defaultBufSize)
	} else {
		w.buf = w.buf[:packetHeaderSize]
	}
	return w.buf
}

func (w *writeBuffer) append(p []byte) {
	w.buf = append(w.buf, p...)
}

func (w *writeBuffer) bytes() []byte {
	return w.buf
}

// payload returns the portion written after the reserved header.
func (w *writeBuffer) payload() []byte {
	return w.buf[packetHeaderSize:]
}

// various allocation pools, shared across connections. No code in this
// package calls getBytes/putBytes/getColumns/putColumns.

var bytesPool = make(chan []byte, 16)

// getBytes may return unzeroed bytes.
func getBytes(n int) []byte {
	select {
	case s := <-bytesPool:
		if cap(s) >= n {
			return s[:n]
		}
	default:
	}
	return make([]byte, n)
}

func putBytes(s []byte) {
	select {
	case bytesPool <- s:
	default:
	}
}

var columnPool = make(chan []columnDefinition, 16)

func getColumns(n int) []columnDefinition {
	select {
	case f := <-columnPool:
		if cap(f) >= n {
			return f[:n]
		}
	default:
	}
	return make([]columnDefinition, n)
}

func putColumns(f []columnDefinition) {
	select {
	case columnPool <- f:
	default:
	}
}
