// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 Julien Schmidt. All rights reserved.
// http://www.julienschmidt.com
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Byte codec (spec §4.1): length-encoded integers and strings, fixed-width
// little-endian integers, and null/EOF-terminated strings. Grounded on
// utils.go's bytesToLengthEncodedInteger/lengthEncodedIntegerToBytes family,
// completed to cover the full 0xfc/0xfd/0xfe table (the teacher's own
// lengthEncodedIntegerToBytes silently drops values above 0xffffff, and its
// decode shifts the high byte of the 8-byte form by 54 instead of 56 — both
// fixed here).

// readLenencInt decodes a length-encoded integer at the start of b.
// Returns the value, whether it denoted NULL (0xfb), and the number of
// bytes consumed.
func readLenencInt(b []byte) (num uint64, isNull bool, n int, err error) {
	if len(b) == 0 {
		return 0, false, 0, io.ErrUnexpectedEOF
	}

	switch b[0] {
	case 0xfb:
		return 0, true, 1, nil

	case 0xfc:
		if len(b) < 3 {
			return 0, false, 0, fmt.Errorf("%w: truncated 2-byte length-encoded integer", ErrMalformPkt)
		}
		return uint64(binary.LittleEndian.Uint16(b[1:3])), false, 3, nil

	case 0xfd:
		if len(b) < 4 {
			return 0, false, 0, fmt.Errorf("%w: truncated 3-byte length-encoded integer", ErrMalformPkt)
		}
		return uint64(b[1]) | uint64(b[2])<<8 | uint64(b[3])<<16, false, 4, nil

	case 0xfe:
		if len(b) < 9 {
			return 0, false, 0, fmt.Errorf("%w: truncated 8-byte length-encoded integer", ErrMalformPkt)
		}
		return binary.LittleEndian.Uint64(b[1:9]), false, 9, nil

	default:
		return uint64(b[0]), false, 1, nil
	}
}

// writeLenencInt appends the length-encoded form of n to dst.
func writeLenencInt(dst []byte, n uint64) []byte {
	switch {
	case n <= 250:
		return append(dst, byte(n))
	case n <= 0xffff:
		return append(dst, 0xfc, byte(n), byte(n>>8))
	case n <= 0xffffff:
		return append(dst, 0xfd, byte(n), byte(n>>8), byte(n>>16))
	default:
		dst = append(dst, 0xfe)
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], n)
		return append(dst, buf[:]...)
	}
}

// lenencIntSize returns the number of bytes writeLenencInt(nil, n) would emit.
func lenencIntSize(n uint64) int {
	switch {
	case n <= 250:
		return 1
	case n <= 0xffff:
		return 3
	case n <= 0xffffff:
		return 4
	default:
		return 9
	}
}

// readLenencString decodes a length-encoded string: a length-encoded
// integer followed by that many raw bytes.
func readLenencString(b []byte) (s []byte, isNull bool, n int, err error) {
	length, isNull, n, err := readLenencInt(b)
	if err != nil || isNull {
		return nil, isNull, n, err
	}
	if uint64(len(b)-n) < length {
		return nil, false, n, io.ErrUnexpectedEOF
	}
	return b[n : n+int(length)], false, n + int(length), nil
}

// writeLenencString appends a length-encoded string to dst.
func writeLenencString(dst []byte, s []byte) []byte {
	dst = writeLenencInt(dst, uint64(len(s)))
	return append(dst, s...)
}

// readNulString reads bytes up to (excluding) the first 0x00 byte. Returns
// the slice and the number of bytes consumed including the terminator.
func readNulString(b []byte) (s []byte, n int, err error) {
	idx := bytes.IndexByte(b, 0x00)
	if idx < 0 {
		return nil, 0, io.ErrUnexpectedEOF
	}
	return b[:idx], idx + 1, nil
}

func putUint16(dst []byte, v uint16) { binary.LittleEndian.PutUint16(dst, v) }
func putUint32(dst []byte, v uint32) { binary.LittleEndian.PutUint32(dst, v) }
func putUint64(dst []byte, v uint64) { binary.LittleEndian.PutUint64(dst, v) }

func appendUint16(dst []byte, v uint16) []byte {
	var buf [2]byte
	putUint16(buf[:], v)
	return append(dst, buf[:]...)
}

func appendUint24(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16))
}

func appendUint32(dst []byte, v uint32) []byte {
	var buf [4]byte
	putUint32(buf[:], v)
	return append(dst, buf[:]...)
}

func appendUint64(dst []byte, v uint64) []byte {
	var buf [8]byte
	putUint64(buf[:], v)
	return append(dst, buf[:]...)
}
