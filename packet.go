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
	"io"
	"net"
)

// packetConn frames payloads on top of a raw net.Conn: a 3-byte
// little-endian length, a 1-byte sequence id, then up to maxPacketSize
// bytes of payload, splitting/reassembling across multiple frames when a
// payload is maxPacketSize bytes or longer (spec §4.2). Grounded on
// shogo82148-mysql's packets.go readPacket/writePacket, adapted off the
// mysqlConn receiver onto a standalone type the new Connection embeds.
type packetConn struct {
	conn             net.Conn
	rd               *readBuffer
	wr               writeBuffer
	sequence         byte
	maxAllowedPacket int
}

func newPacketConn(conn net.Conn) *packetConn {
	return &packetConn{
		conn:             conn,
		rd:               newReadBuffer(conn),
		maxAllowedPacket: maxPacketSize,
	}
}

// resetSequence restarts the per-command sequence counter; called before
// each new command is issued (spec §4.2).
func (pc *packetConn) resetSequence() {
	pc.sequence = 0
}

// readPacket reads one full (possibly multi-frame) packet payload.
func (pc *packetConn) readPacket() ([]byte, error) {
	var prevData []byte
	for {
		header, err := pc.rd.readNext(4)
		if err != nil {
			return nil, err
		}

		pktLen := int(uint32(header[0]) | uint32(header[1])<<8 | uint32(header[2])<<16)

		if header[3] != pc.sequence {
			if header[3] > pc.sequence {
				return nil, ErrPktSyncMul
			}
			return nil, ErrPktSync
		}
		pc.sequence++

		if pktLen == 0 {
			if prevData == nil {
				return nil, ErrMalformPkt
			}
			return prevData, nil
		}

		data, err := pc.rd.readNext(pktLen)
		if err != nil {
			return nil, err
		}

		if pktLen < maxPacketSize {
			if prevData == nil {
				return data, nil
			}
			return append(prevData, data...), nil
		}

		buf := make([]byte, len(data))
		copy(buf, data)
		prevData = append(prevData, buf...)
	}
}

// writePacket frames and writes payload, which must already carry
// packetHeaderSize reserved bytes at its front (see writeBuffer.reset).
func (pc *packetConn) writePacket(data []byte) error {
	pktLen := len(data) - packetHeaderSize
	if pktLen > pc.maxAllowedPacket {
		return ErrPktTooLarge
	}

	for {
		var size int
		if pktLen >= maxPacketSize {
			data[0], data[1], data[2] = 0xff, 0xff, 0xff
			size = maxPacketSize
		} else {
			data[0] = byte(pktLen)
			data[1] = byte(pktLen >> 8)
			data[2] = byte(pktLen >> 16)
			size = pktLen
		}
		data[3] = pc.sequence
		pc.sequence++

		if _, err := pc.conn.Write(data[:packetHeaderSize+size]); err != nil {
			return err
		}

		pktLen -= size
		if pktLen == 0 {
			if size == maxPacketSize {
				// terminate with a zero-length frame (spec §4.2)
				if _, err := pc.conn.Write([]byte{0, 0, 0, pc.sequence}); err != nil {
					return err
				}
				pc.sequence++
			}
			return nil
		}

		data = data[packetHeaderSize+size:]
		data = append([]byte{0, 0, 0, 0}, data...)
	}
}

// startPacket begins building an outgoing command: resets the writer and
// reserves the 4-byte header.
func (pc *packetConn) startPacket() []byte {
	return pc.wr.reset()
}

// sendCommand writes a single-byte command opcode with no payload, e.g.
// COM_QUIT / COM_PING.
func (pc *packetConn) sendCommand(cmd commandType) error {
	pc.resetSequence()
	data := pc.startPacket()
	data = append(data, byte(cmd))
	return pc.writePacket(data)
}

var _ io.Closer = (*packetConn)(nil)

func (pc *packetConn) Close() error {
	return pc.conn.Close()
}
