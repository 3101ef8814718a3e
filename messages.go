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
	"encoding/binary"
	"fmt"
)

// Typed protocol messages (spec §3, §4.7): parsing/encoding is kept
// separate from I/O so it can be unit tested against raw byte vectors.
// Grounded on go-sql-driver-mysql's packets.go readInitPacket/
// writeAuthPacket/handleOkPacket/handleErrorPacket/readColumns/
// readPrepareResultPacket, restructured into standalone message types.

// handshakeV10 is the server's initial greeting.
type handshakeV10 struct {
	ProtocolVersion byte
	ServerVersion   string
	ConnectionID    uint32
	AuthData        []byte // full auth-plugin-data (part1 + part2)
	Capabilities    clientFlag
	Charset         byte
	StatusFlags     serverStatus
	AuthPluginName  string
}

func parseHandshakeV10(data []byte) (*handshakeV10, error) {
	if len(data) < 1 {
		return nil, ErrMalformPkt
	}
	h := &handshakeV10{ProtocolVersion: data[0]}
	if h.ProtocolVersion < minProtocolVersion {
		return nil, fmt.Errorf("mysql: unsupported protocol version %d", h.ProtocolVersion)
	}

	version, n, err := readNulString(data[1:])
	if err != nil {
		return nil, err
	}
	h.ServerVersion = string(version)
	pos := 1 + n

	if len(data) < pos+4 {
		return nil, ErrMalformPkt
	}
	h.ConnectionID = binary.LittleEndian.Uint32(data[pos : pos+4])
	pos += 4

	if len(data) < pos+8 {
		return nil, ErrMalformPkt
	}
	authPart1 := append([]byte(nil), data[pos:pos+8]...)
	pos += 8 + 1 // skip filler

	if len(data) < pos+2 {
		return nil, ErrMalformPkt
	}
	capLower := binary.LittleEndian.Uint16(data[pos : pos+2])
	pos += 2

	h.Capabilities = clientFlag(capLower)
	if len(data) <= pos {
		h.AuthData = authPart1
		return h, nil
	}

	h.Charset = data[pos]
	pos++
	h.StatusFlags = serverStatus(binary.LittleEndian.Uint16(data[pos : pos+2]))
	pos += 2
	capUpper := binary.LittleEndian.Uint16(data[pos : pos+2])
	pos += 2
	h.Capabilities |= clientFlag(uint32(capUpper) << 16)

	authDataLen := int(data[pos])
	pos++
	pos += 10 // reserved

	if h.Capabilities&clientSecureConn != 0 {
		part2Len := authDataLen - 8
		if part2Len < 13 {
			part2Len = 13
		}
		if len(data) < pos+part2Len {
			return nil, ErrMalformPkt
		}
		authPart2 := data[pos : pos+part2Len-1] // drop trailing NUL
		h.AuthData = append(authPart1, authPart2...)
		pos += part2Len
	} else {
		h.AuthData = authPart1
	}

	if h.Capabilities&clientPluginAuth != 0 && len(data) > pos {
		name, _, err := readNulString(data[pos:])
		if err != nil {
			// some servers omit the trailing NUL on the last field
			name = data[pos:]
		}
		h.AuthPluginName = string(name)
	}

	return h, nil
}

// handshakeResponse41 is the client's reply to handshakeV10.
type handshakeResponse41 struct {
	Capabilities   clientFlag
	MaxPacketSize  uint32
	Charset        byte
	Username       string
	AuthResponse   []byte
	Database       string
	AuthPluginName string
}

func (r *handshakeResponse41) encode(dst []byte) []byte {
	dst = appendUint32(dst, uint32(r.Capabilities))
	dst = appendUint32(dst, r.MaxPacketSize)
	dst = append(dst, r.Charset)
	dst = append(dst, make([]byte, 23)...)
	dst = append(dst, []byte(r.Username)...)
	dst = append(dst, 0x00)

	if r.Capabilities&clientPluginAuthLenEncClientData != 0 {
		dst = writeLenencString(dst, r.AuthResponse)
	} else {
		dst = append(dst, byte(len(r.AuthResponse)))
		dst = append(dst, r.AuthResponse...)
	}

	if r.Capabilities&clientConnectWithDB != 0 {
		dst = append(dst, []byte(r.Database)...)
		dst = append(dst, 0x00)
	}

	if r.Capabilities&clientPluginAuth != 0 {
		dst = append(dst, []byte(r.AuthPluginName)...)
		dst = append(dst, 0x00)
	}

	return dst
}

// authSwitchRequest asks the client to retry with a different plugin.
type authSwitchRequest struct {
	PluginName string
	PluginData []byte
}

func parseAuthSwitchRequest(data []byte) (*authSwitchRequest, error) {
	if len(data) < 1 || data[0] != iEOF {
		return nil, ErrMalformPkt
	}
	name, n, err := readNulString(data[1:])
	if err != nil {
		return nil, err
	}
	pluginData := data[1+n:]
	// a trailing NUL is conventional but not guaranteed
	if len(pluginData) > 0 && pluginData[len(pluginData)-1] == 0x00 {
		pluginData = pluginData[:len(pluginData)-1]
	}
	return &authSwitchRequest{PluginName: string(name), PluginData: pluginData}, nil
}

// okPacket is OK_Packet (spec §4.7).
type okPacket struct {
	AffectedRows uint64
	LastInsertID uint64
	StatusFlags  serverStatus
	WarningCount uint16
	Info         string
}

func parseOkPacket(data []byte) (*okPacket, error) {
	if len(data) < 1 || data[0] != iOK {
		return nil, ErrMalformPkt
	}
	pos := 1
	affectedRows, _, n, err := readLenencInt(data[pos:])
	if err != nil {
		return nil, err
	}
	pos += n

	lastInsertID, _, n, err := readLenencInt(data[pos:])
	if err != nil {
		return nil, err
	}
	pos += n

	p := &okPacket{AffectedRows: affectedRows, LastInsertID: lastInsertID}
	if len(data) >= pos+2 {
		p.StatusFlags = serverStatus(binary.LittleEndian.Uint16(data[pos : pos+2]))
		pos += 2
	}
	if len(data) >= pos+2 {
		p.WarningCount = binary.LittleEndian.Uint16(data[pos : pos+2])
		pos += 2
	}
	if len(data) > pos {
		p.Info = string(data[pos:])
	}
	return p, nil
}

// parseErrorPacket decodes an ERR_Packet (spec §4.7).
func parseErrorPacket(data []byte) (*ServerError, error) {
	if len(data) < 3 || data[0] != iERR {
		return nil, ErrMalformPkt
	}
	code := binary.LittleEndian.Uint16(data[1:3])
	pos := 3
	var sqlState string
	if len(data) > pos && data[pos] == '#' && len(data) >= pos+6 {
		sqlState = string(data[pos+1 : pos+6])
		pos += 6
	}
	return &ServerError{Code: code, SQLState: sqlState, Message: string(data[pos:])}, nil
}

// eofPacket is EOF_Packet, used only when CLIENT_DEPRECATE_EOF is unset.
type eofPacket struct {
	WarningCount uint16
	StatusFlags  serverStatus
}

func isEOFPacket(data []byte) bool {
	return len(data) >= 1 && data[0] == iEOF && len(data) < 9
}

func parseEofPacket(data []byte) (*eofPacket, error) {
	if !isEOFPacket(data) {
		return nil, ErrMalformPkt
	}
	e := &eofPacket{}
	if len(data) >= 5 {
		e.WarningCount = binary.LittleEndian.Uint16(data[1:3])
		e.StatusFlags = serverStatus(binary.LittleEndian.Uint16(data[3:5]))
	}
	return e, nil
}

// columnDefinition is ColumnDefinition41 (spec §4.7/§3).
type columnDefinition struct {
	Name      string
	FieldType fieldType
	Flags     fieldFlag
	Decimals  byte
}

func parseColumnDefinition41(data []byte) (*columnDefinition, error) {
	pos := 0

	n, err := skipLenencString(data[pos:]) // catalog
	if err != nil {
		return nil, err
	}
	pos += n

	n, err = skipLenencString(data[pos:]) // schema
	if err != nil {
		return nil, err
	}
	pos += n

	n, err = skipLenencString(data[pos:]) // table
	if err != nil {
		return nil, err
	}
	pos += n

	n, err = skipLenencString(data[pos:]) // org_table
	if err != nil {
		return nil, err
	}
	pos += n

	name, _, n, err := readLenencString(data[pos:])
	if err != nil {
		return nil, err
	}
	pos += n

	n, err = skipLenencString(data[pos:]) // org_name
	if err != nil {
		return nil, err
	}
	pos += n

	// fixed-length fields: lenenc(0x0c) + charset(2) + length(4) + type(1) + flags(2) + decimals(1) + filler(2)
	_, _, n, err = readLenencInt(data[pos:])
	if err != nil {
		return nil, err
	}
	pos += n
	if len(data) < pos+10 {
		return nil, ErrMalformPkt
	}
	pos += 2 + 4
	ft := fieldType(data[pos])
	pos++
	flags := fieldFlag(binary.LittleEndian.Uint16(data[pos : pos+2]))
	pos += 2
	decimals := data[pos]

	return &columnDefinition{Name: string(name), FieldType: ft, Flags: flags, Decimals: decimals}, nil
}

func skipLenencString(data []byte) (int, error) {
	_, _, n, err := readLenencString(data)
	return n, err
}

// prepareOk is the header of COM_STMT_PREPARE's response.
type prepareOk struct {
	StatementID  uint32
	ColumnCount  uint16
	ParamCount   uint16
	WarningCount uint16
}

func parsePrepareOk(data []byte) (*prepareOk, error) {
	if len(data) < 12 || data[0] != iOK {
		return nil, ErrMalformPkt
	}
	return &prepareOk{
		StatementID:  binary.LittleEndian.Uint32(data[1:5]),
		ColumnCount:  binary.LittleEndian.Uint16(data[5:7]),
		ParamCount:   binary.LittleEndian.Uint16(data[7:9]),
		WarningCount: binary.LittleEndian.Uint16(data[10:12]),
	}, nil
}
