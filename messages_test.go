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
	"testing"
)

// buildHandshakeV10 assembles a minimal, well-formed HandshakeV10 packet
// with CLIENT_SECURE_CONNECTION and CLIENT_PLUGIN_AUTH set, matching what
// a modern MySQL/MariaDB server sends.
func buildHandshakeV10(pluginName string) []byte {
	var b bytes.Buffer
	b.WriteByte(10) // protocol version
	b.WriteString("8.0.34\x00")
	b.Write([]byte{1, 0, 0, 0})               // connection id
	b.Write([]byte("AAAAAAAA"))                // auth-plugin-data-part-1 (8 bytes)
	b.WriteByte(0)                              // filler
	caps := uint32(clientProtocol41 | clientSecureConn | clientPluginAuth)
	b.WriteByte(byte(caps))
	b.WriteByte(byte(caps >> 8))
	b.WriteByte(0x21)                           // charset
	b.Write([]byte{2, 0})                       // status flags
	b.WriteByte(byte(caps >> 16))
	b.WriteByte(byte(caps >> 24))
	b.WriteByte(21)                             // auth data len (8+13)
	b.Write(make([]byte, 10))                   // reserved
	b.Write([]byte("BBBBBBBBBBBB\x00"))         // auth-plugin-data-part-2 (13 bytes incl NUL)
	b.WriteString(pluginName)
	b.WriteByte(0)
	return b.Bytes()
}

func TestParseHandshakeV10(t *testing.T) {
	data := buildHandshakeV10("caching_sha2_password")
	h, err := parseHandshakeV10(data)
	if err != nil {
		t.Fatalf("parseHandshakeV10() error: %v", err)
	}
	if h.ProtocolVersion != 10 {
		t.Errorf("ProtocolVersion = %d, want 10", h.ProtocolVersion)
	}
	if h.ServerVersion != "8.0.34" {
		t.Errorf("ServerVersion = %q, want %q", h.ServerVersion, "8.0.34")
	}
	if h.ConnectionID != 1 {
		t.Errorf("ConnectionID = %d, want 1", h.ConnectionID)
	}
	if h.AuthPluginName != "caching_sha2_password" {
		t.Errorf("AuthPluginName = %q, want %q", h.AuthPluginName, "caching_sha2_password")
	}
	wantAuthData := "AAAAAAAABBBBBBBBBBBB"
	if string(h.AuthData) != wantAuthData {
		t.Errorf("AuthData = %q, want %q", h.AuthData, wantAuthData)
	}
	if h.Capabilities&clientProtocol41 == 0 {
		t.Error("Capabilities missing CLIENT_PROTOCOL_41")
	}
}

func TestHandshakeResponse41Encode(t *testing.T) {
	resp := &handshakeResponse41{
		Capabilities:   clientProtocol41 | clientSecureConn | clientPluginAuth | clientConnectWithDB,
		MaxPacketSize:  16777216,
		Charset:        0x21,
		Username:       "root",
		AuthResponse:   []byte{1, 2, 3, 4},
		Database:       "test",
		AuthPluginName: "mysql_native_password",
	}
	out := resp.encode(nil)

	if got := string(out[32 : 32+4]); got != "root" {
		t.Errorf("username field = %q, want %q", got, "root")
	}
	// username is NUL-terminated at offset 36
	if out[36] != 0x00 {
		t.Errorf("expected NUL terminator after username")
	}
	// auth response length byte (1-byte form, since LenEncClientData unset)
	if out[37] != 4 {
		t.Errorf("auth response length = %d, want 4", out[37])
	}
	if !bytes.Equal(out[38:42], []byte{1, 2, 3, 4}) {
		t.Errorf("auth response = %x, want %x", out[38:42], []byte{1, 2, 3, 4})
	}
	if got := string(out[42:46]); got != "test" {
		t.Errorf("database field = %q, want %q", got, "test")
	}
}

func TestParseOkPacket(t *testing.T) {
	data := []byte{0x00, 0x05, 0x01, 0x02, 0x00, 0x00, 0x00}
	ok, err := parseOkPacket(data)
	if err != nil {
		t.Fatalf("parseOkPacket() error: %v", err)
	}
	if ok.AffectedRows != 5 || ok.LastInsertID != 1 {
		t.Errorf("parseOkPacket() = %+v, want AffectedRows=5 LastInsertID=1", ok)
	}
}

func TestParseErrorPacket(t *testing.T) {
	data := append([]byte{0xff, 0x19, 0x04, '#'}, []byte("42000Unknown table 'x'")...)
	se, err := parseErrorPacket(data)
	if err != nil {
		t.Fatalf("parseErrorPacket() error: %v", err)
	}
	if se.Code != 0x0419 {
		t.Errorf("Code = %#x, want 0x0419", se.Code)
	}
	if se.SQLState != "42000" {
		t.Errorf("SQLState = %q, want %q", se.SQLState, "42000")
	}
	if se.Message != "Unknown table 'x'" {
		t.Errorf("Message = %q", se.Message)
	}
}

func TestIsEOFPacket(t *testing.T) {
	if !isEOFPacket([]byte{0xfe, 0, 0, 2, 0}) {
		t.Error("expected short 0xfe packet to be recognized as EOF")
	}
	// a 0xfe-prefixed 8-byte length-encoded integer collides in byte 0 but
	// is 9 bytes long, which must NOT be mistaken for EOF_Packet.
	longInt := append([]byte{0xfe}, make([]byte, 8)...)
	if isEOFPacket(longInt) {
		t.Error("9-byte 0xfe payload should not be treated as EOF_Packet")
	}
}

func TestParseAuthSwitchRequest(t *testing.T) {
	data := append([]byte{0xfe}, []byte("sha256_password\x00")...)
	data = append(data, []byte("seed-data-here-20b.")...)
	req, err := parseAuthSwitchRequest(data)
	if err != nil {
		t.Fatalf("parseAuthSwitchRequest() error: %v", err)
	}
	if req.PluginName != "sha256_password" {
		t.Errorf("PluginName = %q, want %q", req.PluginName, "sha256_password")
	}
	if string(req.PluginData) != "seed-data-here-20b." {
		t.Errorf("PluginData = %q", req.PluginData)
	}
}
