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
	"context"
	"io"
	"net"
	"testing"
)

// buildColumnDefinition41 assembles a minimal ColumnDefinition41 packet for
// a column named name of the given type.
func buildColumnDefinition41(name string, ft fieldType) []byte {
	var b bytes.Buffer
	b.WriteByte(3)
	b.WriteString("def")
	b.WriteByte(0) // schema (empty)
	b.WriteByte(0) // table (empty)
	b.WriteByte(0) // org_table (empty)
	b.WriteByte(byte(len(name)))
	b.WriteString(name)
	b.WriteByte(0) // org_name (empty)
	b.WriteByte(0x0c)
	b.Write([]byte{0x21, 0x00})       // charset
	b.Write([]byte{0, 0, 0, 0})       // column length
	b.WriteByte(byte(ft))
	b.Write([]byte{0x00, 0x00})       // flags
	b.WriteByte(0x00)                 // decimals
	b.Write([]byte{0, 0})             // filler
	return b.Bytes()
}

func TestPrepareRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fs := newFakeServer(t, server)

		fs.readPacket() // COM_STMT_PREPARE

		// prepareOk: status(1) stmt_id(4) num_columns(2) num_params(2) filler(1) warnings(2)
		prepOk := []byte{0x00, 1, 0, 0, 0, 1, 0, 1, 0, 0, 0, 0}
		fs.writePacket(prepOk)

		fs.writePacket(buildColumnDefinition41("?", fieldTypeLong)) // param definition
		fs.writePacket(buildColumnDefinition41("id", fieldTypeLong)) // column definition
	}()

	pc := newPacketConn(client)
	c := &Connection{cfg: NewConfig(), pc: pc, capabilities: clientDeprecateEOF}

	stmt, err := c.Prepare(context.Background(), "SELECT id FROM t WHERE id = ?")
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	if stmt.id != 1 {
		t.Errorf("stmt.id = %d, want 1", stmt.id)
	}
	if stmt.ParamCount() != 1 {
		t.Errorf("ParamCount() = %d, want 1", stmt.ParamCount())
	}
	if len(stmt.columns) != 1 || stmt.columns[0].Name != "id" {
		t.Errorf("stmt.columns = %+v, want one column named id", stmt.columns)
	}

	<-done
}

func TestWriteExecutePacketEncoding(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	read := make(chan []byte, 1)
	go func() {
		buf, _ := io.ReadAll(server)
		read <- buf
	}()

	pc := newPacketConn(client)
	c := &Connection{cfg: NewConfig(), pc: pc}
	stmt := &PreparedStatement{conn: c, id: 7, paramCount: 3}

	// matches the [null, 42u32, "hi"] seed scenario: the type block must
	// read [NULL,0, LONG,0, STRING,0] -- the unsigned byte is 0 even for
	// the uint32 parameter, since it echoes a column's declared
	// UNSIGNED_FLAG rather than the Go value's own signedness.
	args := []interface{}{nil, uint32(42), "hi"}
	params := make([]encodedParam, len(args))
	for i, a := range args {
		p, err := resolveMysqlValue(a)
		if err != nil {
			t.Fatalf("resolveMysqlValue(%v) error: %v", a, err)
		}
		params[i] = p
	}

	if err := stmt.writeExecutePacket(params); err != nil {
		t.Fatalf("writeExecutePacket() error: %v", err)
	}
	client.Close()

	out := <-read
	// header(4) + cmd(1) + stmt_id(4) + cursor(1) + iterations(4) = 14 bytes before the bitmap
	if len(out) < 14 {
		t.Fatalf("written packet too short: %d bytes", len(out))
	}
	if out[4] != byte(comStmtExecute) {
		t.Errorf("command byte = %#x, want COM_STMT_EXECUTE", out[4])
	}
	stmtID := uint32(out[5]) | uint32(out[6])<<8 | uint32(out[7])<<16 | uint32(out[8])<<24
	if stmtID != 7 {
		t.Errorf("statement id = %d, want 7", stmtID)
	}
	// null bitmap for 3 params is 1 byte; bit 0 (the first param) is set
	if out[14] != 0x01 {
		t.Errorf("null bitmap = %#x, want 0x01", out[14])
	}
	if out[15] != 1 {
		t.Errorf("new-params-bound flag = %d, want 1", out[15])
	}
	wantTypes := []byte{byte(fieldTypeNULL), 0, byte(fieldTypeLong), 0, byte(fieldTypeString), 0}
	if !bytes.Equal(out[16:22], wantTypes) {
		t.Errorf("type block = %x, want %x", out[16:22], wantTypes)
	}
}
