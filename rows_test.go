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
	"net"
	"testing"
)

func TestDecodeTextRow(t *testing.T) {
	cols := []ColumnInfo{{Name: "a"}, {Name: "b"}}
	var data []byte
	data = writeLenencString(data, []byte("hello"))
	data = append(data, 0xfb) // NULL

	row, err := decodeTextRow(data, cols)
	if err != nil {
		t.Fatalf("decodeTextRow() error: %v", err)
	}
	if string(row[0].([]byte)) != "hello" {
		t.Errorf("row[0] = %v, want %q", row[0], "hello")
	}
	if row[1] != nil {
		t.Errorf("row[1] = %v, want nil", row[1])
	}
}

func TestDecodeBinaryRow(t *testing.T) {
	cols := []ColumnInfo{
		{Name: "id", Type: fieldTypeLong},
		{Name: "name", Type: fieldTypeString},
		{Name: "missing", Type: fieldTypeLong},
	}
	// bitmap covers 3 columns, offset by 2 bits -> 1 byte; column 2 (bit 4) is NULL
	bitmap := byte(1 << 4)
	data := []byte{iOK, bitmap}
	data = append(data, 7, 0, 0, 0) // id = 7
	data = writeLenencString(data, []byte("ok"))

	row, err := decodeBinaryRow(data, cols)
	if err != nil {
		t.Fatalf("decodeBinaryRow() error: %v", err)
	}
	if row[0].(int64) != 7 {
		t.Errorf("row[0] = %v, want 7", row[0])
	}
	if string(row[1].([]byte)) != "ok" {
		t.Errorf("row[1] = %v, want %q", row[1], "ok")
	}
	if row[2] != nil {
		t.Errorf("row[2] = %v, want nil", row[2])
	}
}

func TestResultSetScan(t *testing.T) {
	rs := &ResultSet{row: []interface{}{int64(5), []byte("x"), nil}}
	var id int64
	var name string
	var extra interface{}
	if err := rs.Scan(&id, &name, &extra); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if id != 5 {
		t.Errorf("id = %d, want 5", id)
	}
	if name != "x" {
		t.Errorf("name = %q, want %q", name, "x")
	}
	if extra != nil {
		t.Errorf("extra = %v, want nil", extra)
	}
}

func TestResultSetScanCountMismatch(t *testing.T) {
	rs := &ResultSet{row: []interface{}{int64(1)}}
	var a, b int64
	if err := rs.Scan(&a, &b); err == nil {
		t.Error("expected error for mismatched dest count")
	}
}

// buildOkPacket assembles a minimal OK_Packet with zero affected rows.
func buildOkPacket() []byte {
	return []byte{iOK, 0, 0, 0, 0, 0, 0}
}

func TestQueryLocalInFileRejected(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fs := newFakeServer(t, server)
		fs.readPacket() // COM_QUERY
		// LOCAL INFILE request: 0xfb followed by the requested filename.
		fs.writePacket(append([]byte{iLocalInFile}, []byte("/etc/passwd")...))
	}()

	pc := newPacketConn(client)
	c := &Connection{cfg: NewConfig(), pc: pc}

	_, err := c.Query(context.Background(), "LOAD DATA LOCAL INFILE 'x' INTO TABLE t")
	if err != ErrUnsupported {
		t.Errorf("Query() error = %v, want ErrUnsupported", err)
	}

	<-done
}

func TestQueryNoResultSet(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fs := newFakeServer(t, server)
		cmd := fs.readPacket()
		if len(cmd) < 1 || cmd[0] != byte(comQuery) {
			t.Errorf("expected COM_QUERY, got %x", cmd)
		}
		fs.writePacket([]byte{iOK, 1, 0, 0, 0, 0, 0}) // 1 row affected
	}()

	pc := newPacketConn(client)
	c := &Connection{cfg: NewConfig(), pc: pc}

	rs, err := c.Query(context.Background(), "DELETE FROM t")
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if rs.AffectedRows() != 1 {
		t.Errorf("AffectedRows() = %d, want 1", rs.AffectedRows())
	}
	if len(rs.Columns()) != 0 {
		t.Errorf("Columns() = %v, want empty", rs.Columns())
	}
	if c.busy {
		t.Error("Connection should not be busy after an OK-only result")
	}

	<-done
}

func TestQueryWithResultSet(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fs := newFakeServer(t, server)
		fs.readPacket() // COM_QUERY

		fs.writePacket([]byte{1}) // field count lenenc int = 1
		fs.writePacket(buildColumnDefinition41("n", fieldTypeString))
		fs.writePacket([]byte{0xfe, 0, 0, 2, 0}) // EOF (no CLIENT_DEPRECATE_EOF)

		row := writeLenencString(nil, []byte("hi"))
		fs.writePacket(row)
		fs.writePacket([]byte{0xfe, 0, 0, 2, 0}) // terminating EOF
	}()

	pc := newPacketConn(client)
	c := &Connection{cfg: NewConfig(), pc: pc}

	rs, err := c.Query(context.Background(), "SELECT n FROM t")
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if !c.busy {
		t.Error("Connection should be busy while a ResultSet is open")
	}

	more, err := rs.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if !more {
		t.Fatal("Next() = false on first row, want true")
	}
	v, err := rs.Value(0)
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}
	if !bytes.Equal(v.([]byte), []byte("hi")) {
		t.Errorf("Value(0) = %v, want %q", v, "hi")
	}

	more, err = rs.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if more {
		t.Error("Next() = true after last row, want false")
	}
	if c.busy {
		t.Error("Connection should be released once the result set is drained")
	}

	<-done
}
