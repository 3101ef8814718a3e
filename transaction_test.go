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
	"context"
	"net"
	"strings"
	"testing"
)

func TestBeginWithIsolationLevel(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	var queries []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		fs := newFakeServer(t, server)

		q := fs.readPacket()
		queries = append(queries, string(q[1:]))
		fs.writePacket(buildOkPacket())

		q = fs.readPacket()
		queries = append(queries, string(q[1:]))
		fs.writePacket(buildOkPacket())
	}()

	pc := newPacketConn(client)
	c := &Connection{cfg: NewConfig(), pc: pc}

	tx, err := c.Begin(context.Background(), LevelRepeatableRead)
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	if tx == nil {
		t.Fatal("Begin() returned nil Tx")
	}

	<-done

	if len(queries) != 2 {
		t.Fatalf("got %d queries, want 2", len(queries))
	}
	if !strings.Contains(queries[0], "REPEATABLE READ") {
		t.Errorf("first query = %q, want it to set REPEATABLE READ", queries[0])
	}
	if queries[1] != "BEGIN" {
		t.Errorf("second query = %q, want BEGIN", queries[1])
	}
}

func TestBeginDefaultLevelSkipsSetTransaction(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fs := newFakeServer(t, server)
		q := fs.readPacket()
		if string(q[1:]) != "BEGIN" {
			t.Errorf("expected BEGIN as the only statement, got %q", q[1:])
		}
		fs.writePacket(buildOkPacket())
	}()

	pc := newPacketConn(client)
	c := &Connection{cfg: NewConfig(), pc: pc}

	if _, err := c.Begin(context.Background(), LevelDefault); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}

	<-done
}

func TestTxCommitThenCommitAgain(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fs := newFakeServer(t, server)
		q := fs.readPacket()
		if string(q[1:]) != "COMMIT" {
			t.Errorf("expected COMMIT, got %q", q[1:])
		}
		fs.writePacket(buildOkPacket())
	}()

	pc := newPacketConn(client)
	c := &Connection{cfg: NewConfig(), pc: pc}
	tx := &Tx{conn: c}

	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	<-done

	if err := tx.Commit(context.Background()); err != ErrInvalidConn {
		t.Errorf("second Commit() = %v, want ErrInvalidConn", err)
	}
}
