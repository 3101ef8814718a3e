// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 Julien Schmidt. All rights reserved.
// http://www.julienschmidt.com
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import "context"

// PreparedStatement is a server-side prepared statement (spec §5),
// created by Connection.Prepare and driven with Execute. Grounded on the
// original statement.go's mysqlStmt, adapted off database/sql/driver
// onto the standalone Connection/ResultSet API.
type PreparedStatement struct {
	conn       *Connection
	id         uint32
	paramCount int
	columns    []ColumnInfo
	closed     bool
}

// Prepare issues COM_STMT_PREPARE (spec §5) and returns a reusable
// PreparedStatement.
func (c *Connection) Prepare(ctx context.Context, query string) (*PreparedStatement, error) {
	if c.closed.IsSet() {
		return nil, ErrInvalidConn
	}
	if c.busy {
		return nil, ErrBusy
	}

	c.pc.resetSequence()
	data := c.pc.startPacket()
	data = append(data, byte(comStmtPrepare))
	data = append(data, query...)
	if err := c.pc.writePacket(data); err != nil {
		return nil, err
	}

	header, err := c.readPacket()
	if err != nil {
		return nil, err
	}
	if len(header) > 0 && header[0] == iERR {
		se, perr := parseErrorPacket(header)
		if perr != nil {
			return nil, perr
		}
		return nil, se
	}

	ok, err := parsePrepareOk(header)
	if err != nil {
		return nil, err
	}

	stmt := &PreparedStatement{conn: c, id: ok.StatementID, paramCount: int(ok.ParamCount)}

	if ok.ParamCount > 0 {
		if err := c.skipColumnDefinitions(int(ok.ParamCount)); err != nil {
			return nil, err
		}
	}
	if ok.ColumnCount > 0 {
		cols, err := c.readColumnDefinitions(int(ok.ColumnCount))
		if err != nil {
			return nil, err
		}
		stmt.columns = cols
	}

	return stmt, nil
}

func (c *Connection) skipColumnDefinitions(count int) error {
	_, err := c.readColumnDefinitions(count)
	return err
}

func (c *Connection) readColumnDefinitions(count int) ([]ColumnInfo, error) {
	cols := make([]ColumnInfo, 0, count)
	for i := 0; i < count; i++ {
		data, err := c.readPacket()
		if err != nil {
			return nil, err
		}
		col, err := parseColumnDefinition41(data)
		if err != nil {
			return nil, err
		}
		cols = append(cols, ColumnInfo{
			Name:     col.Name,
			Type:     col.FieldType,
			Unsigned: col.Flags&flagUnsigned != 0,
			Nullable: col.Flags&flagNotNULL == 0,
			Decimals: col.Decimals,
		})
	}
	if c.capabilities&clientDeprecateEOF == 0 {
		data, err := c.readPacket()
		if err != nil {
			return nil, err
		}
		if !isEOFPacket(data) {
			return nil, ErrMalformPkt
		}
	}
	return cols, nil
}

// ParamCount returns the number of placeholders the statement declared.
func (stmt *PreparedStatement) ParamCount() int { return stmt.paramCount }

// Execute issues COM_STMT_EXECUTE (spec §5/§4.6) with the given
// parameters bound positionally and returns the resulting ResultSet.
func (stmt *PreparedStatement) Execute(ctx context.Context, args ...interface{}) (*ResultSet, error) {
	if stmt.closed {
		return nil, ErrInvalidConn
	}
	c := stmt.conn
	if c.closed.IsSet() {
		return nil, ErrInvalidConn
	}
	if c.busy {
		return nil, ErrBusy
	}
	if len(args) != stmt.paramCount {
		return nil, ErrParamsMismatch
	}

	params := make([]encodedParam, len(args))
	for i, a := range args {
		p, err := resolveMysqlValue(a)
		if err != nil {
			return nil, err
		}
		params[i] = p
	}

	if err := stmt.writeExecutePacket(params); err != nil {
		return nil, err
	}

	return c.readResultSetHeaderWithColumns(true, stmt.columns)
}

// writeExecutePacket encodes COM_STMT_EXECUTE: statement id, cursor
// flags, iteration count, a null bitmap, a type descriptor block (when
// new-params-bound is set), then the values themselves (spec §4.6).
// Grounded on the original statement.go buildExecutePacket.
func (stmt *PreparedStatement) writeExecutePacket(params []encodedParam) error {
	c := stmt.conn
	c.pc.resetSequence()

	data := c.pc.startPacket()
	data = append(data, byte(comStmtExecute))
	data = appendUint32(data, stmt.id)
	data = append(data, 0) // CURSOR_TYPE_NO_CURSOR
	data = appendUint32(data, 1)

	if stmt.paramCount > 0 {
		data = append(data, buildNullBitmap(params)...)
		data = append(data, 1) // new-params-bound-flag

		for _, p := range params {
			ft := p.typ
			unsigned := byte(0)
			if p.unsigned {
				unsigned = 0x80
			}
			data = append(data, byte(ft), unsigned)
		}
		for _, p := range params {
			if !p.isNull {
				data = append(data, p.data...)
			}
		}
	}

	return c.pc.writePacket(data)
}

// Close sends COM_STMT_CLOSE, releasing the statement handle on the
// server. The server sends no response to this command.
func (stmt *PreparedStatement) Close() error {
	if stmt.closed {
		return nil
	}
	c := stmt.conn
	if c.busy {
		return ErrBusy
	}
	stmt.closed = true
	c.pc.resetSequence()
	data := c.pc.startPacket()
	data = append(data, byte(comStmtClose))
	data = appendUint32(data, stmt.id)
	return c.pc.writePacket(data)
}

// readResultSetHeaderWithColumns is readResultSetHeader specialized for
// COM_STMT_EXECUTE: the column definitions the server sends again are read
// and discarded, and the ResultSet carries the ColumnDefinition41 set
// captured at Prepare time.
func (c *Connection) readResultSetHeaderWithColumns(binaryProtocol bool, knownColumns []ColumnInfo) (*ResultSet, error) {
	data, err := c.readPacket()
	if err != nil {
		return nil, err
	}

	switch {
	case len(data) > 0 && data[0] == iOK && len(knownColumns) == 0:
		ok, err := parseOkPacket(data)
		if err != nil {
			return nil, err
		}
		c.serverStatus = ok.StatusFlags
		return &ResultSet{conn: c, ok: ok, released: true}, nil

	case len(data) > 0 && data[0] == iERR:
		se, err := parseErrorPacket(data)
		if err != nil {
			return nil, err
		}
		return nil, se
	}

	fieldCount, _, n, err := readLenencInt(data)
	if err != nil || n != len(data) {
		return nil, ErrMalformPkt
	}
	if fieldCount == 0 {
		ok, err := parseOkPacket(data)
		if err != nil {
			return nil, err
		}
		c.serverStatus = ok.StatusFlags
		return &ResultSet{conn: c, ok: ok, released: true}, nil
	}

	if _, err := c.readColumnDefinitions(int(fieldCount)); err != nil {
		return nil, err
	}

	c.busy = true
	return &ResultSet{conn: c, binary: binaryProtocol, columns: knownColumns}, nil
}
