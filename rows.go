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
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
)

// ColumnInfo describes one column of a ResultSet (spec §4.7
// ColumnDefinition41), stripped of the wire-only catalog/schema/table
// fields a caller never needs.
type ColumnInfo struct {
	Name     string
	Type     fieldType
	Unsigned bool
	Nullable bool
	Decimals byte
}

// ResultSet is either a borrowed view of a Connection's current command
// (Query/Execute) that must be drained or Close'd before the Connection
// accepts another command, or an OK-only result with no rows. Grounded on
// the original readResultSetHeaderPacket/readColumns/readRow/
// readBinaryRow family, restructured as a pull-based cursor instead of
// database/sql's push-based driver.Rows.
type ResultSet struct {
	conn    *Connection
	binary  bool
	columns []ColumnInfo

	ok       *okPacket // set when the command carried no result set
	row      []interface{}
	done     bool
	released bool
}

// AffectedRows returns OK_Packet.affected_rows; only meaningful when
// Columns() is empty.
func (rs *ResultSet) AffectedRows() uint64 {
	if rs.ok == nil {
		return 0
	}
	return rs.ok.AffectedRows
}

// LastInsertID returns OK_Packet.last_insert_id; only meaningful when
// Columns() is empty.
func (rs *ResultSet) LastInsertID() uint64 {
	if rs.ok == nil {
		return 0
	}
	return rs.ok.LastInsertID
}

func (rs *ResultSet) Columns() []ColumnInfo {
	return rs.columns
}

// Next advances to the next row, returning false once the result set is
// exhausted (the Connection is released for reuse at that point).
func (rs *ResultSet) Next(ctx context.Context) (bool, error) {
	if rs.done || rs.ok != nil {
		return false, nil
	}

	data, err := rs.conn.readPacket()
	if err != nil {
		rs.release()
		return false, err
	}

	if isEOFPacket(data) || (rs.conn.capabilities&clientDeprecateEOF != 0 && len(data) > 0 && data[0] == iEOF && len(data) < maxPacketSize) {
		rs.done = true
		rs.release()
		return false, nil
	}
	if len(data) > 0 && data[0] == iERR {
		rs.done = true
		rs.release()
		se, perr := parseErrorPacket(data)
		if perr != nil {
			return false, perr
		}
		return false, se
	}

	var row []interface{}
	if rs.binary {
		row, err = decodeBinaryRow(data, rs.columns)
	} else {
		row, err = decodeTextRow(data, rs.columns)
	}
	if err != nil {
		rs.release()
		return false, err
	}
	rs.row = row
	return true, nil
}

// Value returns the i-th column of the current row.
func (rs *ResultSet) Value(i int) (interface{}, error) {
	if i < 0 || i >= len(rs.row) {
		return nil, fmt.Errorf("mysql: column index %d out of range", i)
	}
	return rs.row[i], nil
}

// Scan assigns the current row's columns positionally into dest, which
// must be pointers. This is a plain positional copy, not a struct-field
// mapping: column i always goes to dest[i].
func (rs *ResultSet) Scan(dest ...interface{}) error {
	if len(dest) != len(rs.row) {
		return fmt.Errorf("mysql: scan target count %d does not match column count %d", len(dest), len(rs.row))
	}
	for i, d := range dest {
		if err := assign(d, rs.row[i]); err != nil {
			return fmt.Errorf("mysql: scanning column %d: %w", i, err)
		}
	}
	return nil
}

func assign(dst, src interface{}) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("destination not a pointer")
	}

	if src == nil {
		rv.Elem().Set(reflect.Zero(rv.Elem().Type()))
		return nil
	}

	elem := rv.Elem()
	sv := reflect.ValueOf(src)

	if sv.Type().AssignableTo(elem.Type()) {
		elem.Set(sv)
		return nil
	}
	if sv.Type().ConvertibleTo(elem.Type()) {
		elem.Set(sv.Convert(elem.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", src, elem.Type())
}

// release returns the Connection to the idle state once the result set
// has been fully consumed.
func (rs *ResultSet) release() {
	if !rs.released {
		rs.conn.busy = false
		rs.released = true
	}
}

// Close discards any unread rows and releases the Connection.
func (rs *ResultSet) Close() error {
	if rs.released || rs.ok != nil {
		rs.release()
		return nil
	}
	ctx := context.Background()
	for {
		more, err := rs.Next(ctx)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// Query issues a COM_QUERY text-protocol command (spec §4.3) and returns
// its result: either a column-bearing ResultSet to iterate with Next, or
// one whose Columns() is empty and AffectedRows/LastInsertID are set.
func (c *Connection) Query(ctx context.Context, query string) (*ResultSet, error) {
	if c.closed.IsSet() {
		return nil, ErrInvalidConn
	}
	if c.busy {
		return nil, ErrBusy
	}

	c.pc.resetSequence()
	data := c.pc.startPacket()
	data = append(data, byte(comQuery))
	data = append(data, query...)
	if err := c.pc.writePacket(data); err != nil {
		return nil, err
	}

	return c.readResultSetHeader(false)
}

// readResultSetHeader reads the header that follows a COM_QUERY or
// COM_STMT_EXECUTE: either an OK/ERR packet, or a column count followed
// by ColumnDefinition41 packets and (absent CLIENT_DEPRECATE_EOF) a
// terminating EOF packet.
func (c *Connection) readResultSetHeader(binaryProtocol bool) (*ResultSet, error) {
	data, err := c.readPacket()
	if err != nil {
		return nil, err
	}

	switch {
	case len(data) > 0 && data[0] == iOK:
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

	case len(data) > 0 && data[0] == iLocalInFile:
		// LOAD DATA LOCAL INFILE's request to read a client-side file is
		// out of scope; fail rather than send the file contents.
		return nil, ErrUnsupported
	}

	fieldCount, _, n, err := readLenencInt(data)
	if err != nil || n != len(data) {
		return nil, ErrMalformPkt
	}

	columns := make([]ColumnInfo, 0, fieldCount)
	for i := uint64(0); i < fieldCount; i++ {
		data, err := c.readPacket()
		if err != nil {
			return nil, err
		}
		col, err := parseColumnDefinition41(data)
		if err != nil {
			return nil, err
		}
		columns = append(columns, ColumnInfo{
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

	c.busy = true
	return &ResultSet{conn: c, binary: binaryProtocol, columns: columns}, nil
}

// decodeTextRow decodes a Text Resultset Row: each column is a
// length-encoded string, or the 0xfb NULL marker (spec §4.3).
func decodeTextRow(data []byte, columns []ColumnInfo) ([]interface{}, error) {
	row := make([]interface{}, len(columns))
	pos := 0
	for i := range columns {
		s, isNull, n, err := readLenencString(data[pos:])
		pos += n
		if err != nil {
			return nil, err
		}
		if isNull {
			row[i] = nil
			continue
		}
		row[i] = append([]byte(nil), s...)
	}
	return row, nil
}

// decodeBinaryRow decodes a Binary Resultset Row, dispatching on each
// column's declared type (spec §4.6). Grounded on the original
// readBinaryRow, generalized to return typed Go values (int64/uint64/
// float32/float64/[]byte/DateTime/Duration) instead of byte-coded
// strings.
func decodeBinaryRow(data []byte, columns []ColumnInfo) ([]interface{}, error) {
	if len(data) < 1 || data[0] != iOK {
		return nil, ErrMalformPkt
	}
	bitmapLen := (len(columns) + 7 + 2) / 8
	if len(data) < 1+bitmapLen {
		return nil, ErrMalformPkt
	}
	bitmap := data[1 : 1+bitmapLen]
	pos := 1 + bitmapLen

	row := make([]interface{}, len(columns))
	for i, col := range columns {
		if isRowValueNull(bitmap, i) {
			row[i] = nil
			continue
		}

		switch col.Type {
		case fieldTypeNULL:
			row[i] = nil

		case fieldTypeTiny:
			if col.Unsigned {
				row[i] = uint64(data[pos])
			} else {
				row[i] = int64(int8(data[pos]))
			}
			pos++

		case fieldTypeShort, fieldTypeYear:
			v := binary.LittleEndian.Uint16(data[pos : pos+2])
			if col.Unsigned {
				row[i] = uint64(v)
			} else {
				row[i] = int64(int16(v))
			}
			pos += 2

		case fieldTypeInt24, fieldTypeLong:
			v := binary.LittleEndian.Uint32(data[pos : pos+4])
			if col.Unsigned {
				row[i] = uint64(v)
			} else {
				row[i] = int64(int32(v))
			}
			pos += 4

		case fieldTypeLongLong:
			v := binary.LittleEndian.Uint64(data[pos : pos+8])
			if col.Unsigned {
				row[i] = v
			} else {
				row[i] = int64(v)
			}
			pos += 8

		case fieldTypeFloat:
			row[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[pos : pos+4]))
			pos += 4

		case fieldTypeDouble:
			row[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[pos : pos+8]))
			pos += 8

		case fieldTypeDate, fieldTypeNewDate:
			dt, n, err := decodeBinaryDateTime(data[pos:])
			if err != nil {
				return nil, err
			}
			row[i] = dt
			pos += n

		case fieldTypeDateTime, fieldTypeTimestamp:
			dt, n, err := decodeBinaryDateTime(data[pos:])
			if err != nil {
				return nil, err
			}
			row[i] = dt
			pos += n

		case fieldTypeTime:
			dur, n, err := decodeBinaryDuration(data[pos:])
			if err != nil {
				return nil, err
			}
			row[i] = dur
			pos += n

		case fieldTypeDecimal, fieldTypeNewDecimal:
			s, _, n, err := readLenencString(data[pos:])
			if err != nil {
				return nil, err
			}
			row[i] = Decimal(s)
			pos += n

		default:
			s, _, n, err := readLenencString(data[pos:])
			if err != nil {
				return nil, err
			}
			row[i] = append([]byte(nil), s...)
			pos += n
		}
	}

	return row, nil
}
