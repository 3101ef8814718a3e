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
	"fmt"
	"math"
	"reflect"
)

// ToMysqlValue lets a caller-defined type control its own wire encoding
// as a prepared-statement parameter (spec §4.6), the same role
// driver.Valuer plays for database/sql.
type ToMysqlValue interface {
	ToMysqlValue() (fieldType, []byte, error)
}

// encodedParam is one resolved parameter: its wire type, unsigned flag,
// and binary-protocol-encoded value (empty/absent for NULL).
type encodedParam struct {
	typ      fieldType
	unsigned bool
	data     []byte
	isNull   bool
}

// resolveMysqlValue converts a Go value into its binary-protocol
// encoding. ToMysqlValue implementors are consulted first; built-in
// numeric/string/time kinds are handled directly next; anything else falls back
// to reflect, grounded on fields.go's scanType dispatch table run in
// reverse (Go type -> wire type instead of wire type -> Go type).
func resolveMysqlValue(v interface{}) (encodedParam, error) {
	if v == nil {
		return encodedParam{typ: fieldTypeNULL, isNull: true}, nil
	}

	switch val := v.(type) {
	case ToMysqlValue:
		ft, data, err := val.ToMysqlValue()
		if err != nil {
			return encodedParam{}, err
		}
		return encodedParam{typ: ft, data: data}, nil

	case bool:
		b := byte(0)
		if val {
			b = 1
		}
		return encodedParam{typ: fieldTypeTiny, data: []byte{b}}, nil

	case int8:
		return encodedParam{typ: fieldTypeTiny, data: []byte{byte(val)}}, nil
	case int16:
		return encodedParam{typ: fieldTypeShort, data: appendUint16(nil, uint16(val))}, nil
	case int32:
		return encodedParam{typ: fieldTypeLong, data: appendUint32(nil, uint32(val))}, nil
	case int64:
		return encodedParam{typ: fieldTypeLongLong, data: appendUint64(nil, uint64(val))}, nil
	case int:
		return encodedParam{typ: fieldTypeLongLong, data: appendUint64(nil, uint64(int64(val)))}, nil

	// The unsigned type-descriptor bit echoes a column's declared
	// UNSIGNED_FLAG (spec §9); a freshly bound parameter has no such
	// column to echo, so it is always sent as 0 regardless of the Go
	// value's own signedness (spec §8 seed test: a uint32 parameter
	// still produces an unsigned byte of 0).
	case uint8:
		return encodedParam{typ: fieldTypeTiny, data: []byte{val}}, nil
	case uint16:
		return encodedParam{typ: fieldTypeShort, data: appendUint16(nil, val)}, nil
	case uint32:
		return encodedParam{typ: fieldTypeLong, data: appendUint32(nil, val)}, nil
	case uint64:
		return encodedParam{typ: fieldTypeLongLong, data: appendUint64(nil, val)}, nil
	case uint:
		return encodedParam{typ: fieldTypeLongLong, data: appendUint64(nil, uint64(val))}, nil

	case float32:
		return encodedParam{typ: fieldTypeFloat, data: appendUint32(nil, math.Float32bits(val))}, nil
	case float64:
		return encodedParam{typ: fieldTypeDouble, data: appendUint64(nil, math.Float64bits(val))}, nil

	case string:
		return encodedParam{typ: fieldTypeString, data: writeLenencString(nil, []byte(val))}, nil
	case []byte:
		if val == nil {
			return encodedParam{typ: fieldTypeNULL, isNull: true}, nil
		}
		return encodedParam{typ: fieldTypeBLOB, data: writeLenencString(nil, val)}, nil

	case DateTime:
		return encodedParam{typ: fieldTypeDateTime, data: encodeBinaryDateTime(val)}, nil
	case Duration:
		return encodedParam{typ: fieldTypeTime, data: encodeBinaryDuration(val)}, nil
	}

	return resolveMysqlValueReflect(v)
}

// resolveMysqlValueReflect is the fallback path for named types built on
// a basic kind (e.g. `type UserID int64`), dispatched the way
// fields.go's scanType maps wire types to Go kinds, run in reverse.
func resolveMysqlValueReflect(v interface{}) (encodedParam, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return encodedParam{typ: fieldTypeNULL, isNull: true}, nil
		}
		return resolveMysqlValue(rv.Elem().Interface())

	case reflect.Bool:
		return resolveMysqlValue(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return resolveMysqlValue(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return resolveMysqlValue(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return resolveMysqlValue(rv.Float())
	case reflect.String:
		return resolveMysqlValue(rv.String())
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return resolveMysqlValue(rv.Bytes())
		}
	}

	return encodedParam{}, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
}

// buildNullBitmap constructs the EXECUTE null bitmap: LE bit order, one
// bit per parameter, no pre-shift (unlike the binary row bitmap, which
// reserves two offset bits for status) (spec §4.6).
func buildNullBitmap(params []encodedParam) []byte {
	bitmap := make([]byte, (len(params)+7)/8)
	for i, p := range params {
		if p.isNull {
			bitmap[i/8] |= 1 << uint(i%8)
		}
	}
	return bitmap
}

// rowNullBitmapOffset is the bit offset of the first column in a binary
// protocol resultset row's null bitmap, which reserves the low 2 bits
// (spec §4.6).
func rowNullBitmapOffset() int { return 2 }

func isRowValueNull(bitmap []byte, col int) bool {
	bit := col + rowNullBitmapOffset()
	return bitmap[bit/8]>>(uint(bit)%8)&1 == 1
}
