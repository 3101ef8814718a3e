// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 Julien Schmidt. All rights reserved.
// http://www.julienschmidt.com
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

// Decimal carries a NEWDECIMAL column value verbatim, since MySQL encodes
// DECIMAL as its ASCII text representation on the wire in both the text
// and binary protocols; parsing into a fixed-precision numeric type is
// left to the caller.
type Decimal string

func (d Decimal) String() string {
	return string(d)
}

// ToMysqlValue implements the parameter-encoding side: a Decimal parameter
// is sent as its text form (spec §4.6).
func (d Decimal) ToMysqlValue() (fieldType, []byte, error) {
	return fieldTypeNewDecimal, writeLenencString(nil, []byte(d)), nil
}
