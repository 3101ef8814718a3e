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
	"errors"
	"fmt"
)

// Sentinel errors returned by the protocol layer. Callers should compare
// with errors.Is rather than match on the formatted message.
var (
	ErrMalformPkt        = errors.New("mysql: malformed packet")
	ErrPktSync           = errors.New("mysql: commands out of sync; you can't run this command now")
	ErrPktSyncMul        = errors.New("mysql: commands out of sync; did you run multiple statements at once?")
	ErrPktTooLarge       = errors.New("mysql: packet for query is too large; raise max_allowed_packet on the server")
	ErrBusy              = errors.New("mysql: connection has an unread result set pending")
	ErrInvalidConn       = errors.New("mysql: invalid connection")
	ErrUnsupportedProto  = errors.New("mysql: server does not support CLIENT_PROTOCOL_41")
	ErrUnsupportedAuth   = errors.New("mysql: unsupported authentication plugin")
	ErrUnsupported       = errors.New("mysql: unsupported server response (e.g. LOAD DATA LOCAL INFILE)")
	ErrParamsMismatch    = errors.New("mysql: argument count does not match number of prepared parameters")
	ErrUnsupportedType   = errors.New("mysql: unsupported Go type for a prepared-statement parameter")
	ErrNativePassword    = errors.New("mysql: this server requires mysql_native_password, which is disabled by default (set AllowNativePasswords to enable)")
	ErrCleartextPassword = errors.New("mysql: this server requires mysql_clear_password, which is disabled by default (set AllowCleartextPasswords to enable)")
	ErrOldPassword       = errors.New("mysql: this server requires mysql_old_password, which is disabled by default (set AllowOldPasswords to enable)")
	ErrDialogAuth        = errors.New("mysql: this server requires the dialog auth plugin, which is disabled by default (set AllowDialogPasswords to enable)")
	ErrParsecAuth        = errors.New("mysql: malformed parsec ext-salt")
	errConnCheckEvent    = errors.New("mysql: liveness check observed a readable/error event on an idle connection")

	errInvalidDSNFormat = errors.New("mysql: invalid DSN: does not match format user:passwd@net(addr)/dbname?param=value")
)

// ServerError is an ErrorPacket (spec §4.7) surfaced as a typed value rather
// than a transport failure. Query/Prepare/Execute return this directly; the
// caller decides whether to keep using the connection.
type ServerError struct {
	Code     uint16
	SQLState string
	Message  string
}

func (e *ServerError) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("mysql: server error %d (%s): %s", e.Code, e.SQLState, e.Message)
	}
	return fmt.Sprintf("mysql: server error %d: %s", e.Code, e.Message)
}
