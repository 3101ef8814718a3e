// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 Julien Schmidt. All rights reserved.
// http://www.julienschmidt.com
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

// protocol constants. Reference:
// https://dev.mysql.com/doc/dev/mysql-server/latest/page_protocol_basic_response_packets.html

const minProtocolVersion = 10

// maxPacketSize is the 2^24-1 boundary at which a packet must be split
// across multiple frames (spec §4.2).
const maxPacketSize = 1<<24 - 1

const defaultCollationID = 45 // utf8mb4_general_ci

// clientFlag is the capability-flags bitmask negotiated during the
// handshake (spec §3 HandshakeV10/HandshakeResponse41).
type clientFlag uint32

const (
	clientLongPassword clientFlag = 1 << iota
	clientFoundRows
	clientLongFlag
	clientConnectWithDB
	clientNoSchema
	clientCompress
	clientODBC
	clientLocalFiles
	clientIgnoreSpace
	clientProtocol41
	clientInteractive
	clientSSL
	clientIgnoreSIGPIPE
	clientTransactions
	clientReserved
	clientSecureConn
	clientMultiStatements
	clientMultiResults
	clientPSMultiResults
	clientPluginAuth
	clientConnectAttrs
	clientPluginAuthLenEncClientData
	clientCanHandleExpiredPasswords
	clientSessionTrack
	clientDeprecateEOF
)

// requiredCapabilities are OR'd into the client's effective capability
// flags unconditionally, regardless of what the server advertises
// (spec §6 names these as required).
const requiredCapabilities = clientProtocol41 | clientPluginAuth | clientSecureConn

// optionalCapabilities are requested only when the server's own
// HandshakeV10.Capabilities advertises support for them (spec §4.5
// step 3: effective_capabilities = (client_flags & server_capabilities)
// | required_mask). clientConnectWithDB is added to this set
// conditionally, at negotiation time, when a database name is configured.
const optionalCapabilities = clientDeprecateEOF

// commandType is a COM_* opcode (spec §6).
type commandType byte

const (
	comQuit        commandType = 0x01
	comQuery       commandType = 0x03
	comPing        commandType = 0x0e
	comStmtPrepare commandType = 0x16
	comStmtExecute commandType = 0x17
	comStmtClose   commandType = 0x19
)

// response-packet discriminators: the first byte of a command response.
const (
	iOK           byte = 0x00
	iAuthMoreData byte = 0x01
	iLocalInFile  byte = 0xfb
	iEOF          byte = 0xfe
	iERR          byte = 0xff
)

// serverStatus bits carried in OkPacket.StatusFlags / EofPacket.StatusFlags.
type serverStatus uint16

const (
	statusInTrans serverStatus = 1 << iota
	statusInAutocommit
	_
	statusMoreResultsExists
	statusNoGoodIndexUsed
	statusNoIndexUsed
	statusCursorExists
	statusLastRowSent
	statusDBDropped
	statusNoBackslashEscapes
	statusMetadataChanged
	statusQueryWasSlow
	statusPSOutParams
	statusInTransReadonly
	statusSessionStateChanged
)

// fieldType is the MySQL column type byte (EnumFieldType in spec §3).
type fieldType byte

const (
	fieldTypeDecimal fieldType = iota
	fieldTypeTiny
	fieldTypeShort
	fieldTypeLong
	fieldTypeFloat
	fieldTypeDouble
	fieldTypeNULL
	fieldTypeTimestamp
	fieldTypeLongLong
	fieldTypeInt24
	fieldTypeDate
	fieldTypeTime
	fieldTypeDateTime
	fieldTypeYear
	fieldTypeNewDate
	fieldTypeVarChar
	fieldTypeBit
)

const (
	fieldTypeJSON fieldType = iota + 0xf5
	fieldTypeNewDecimal
	fieldTypeEnum
	fieldTypeSet
	fieldTypeTinyBLOB
	fieldTypeMediumBLOB
	fieldTypeLongBLOB
	fieldTypeBLOB
	fieldTypeVarString
	fieldTypeString
	fieldTypeGeometry
)

// fieldFlag is the ColumnDefinition41.flags bitmask.
type fieldFlag uint16

const (
	flagNotNULL fieldFlag = 1 << iota
	flagPriKey
	flagUniqueKey
	flagMultipleKey
	flagBLOB
	flagUnsigned
	flagZeroFill
	flagBinary
	flagEnum
	flagAutoIncrement
	flagTimestamp
	flagSet
)
