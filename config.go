// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 Julien Schmidt. All rights reserved.
// http://www.julienschmidt.com
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"crypto/rsa"
	"crypto/tls"
	"log"
	"os"
	"regexp"
	"strconv"
	"time"
)

// Config holds connection and authentication-policy options (spec §6).
// Zero value plus NewConfig gives sane defaults; ParseDSN fills a Config
// from a go-sql-driver-style DSN string, grounded on utils.go's
// parseDSN/dsnPattern.
type Config struct {
	User   string
	Passwd string
	Net    string // "tcp" or "unix"
	Addr   string
	DBName string

	// Collation is the collation ID sent as HandshakeResponse41's
	// character-set byte (spec §6). The session's actual charset/
	// collation is set post-connect via "SET NAMES" (see handleParams);
	// this only controls what the handshake itself advertises.
	Collation    uint8
	Timeout      time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	TLS *tls.Config

	// ServerPubKey names a key registered with RegisterServerPubKey, used
	// by sha256_password/caching_sha2_password when TLS is not in use.
	ServerPubKey string
	pubKey       *rsa.PublicKey

	// Plugin policy: these default to false. caching_sha2_password is
	// always allowed since it is the baseline plugin this client targets.
	AllowNativePasswords bool
	AllowCleartextPasswords bool
	AllowOldPasswords       bool
	AllowDialogPasswords    bool
	// OtherPasswd holds comma-separated fallback passwords tried in order
	// by the dialog plugin's multi-round PAM exchange.
	OtherPasswd string

	MaxAllowedPacket int

	Logger *log.Logger

	Params map[string]string
}

// NewConfig returns a Config populated with the client's defaults.
func NewConfig() *Config {
	return &Config{
		Net:              "tcp",
		Collation:        defaultCollationID, // utf8mb4_general_ci
		MaxAllowedPacket: maxPacketSize,
		Logger:           log.New(os.Stderr, "[mysqlwire] ", log.Ldate|log.Ltime|log.Lshortfile),
		Params:           make(map[string]string),
	}
}

var dsnPattern = regexp.MustCompile(
	`^(?:(?P<user>.*?)(?::(?P<passwd>.*))?@)?` + // [user[:password]@]
		`(?:(?P<net>[^\(]*)(?:\((?P<addr>[^\)]*)\))?)?` + // [net[(addr)]]
		`\/(?P<dbname>.*?)` + // /dbname
		`(?:\?(?P<params>[^\?]*))?$`) // [?param1=value1&paramN=valueN]

// ParseDSN parses a DSN of the form
// [user[:password]@][net[(addr)]]/dbname[?param1=value1&paramN=valueN]
// into a Config initialized with the client's defaults.
func ParseDSN(dsn string) (*Config, error) {
	cfg := NewConfig()

	matches := dsnPattern.FindStringSubmatch(dsn)
	if matches == nil {
		return nil, errInvalidDSNFormat
	}
	names := dsnPattern.SubexpNames()

	var rawParams string
	for i, match := range matches {
		switch names[i] {
		case "user":
			cfg.User = match
		case "passwd":
			cfg.Passwd = match
		case "net":
			if match != "" {
				cfg.Net = match
			}
		case "addr":
			cfg.Addr = match
		case "dbname":
			cfg.DBName = match
		case "params":
			rawParams = match
		}
	}

	if cfg.Addr == "" {
		if cfg.Net == "unix" {
			cfg.Addr = "/tmp/mysql.sock"
		} else {
			cfg.Addr = "127.0.0.1:3306"
		}
	}

	for _, kv := range splitParams(rawParams) {
		if kv == "" {
			continue
		}
		key, value := splitKV(kv)
		switch key {
		case "allowNativePasswords":
			cfg.AllowNativePasswords = parseBoolParam(value)
		case "allowCleartextPasswords":
			cfg.AllowCleartextPasswords = parseBoolParam(value)
		case "allowOldPasswords":
			cfg.AllowOldPasswords = parseBoolParam(value)
		case "allowDialogPasswords":
			cfg.AllowDialogPasswords = parseBoolParam(value)
		case "serverPubKey":
			cfg.ServerPubKey = value
		case "timeout":
			cfg.Timeout, _ = time.ParseDuration(value)
		case "readTimeout":
			cfg.ReadTimeout, _ = time.ParseDuration(value)
		case "writeTimeout":
			cfg.WriteTimeout, _ = time.ParseDuration(value)
		case "maxAllowedPacket":
			if n, err := strconv.Atoi(value); err == nil {
				cfg.MaxAllowedPacket = n
			}
		case "collation":
			if n, err := strconv.Atoi(value); err == nil {
				cfg.Collation = uint8(n)
			}
		default:
			cfg.Params[key] = value
		}
	}

	if cfg.ServerPubKey != "" {
		cfg.pubKey = getServerPubKey(cfg.ServerPubKey)
	}

	return cfg, nil
}

func splitParams(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(raw); i++ {
		if raw[i] == '&' {
			out = append(out, raw[start:i])
			start = i + 1
		}
	}
	out = append(out, raw[start:])
	return out
}

func splitKV(kv string) (key, value string) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:]
		}
	}
	return kv, ""
}

func parseBoolParam(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
