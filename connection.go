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
	"fmt"
	"net"
	"strings"
	"time"

	atomicutil "github.com/brinewire/mysqlwire/internal/atomic"
)

// Connection is a single, half-duplex client connection to a MySQL or
// MariaDB server (spec §2). Only one command may be in flight at a time;
// a ResultSet either borrows the Connection exclusively until drained or,
// when the server answered with a bare OK packet, holds no claim on it;
// see Query/Execute.
//
// Connection is not safe for concurrent use by multiple goroutines.
type Connection struct {
	cfg *Config
	pc  *packetConn

	connectionID       uint32
	serverStatus       serverStatus
	capabilities       clientFlag
	serverCapabilities clientFlag // server's HandshakeV10.Capabilities, spec §3

	busy   bool
	closed atomicutil.Bool
}

// Connect dials addr and completes the handshake/auth handshake described
// in spec §3, retrying a failed dial with exponential backoff (at most 4
// attempts in all) when the server is not yet accepting connections. Grounded on connection.go's
// original dial/handleParams flow, generalized off database/sql/driver.
func Connect(ctx context.Context, cfg *Config) (*Connection, error) {
	nc, err := dialWithBackoff(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c := &Connection{
		cfg: cfg,
		pc:  newPacketConn(nc),
	}
	c.pc.maxAllowedPacket = cfg.MaxAllowedPacket

	if err := c.handshake(); err != nil {
		nc.Close()
		return nil, err
	}

	if err := c.handleParams(); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

func dialWithBackoff(ctx context.Context, cfg *Config) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	var lastErr error
	backoff := newExponentialBackoff()
	for attempt := 0; attempt < 4; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff.NextInterval(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		nc, err := dialer.DialContext(ctx, cfg.Net, cfg.Addr)
		if err == nil {
			return nc, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("mysql: dial %s %s: %w", cfg.Net, cfg.Addr, lastErr)
}

// handshake performs HandshakeV10 -> HandshakeResponse41 -> auth, per
// spec §3/§4.4.
func (c *Connection) handshake() error {
	c.pc.resetSequence()
	data, err := c.pc.readPacket()
	if err != nil {
		return err
	}

	greeting, err := parseHandshakeV10(data)
	if err != nil {
		return err
	}
	if greeting.Capabilities&clientProtocol41 == 0 {
		return ErrUnsupportedProto
	}

	c.connectionID = greeting.ConnectionID
	c.serverCapabilities = greeting.Capabilities

	wanted := requiredCapabilities | optionalCapabilities
	if c.cfg.DBName != "" {
		wanted |= clientConnectWithDB
	}
	// spec §4.5 step 3: effective_capabilities = (client_flags &
	// server_capabilities) | required_mask.
	c.capabilities = (wanted & c.serverCapabilities) | requiredCapabilities

	pluginName := greeting.AuthPluginName
	if pluginName == "" {
		pluginName = "mysql_native_password"
	}

	plugin, ok := globalPluginRegistry.GetPlugin(pluginName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedAuth, pluginName)
	}

	authResponse, err := plugin.InitAuth(greeting.AuthData, c.cfg)
	if err != nil {
		return err
	}

	resp := &handshakeResponse41{
		Capabilities:   c.capabilities,
		MaxPacketSize:  uint32(c.cfg.MaxAllowedPacket),
		Charset:        c.cfg.Collation,
		Username:       c.cfg.User,
		AuthResponse:   authResponse,
		Database:       c.cfg.DBName,
		AuthPluginName: pluginName,
	}

	out := c.pc.startPacket()
	out = resp.encode(out)
	if err := c.pc.writePacket(out); err != nil {
		return err
	}

	return c.handleAuthResult(greeting.AuthData, plugin)
}

// handleAuthResult reads the server's first reply to the auth handshake
// and drives it to completion, including any AuthSwitchRequest /
// AuthMoreData round trips (spec §3 state machine).
func (c *Connection) handleAuthResult(initialSeed []byte, plugin AuthPlugin) error {
	data, err := c.pc.readPacket()
	if err != nil {
		return err
	}

	data, err = plugin.ProcessAuthResponse(data, initialSeed, c)
	if err != nil {
		return err
	}

	return c.processAuthResponse(data, initialSeed)
}

func (c *Connection) processAuthResponse(data []byte, initialSeed []byte) error {
	if len(data) == 0 {
		return ErrMalformPkt
	}
	switch data[0] {
	case iOK:
		ok, err := parseOkPacket(data)
		if err != nil {
			return err
		}
		c.serverStatus = ok.StatusFlags
		return nil
	case iERR:
		se, err := parseErrorPacket(data)
		if err != nil {
			return err
		}
		return se
	case iEOF:
		return c.handleAuthSwitch(data, initialSeed)
	default:
		return ErrMalformPkt
	}
}

func (c *Connection) handleAuthSwitch(data []byte, initialSeed []byte) error {
	pluginName, authData := c.parseAuthSwitchData(data, initialSeed)

	plugin, ok := globalPluginRegistry.GetPlugin(pluginName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedAuth, pluginName)
	}

	response, err := plugin.InitAuth(authData, c.cfg)
	if err != nil {
		return err
	}

	if err := c.writeAuthSwitchPacket(response); err != nil {
		return err
	}

	data, err = c.pc.readPacket()
	if err != nil {
		return err
	}

	switch data[0] {
	case iERR, iOK, iEOF:
		return c.processAuthResponse(data, initialSeed)
	default:
		data, err = plugin.ProcessAuthResponse(data, authData, c)
		if err != nil {
			return err
		}
		return c.processAuthResponse(data, initialSeed)
	}
}

// parseAuthSwitchData extracts plugin name and auth data from an
// AuthSwitchRequest, falling back to mysql_old_password when the server
// sends the bare single-byte legacy form (spec §3).
func (c *Connection) parseAuthSwitchData(data []byte, initialSeed []byte) (string, []byte) {
	if len(data) == 1 {
		return "mysql_old_password", initialSeed
	}
	req, err := parseAuthSwitchRequest(data)
	if err != nil {
		return "", nil
	}
	return req.PluginName, req.PluginData
}

// writeAuthSwitchPacket sends a bare payload as the next packet in an
// ongoing auth exchange (an AuthSwitchResponse or AuthMoreData reply).
func (c *Connection) writeAuthSwitchPacket(payload []byte) error {
	data := c.pc.startPacket()
	data = append(data, payload...)
	return c.pc.writePacket(data)
}

// requestServerPublicKey asks for caching_sha2_password/sha256_password's
// RSA public key by sending the single byte 0x02 in place of a scrambled
// password (spec §4.4).
func (c *Connection) requestServerPublicKey() error {
	return c.writeAuthSwitchPacket([]byte{2})
}

func (c *Connection) readPacket() ([]byte, error) {
	return c.pc.readPacket()
}

func (c *Connection) writePacket(data []byte) error {
	return c.pc.writePacket(data)
}

// handleParams applies DSN query parameters that map to session variables
// (e.g. charset) via plain SET statements, mirroring the original
// handleParams loop.
func (c *Connection) handleParams() error {
	for param, val := range c.cfg.Params {
		switch param {
		case "charset":
			var err error
			for _, charset := range strings.Split(val, ",") {
				if err = c.exec("SET NAMES " + charset); err == nil {
					break
				}
			}
			if err != nil {
				return err
			}
		default:
			if err := c.exec("SET " + param + "=" + val); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Connection) exec(query string) error {
	_, err := c.Query(context.Background(), query)
	return err
}

// Ping verifies the connection is alive with COM_PING (spec §6).
func (c *Connection) Ping(ctx context.Context) error {
	if c.closed.IsSet() {
		return ErrInvalidConn
	}
	if c.busy {
		return ErrBusy
	}
	if err := c.pc.sendCommand(comPing); err != nil {
		return err
	}
	data, err := c.pc.readPacket()
	if err != nil {
		return err
	}
	return c.expectOK(data)
}

func (c *Connection) expectOK(data []byte) error {
	if len(data) == 0 {
		return ErrMalformPkt
	}
	switch data[0] {
	case iOK:
		ok, err := parseOkPacket(data)
		if err != nil {
			return err
		}
		c.serverStatus = ok.StatusFlags
		return nil
	case iERR:
		se, err := parseErrorPacket(data)
		if err != nil {
			return err
		}
		return se
	default:
		return ErrMalformPkt
	}
}

// Closed reports whether Close has been called.
func (c *Connection) Closed() bool {
	return c.closed.IsSet()
}

// Close sends COM_QUIT and releases the underlying socket. Safe to call
// more than once.
func (c *Connection) Close() error {
	if !c.closed.TrySet(true) {
		return nil
	}
	_ = c.pc.sendCommand(comQuit)
	return c.pc.Close()
}

// check verifies the underlying socket is still usable without blocking,
// used by pools to discard dead connections before reuse.
func (c *Connection) check() error {
	if c.closed.IsSet() {
		return ErrInvalidConn
	}
	return connCheck(c.pc.conn)
}
