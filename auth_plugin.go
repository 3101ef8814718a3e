// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2023 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import "sync"

// AuthPlugin drives one round of the auth handshake state machine
// (spec §3) for a single named plugin (mysql_native_password,
// caching_sha2_password, sha256_password, ...).
type AuthPlugin interface {
	GetPluginName() string

	// InitAuth computes the initial response sent in HandshakeResponse41
	// or an AuthSwitchResponse, given the server's challenge data.
	InitAuth(authData []byte, cfg *Config) ([]byte, error)

	// ProcessAuthResponse handles whatever the server sends back after
	// InitAuth's response -- AuthMoreData round trips, public-key
	// requests, and the like -- and returns the packet that should be
	// interpreted as the final OK/ERR/AuthSwitchRequest.
	ProcessAuthResponse(packet []byte, authData []byte, conn *Connection) ([]byte, error)
}

// pluginRegistry maps plugin names to implementations. Registration
// normally happens once per plugin file's init(), but GetPlugin is also
// called from Connection.handshake while a pool may be dialing several
// connections concurrently, so both paths take the lock.
type pluginRegistry struct {
	mu      sync.RWMutex
	plugins map[string]AuthPlugin
}

func newPluginRegistry() *pluginRegistry {
	return &pluginRegistry{plugins: make(map[string]AuthPlugin)}
}

func (r *pluginRegistry) Register(plugin AuthPlugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[plugin.GetPluginName()] = plugin
}

func (r *pluginRegistry) GetPlugin(name string) (AuthPlugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plugin, ok := r.plugins[name]
	return plugin, ok
}

var globalPluginRegistry = newPluginRegistry()

// RegisterAuthPlugin adds a plugin to the set Connect will consult by
// name during the auth handshake.
func RegisterAuthPlugin(plugin AuthPlugin) {
	globalPluginRegistry.Register(plugin)
}
