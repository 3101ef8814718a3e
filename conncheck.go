// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2019 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd || solaris || illumos
// +build linux darwin dragonfly freebsd netbsd openbsd solaris illumos

package mysql

import (
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// connCheck polls the raw socket for a read-ready or error event without
// blocking: a live, idle MySQL connection should report neither. Used by
// Connection.check before a pool hands a pooled connection back out.
func connCheck(conn net.Conn) error {
	sysConn, ok := conn.(syscall.Conn)
	if !ok {
		return nil
	}
	rawConn, err := sysConn.SyscallConn()
	if err != nil {
		return err
	}

	var pollErr error
	err = rawConn.Control(func(fd uintptr) {
		fds := []unix.PollFd{
			{Fd: int32(fd), Events: unix.POLLIN | unix.POLLERR},
		}
		n, err := unix.Poll(fds, 0)
		switch {
		case err != nil:
			pollErr = fmt.Errorf("mysql: conncheck poll: %w", err)
		case n > 0:
			pollErr = errConnCheckEvent
		}
	})
	if err != nil {
		return err
	}
	return pollErr
}
