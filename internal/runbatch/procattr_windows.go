// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build windows

package runbatch

import (
	"os"
	"syscall"
)

// sysProcAttr starts the child in a new process group so console CTRL+C events
// are not delivered to it.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// killTree kills the shell process. Grandchildren are not tracked on Windows.
func killTree(ps *os.Process) error {
	return ps.Kill()
}
