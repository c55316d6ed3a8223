// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build !windows

package runbatch

import (
	"errors"
	"os"
	"syscall"
)

// sysProcAttr places the child in its own process group, so an interrupt typed at the
// terminal is delivered to deflake only and never races the teardown.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// killTree kills the process group led by ps, including anything the shell spawned.
func killTree(ps *os.Process) error {
	err := syscall.Kill(-ps.Pid, syscall.SIGKILL)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}

	return ps.Kill()
}
