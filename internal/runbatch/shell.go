// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

const (
	// GOOSWindows is the string constant for Windows OS from the runtime package.
	GOOSWindows          = "windows"
	commandSwitchWindows = "/C"         // Command switch for Windows cmd.exe
	commandSwitchPwsh    = "-Command"   // Command switch for PowerShell
	commandSwitchUnix    = "-c"         // Command switch for Unix-like shells
	winSystem32          = "System32"   // System32 is the directory where cmd.exe is located on Windows.
	cmdExe               = "cmd.exe"    // cmdExe is the name of the command interpreter executable on Windows.
	binSh                = "/bin/sh"    // Default shell for Unix-like systems.
	winSystemRootEnv     = "SystemRoot" // Environment variable for Windows system root directory.
)

// DefaultShell returns the shell used when none is configured:
// /bin/sh on Unix-like systems and cmd.exe on Windows.
func DefaultShell() string {
	if runtime.GOOS == GOOSWindows {
		systemRoot := os.Getenv(winSystemRootEnv)
		if systemRoot == "" {
			systemRoot = `C:\Windows`
		}

		return fmt.Sprintf(`%s\%s\%s`, systemRoot, winSystem32, cmdExe)
	}

	return binSh
}

// shellSwitch returns the flag that makes shell execute its next argument as a command line.
func shellSwitch(shell string) string {
	name := shell
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	name = strings.TrimSuffix(strings.ToLower(name), ".exe")

	switch name {
	case "cmd":
		return commandSwitchWindows
	case "pwsh", "powershell":
		return commandSwitchPwsh
	default:
		return commandSwitchUnix
	}
}
