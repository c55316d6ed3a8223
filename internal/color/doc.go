// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package color wraps strings in ANSI escape codes for terminal output.
// Output is coloured when stdout is a terminal, unless the NO_COLOR environment
// variable is set. FORCE_COLOR enables colour for non-terminal output such as CI logs.
package color
