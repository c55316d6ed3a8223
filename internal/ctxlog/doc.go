// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a *slog.Logger in a context.Context.
//
// The default logger writes to stderr through PrettyHandler, a console handler
// that colours the level and renders attributes as indented JSON. The level is
// read from the environment variable named after the executable, e.g.
// DEFLAKE_LOG_LEVEL=DEBUG, and defaults to WARN.
package ctxlog
