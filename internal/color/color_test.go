// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package color

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsColorCapable(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, isColorCapable(), "Expected color output to be disabled")
	t.Setenv("FORCE_COLOR", "1")
	assert.False(t, isColorCapable(), "Expected color output to be disabled as NO_COLOR is still set")
	t.Setenv("NO_COLOR", "")
	assert.True(t, isColorCapable(), "Expected color output to be enabled as FORCE_COLOR is set and NO_COLOR is unset")
}

func TestColorize(t *testing.T) {
	prev := SetEnabled(true)
	defer SetEnabled(prev)

	assert.Equal(t, "\033[91mFAIL (run 3)\033[0m", Fail("FAIL (run 3)"))
	assert.Equal(t, "\033[92mPASS\033[0m", Pass("PASS"))
	assert.Equal(t, "\033[1;33mbold\033[0m", Colorize("bold", Bold, FgYellow))
	assert.Equal(t, "plain", Colorize("plain"))
}

func TestColorize_Disabled(t *testing.T) {
	prev := SetEnabled(false)
	defer SetEnabled(prev)

	assert.Equal(t, "PASS", Pass("PASS"))
	assert.Equal(t, "cancelled by user", Warn("cancelled by user"))
}

func TestControlString(t *testing.T) {
	assert.Equal(t, "\033[0m", ControlString(Reset))
	assert.Equal(t, "\033[1;31m", ControlString(Bold, FgRed))
}
