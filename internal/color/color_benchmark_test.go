// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package color

import (
	"strconv"
	"testing"
)

func BenchmarkFail(b *testing.B) {
	prev := SetEnabled(true)
	defer SetEnabled(prev)

	msg := "FAIL (run " + strconv.Itoa(42) + ")"

	b.ResetTimer()

	for b.Loop() {
		Fail(msg)
	}
}
