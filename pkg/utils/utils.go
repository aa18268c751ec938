// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package utils

import (
	"context"
	"fmt"
	"strings"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// IsEmpty reports whether s contains nothing but whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Go runs fn on its own goroutine unless ctx is already done. Keeps the
// "fire and forget after a liveness check" pattern in one place.
func Go(ctx context.Context, fn func()) {
	select {
	case <-ctx.Done():
		return
	default:
	}
	go fn()
}

// FormatClock renders elapsed whole seconds as mm:ss.
func FormatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
