// Package util holds small formatting helpers shared by the command-line tools.
package util //nolint:revive // package name util hosts shared formatting helpers used by the admin CLI

import "time"

// FormatExecutionTime renders an archived execution time in milliseconds.
// A missing value renders as "-"; sub-millisecond precision is never stored.
func FormatExecutionTime(ms *int64) string {
	if ms == nil {
		return "-"
	}
	return FormatDuration(time.Duration(*ms) * time.Millisecond)
}

// FormatDuration formats d for display, truncated to milliseconds.
// Zero and negative durations render as "0s".
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Millisecond:
		return d.String()
	default:
		return d.Truncate(time.Millisecond).String()
	}
}
