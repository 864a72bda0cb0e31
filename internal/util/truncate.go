package util

import "fmt"

// DefaultLogMaxLen caps vendor response bodies quoted in log lines (1KB).
// Enough to diagnose a rejected token request without dumping whole payloads.
const DefaultLogMaxLen = 1024

// TruncateLog truncates long strings for logging.
func TruncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}

// TruncateBytes is a convenience wrapper for TruncateLog that accepts []byte
// and uses DefaultLogMaxLen.
func TruncateBytes(b []byte) string {
	return TruncateLog(string(b), DefaultLogMaxLen)
}
