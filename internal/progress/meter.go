package progress

import (
	"fmt"
	"time"
)

// Meter accumulates row and byte counts for a single transfer.
// It is not safe for concurrent use; transfers are driven by one
// goroutine at a time.
type Meter struct {
	start time.Time
	rows  int64
	bytes int64

	// now is replaceable for deterministic tests.
	now func() time.Time
}

// NewMeter creates a Meter with the clock started.
func NewMeter() *Meter {
	m := &Meter{now: time.Now}
	m.start = m.now()
	return m
}

// AddRows adds n to the row count. Negative values are allowed so
// callers can pre-discount lines that should not count as rows.
func (m *Meter) AddRows(n int64) {
	m.rows += n
}

// AddBytes adds n to the byte count.
func (m *Meter) AddBytes(n int64) {
	m.bytes += n
}

// Rows returns the accumulated row count.
func (m *Meter) Rows() int64 { return m.rows }

// Bytes returns the accumulated byte count.
func (m *Meter) Bytes() int64 { return m.bytes }

// Summary returns a snapshot of the transfer with elapsed time and rates.
func (m *Meter) Summary() Summary {
	elapsed := m.now().Sub(m.start)
	s := Summary{
		Rows:    m.rows,
		Bytes:   m.bytes,
		Elapsed: elapsed,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		s.RowsPerSec = float64(m.rows) / secs
		s.BytesPerSec = float64(m.bytes) / secs
	}
	return s
}

// Summary describes a completed (or in-flight) transfer.
type Summary struct {
	Rows        int64
	Bytes       int64
	Elapsed     time.Duration
	RowsPerSec  float64
	BytesPerSec float64
}

// String formats the summary as a single human-readable line.
func (s Summary) String() string {
	return fmt.Sprintf("transferred %d rows (%s) in %s (%.1f row/s, %s/s)",
		s.Rows,
		FormatBytes(s.Bytes),
		FormatDuration(s.Elapsed),
		s.RowsPerSec,
		FormatBytes(int64(s.BytesPerSec)),
	)
}

// BytesString formats the summary for byte-only transfers (no row counts).
func (s Summary) BytesString() string {
	return fmt.Sprintf("transferred %s in %s (%s/s)",
		FormatBytes(s.Bytes),
		FormatDuration(s.Elapsed),
		FormatBytes(int64(s.BytesPerSec)),
	)
}

// FormatBytes formats bytes as a human-readable string.
func FormatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// FormatDuration formats a duration as a human-readable string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// ParseBytes parses a human-readable byte string (e.g., "256MB").
func ParseBytes(s string) (int64, error) {
	var multiplier int64 = 1
	s = trimSuffix(s, " ")

	switch {
	case hasSuffix(s, "TB"):
		multiplier = 1024 * 1024 * 1024 * 1024
		s = s[:len(s)-2]
	case hasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-2]
	case hasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = s[:len(s)-2]
	case hasSuffix(s, "KB"):
		multiplier = 1024
		s = s[:len(s)-2]
	case hasSuffix(s, "B"):
		s = s[:len(s)-1]
	}

	var value float64
	_, err := fmt.Sscanf(s, "%f", &value)
	if err != nil {
		return 0, fmt.Errorf("invalid byte string: %s", s)
	}

	return int64(value * float64(multiplier)), nil
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func trimSuffix(s, suffix string) string {
	for hasSuffix(s, suffix) {
		s = s[:len(s)-len(suffix)]
	}
	return s
}
