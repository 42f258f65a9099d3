package loadcheck

import "time"

// Config holds configuration for a round-trip check.
type Config struct {
	BaseURL string        // Base URL of the service
	Keys    int           // Number of keys to write and read back
	Workers int           // Number of concurrent requests
	Timeout time.Duration // Per-request timeout
	Prefix  string        // Key prefix; keys are removed again when the check ends
	Keep    bool          // Leave the written keys in place
}

// Stats holds check statistics.
type Stats struct {
	Written    int
	Read       int
	Mismatched int
	Failed     int
	Removed    int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}

// Pair is one generated key and the value written under it.
type Pair struct {
	Key   string
	Value any
}
