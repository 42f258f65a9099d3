package loadcheck

import "time"

// Default configuration constants.
const (
	DefaultKeys    = 200
	DefaultWorkers = 8
	DefaultTimeout = 10 * time.Second
	DefaultPrefix  = "loadcheck"
)

// Runner constants.
const (
	PercentageMultiplier = 100
)
