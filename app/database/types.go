package database

import (
	"time"
)

type GeocodeEntry struct {
	AddressKey   string // Normalized address used as the cache key
	Lat          *float64
	Lon          *float64
	Unresolvable bool // Lookup completed but the provider found nothing
	ResolvedAt   time.Time
}

type SourceAttempt struct {
	SourceName  string
	AttemptedAt time.Time
	Outcome       string // success, http_error, timeout, parse_error, empty
	StatusCode    int    // Only set for http_error outcomes
	ResponseBytes int
	Detail        string
}

type SourceQuality struct {
	SourceName          string
	Score               float64
	Attempts            int
	ConsecutiveFailures int
	LastSuccessAt       *time.Time
	UpdatedAt           time.Time
}
