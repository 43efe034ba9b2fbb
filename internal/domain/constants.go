package domain

import "time"

// Audit session defaults
const (
	// DefaultAuditSessionTTL bounds abandoned sessions.
	DefaultAuditSessionTTL = 30 * 24 * time.Hour
)

// Collection listing limits
const (
	DefaultListLimit = 500
	MaxListLimit     = 5000
)

// UnknownGroup is the stats bucket for items with no value for the grouping key.
const UnknownGroup = "unknown"
