package config

import "time"

// Analysis defaults.
const (
	DefaultMaxNumVersions = 1000
	DefaultWindow         = 24 * time.Hour
	DefaultCandidates     = "auto"
)

// Output defaults. The histogram defaults match the reference plot: 50 bins
// and a log-scaled count axis clamped to [1, 1000].
const (
	DefaultFormat = FormatText
	DefaultTitle  = "Reversion Behavior"
	DefaultBins   = 50
	DefaultYMin   = 1.0
	DefaultYMax   = 1000.0
)

// Logging defaults.
const (
	DefaultLogLevel = "info"
)
