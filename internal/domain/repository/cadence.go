package repository

import "time"

// Cadence is the pipeline update frequency.
type Cadence string

const (
	Cad5m  Cadence = "5m"
	Cad15m Cadence = "15m"
	Cad1h  Cadence = "1h"
	Cad4h  Cadence = "4h"
	Cad1d  Cadence = "1d"
)

// IsValidCadence returns true if c is a supported cadence.
func IsValidCadence(c Cadence) bool {
	switch c {
	case Cad5m, Cad15m, Cad1h, Cad4h, Cad1d:
		return true
	default:
		return false
	}
}

// DefaultCadence returns the default update frequency.
func DefaultCadence() Cadence { return Cad5m }

// NormalizeCadence converts raw string to a valid cadence (or default).
func NormalizeCadence(s string) Cadence {
	if s == "" {
		return DefaultCadence()
	}
	c := Cadence(s)
	if IsValidCadence(c) {
		return c
	}
	return DefaultCadence()
}

// Duration returns the wall-clock length of one cadence interval.
func (c Cadence) Duration() time.Duration {
	switch c {
	case Cad5m:
		return 5 * time.Minute
	case Cad15m:
		return 15 * time.Minute
	case Cad1h:
		return time.Hour
	case Cad4h:
		return 4 * time.Hour
	case Cad1d:
		return 24 * time.Hour
	default:
		return 5 * time.Minute
	}
}
