package models

import "errors"

// Error taxonomy for the pipeline. Transient collaborator failures are
// wrapped around these sentinels so callers can branch with errors.Is.
var (
	// ErrFetch marks a transient feed/network failure; retried within the cycle.
	ErrFetch = errors.New("fetch failed")

	// ErrScore marks a scoring-model failure for one sample; the sample is skipped.
	ErrScore = errors.New("score failed")

	// ErrInsufficientData marks a window with zero usable samples. Not a cycle
	// failure: it suppresses signal generation for the window.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidTransition marks a malformed signal reaching the position
	// state machine. Contract violation; should not occur in correct operation.
	ErrInvalidTransition = errors.New("invalid position transition")

	// ErrCycleInFlight is returned when a cycle is triggered while the previous
	// one for the same instrument is still running.
	ErrCycleInFlight = errors.New("cycle already in flight")

	// ErrMarketClosed is returned when a cycle is triggered outside the
	// instrument's trading session.
	ErrMarketClosed = errors.New("market closed")
)
