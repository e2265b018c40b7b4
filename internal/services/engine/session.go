package engine

import (
	"fmt"
	"time"
)

// Trading session names, derived from the UTC hour of the pass.
const (
	SessionOverlap = "london_newyork_overlap"
	SessionLondon  = "london"
	SessionNewYork = "new_york"
	SessionAsian   = "asian"
	SessionClosed  = "closed"
)

// ActiveSession maps a timestamp to the trading session in effect.
// Overlap (13:00-16:00 UTC) wins over the individual sessions.
func ActiveSession(ts time.Time) string {
	h := ts.UTC().Hour()
	switch {
	case h >= 13 && h < 16:
		return SessionOverlap
	case h >= 8 && h < 16:
		return SessionLondon
	case h >= 13 && h < 21:
		return SessionNewYork
	case h >= 0 && h < 8:
		return SessionAsian
	default:
		return SessionClosed
	}
}

// NextSessionEvent describes the next session boundary after ts, for
// display alongside the active session.
func NextSessionEvent(ts time.Time) string {
	h := ts.UTC().Hour()
	switch {
	case h < 8:
		return fmt.Sprintf("london opens in %dh", 8-h)
	case h < 13:
		return fmt.Sprintf("new_york opens in %dh", 13-h)
	case h < 16:
		return fmt.Sprintf("london closes in %dh", 16-h)
	case h < 21:
		return fmt.Sprintf("new_york closes in %dh", 21-h)
	default:
		return fmt.Sprintf("asian opens in %dh", 24-h)
	}
}
