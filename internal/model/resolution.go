package model

import "time"

// Resolution is the nominal duration a candle represents.
type Resolution string

const (
	Res3h Resolution = "3h" // coarse
	Res1h Resolution = "1h" // medium
	Res1m Resolution = "1m" // fine
)

// Duration returns the nominal bar length, or 0 for an unknown resolution.
func (r Resolution) Duration() time.Duration {
	switch r {
	case Res3h:
		return 3 * time.Hour
	case Res1h:
		return time.Hour
	case Res1m:
		return time.Minute
	default:
		return 0
	}
}

// Valid reports whether r is one of the supported resolutions.
func (r Resolution) Valid() bool { return r.Duration() > 0 }

// ParseResolution validates a resolution label.
func ParseResolution(s string) (Resolution, error) {
	r := Resolution(s)
	if !r.Valid() {
		return "", Errorf("parse resolution", "unknown resolution %q (want 3h, 1h or 1m)", s)
	}
	return r, nil
}
