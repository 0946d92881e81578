// Package interval decides whether a proposed occupancy of a shared resource
// collides with occupancies that are already committed.
//
// Intervals are half-open: [Start, End). Two intervals that only touch at a
// boundary do not conflict.
package interval

import (
	"time"

	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/apperror"
)

var ErrInvalid = apperror.Validation("start time must be before end time")

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// New builds an Interval and validates it.
func New(start, end time.Time) (Interval, error) {
	iv := Interval{Start: start, End: end}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// Validate rejects zero-length and inverted intervals.
func (iv Interval) Validate() error {
	if !iv.Start.Before(iv.End) {
		return ErrInvalid
	}
	return nil
}

// Overlaps reports whether iv and other share at least one instant.
func (iv Interval) Overlaps(other Interval) bool {
	// not (iv.End <= other.Start or iv.Start >= other.End)
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Occupant is an interval currently held on a resource by some owner.
type Occupant struct {
	OwnerID  string
	Interval Interval
}

// CheckConflict scans every occupant and reports whether proposed overlaps any
// of them. The occupant whose OwnerID equals excludeOwnerID is skipped so an
// owner can move its own interval. An empty excludeOwnerID excludes nothing.
//
// The proposed interval is validated first; an invalid interval is an error,
// never a silent "no conflict".
func CheckConflict(occupants []Occupant, proposed Interval, excludeOwnerID string) (bool, error) {
	if err := proposed.Validate(); err != nil {
		return false, err
	}
	for _, o := range occupants {
		if excludeOwnerID != "" && o.OwnerID == excludeOwnerID {
			continue
		}
		if proposed.Overlaps(o.Interval) {
			return true, nil
		}
	}
	return false, nil
}
