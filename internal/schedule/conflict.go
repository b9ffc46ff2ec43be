// Package schedule implements the interval scheduling core: conflict
// detection and availability calculation over booking snapshots. All
// functions are pure; callers load data and pass it in.
package schedule

import (
	"errors"
	"time"

	"rentero/internal/models"
)

// ErrInvalidRange signals a candidate range with end <= start. Such a
// request is fatal for the caller and never retried automatically.
var ErrInvalidRange = errors.New("invalid date range: end must be after start")

// FindConflicts returns every existing booking of the property whose
// half-open interval overlaps the candidate [start, end). Adjacent bookings
// (existing checkout day == candidate check-in day) do not conflict.
func FindConflicts(propertyID int64, start, end time.Time, bookings []models.Booking) ([]models.Booking, error) {
	if !models.Day(end).After(models.Day(start)) {
		return nil, ErrInvalidRange
	}

	var conflicts []models.Booking
	for _, b := range bookings {
		if b.PropertyID != propertyID {
			continue
		}
		if models.OverlapsRange(start, end, b.StartDate, b.EndDate) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts, nil
}

// HasConflict reports whether the candidate range overlaps any existing
// booking of the property.
func HasConflict(propertyID int64, start, end time.Time, bookings []models.Booking) (bool, error) {
	conflicts, err := FindConflicts(propertyID, start, end, bookings)
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}
