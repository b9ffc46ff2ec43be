package schedule

import (
	"sort"
	"time"

	"rentero/internal/models"
)

// FirstAvailableDate walks the property's bookings in start-date order and
// returns the first free calendar date at or after ref. With no bookings it
// returns ref itself. Input bookings need not be sorted or non-overlapping.
func FirstAvailableDate(propertyID int64, bookings []models.Booking, ref time.Time) time.Time {
	own := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.PropertyID == propertyID {
			own = append(own, b)
		}
	}
	// Stable sort by start date only; relative order of equal starts is kept.
	sort.SliceStable(own, func(i, j int) bool {
		return models.Day(own[i].StartDate).Before(models.Day(own[j].StartDate))
	})

	cursor := models.Day(ref)
	for _, b := range own {
		if cursor.Before(models.Day(b.StartDate)) {
			// Gap before this booking starts.
			return cursor
		}
		// EndDate is the checkout day and already the first free day,
		// so no +1 here.
		if end := models.Day(b.EndDate); end.After(cursor) {
			cursor = end
		}
	}
	return cursor
}

// OccupiedDates returns the set of occupied calendar dates for the
// property, keyed by YYYY-MM-DD. Checkout days are excluded. An empty map
// is returned when the property has no bookings.
func OccupiedDates(propertyID int64, bookings []models.Booking) map[string]bool {
	occupied := make(map[string]bool)
	for _, b := range bookings {
		if b.PropertyID != propertyID {
			continue
		}
		start := models.Day(b.StartDate)
		end := models.Day(b.EndDate)
		for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
			occupied[models.FormatDate(d)] = true
		}
	}
	return occupied
}
