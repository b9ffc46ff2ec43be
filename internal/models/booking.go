package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking represents a tenant stay in a property. The occupied interval is
// half-open [StartDate, EndDate): EndDate is the checkout day and the unit
// is free again that same day.
type Booking struct {
	ID                 int64           `json:"id"`
	PropertyID         int64           `json:"property_id"`
	TenantName         string          `json:"tenant_name"`
	StartDate          time.Time       `json:"start_date"`
	EndDate            time.Time       `json:"end_date"`
	RentAmount         decimal.Decimal `json:"rent_amount"`
	RentCurrency       string          `json:"rent_currency"`
	Source             BookingSource   `json:"source"`
	CommissionPaid     *decimal.Decimal `json:"commission_paid,omitempty"`     // fee kept by the booking channel
	CommissionCurrency string          `json:"commission_currency,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Validate checks the booking invariants before it reaches storage or the
// scheduling core.
func (b *Booking) Validate() error {
	if !Day(b.EndDate).After(Day(b.StartDate)) {
		return ErrInvalidRange
	}
	if b.RentAmount.IsNegative() {
		return ErrNegativeAmount
	}
	if b.CommissionPaid != nil && b.CommissionPaid.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// Nights returns the number of occupied nights.
func (b *Booking) Nights() int {
	return int(Day(b.EndDate).Sub(Day(b.StartDate)).Hours() / 24)
}

// Overlaps reports whether two bookings occupy at least one common night.
// Two half-open intervals [s1,e1) and [s2,e2) overlap iff
// max(s1,s2) < min(e1,e2); a checkout day equal to another booking's
// check-in day is not an overlap.
func (b *Booking) Overlaps(other *Booking) bool {
	return OverlapsRange(b.StartDate, b.EndDate, other.StartDate, other.EndDate)
}

// OverlapsRange applies the half-open overlap test to two date ranges.
func OverlapsRange(s1, e1, s2, e2 time.Time) bool {
	start := Day(s1)
	if Day(s2).After(start) {
		start = Day(s2)
	}
	end := Day(e1)
	if Day(e2).Before(end) {
		end = Day(e2)
	}
	return start.Before(end)
}

// ContainsDate reports whether the booking occupies the given calendar date:
// StartDate <= d < EndDate.
func (b *Booking) ContainsDate(d time.Time) bool {
	day := Day(d)
	return !day.Before(Day(b.StartDate)) && day.Before(Day(b.EndDate))
}
