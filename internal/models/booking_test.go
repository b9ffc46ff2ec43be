package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBooking_Validate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		b := &Booking{
			StartDate:  date(2024, 6, 1),
			EndDate:    date(2024, 6, 8),
			RentAmount: decimal.NewFromInt(700),
		}
		assert.NoError(t, b.Validate())
	})

	t.Run("ZeroLength", func(t *testing.T) {
		b := &Booking{StartDate: date(2024, 6, 1), EndDate: date(2024, 6, 1)}
		assert.ErrorIs(t, b.Validate(), ErrInvalidRange)
	})

	t.Run("Inverted", func(t *testing.T) {
		b := &Booking{StartDate: date(2024, 6, 8), EndDate: date(2024, 6, 1)}
		assert.ErrorIs(t, b.Validate(), ErrInvalidRange)
	})

	t.Run("NegativeRent", func(t *testing.T) {
		b := &Booking{
			StartDate:  date(2024, 6, 1),
			EndDate:    date(2024, 6, 2),
			RentAmount: decimal.NewFromInt(-1),
		}
		assert.ErrorIs(t, b.Validate(), ErrNegativeAmount)
	})
}

func TestBooking_Overlaps(t *testing.T) {
	ana := &Booking{PropertyID: 1, TenantName: "Ana", StartDate: date(2024, 6, 1), EndDate: date(2024, 6, 8)}

	t.Run("AdjacentIsNotOverlap", func(t *testing.T) {
		// Checkout day equals check-in day of the next stay.
		next := &Booking{PropertyID: 1, StartDate: date(2024, 6, 8), EndDate: date(2024, 6, 10)}
		assert.False(t, ana.Overlaps(next))
		assert.False(t, next.Overlaps(ana))
	})

	t.Run("PartialOverlap", func(t *testing.T) {
		other := &Booking{PropertyID: 1, StartDate: date(2024, 6, 7), EndDate: date(2024, 6, 9)}
		assert.True(t, ana.Overlaps(other))
		assert.True(t, other.Overlaps(ana))
	})

	t.Run("Contained", func(t *testing.T) {
		inner := &Booking{PropertyID: 1, StartDate: date(2024, 6, 3), EndDate: date(2024, 6, 5)}
		assert.True(t, ana.Overlaps(inner))
	})

	t.Run("Disjoint", func(t *testing.T) {
		later := &Booking{PropertyID: 1, StartDate: date(2024, 7, 1), EndDate: date(2024, 7, 5)}
		assert.False(t, ana.Overlaps(later))
	})
}

func TestBooking_ContainsDate(t *testing.T) {
	b := &Booking{StartDate: date(2024, 6, 10), EndDate: date(2024, 6, 13)}

	assert.True(t, b.ContainsDate(date(2024, 6, 10)))
	assert.True(t, b.ContainsDate(date(2024, 6, 12)))
	// Checkout day is free.
	assert.False(t, b.ContainsDate(date(2024, 6, 13)))
	assert.False(t, b.ContainsDate(date(2024, 6, 9)))
}

func TestBooking_Nights(t *testing.T) {
	b := &Booking{StartDate: date(2024, 6, 10), EndDate: date(2024, 6, 13)}
	assert.Equal(t, 3, b.Nights())
}

func TestEnums(t *testing.T) {
	assert.True(t, ValidSource(SourceAirbnb))
	assert.False(t, ValidSource("Craigslist"))
	assert.True(t, ValidCategory(CategoryServiceFee))
	assert.False(t, ValidCategory("Bribes"))
}
