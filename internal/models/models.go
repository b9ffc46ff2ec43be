// Package models defines the domain records shared by every layer:
// properties, bookings, expenses and cached liquidation results.
package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical calendar-date format used across storage,
// the API and the bot.
const DateLayout = "2006-01-02"

var (
	ErrInvalidRange  = errors.New("end date must be after start date")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrNotFound      = errors.New("record not found")
)

// BookingSource is the channel a booking came from.
type BookingSource string

const (
	SourcePersonal   BookingSource = "Personal"
	SourceBookingCom BookingSource = "Booking.com"
	SourceAirbnb     BookingSource = "Airbnb"
	SourceOther      BookingSource = "Other"
)

// BookingSources lists the valid booking channels in display order.
var BookingSources = []BookingSource{SourcePersonal, SourceBookingCom, SourceAirbnb, SourceOther}

// ValidSource reports whether s is a known booking channel.
func ValidSource(s BookingSource) bool {
	for _, v := range BookingSources {
		if v == s {
			return true
		}
	}
	return false
}

// ExpenseCategory classifies an expense row.
type ExpenseCategory string

const (
	CategoryCleaning    ExpenseCategory = "Cleaning"
	CategoryMaintenance ExpenseCategory = "Maintenance"
	CategoryUtilities   ExpenseCategory = "Utilities"
	CategoryServiceFee  ExpenseCategory = "Service Fee"
	CategoryTaxes       ExpenseCategory = "Taxes"
	CategoryInsurance   ExpenseCategory = "Insurance"
	CategoryOtherExp    ExpenseCategory = "Other"
)

// ExpenseCategories lists the valid categories in display order.
var ExpenseCategories = []ExpenseCategory{
	CategoryCleaning, CategoryMaintenance, CategoryUtilities,
	CategoryServiceFee, CategoryTaxes, CategoryInsurance, CategoryOtherExp,
}

// ValidCategory reports whether c is a known expense category.
func ValidCategory(c ExpenseCategory) bool {
	for _, v := range ExpenseCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Property is a rental unit managed on behalf of an owner.
// Owner is a plain grouping key, not a foreign key.
type Property struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Owner   string `json:"owner"`
}

// Expense is a single cost incurred against a property on one calendar day.
type Expense struct {
	ID          int64           `json:"id"`
	PropertyID  int64           `json:"property_id"`
	ExpenseDate time.Time       `json:"expense_date"`
	Category    ExpenseCategory `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Validate checks the expense row before persistence.
func (e *Expense) Validate() error {
	if e.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if e.ExpenseDate.IsZero() {
		return errors.New("expense date is required")
	}
	return nil
}

// Day truncates t to a UTC calendar date. All interval math in the core
// operates on Day-normalized values.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
