// Package liquidation computes monthly owner settlements: income recognized
// at checkout, expenses by day incurred, manager commission as a percentage
// of income. Computations are pure functions over snapshots supplied by the
// caller and are reproducible: identical inputs yield identical outputs.
package liquidation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"rentero/internal/models"
)

// Params identifies one settlement computation.
type Params struct {
	Year                 int
	Month                time.Month
	Type                 models.LiquidationType
	Identifier           string // owner name or property id as string
	CommissionPercentage decimal.Decimal
}

// Warning describes a record skipped or coerced during aggregation. One bad
// row never aborts the batch; it is reported here instead.
type Warning struct {
	Kind   string // "booking" or "expense"
	ID     int64
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s %d: %s", w.Kind, w.ID, w.Reason)
}

// Result is the outcome of a settlement computation.
type Result struct {
	Params Params

	// PropertyIDs is the resolved group. Empty plus EmptyGroup=true means
	// the identifier matched no properties; all totals are zero and this
	// is a valid outcome, not an error.
	PropertyIDs []int64
	EmptyGroup  bool

	TotalIncome      decimal.Decimal
	TotalExpenses    decimal.Decimal
	CommissionAmount decimal.Decimal
	OwnerNet         decimal.Decimal

	// Bookings and Expenses are the rows that entered the totals, for
	// display and report building.
	Bookings []models.Booking
	Expenses []models.Expense

	Warnings     []Warning
	CalculatedAt time.Time
}

// Record converts the result into the persisted liquidation shape.
func (r *Result) Record() models.Liquidation {
	return models.Liquidation{
		Year:                 r.Params.Year,
		Month:                int(r.Params.Month),
		Type:                 r.Params.Type,
		Identifier:           r.Params.Identifier,
		CommissionPercentage: r.Params.CommissionPercentage,
		TotalIncome:          r.TotalIncome,
		TotalExpenses:        r.TotalExpenses,
		CommissionAmount:     r.CommissionAmount,
		OwnerNet:             r.OwnerNet,
		CalculatedAt:         r.CalculatedAt,
	}
}

// MonthWindow returns the first and last calendar day of the month, both
// inclusive. Month lengths follow the real calendar, leap years included.
func MonthWindow(year int, month time.Month) (first, last time.Time) {
	first = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last = first.AddDate(0, 1, -1)
	return first, last
}

// ResolveGroup returns the property ids covered by the settlement: every
// property of the owner for by_owner, the single property for by_property.
func ResolveGroup(typ models.LiquidationType, identifier string, properties []models.Property) []int64 {
	var ids []int64
	for _, p := range properties {
		switch typ {
		case models.LiquidationByOwner:
			if p.Owner == identifier {
				ids = append(ids, p.ID)
			}
		case models.LiquidationByProperty:
			if fmt.Sprintf("%d", p.ID) == identifier {
				ids = append(ids, p.ID)
			}
		}
	}
	return ids
}

// Compute aggregates one month of activity into a settlement. Income is
// recognized at checkout: a booking counts iff its EndDate falls inside the
// month window. now stamps CalculatedAt; the caller supplies it to keep the
// computation deterministic.
func Compute(p Params, now time.Time, properties []models.Property, bookings []models.Booking, expenses []models.Expense) *Result {
	res := &Result{Params: p, CalculatedAt: now}

	res.PropertyIDs = ResolveGroup(p.Type, p.Identifier, properties)
	inGroup := make(map[int64]bool, len(res.PropertyIDs))
	for _, id := range res.PropertyIDs {
		inGroup[id] = true
	}

	res.TotalIncome = decimal.Zero
	res.TotalExpenses = decimal.Zero
	res.CommissionAmount = decimal.Zero
	res.OwnerNet = decimal.Zero

	if len(res.PropertyIDs) == 0 {
		res.EmptyGroup = true
		return res
	}

	first, last := MonthWindow(p.Year, p.Month)

	for _, b := range bookings {
		if !inGroup[b.PropertyID] {
			continue
		}
		if b.EndDate.IsZero() {
			res.Warnings = append(res.Warnings, Warning{Kind: "booking", ID: b.ID, Reason: "missing end date"})
			continue
		}
		end := models.Day(b.EndDate)
		if end.Before(first) || end.After(last) {
			continue
		}
		amount := b.RentAmount
		if amount.IsNegative() {
			res.Warnings = append(res.Warnings, Warning{Kind: "booking", ID: b.ID, Reason: "negative rent amount treated as zero"})
			amount = decimal.Zero
		}
		res.TotalIncome = res.TotalIncome.Add(amount)
		res.Bookings = append(res.Bookings, b)
	}

	for _, e := range expenses {
		if !inGroup[e.PropertyID] {
			continue
		}
		if e.ExpenseDate.IsZero() {
			res.Warnings = append(res.Warnings, Warning{Kind: "expense", ID: e.ID, Reason: "missing expense date"})
			continue
		}
		day := models.Day(e.ExpenseDate)
		if day.Before(first) || day.After(last) {
			continue
		}
		amount := e.Amount
		if amount.IsNegative() {
			res.Warnings = append(res.Warnings, Warning{Kind: "expense", ID: e.ID, Reason: "negative amount treated as zero"})
			amount = decimal.Zero
		}
		res.TotalExpenses = res.TotalExpenses.Add(amount)
		res.Expenses = append(res.Expenses, e)
	}

	res.CommissionAmount = res.TotalIncome.Mul(p.CommissionPercentage).Div(decimal.NewFromInt(100))
	res.OwnerNet = res.TotalIncome.Sub(res.TotalExpenses).Sub(res.CommissionAmount)
	return res
}
