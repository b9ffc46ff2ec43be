package liquidation

import (
	"time"

	"github.com/shopspring/decimal"

	"rentero/internal/models"
)

// DayRecord is one calendar day of a monthly breakdown: the bookings that
// check out that day, the expenses incurred that day, and the day's totals.
type DayRecord struct {
	Date     time.Time
	Bookings []models.Booking
	Expenses []models.Expense
	Income   decimal.Decimal
	Expense  decimal.Decimal
	Net      decimal.Decimal
}

// DailyBreakdown produces one record per calendar day of the month in
// ascending order, built fresh on every call. The sum of the daily income
// and expense columns reconciles exactly with Compute's monthly totals when
// fed the same included rows.
func DailyBreakdown(year int, month time.Month, bookings []models.Booking, expenses []models.Expense) []DayRecord {
	first, last := MonthWindow(year, month)

	days := make([]DayRecord, 0, 31)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		rec := DayRecord{
			Date:    d,
			Income:  decimal.Zero,
			Expense: decimal.Zero,
		}
		for _, b := range bookings {
			if models.Day(b.EndDate).Equal(d) {
				rec.Bookings = append(rec.Bookings, b)
				amount := b.RentAmount
				if amount.IsNegative() {
					amount = decimal.Zero
				}
				rec.Income = rec.Income.Add(amount)
			}
		}
		for _, e := range expenses {
			if models.Day(e.ExpenseDate).Equal(d) {
				rec.Expenses = append(rec.Expenses, e)
				amount := e.Amount
				if amount.IsNegative() {
					amount = decimal.Zero
				}
				rec.Expense = rec.Expense.Add(amount)
			}
		}
		rec.Net = rec.Income.Sub(rec.Expense)
		days = append(days, rec)
	}
	return days
}
