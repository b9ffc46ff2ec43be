package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LiquidationType selects the grouping key for a monthly settlement.
type LiquidationType string

const (
	LiquidationByOwner    LiquidationType = "by_owner"
	LiquidationByProperty LiquidationType = "by_property"
)

// Liquidation is the persisted, cacheable output of a monthly settlement
// computation. It is derived data: the source of truth stays in bookings
// and expenses, and recomputing from the same inputs must reproduce the
// same record.
type Liquidation struct {
	ID                   int64           `json:"-"`
	Year                 int             `json:"year"`
	Month                int             `json:"month"`
	Type                 LiquidationType `json:"type"`
	Identifier           string          `json:"identifier"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
	TotalIncome          decimal.Decimal `json:"total_income"`
	TotalExpenses        decimal.Decimal `json:"total_expenses"`
	CommissionAmount     decimal.Decimal `json:"commission_amount"`
	OwnerNet             decimal.Decimal `json:"owner_net"`
	CalculatedAt         time.Time       `json:"calculation_timestamp"`
}

// SameTotals reports whether two records carry identical computed amounts.
// Used to decide whether a cached record is still current.
func (l *Liquidation) SameTotals(other *Liquidation) bool {
	return l.TotalIncome.Equal(other.TotalIncome) &&
		l.TotalExpenses.Equal(other.TotalExpenses) &&
		l.CommissionAmount.Equal(other.CommissionAmount) &&
		l.OwnerNet.Equal(other.OwnerNet)
}
