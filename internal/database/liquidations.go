package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"rentero/internal/models"
)

// SaveLiquidation upserts a cached settlement record. The unique index over
// (year, month, type, identifier, commission_percentage) replaces older
// rows for the same key, so recomputation is idempotent on disk too.
func (db *DB) SaveLiquidation(ctx context.Context, l *models.Liquidation) error {
	res, err := db.ExecContext(ctx,
		`INSERT INTO liquidations (year, month, type, identifier, commission_percentage,
			total_income, total_expenses, commission_amount, owner_net, calculated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Year, l.Month, string(l.Type), l.Identifier, l.CommissionPercentage.String(),
		l.TotalIncome.String(), l.TotalExpenses.String(),
		l.CommissionAmount.String(), l.OwnerNet.String(), l.CalculatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save liquidation: %w", err)
	}
	l.ID, err = res.LastInsertId()
	return err
}

// GetLiquidation returns the most recent cached record for the settlement
// key, any commission percentage. Callers compare the stored percentage
// against the requested one before trusting the numbers.
func (db *DB) GetLiquidation(ctx context.Context, year, month int, typ models.LiquidationType, identifier string) (*models.Liquidation, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, year, month, type, identifier, commission_percentage,
			total_income, total_expenses, commission_amount, owner_net, calculated_at
		 FROM liquidations
		 WHERE year = ? AND month = ? AND type = ? AND identifier = ?
		 ORDER BY calculated_at DESC LIMIT 1`,
		year, month, string(typ), identifier,
	)
	return scanLiquidation(row.Scan)
}

// ListLiquidations returns all cached records for a year, newest first.
func (db *DB) ListLiquidations(ctx context.Context, year int) ([]models.Liquidation, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, year, month, type, identifier, commission_percentage,
			total_income, total_expenses, commission_amount, owner_net, calculated_at
		 FROM liquidations WHERE year = ? ORDER BY month DESC, calculated_at DESC`,
		year,
	)
	if err != nil {
		return nil, fmt.Errorf("list liquidations: %w", err)
	}
	defer rows.Close()

	var out []models.Liquidation
	for rows.Next() {
		l, err := scanLiquidation(rows.Scan)
		if err != nil {
			db.logger.Warn().Err(err).Msg("Skipping malformed liquidation row")
			continue
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func scanLiquidation(scan func(dest ...interface{}) error) (*models.Liquidation, error) {
	var (
		l                                  models.Liquidation
		pct, income, expenses, commission  string
		net                                string
	)
	err := scan(&l.ID, &l.Year, &l.Month, &l.Type, &l.Identifier, &pct,
		&income, &expenses, &commission, &net, &l.CalculatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&l.CommissionPercentage, pct},
		{&l.TotalIncome, income},
		{&l.TotalExpenses, expenses},
		{&l.CommissionAmount, commission},
		{&l.OwnerNet, net},
	} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, fmt.Errorf("liquidation %d: bad amount %q: %w", l.ID, f.src, err)
		}
	}
	return &l, nil
}
