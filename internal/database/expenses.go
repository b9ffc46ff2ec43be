package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"rentero/internal/models"
)

const expenseColumns = `id, property_id, expense_date, category, amount, currency, description, created_at`

func scanExpense(scan func(dest ...interface{}) error) (*models.Expense, error) {
	var (
		e      models.Expense
		day    string
		amount string
		desc   sql.NullString
	)
	err := scan(&e.ID, &e.PropertyID, &day, &e.Category, &amount, &e.Currency, &desc, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if e.ExpenseDate, err = models.ParseDate(day); err != nil {
		return nil, fmt.Errorf("expense %d: bad expense_date %q: %w", e.ID, day, err)
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("expense %d: bad amount %q: %w", e.ID, amount, err)
	}
	if desc.Valid {
		e.Description = desc.String
	}
	return &e, nil
}

func (db *DB) queryExpenses(ctx context.Context, query string, args ...interface{}) ([]models.Expense, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows.Scan)
		if err != nil {
			db.logger.Warn().Err(err).Msg("Skipping malformed expense row")
			continue
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

// CreateExpense inserts an expense row.
func (db *DB) CreateExpense(ctx context.Context, e *models.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO expenses (property_id, expense_date, category, amount, currency, description)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.PropertyID, models.FormatDate(e.ExpenseDate), string(e.Category),
		e.Amount.String(), e.Currency, nullString(e.Description),
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	e.ID, err = res.LastInsertId()
	return err
}

// ListExpenses returns every expense.
func (db *DB) ListExpenses(ctx context.Context) ([]models.Expense, error) {
	return db.queryExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses ORDER BY expense_date, id`)
}

// GetExpensesByProperty returns the property's expenses ordered by date.
func (db *DB) GetExpensesByProperty(ctx context.Context, propertyID int64) ([]models.Expense, error) {
	return db.queryExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE property_id = ? ORDER BY expense_date, id`,
		propertyID)
}

// GetExpensesByDateRange returns expenses dated within [from, to] inclusive.
func (db *DB) GetExpensesByDateRange(ctx context.Context, from, to time.Time) ([]models.Expense, error) {
	return db.queryExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE expense_date >= ? AND expense_date <= ? ORDER BY expense_date, id`,
		models.FormatDate(from), models.FormatDate(to))
}
