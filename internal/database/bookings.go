package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"rentero/internal/models"
)

const bookingColumns = `id, property_id, tenant_name, start_date, end_date,
	rent_amount, rent_currency, source, commission_paid, commission_currency,
	notes, created_at, updated_at`

func scanBooking(scan func(dest ...interface{}) error) (*models.Booking, error) {
	var (
		b          models.Booking
		start, end string
		rent       string
		commission sql.NullString
		commCur    sql.NullString
		notes      sql.NullString
	)
	err := scan(
		&b.ID, &b.PropertyID, &b.TenantName, &start, &end,
		&rent, &b.RentCurrency, &b.Source, &commission, &commCur,
		&notes, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if b.StartDate, err = models.ParseDate(start); err != nil {
		return nil, fmt.Errorf("booking %d: bad start_date %q: %w", b.ID, start, err)
	}
	if b.EndDate, err = models.ParseDate(end); err != nil {
		return nil, fmt.Errorf("booking %d: bad end_date %q: %w", b.ID, end, err)
	}
	if b.RentAmount, err = decimal.NewFromString(rent); err != nil {
		return nil, fmt.Errorf("booking %d: bad rent_amount %q: %w", b.ID, rent, err)
	}
	if commission.Valid && commission.String != "" {
		d, err := decimal.NewFromString(commission.String)
		if err != nil {
			return nil, fmt.Errorf("booking %d: bad commission_paid %q: %w", b.ID, commission.String, err)
		}
		b.CommissionPaid = &d
	}
	if commCur.Valid {
		b.CommissionCurrency = commCur.String
	}
	if notes.Valid {
		b.Notes = notes.String
	}
	return &b, nil
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...interface{}) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			// One malformed row must not hide the rest of the table.
			db.logger.Warn().Err(err).Msg("Skipping malformed booking row")
			continue
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// ListBookings returns every booking.
func (db *DB) ListBookings(ctx context.Context) ([]models.Booking, error) {
	return db.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings ORDER BY start_date, id`)
}

// GetBookingsByProperty returns the property's bookings ordered by start date.
func (db *DB) GetBookingsByProperty(ctx context.Context, propertyID int64) ([]models.Booking, error) {
	return db.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE property_id = ? ORDER BY start_date, id`,
		propertyID)
}

// GetBookingsByCheckoutRange returns bookings whose checkout day falls in
// [from, to] inclusive, across all properties.
func (db *DB) GetBookingsByCheckoutRange(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	return db.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE end_date >= ? AND end_date <= ? ORDER BY end_date, id`,
		models.FormatDate(from), models.FormatDate(to))
}

// GetBookingsByCheckinRange returns bookings whose checkin day falls in
// [from, to] inclusive, across all properties.
func (db *DB) GetBookingsByCheckinRange(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	return db.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE start_date >= ? AND start_date <= ? ORDER BY start_date, id`,
		models.FormatDate(from), models.FormatDate(to))
}

// GetBooking returns one booking by id.
func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return b, err
}

func (db *DB) insertBooking(ctx context.Context, b *models.Booking) error {
	var commission interface{}
	if b.CommissionPaid != nil {
		commission = b.CommissionPaid.String()
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO bookings (property_id, tenant_name, start_date, end_date,
			rent_amount, rent_currency, source, commission_paid, commission_currency, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.PropertyID, b.TenantName,
		models.FormatDate(b.StartDate), models.FormatDate(b.EndDate),
		b.RentAmount.String(), b.RentCurrency, string(b.Source),
		commission, nullString(b.CommissionCurrency), nullString(b.Notes),
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	b.ID, err = res.LastInsertId()
	return err
}

// CreateBookingWithLock validates the booking, re-runs the conflict check
// against fresh data and inserts, all under the property's write lock. This
// is the final re-check the advisory UI-level check cannot replace: a
// conflict here aborts the request.
func (db *DB) CreateBookingWithLock(ctx context.Context, b *models.Booking) ([]models.Booking, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	lock := db.propertyLock(b.PropertyID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := db.GetBookingsByProperty(ctx, b.PropertyID)
	if err != nil {
		return nil, err
	}

	var conflicts []models.Booking
	for _, e := range existing {
		if models.OverlapsRange(b.StartDate, b.EndDate, e.StartDate, e.EndDate) {
			conflicts = append(conflicts, e)
		}
	}
	if len(conflicts) > 0 {
		return conflicts, ErrConflict
	}

	return nil, db.insertBooking(ctx, b)
}

// UpdateBookingWithLock replaces the booking's dates and amounts after the
// same validity and conflict checks as creation, ignoring the booking's own
// current interval.
func (db *DB) UpdateBookingWithLock(ctx context.Context, b *models.Booking) ([]models.Booking, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	lock := db.propertyLock(b.PropertyID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := db.GetBookingsByProperty(ctx, b.PropertyID)
	if err != nil {
		return nil, err
	}

	var conflicts []models.Booking
	for _, e := range existing {
		if e.ID == b.ID {
			continue
		}
		if models.OverlapsRange(b.StartDate, b.EndDate, e.StartDate, e.EndDate) {
			conflicts = append(conflicts, e)
		}
	}
	if len(conflicts) > 0 {
		return conflicts, ErrConflict
	}

	var commission interface{}
	if b.CommissionPaid != nil {
		commission = b.CommissionPaid.String()
	}
	_, err = db.ExecContext(ctx,
		`UPDATE bookings SET tenant_name = ?, start_date = ?, end_date = ?,
			rent_amount = ?, rent_currency = ?, source = ?,
			commission_paid = ?, commission_currency = ?, notes = ?,
			updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		b.TenantName, models.FormatDate(b.StartDate), models.FormatDate(b.EndDate),
		b.RentAmount.String(), b.RentCurrency, string(b.Source),
		commission, nullString(b.CommissionCurrency), nullString(b.Notes), b.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update booking %d: %w", b.ID, err)
	}
	return nil, nil
}

// DeleteBooking removes a booking.
func (db *DB) DeleteBooking(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete booking %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
