package csvimport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentero/internal/models"
)

type memStore struct {
	nextID     int64
	properties []*models.Property
	bookings   []*models.Booking
	expenses   []*models.Expense
}

func (m *memStore) CreateProperty(_ context.Context, p *models.Property) error {
	m.nextID++
	p.ID = m.nextID
	m.properties = append(m.properties, p)
	return nil
}

func (m *memStore) CreateBookingWithLock(_ context.Context, b *models.Booking) ([]models.Booking, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	for _, other := range m.bookings {
		if b.Overlaps(other) {
			return []models.Booking{*other}, models.ErrInvalidRange
		}
	}
	m.nextID++
	b.ID = m.nextID
	m.bookings = append(m.bookings, b)
	return nil, nil
}

func (m *memStore) CreateExpense(_ context.Context, e *models.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	m.nextID++
	e.ID = m.nextID
	m.expenses = append(m.expenses, e)
	return nil
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func newTestImporter(store Store) *Importer {
	logger := zerolog.Nop()
	return New(store, "EUR", &logger)
}

func TestImporter_Run(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "properties.csv",
		"id,name,address,owner\n"+
			"10,Beach Flat,Calle Mar 1,Smith\n"+
			"11,City Loft,Gran Via 22,Smith\n")
	writeFile(t, dir, "bookings.csv",
		"id,property_id,tenant_name,start_date,end_date,rent_amount,source,commission_paid,notes\n"+
			"1,10,Ana,2024-06-01,2024-06-08,500,Booking.com,75,\n"+
			"2,11,Luis,2024-06-10,2024-06-13,300,Personal,,late checkin\n")
	writeFile(t, dir, "expenses.csv",
		"id,property_id,expense_date,category,amount,description\n"+
			"1,10,2024-06-15,Cleaning,50,turnover clean\n")

	store := &memStore{}
	sum, err := newTestImporter(store).Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Properties)
	assert.Equal(t, 2, sum.Bookings)
	assert.Equal(t, 1, sum.Expenses)
	assert.Equal(t, 0, sum.Warnings)

	// Legacy ids are remapped to store-assigned ids.
	require.Len(t, store.bookings, 2)
	assert.Equal(t, store.properties[0].ID, store.bookings[0].PropertyID)
	assert.Equal(t, store.properties[1].ID, store.bookings[1].PropertyID)

	assert.True(t, store.bookings[0].RentAmount.Equal(decimal.NewFromInt(500)))
	require.NotNil(t, store.bookings[0].CommissionPaid)
	assert.True(t, store.bookings[0].CommissionPaid.Equal(decimal.NewFromInt(75)))
	assert.Equal(t, "EUR", store.bookings[0].RentCurrency)
	assert.Equal(t, models.SourceBookingCom, store.bookings[0].Source)
}

func TestImporter_SkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "properties.csv",
		"id,name,address,owner\n"+
			"10,Beach Flat,Calle Mar 1,Smith\n"+
			"bad,No ID,Somewhere,Smith\n")
	writeFile(t, dir, "bookings.csv",
		"id,property_id,tenant_name,start_date,end_date,rent_amount,source,commission_paid,notes\n"+
			"1,99,Ghost,2024-06-01,2024-06-08,500,Personal,,\n"+ // unknown property
			"2,10,Ana,not-a-date,2024-06-08,500,Personal,,\n"+ // bad date
			"3,10,Luis,2024-06-10,2024-06-13,oops,Personal,,\n") // rent coerced to zero
	writeFile(t, dir, "expenses.csv",
		"id,property_id,expense_date,category,amount,description\n"+
			"1,10,2024-06-15,NotACategory,50,mystery\n")

	store := &memStore{}
	sum, err := newTestImporter(store).Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Properties)
	assert.Equal(t, 1, sum.Bookings)
	assert.Equal(t, 1, sum.Expenses)
	assert.Equal(t, 4, sum.Warnings) // bad property id, ghost booking, bad date, zeroed rent warning

	require.Len(t, store.bookings, 1)
	assert.True(t, store.bookings[0].RentAmount.IsZero())

	// Unknown category falls back to Other rather than dropping the row.
	require.Len(t, store.expenses, 1)
	assert.Equal(t, models.CategoryOtherExp, store.expenses[0].Category)
}

func TestImporter_MissingFilesAreFine(t *testing.T) {
	store := &memStore{}
	sum, err := newTestImporter(store).Run(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, sum.Properties+sum.Bookings+sum.Expenses)
}
