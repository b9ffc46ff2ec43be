// Package csvimport loads the legacy CSV data files (properties.csv,
// bookings.csv, expenses.csv) into the database. This is the migration
// path from the spreadsheet-era setup; rows that fail to parse are skipped
// with a warning, never aborting the import.
package csvimport

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"rentero/internal/models"
)

// Store is the subset of the database the importer writes to.
type Store interface {
	CreateProperty(ctx context.Context, p *models.Property) error
	CreateBookingWithLock(ctx context.Context, b *models.Booking) ([]models.Booking, error)
	CreateExpense(ctx context.Context, e *models.Expense) error
}

// Importer reads legacy CSV files into the store.
type Importer struct {
	store           Store
	defaultCurrency string
	logger          *zerolog.Logger

	// idMap maps legacy property ids to the ids assigned on insert.
	idMap map[int64]int64
}

// New constructs an importer.
func New(store Store, defaultCurrency string, logger *zerolog.Logger) *Importer {
	return &Importer{
		store:           store,
		defaultCurrency: defaultCurrency,
		logger:          logger,
		idMap:           make(map[int64]int64),
	}
}

// Summary reports what an import run did.
type Summary struct {
	Properties int
	Bookings   int
	Expenses   int
	Warnings   int
}

// Run imports properties, bookings and expenses from dir, in that order so
// foreign keys resolve. Missing files are not an error.
func (im *Importer) Run(ctx context.Context, dir string) (*Summary, error) {
	sum := &Summary{}

	if err := im.importProperties(ctx, filepath.Join(dir, "properties.csv"), sum); err != nil {
		return sum, err
	}
	if err := im.importBookings(ctx, filepath.Join(dir, "bookings.csv"), sum); err != nil {
		return sum, err
	}
	if err := im.importExpenses(ctx, filepath.Join(dir, "expenses.csv"), sum); err != nil {
		return sum, err
	}

	im.logger.Info().
		Int("properties", sum.Properties).
		Int("bookings", sum.Bookings).
		Int("expenses", sum.Expenses).
		Int("warnings", sum.Warnings).
		Msg("CSV import finished")
	return sum, nil
}

// readRows opens a CSV file and returns its records as column-name maps.
// A missing file yields nil rows and no error.
func readRows(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged legacy rows

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	var rows []map[string]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("read %s: %w", path, err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (im *Importer) importProperties(ctx context.Context, path string, sum *Summary) error {
	rows, err := readRows(path)
	if err != nil {
		return err
	}
	for _, row := range rows {
		legacyID, err := strconv.ParseInt(row["id"], 10, 64)
		if err != nil {
			im.warnRow(sum, "property", row["id"], "bad id")
			continue
		}
		p := &models.Property{
			Name:    row["name"],
			Address: row["address"],
			Owner:   row["owner"],
		}
		if p.Name == "" {
			im.warnRow(sum, "property", row["id"], "missing name")
			continue
		}
		if err := im.store.CreateProperty(ctx, p); err != nil {
			return err
		}
		im.idMap[legacyID] = p.ID
		sum.Properties++
	}
	return nil
}

func (im *Importer) importBookings(ctx context.Context, path string, sum *Summary) error {
	rows, err := readRows(path)
	if err != nil {
		return err
	}
	for _, row := range rows {
		propID, ok := im.mapProperty(row["property_id"])
		if !ok {
			im.warnRow(sum, "booking", row["id"], "unknown property")
			continue
		}
		start, err1 := models.ParseDate(row["start_date"])
		end, err2 := models.ParseDate(row["end_date"])
		if err1 != nil || err2 != nil {
			im.warnRow(sum, "booking", row["id"], "unparseable dates")
			continue
		}
		rent, err := decimal.NewFromString(row["rent_amount"])
		if err != nil {
			// Non-numeric amount: keep the stay, zero the income.
			im.warnRow(sum, "booking", row["id"], "non-numeric rent treated as zero")
			rent = decimal.Zero
		}

		b := &models.Booking{
			PropertyID:   propID,
			TenantName:   row["tenant_name"],
			StartDate:    start,
			EndDate:      end,
			RentAmount:   rent,
			RentCurrency: im.currencyOr(row["rent_currency"]),
			Source:       sourceOr(row["source"]),
			Notes:        row["notes"],
		}
		if raw := row["commission_paid"]; raw != "" {
			if c, err := decimal.NewFromString(raw); err == nil {
				b.CommissionPaid = &c
				b.CommissionCurrency = im.currencyOr(row["commission_currency"])
			} else {
				im.warnRow(sum, "booking", row["id"], "non-numeric commission ignored")
			}
		}

		if _, err := im.store.CreateBookingWithLock(ctx, b); err != nil {
			// Overlapping legacy rows are kept out; the warning names them.
			im.warnRow(sum, "booking", row["id"], err.Error())
			continue
		}
		sum.Bookings++
	}
	return nil
}

func (im *Importer) importExpenses(ctx context.Context, path string, sum *Summary) error {
	rows, err := readRows(path)
	if err != nil {
		return err
	}
	for _, row := range rows {
		propID, ok := im.mapProperty(row["property_id"])
		if !ok {
			im.warnRow(sum, "expense", row["id"], "unknown property")
			continue
		}
		day, err := models.ParseDate(row["expense_date"])
		if err != nil {
			im.warnRow(sum, "expense", row["id"], "unparseable date")
			continue
		}
		amount, err := decimal.NewFromString(row["amount"])
		if err != nil {
			im.warnRow(sum, "expense", row["id"], "non-numeric amount treated as zero")
			amount = decimal.Zero
		}

		e := &models.Expense{
			PropertyID:  propID,
			ExpenseDate: day,
			Category:    categoryOr(row["category"]),
			Amount:      amount,
			Currency:    im.currencyOr(row["currency"]),
			Description: row["description"],
		}
		if err := im.store.CreateExpense(ctx, e); err != nil {
			im.warnRow(sum, "expense", row["id"], err.Error())
			continue
		}
		sum.Expenses++
	}
	return nil
}

func (im *Importer) mapProperty(raw string) (int64, bool) {
	legacy, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	id, ok := im.idMap[legacy]
	return id, ok
}

func (im *Importer) currencyOr(c string) string {
	if c == "" {
		return im.defaultCurrency
	}
	return c
}

func (im *Importer) warnRow(sum *Summary, kind, id, reason string) {
	sum.Warnings++
	im.logger.Warn().Str("kind", kind).Str("id", id).Str("reason", reason).Msg("Problem in CSV row")
}

func sourceOr(s string) models.BookingSource {
	if models.ValidSource(models.BookingSource(s)) {
		return models.BookingSource(s)
	}
	return models.SourceOther
}

func categoryOr(c string) models.ExpenseCategory {
	if models.ValidCategory(models.ExpenseCategory(c)) {
		return models.ExpenseCategory(c)
	}
	return models.CategoryOtherExp
}
