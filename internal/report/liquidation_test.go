package report

import (
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentero/internal/liquidation"
	"rentero/internal/models"
)

// fakeWriter records sheet layout instead of producing a real workbook.
type fakeWriter struct {
	sheets  []string
	headers map[string][]string
	rows    map[string][][]interface{}
	current string
	saved   bool
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{
		headers: make(map[string][]string),
		rows:    make(map[string][][]interface{}),
	}
}

func (f *fakeWriter) AddSheet(name string) error {
	f.sheets = append(f.sheets, name)
	f.current = name
	return nil
}

func (f *fakeWriter) WriteHeader(columns []string) error {
	f.headers[f.current] = columns
	return nil
}

func (f *fakeWriter) WriteRow(row []interface{}) error {
	f.rows[f.current] = append(f.rows[f.current], row)
	return nil
}

func (f *fakeWriter) Save(io.Writer) error { return nil }

func (f *fakeWriter) SaveToFile(string) error { f.saved = true; return nil }

func (f *fakeWriter) Close() error { return nil }

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func date(s string) time.Time {
	t, _ := models.ParseDate(s)
	return t
}

func sampleResult() *liquidation.Result {
	return &liquidation.Result{
		Params: liquidation.Params{
			Year:                 2024,
			Month:                time.June,
			Type:                 models.LiquidationByOwner,
			Identifier:           "Smith",
			CommissionPercentage: d("20"),
		},
		PropertyIDs:      []int64{1},
		TotalIncome:      d("500"),
		TotalExpenses:    d("50"),
		CommissionAmount: d("100"),
		OwnerNet:         d("350"),
		Bookings: []models.Booking{
			{
				ID: 1, PropertyID: 1, TenantName: "Ana",
				StartDate: date("2024-06-01"), EndDate: date("2024-06-08"),
				RentAmount: d("500"), Source: models.SourceBookingCom,
			},
		},
		Expenses: []models.Expense{
			{
				ID: 1, PropertyID: 1, ExpenseDate: date("2024-06-15"),
				Category: models.CategoryCleaning, Amount: d("50"),
			},
		},
		CalculatedAt: time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestLiquidationReport_Sheets(t *testing.T) {
	w := newFakeWriter()
	rep := &LiquidationReport{
		Result:        sampleResult(),
		Currency:      "EUR",
		PropertyNames: map[int64]string{1: "Beach Flat"},
	}
	require.NoError(t, rep.WriteFile(w, "ignored.xlsx"))

	assert.Equal(t, []string{"Resumen", "Diario", "Reservas", "Gastos"}, w.sheets)
	assert.True(t, w.saved)

	// Summary carries the four totals with the currency appended.
	var values []interface{}
	for _, row := range w.rows["Resumen"] {
		values = append(values, row[1])
	}
	assert.Contains(t, values, "500 EUR")
	assert.Contains(t, values, "50 EUR")
	assert.Contains(t, values, "100 EUR")
	assert.Contains(t, values, "350 EUR")
	assert.Contains(t, values, "2024-06")

	// Daily sheet holds every day of June in order.
	require.Len(t, w.rows["Diario"], 30)
	assert.Equal(t, "2024-06-01", w.rows["Diario"][0][0])
	assert.Equal(t, "2024-06-30", w.rows["Diario"][29][0])

	// Booking detail resolves the property name.
	require.Len(t, w.rows["Reservas"], 1)
	assert.Equal(t, "Beach Flat", w.rows["Reservas"][0][0])
	assert.Equal(t, 7, w.rows["Reservas"][0][4])
}

func TestLiquidationReport_UnknownPropertyFallsBackToID(t *testing.T) {
	w := newFakeWriter()
	rep := &LiquidationReport{Result: sampleResult()}
	require.NoError(t, rep.WriteFile(w, "ignored.xlsx"))

	assert.Equal(t, "#1", w.rows["Reservas"][0][0])
	// No currency configured: raw amounts.
	assert.Equal(t, "500", w.rows["Reservas"][0][5])
}

func TestLiquidationReport_EmptyGroupNoted(t *testing.T) {
	res := sampleResult()
	res.EmptyGroup = true
	res.Warnings = []liquidation.Warning{{Kind: "booking", ID: 9, Reason: "missing dates"}}

	w := newFakeWriter()
	rep := &LiquidationReport{Result: res}
	require.NoError(t, rep.WriteFile(w, "ignored.xlsx"))

	var notes []interface{}
	for _, row := range w.rows["Resumen"] {
		if row[0] == "Aviso" {
			notes = append(notes, row[1])
		}
	}
	require.Len(t, notes, 2)
	assert.Equal(t, "Sin propiedades en el grupo", notes[0])
}

func TestExcelizeWriter_RoundTrip(t *testing.T) {
	w := NewExcelizeWriter()
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.AddSheet("A very long sheet name that exceeds the Excel limit"))
	require.NoError(t, w.WriteHeader([]string{"a", "b"}))
	require.NoError(t, w.WriteRow([]interface{}{"x", 1}))

	require.Error(t, (&ExcelizeWriter{}).WriteHeader([]string{"a"}))
}
