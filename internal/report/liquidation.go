// Package report builds downloadable Excel settlement reports: a summary
// sheet with the monthly totals and a daily sheet with the per-day breakdown.
package report

import (
	"fmt"
	"io"

	"rentero/internal/liquidation"
	"rentero/internal/models"
)

var summaryColumns = []string{"Concepto", "Valor"}

var dailyColumns = []string{
	"Fecha", "Salidas", "Ingresos", "Gastos", "Neto",
}

var bookingColumns = []string{
	"Propiedad", "Inquilino", "Entrada", "Salida", "Noches", "Renta", "Canal",
}

var expenseColumns = []string{
	"Propiedad", "Fecha", "Categoria", "Importe", "Descripcion",
}

// LiquidationReport renders a settlement result as an Excel workbook. The
// property names map is optional; missing ids fall back to the raw id.
type LiquidationReport struct {
	Result        *liquidation.Result
	Currency      string
	PropertyNames map[int64]string
}

// WriteTo builds the workbook with the given writer and saves it to w.
func (r *LiquidationReport) WriteTo(ew ExcelWriter, w io.Writer) error {
	if err := r.build(ew); err != nil {
		return err
	}
	return ew.Save(w)
}

// WriteFile builds the workbook and saves it to path.
func (r *LiquidationReport) WriteFile(ew ExcelWriter, path string) error {
	if err := r.build(ew); err != nil {
		return err
	}
	return ew.SaveToFile(path)
}

func (r *LiquidationReport) build(ew ExcelWriter) error {
	if err := r.writeSummary(ew); err != nil {
		return err
	}
	if err := r.writeDaily(ew); err != nil {
		return err
	}
	if err := r.writeDetail(ew); err != nil {
		return err
	}
	return nil
}

func (r *LiquidationReport) writeSummary(ew ExcelWriter) error {
	p := r.Result.Params
	if err := ew.AddSheet("Resumen"); err != nil {
		return err
	}
	if err := ew.WriteHeader(summaryColumns); err != nil {
		return err
	}

	rows := [][]interface{}{
		{"Periodo", fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))},
		{"Tipo", string(p.Type)},
		{"Identificador", p.Identifier},
		{"Comision %", p.CommissionPercentage.String()},
		{"Ingresos totales", r.money(r.Result.TotalIncome.String())},
		{"Gastos totales", r.money(r.Result.TotalExpenses.String())},
		{"Comision", r.money(r.Result.CommissionAmount.String())},
		{"Neto propietario", r.money(r.Result.OwnerNet.String())},
		{"Calculado", r.Result.CalculatedAt.Format("2006-01-02 15:04:05")},
	}
	if r.Result.EmptyGroup {
		rows = append(rows, []interface{}{"Aviso", "Sin propiedades en el grupo"})
	}
	for _, w := range r.Result.Warnings {
		rows = append(rows, []interface{}{"Aviso", w.String()})
	}
	for _, row := range rows {
		if err := ew.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

func (r *LiquidationReport) writeDaily(ew ExcelWriter) error {
	p := r.Result.Params
	if err := ew.AddSheet("Diario"); err != nil {
		return err
	}
	if err := ew.WriteHeader(dailyColumns); err != nil {
		return err
	}

	days := liquidation.DailyBreakdown(p.Year, p.Month, r.Result.Bookings, r.Result.Expenses)
	for _, day := range days {
		row := []interface{}{
			models.FormatDate(day.Date),
			len(day.Bookings),
			r.money(day.Income.String()),
			r.money(day.Expense.String()),
			r.money(day.Net.String()),
		}
		if err := ew.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

func (r *LiquidationReport) writeDetail(ew ExcelWriter) error {
	if err := ew.AddSheet("Reservas"); err != nil {
		return err
	}
	if err := ew.WriteHeader(bookingColumns); err != nil {
		return err
	}
	for _, b := range r.Result.Bookings {
		row := []interface{}{
			r.propertyName(b.PropertyID),
			b.TenantName,
			models.FormatDate(b.StartDate),
			models.FormatDate(b.EndDate),
			b.Nights(),
			r.money(b.RentAmount.String()),
			string(b.Source),
		}
		if err := ew.WriteRow(row); err != nil {
			return err
		}
	}

	if err := ew.AddSheet("Gastos"); err != nil {
		return err
	}
	if err := ew.WriteHeader(expenseColumns); err != nil {
		return err
	}
	for _, e := range r.Result.Expenses {
		row := []interface{}{
			r.propertyName(e.PropertyID),
			models.FormatDate(e.ExpenseDate),
			string(e.Category),
			r.money(e.Amount.String()),
			e.Description,
		}
		if err := ew.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

func (r *LiquidationReport) propertyName(id int64) string {
	if name, ok := r.PropertyNames[id]; ok {
		return name
	}
	return fmt.Sprintf("#%d", id)
}

func (r *LiquidationReport) money(amount string) string {
	if r.Currency == "" {
		return amount
	}
	return amount + " " + r.Currency
}
