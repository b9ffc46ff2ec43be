package bot

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"rentero/internal/liquidation"
	"rentero/internal/models"
	"rentero/internal/report"
)

func (b *Bot) handleListProperties(ctx context.Context, chatID int64) {
	properties, err := b.properties.ListProperties(ctx)
	if err != nil {
		b.reply(chatID, "No se pudieron cargar las propiedades.")
		return
	}
	if len(properties) == 0 {
		b.reply(chatID, "No hay propiedades registradas.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Propiedades:\n")
	for _, p := range properties {
		fmt.Fprintf(&sb, "#%d %s", p.ID, p.Name)
		if p.Owner != "" {
			fmt.Fprintf(&sb, " (propietario: %s)", p.Owner)
		}
		sb.WriteString("\n")
	}
	b.reply(chatID, sb.String())
}

// handleAvailabilityCommand answers "/disponibilidad <propiedad>". Without
// an argument it offers the property list as buttons.
func (b *Bot) handleAvailabilityCommand(ctx context.Context, chatID int64, text string) {
	fields := strings.Fields(text)
	if len(fields) >= 2 {
		if id, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
			b.sendAvailability(ctx, chatID, id)
			return
		}
	}

	properties, err := b.properties.ListProperties(ctx)
	if err != nil || len(properties) == 0 {
		b.reply(chatID, "No se pudieron cargar las propiedades.")
		return
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(properties))
	for _, p := range properties {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(p.Name, fmt.Sprintf("avail:%d", p.ID)),
		})
	}
	msg := tgbotapi.NewMessage(chatID, "¿De qué propiedad?")
	msg.ReplyMarkup = tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
	_, _ = b.tg.Send(msg)
}

func (b *Bot) handleAvailabilityCallback(ctx context.Context, chatID int64, data string) {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, "avail:"), 10, 64)
	if err != nil {
		return
	}
	b.sendAvailability(ctx, chatID, id)
}

func (b *Bot) sendAvailability(ctx context.Context, chatID, propertyID int64) {
	property, err := b.properties.GetProperty(ctx, propertyID)
	if err != nil {
		b.reply(chatID, "Propiedad no encontrada.")
		return
	}

	today := models.Day(time.Now())
	free, err := b.bookings.FirstAvailableDate(ctx, propertyID, today)
	if err != nil {
		b.reply(chatID, "No se pudo calcular la disponibilidad.")
		return
	}
	occupied, err := b.bookings.OccupiedDates(ctx, propertyID)
	if err != nil {
		b.reply(chatID, "No se pudo cargar el calendario.")
		return
	}

	msg := tgbotapi.NewMessage(chatID,
		fmt.Sprintf("%s: primera fecha libre %s.", property.Name, models.FormatDate(free)))
	msg.ReplyMarkup = GenerateCalendarKeyboard(today.Year(), today.Month(), occupied, today)
	_, _ = b.tg.Send(msg)
}

// handleExpenseCommand parses
// "/gasto <propiedad> <fecha> <categoria> <importe> [descripcion]".
func (b *Bot) handleExpenseCommand(ctx context.Context, chatID int64, text string) {
	fields := strings.Fields(text)
	if len(fields) < 5 {
		b.reply(chatID, "Formato: /gasto <propiedad> <fecha YYYY-MM-DD> <categoria> <importe> [descripcion]")
		return
	}

	propertyID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		b.reply(chatID, "Propiedad no válida.")
		return
	}
	day, err := models.ParseDate(fields[2])
	if err != nil {
		b.reply(chatID, "Fecha no válida, usa YYYY-MM-DD.")
		return
	}
	category := models.ExpenseCategory(fields[3])
	if fields[3] == "ServiceFee" { // single-word alias, the command has no quoting
		category = models.CategoryServiceFee
	}
	if !models.ValidCategory(category) {
		b.reply(chatID, "Categoría no válida. Opciones: Cleaning, Maintenance, Utilities, ServiceFee, Taxes, Insurance, Other")
		return
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(fields[4], ",", "."))
	if err != nil || amount.IsNegative() {
		b.reply(chatID, "Importe no válido.")
		return
	}

	expense := &models.Expense{
		PropertyID:  propertyID,
		ExpenseDate: day,
		Category:    category,
		Amount:      amount,
		Currency:    b.defaults.Currency,
		Description: strings.Join(fields[5:], " "),
	}
	if err := b.bookings.AddExpense(ctx, expense); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Expense creation failed")
		b.reply(chatID, "No se pudo registrar el gasto.")
		return
	}
	b.reply(chatID, fmt.Sprintf("✅ Gasto #%d registrado: %s %s el %s.",
		expense.ID, amount.String(), b.defaults.Currency, models.FormatDate(day)))
}

func (b *Bot) handleDeleteBooking(ctx context.Context, chatID int64, text string) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		b.reply(chatID, "Formato: /borrar_reserva <id>")
		return
	}
	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || id <= 0 {
		b.reply(chatID, "Id de reserva no válido.")
		return
	}
	if err := b.bookings.DeleteBooking(ctx, id); err != nil {
		b.reply(chatID, "No se pudo borrar la reserva.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Reserva #%d borrada.", id))
}

// handleLiquidationCommand parses
// "/liquidacion <año> <mes> <by_owner|by_property> <identificador> [comision%]"
// and answers with the totals plus the Excel report attached.
func (b *Bot) handleLiquidationCommand(ctx context.Context, chatID int64, text string) {
	fields := strings.Fields(text)
	if len(fields) < 5 {
		b.reply(chatID, "Formato: /liquidacion <año> <mes> <by_owner|by_property> <identificador> [comision%]")
		return
	}

	year, err1 := strconv.Atoi(fields[1])
	month, err2 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil || month < 1 || month > 12 {
		b.reply(chatID, "Año o mes no válidos.")
		return
	}
	typ := models.LiquidationType(fields[3])
	if typ != models.LiquidationByOwner && typ != models.LiquidationByProperty {
		b.reply(chatID, "El tipo debe ser by_owner o by_property.")
		return
	}

	pct := b.defaults.CommissionPct
	if len(fields) >= 6 {
		parsed, err := decimal.NewFromString(strings.TrimSuffix(fields[5], "%"))
		if err != nil {
			b.reply(chatID, "Comisión no válida.")
			return
		}
		pct = parsed
	}

	result, err := b.liquidations.Compute(ctx, liquidation.Params{
		Year:                 year,
		Month:                time.Month(month),
		Type:                 typ,
		Identifier:           fields[4],
		CommissionPercentage: pct,
	})
	if err != nil {
		b.reply(chatID, "No se pudo calcular la liquidación: "+err.Error())
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Liquidación %s %d, %s %q\n\n", monthLabel(time.Month(month)), year, typ, fields[4])
	if result.EmptyGroup {
		sb.WriteString("⚠️ Sin propiedades en el grupo; totales a cero.\n\n")
	}
	fmt.Fprintf(&sb, "Ingresos: %s %s\n", result.TotalIncome.String(), b.defaults.Currency)
	fmt.Fprintf(&sb, "Gastos: %s %s\n", result.TotalExpenses.String(), b.defaults.Currency)
	fmt.Fprintf(&sb, "Comisión (%s%%): %s %s\n", pct.String(), result.CommissionAmount.String(), b.defaults.Currency)
	fmt.Fprintf(&sb, "Neto propietario: %s %s\n", result.OwnerNet.String(), b.defaults.Currency)
	for _, warn := range result.Warnings {
		fmt.Fprintf(&sb, "⚠️ %s\n", warn.String())
	}
	b.reply(chatID, sb.String())

	b.sendLiquidationReport(ctx, chatID, result)
}

func (b *Bot) sendLiquidationReport(ctx context.Context, chatID int64, result *liquidation.Result) {
	names := make(map[int64]string)
	if properties, err := b.properties.ListProperties(ctx); err == nil {
		for _, p := range properties {
			names[p.ID] = p.Name
		}
	}

	rep := &report.LiquidationReport{
		Result:        result,
		Currency:      b.defaults.Currency,
		PropertyNames: names,
	}
	writer := report.NewExcelizeWriter()
	defer writer.Close()

	var buf bytes.Buffer
	if err := rep.WriteTo(writer, &buf); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Report build failed")
		return
	}

	filename := fmt.Sprintf("liquidacion_%04d-%02d_%s.xlsx",
		result.Params.Year, int(result.Params.Month), result.Params.Identifier)
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: buf.Bytes()})
	if _, err := b.tg.Send(doc); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Report upload failed")
	}
}
