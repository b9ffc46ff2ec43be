package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"rentero/internal/models"
	"rentero/internal/service"
)

func (b *Bot) getState(ctx context.Context, userID int64) *models.UserState {
	st, err := b.state.GetState(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Msg("Failed to load state")
	}
	if st == nil {
		st = &models.UserState{UserID: userID, Step: models.StepIdle}
	}
	return st
}

func (b *Bot) saveState(ctx context.Context, st *models.UserState) {
	st.UpdatedAt = time.Now()
	if err := b.state.SetState(ctx, st); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("user_id", st.UserID).Msg("Failed to save state")
	}
}

func (b *Bot) clearState(ctx context.Context, userID int64) {
	if err := b.state.ClearState(ctx, userID); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Msg("Failed to clear state")
	}
}

func (b *Bot) startBookingWizard(ctx context.Context, chatID, userID int64) {
	properties, err := b.properties.ListProperties(ctx)
	if err != nil {
		b.reply(chatID, "No se pudieron cargar las propiedades.")
		return
	}
	if len(properties) == 0 {
		b.reply(chatID, "No hay propiedades registradas.")
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(properties)+1)
	for _, p := range properties {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(p.Name, fmt.Sprintf("prop:%d", p.ID)),
		})
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("✖️ Cancelar", "cancel"),
	})

	st := &models.UserState{UserID: userID, Step: models.StepPickProperty}
	b.saveState(ctx, st)

	msg := tgbotapi.NewMessage(chatID, "¿En qué propiedad?")
	msg.ReplyMarkup = tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
	_, _ = b.tg.Send(msg)
}

func (b *Bot) handlePropertyCallback(ctx context.Context, chatID, userID int64, data string) {
	propertyID, err := strconv.ParseInt(strings.TrimPrefix(data, "prop:"), 10, 64)
	if err != nil {
		b.reply(chatID, "Propiedad no válida.")
		return
	}
	property, err := b.properties.GetProperty(ctx, propertyID)
	if err != nil {
		b.reply(chatID, "No se pudo cargar la propiedad.")
		return
	}

	st := b.getState(ctx, userID)
	st.Set("property_id", propertyID)
	st.Set("property_name", property.Name)
	st.Step = models.StepCheckIn
	now := time.Now()
	st.Set("cal_cursor", fmt.Sprintf("%04d-%02d", now.Year(), int(now.Month())))
	b.saveState(ctx, st)

	b.sendCheckinCalendar(ctx, chatID, st, now.Year(), now.Month())
}

func (b *Bot) sendCheckinCalendar(ctx context.Context, chatID int64, st *models.UserState, year int, month time.Month) {
	occupied, err := b.bookings.OccupiedDates(ctx, st.GetInt64("property_id"))
	if err != nil {
		b.reply(chatID, "No se pudo cargar el calendario.")
		return
	}

	msg := tgbotapi.NewMessage(chatID,
		fmt.Sprintf("%s: elige la fecha de entrada. Los puntos son noches ocupadas.", st.GetString("property_name")))
	msg.ReplyMarkup = GenerateCalendarKeyboard(year, month, occupied, models.Day(time.Now()))
	_, _ = b.tg.Send(msg)
}

func (b *Bot) sendCheckoutCalendar(chatID int64, st *models.UserState, year int, month time.Month) {
	checkin := st.GetTime("check_in")
	// Checkout may land on another stay's entry day; the definitive conflict
	// check runs at confirmation.
	msg := tgbotapi.NewMessage(chatID,
		fmt.Sprintf("Entrada el %s. Ahora la fecha de salida.", models.FormatDate(checkin)))
	msg.ReplyMarkup = GenerateCalendarKeyboard(year, month, nil, checkin.AddDate(0, 0, 1))
	_, _ = b.tg.Send(msg)
}

func (b *Bot) handleCalendarNav(ctx context.Context, chatID, userID int64, data string) {
	cursor := strings.TrimPrefix(data, "cal:")
	t, err := time.Parse("2006-01", cursor)
	if err != nil {
		return
	}

	st := b.getState(ctx, userID)
	st.Set("cal_cursor", cursor)
	b.saveState(ctx, st)

	switch st.Step {
	case models.StepCheckIn:
		b.sendCheckinCalendar(ctx, chatID, st, t.Year(), t.Month())
	case models.StepCheckOut:
		b.sendCheckoutCalendar(chatID, st, t.Year(), t.Month())
	}
}

func (b *Bot) handleDateCallback(ctx context.Context, chatID, userID int64, data string) {
	dateStr := strings.TrimPrefix(data, "date:")
	date, err := models.ParseDate(dateStr)
	if err != nil {
		b.reply(chatID, "Fecha no válida.")
		return
	}

	st := b.getState(ctx, userID)
	switch st.Step {
	case models.StepCheckIn:
		st.Set("check_in", dateStr)
		st.Step = models.StepCheckOut
		b.saveState(ctx, st)
		b.sendCheckoutCalendar(chatID, st, date.Year(), date.Month())
	case models.StepCheckOut:
		checkin := st.GetTime("check_in")
		if !date.After(checkin) {
			b.reply(chatID, "La salida debe ser posterior a la entrada.")
			return
		}
		st.Set("check_out", dateStr)
		st.Step = models.StepTenantName
		b.saveState(ctx, st)
		b.reply(chatID, "Nombre del inquilino:")
	default:
		b.reply(chatID, "Este calendario ya no está activo. /reservar para empezar.")
	}
}

func (b *Bot) handleWizardText(ctx context.Context, chatID, userID int64, text string) {
	st := b.getState(ctx, userID)

	switch st.Step {
	case models.StepTenantName:
		if text == "" {
			b.reply(chatID, "Escribe el nombre del inquilino:")
			return
		}
		st.Set("tenant_name", text)
		st.Step = models.StepRentAmount
		b.saveState(ctx, st)
		b.reply(chatID, fmt.Sprintf("Importe total del alquiler en %s:", b.defaults.Currency))
	case models.StepRentAmount:
		amount, err := decimal.NewFromString(strings.ReplaceAll(text, ",", "."))
		if err != nil || amount.IsNegative() {
			b.reply(chatID, "Importe no válido. Ejemplo: 450.50")
			return
		}
		st.Set("rent_amount", amount.String())
		st.Step = models.StepSource
		b.saveState(ctx, st)
		b.sendSourceKeyboard(chatID)
	default:
		b.sendMainMenu(chatID)
	}
}

func (b *Bot) sendSourceKeyboard(chatID int64) {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(models.BookingSources))
	for _, src := range models.BookingSources {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(string(src), "src:"+string(src)),
		})
	}
	msg := tgbotapi.NewMessage(chatID, "¿Por qué canal llegó la reserva?")
	msg.ReplyMarkup = tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
	_, _ = b.tg.Send(msg)
}

func (b *Bot) handleSourceCallback(ctx context.Context, chatID, userID int64, data string) {
	source := models.BookingSource(strings.TrimPrefix(data, "src:"))
	if !models.ValidSource(source) {
		b.reply(chatID, "Canal no válido.")
		return
	}

	st := b.getState(ctx, userID)
	if st.Step != models.StepSource {
		b.reply(chatID, "Este paso ya no está activo. /reservar para empezar.")
		return
	}
	st.Set("source", string(source))
	st.Step = models.StepConfirm
	b.saveState(ctx, st)

	checkin := st.GetTime("check_in")
	checkout := st.GetTime("check_out")
	nights := int(checkout.Sub(checkin).Hours() / 24)
	summary := fmt.Sprintf(
		"Resumen:\n🏠 %s\n👤 %s\n📅 %s → %s (%d noches)\n💶 %s %s\n📣 %s\n\n¿Confirmar?",
		st.GetString("property_name"),
		st.GetString("tenant_name"),
		models.FormatDate(checkin),
		models.FormatDate(checkout),
		nights,
		st.GetString("rent_amount"),
		b.defaults.Currency,
		st.GetString("source"),
	)

	msg := tgbotapi.NewMessage(chatID, summary)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirmar", "confirm"),
			tgbotapi.NewInlineKeyboardButtonData("✖️ Cancelar", "cancel"),
		),
	)
	_, _ = b.tg.Send(msg)
}

func (b *Bot) handleConfirmCallback(ctx context.Context, chatID, userID int64) {
	st := b.getState(ctx, userID)
	if st.Step != models.StepConfirm {
		b.reply(chatID, "El asistente ha caducado, empieza de nuevo: /reservar")
		return
	}

	amount, err := decimal.NewFromString(st.GetString("rent_amount"))
	if err != nil {
		b.reply(chatID, "El borrador está corrupto, empieza de nuevo: /reservar")
		b.clearState(ctx, userID)
		return
	}

	booking := &models.Booking{
		PropertyID:   st.GetInt64("property_id"),
		TenantName:   st.GetString("tenant_name"),
		StartDate:    st.GetTime("check_in"),
		EndDate:      st.GetTime("check_out"),
		RentAmount:   amount,
		RentCurrency: b.defaults.Currency,
		Source:       models.BookingSource(st.GetString("source")),
	}

	if err := b.bookings.CreateBooking(ctx, booking); err != nil {
		var conflict *service.ConflictError
		if errors.As(err, &conflict) {
			var sb strings.Builder
			sb.WriteString("⚠️ Esas fechas se solapan con:\n")
			for _, c := range conflict.Conflicts {
				fmt.Fprintf(&sb, "• %s, %s → %s\n", c.TenantName,
					models.FormatDate(c.StartDate), models.FormatDate(c.EndDate))
			}
			sb.WriteString("\nElige otra fecha de entrada.")
			b.reply(chatID, sb.String())

			st.Step = models.StepCheckIn
			b.saveState(ctx, st)
			now := time.Now()
			b.sendCheckinCalendar(ctx, chatID, st, now.Year(), now.Month())
			return
		}
		zerolog.Ctx(ctx).Error().Err(err).Msg("Booking creation failed")
		b.reply(chatID, "No se pudo crear la reserva.")
		return
	}

	b.clearState(ctx, userID)
	b.reply(chatID, fmt.Sprintf("✅ Reserva #%d creada: %s, %d noches.",
		booking.ID, booking.TenantName, booking.Nights()))
}
