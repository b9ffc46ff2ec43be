package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentero/internal/liquidation"
	"rentero/internal/models"
	"rentero/internal/repository"
	"rentero/internal/service"
)

type mockTelegram struct {
	sent []tgbotapi.Chattable
}

func (m *mockTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.sent = append(m.sent, c)
	return tgbotapi.Message{}, nil
}

func (m *mockTelegram) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *mockTelegram) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return nil
}

func (m *mockTelegram) SelfUser() tgbotapi.User {
	return tgbotapi.User{UserName: "rentero_bot"}
}

func (m *mockTelegram) lastMessage() tgbotapi.MessageConfig {
	for i := len(m.sent) - 1; i >= 0; i-- {
		if msg, ok := m.sent[i].(tgbotapi.MessageConfig); ok {
			return msg
		}
	}
	return tgbotapi.MessageConfig{}
}

type fakeBookings struct {
	occupied   map[string]bool
	conflictOn bool
	conflicts  []models.Booking
	created    []*models.Booking
	expenses   []*models.Expense
	firstFree  time.Time
}

func (f *fakeBookings) CheckAvailability(_ context.Context, _ int64, _, _ time.Time) ([]models.Booking, error) {
	return nil, nil
}

func (f *fakeBookings) FirstAvailableDate(_ context.Context, _ int64, _ time.Time) (time.Time, error) {
	return f.firstFree, nil
}

func (f *fakeBookings) OccupiedDates(_ context.Context, _ int64) (map[string]bool, error) {
	if f.occupied == nil {
		return map[string]bool{}, nil
	}
	return f.occupied, nil
}

func (f *fakeBookings) CreateBooking(_ context.Context, b *models.Booking) error {
	if f.conflictOn {
		return &service.ConflictError{Conflicts: f.conflicts}
	}
	b.ID = int64(len(f.created) + 1)
	f.created = append(f.created, b)
	return nil
}

func (f *fakeBookings) DeleteBooking(_ context.Context, _ int64) error { return nil }

func (f *fakeBookings) AddExpense(_ context.Context, e *models.Expense) error {
	e.ID = int64(len(f.expenses) + 1)
	f.expenses = append(f.expenses, e)
	return nil
}

type fakeLiquidations struct {
	result *liquidation.Result
}

func (f *fakeLiquidations) Compute(_ context.Context, p liquidation.Params) (*liquidation.Result, error) {
	r := *f.result
	r.Params = p
	return &r, nil
}

type fakeProperties struct {
	list []models.Property
}

func (f *fakeProperties) GetProperty(_ context.Context, id int64) (*models.Property, error) {
	for i := range f.list {
		if f.list[i].ID == id {
			return &f.list[i], nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeProperties) ListProperties(_ context.Context) ([]models.Property, error) {
	return f.list, nil
}

func (f *fakeProperties) Owners(_ context.Context) ([]string, error) {
	return []string{"Smith"}, nil
}

func newTestBot(t *testing.T, bookings *fakeBookings) (*Bot, *mockTelegram) {
	t.Helper()
	tg := &mockTelegram{}
	logger := zerolog.Nop()
	liq := &fakeLiquidations{result: &liquidation.Result{
		TotalIncome:      decimal.NewFromInt(500),
		TotalExpenses:    decimal.NewFromInt(50),
		CommissionAmount: decimal.NewFromInt(100),
		OwnerNet:         decimal.NewFromInt(350),
		CalculatedAt:     time.Now(),
	}}
	props := &fakeProperties{list: []models.Property{
		{ID: 1, Name: "Beach Flat", Owner: "Smith"},
		{ID: 2, Name: "City Loft", Owner: "Smith"},
	}}
	state := repository.NewMemoryStateRepository(repository.DefaultStateTTL)

	b, err := NewWithTelegramClient(tg, bookings, liq, props, state, []int64{10}, Defaults{
		CommissionPct: decimal.NewFromInt(20),
		Currency:      "EUR",
	}, &logger)
	require.NoError(t, err)
	return b, tg
}

func message(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}
}

func callback(userID int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   "cq",
		From: &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{
			Chat: &tgbotapi.Chat{ID: userID},
		},
		Data: data,
	}
}

func TestBookingWizard_FullFlow(t *testing.T) {
	bookings := &fakeBookings{}
	b, tg := newTestBot(t, bookings)
	ctx := context.Background()

	b.handleMessage(ctx, message(10, "/reservar"))
	assert.Contains(t, tg.lastMessage().Text, "¿En qué propiedad?")

	b.handleCallback(ctx, callback(10, "prop:1"))
	assert.Contains(t, tg.lastMessage().Text, "Beach Flat")

	b.handleCallback(ctx, callback(10, "date:2030-06-01"))
	assert.Contains(t, tg.lastMessage().Text, "Entrada el 2030-06-01")

	b.handleCallback(ctx, callback(10, "date:2030-06-08"))
	assert.Contains(t, tg.lastMessage().Text, "Nombre del inquilino")

	b.handleMessage(ctx, message(10, "Ana García"))
	assert.Contains(t, tg.lastMessage().Text, "Importe total")

	b.handleMessage(ctx, message(10, "450,50"))
	assert.Contains(t, tg.lastMessage().Text, "canal")

	b.handleCallback(ctx, callback(10, "src:Booking.com"))
	assert.Contains(t, tg.lastMessage().Text, "¿Confirmar?")
	assert.Contains(t, tg.lastMessage().Text, "7 noches")

	b.handleCallback(ctx, callback(10, "confirm"))
	require.Len(t, bookings.created, 1)

	created := bookings.created[0]
	assert.Equal(t, int64(1), created.PropertyID)
	assert.Equal(t, "Ana García", created.TenantName)
	assert.Equal(t, "2030-06-01", models.FormatDate(created.StartDate))
	assert.Equal(t, "2030-06-08", models.FormatDate(created.EndDate))
	assert.True(t, created.RentAmount.Equal(decimal.RequireFromString("450.5")))
	assert.Equal(t, models.SourceBookingCom, created.Source)
	assert.Contains(t, tg.lastMessage().Text, "✅ Reserva #1 creada")

	// State is gone after confirmation.
	st, err := b.state.GetState(ctx, 10)
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestBookingWizard_CheckoutMustFollowCheckin(t *testing.T) {
	b, tg := newTestBot(t, &fakeBookings{})
	ctx := context.Background()

	b.handleMessage(ctx, message(10, "/reservar"))
	b.handleCallback(ctx, callback(10, "prop:1"))
	b.handleCallback(ctx, callback(10, "date:2030-06-08"))
	b.handleCallback(ctx, callback(10, "date:2030-06-08"))

	assert.Contains(t, tg.lastMessage().Text, "La salida debe ser posterior a la entrada.")
}

func TestBookingWizard_ConflictRestartsDatePick(t *testing.T) {
	bookings := &fakeBookings{
		conflictOn: true,
		conflicts: []models.Booking{
			{TenantName: "Luis", StartDate: day(t, "2030-06-03"), EndDate: day(t, "2030-06-06")},
		},
	}
	b, tg := newTestBot(t, bookings)
	ctx := context.Background()

	b.handleMessage(ctx, message(10, "/reservar"))
	b.handleCallback(ctx, callback(10, "prop:1"))
	b.handleCallback(ctx, callback(10, "date:2030-06-01"))
	b.handleCallback(ctx, callback(10, "date:2030-06-08"))
	b.handleMessage(ctx, message(10, "Ana"))
	b.handleMessage(ctx, message(10, "500"))
	b.handleCallback(ctx, callback(10, "src:Personal"))
	b.handleCallback(ctx, callback(10, "confirm"))

	var conflictMsg string
	for _, c := range tg.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok && strings.Contains(msg.Text, "se solapan") {
			conflictMsg = msg.Text
		}
	}
	require.NotEmpty(t, conflictMsg)
	assert.Contains(t, conflictMsg, "Luis, 2030-06-03 → 2030-06-06")

	st, err := b.state.GetState(context.Background(), 10)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, models.StepCheckIn, st.Step)
}

func TestNonManagerIsRejected(t *testing.T) {
	b, tg := newTestBot(t, &fakeBookings{})
	b.handleMessage(context.Background(), message(99, "/reservar"))
	assert.Contains(t, tg.lastMessage().Text, "uso privado")
}

func TestExpenseCommand(t *testing.T) {
	bookings := &fakeBookings{}
	b, tg := newTestBot(t, bookings)

	b.handleMessage(context.Background(), message(10, "/gasto 1 2030-06-15 Cleaning 50 limpieza de salida"))

	require.Len(t, bookings.expenses, 1)
	e := bookings.expenses[0]
	assert.Equal(t, models.CategoryCleaning, e.Category)
	assert.Equal(t, "limpieza de salida", e.Description)
	assert.Equal(t, "EUR", e.Currency)
	assert.Contains(t, tg.lastMessage().Text, "✅ Gasto #1 registrado")

	t.Run("ServiceFeeAlias", func(t *testing.T) {
		b.handleMessage(context.Background(), message(10, "/gasto 1 2030-06-15 ServiceFee 12"))
		require.Len(t, bookings.expenses, 2)
		assert.Equal(t, models.CategoryServiceFee, bookings.expenses[1].Category)
	})

	t.Run("BadFormat", func(t *testing.T) {
		b.handleMessage(context.Background(), message(10, "/gasto 1"))
		assert.Contains(t, tg.lastMessage().Text, "Formato:")
	})
}

func TestLiquidationCommand(t *testing.T) {
	b, tg := newTestBot(t, &fakeBookings{})

	b.handleMessage(context.Background(), message(10, "/liquidacion 2024 6 by_owner Smith"))

	var totals string
	var gotDoc bool
	for _, c := range tg.sent {
		switch v := c.(type) {
		case tgbotapi.MessageConfig:
			if strings.Contains(v.Text, "Liquidación") {
				totals = v.Text
			}
		case tgbotapi.DocumentConfig:
			gotDoc = true
		}
	}
	require.NotEmpty(t, totals)
	assert.Contains(t, totals, "Ingresos: 500 EUR")
	assert.Contains(t, totals, "Comisión (20%): 100 EUR")
	assert.Contains(t, totals, "Neto propietario: 350 EUR")
	assert.True(t, gotDoc, "expected the Excel report as a document")
}

func TestGenerateCalendarKeyboard(t *testing.T) {
	today := time.Date(2030, 6, 5, 0, 0, 0, 0, time.UTC)
	occupied := map[string]bool{"2030-06-10": true, "2030-06-11": true}

	kb := GenerateCalendarKeyboard(2030, time.June, occupied, today)

	byLabelData := make(map[string]string)
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil {
				byLabelData[*btn.CallbackData] = btn.Text
			}
		}
	}

	assert.Equal(t, "15", byLabelData["date:2030-06-15"])
	_, pastSelectable := byLabelData["date:2030-06-01"]
	assert.False(t, pastSelectable, "past days must not be selectable")
	_, occupiedSelectable := byLabelData["date:2030-06-10"]
	assert.False(t, occupiedSelectable, "occupied days must not be selectable")

	// Navigation wraps the year boundary correctly in December.
	dec := GenerateCalendarKeyboard(2030, time.December, nil, today)
	last := dec.InlineKeyboard[len(dec.InlineKeyboard)-2]
	require.Len(t, last, 2)
	assert.Equal(t, "cal:2030-11", *last[0].CallbackData)
	assert.Equal(t, "cal:2031-01", *last[1].CallbackData)
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}
