// Package bot is the Telegram front end: a step-by-step booking wizard for
// managers plus commands for availability, expenses and monthly settlements.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	SelfUser() tgbotapi.User
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) Request(msg tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return c.api.Request(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) SelfUser() tgbotapi.User {
	return c.api.Self
}

// Defaults holds per-deployment settings the wizard falls back to.
type Defaults struct {
	CommissionPct decimal.Decimal
	Currency      string
}

// Bot drives the Telegram dialog.
type Bot struct {
	tg           telegramClient
	bookings     BookingService
	liquidations LiquidationService
	properties   PropertyRepository
	state        StateRepository
	managers     map[int64]struct{}
	defaults     Defaults
	logger       *zerolog.Logger
}

// New authorizes against the Telegram API and wires the bot.
func New(
	token string,
	bookings BookingService,
	liquidations LiquidationService,
	properties PropertyRepository,
	state StateRepository,
	managers []int64,
	defaults Defaults,
	logger *zerolog.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newBot(&realTelegramClient{api: api}, bookings, liquidations, properties, state, managers, defaults, logger)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(
	tg telegramClient,
	bookings BookingService,
	liquidations LiquidationService,
	properties PropertyRepository,
	state StateRepository,
	managers []int64,
	defaults Defaults,
	logger *zerolog.Logger,
) (*Bot, error) {
	return newBot(tg, bookings, liquidations, properties, state, managers, defaults, logger)
}

func newBot(
	tg telegramClient,
	bookings BookingService,
	liquidations LiquidationService,
	properties PropertyRepository,
	state StateRepository,
	managers []int64,
	defaults Defaults,
	logger *zerolog.Logger,
) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	mgrs := make(map[int64]struct{})
	for _, id := range managers {
		mgrs[id] = struct{}{}
	}
	if defaults.Currency == "" {
		defaults.Currency = "USD"
	}
	return &Bot{
		tg:           tg,
		bookings:     bookings,
		liquidations: liquidations,
		properties:   properties,
		state:        state,
		managers:     mgrs,
		defaults:     defaults,
		logger:       logger,
	}, nil
}

var mainMenu = tgbotapi.NewReplyKeyboard(
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton("🏠 Nueva reserva"),
		tgbotapi.NewKeyboardButton("📅 Disponibilidad"),
	),
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton("💶 Liquidación"),
		tgbotapi.NewKeyboardButton("ℹ️ Ayuda"),
	),
)

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("Bot authorized")

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			updateCtx := l.WithContext(ctx)
			b.handleUpdate(updateCtx, &update)
		}
	}
}

// SendText delivers a plain message. It also serves the reminder service.
func (b *Bot) SendText(chatID int64, text string) error {
	_, err := b.tg.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	l := zerolog.Ctx(ctx)
	if update.CallbackQuery != nil {
		l.Debug().
			Int64("user_id", update.CallbackQuery.From.ID).
			Str("data", update.CallbackQuery.Data).
			Msg("Handling callback query")
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		l.Debug().
			Int64("user_id", update.Message.From.ID).
			Str("text", update.Message.Text).
			Msg("Handling message")
		b.handleMessage(ctx, update.Message)
		return
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.From == nil {
		return
	}
	if !b.isManager(msg.From.ID) {
		b.reply(msg.Chat.ID, "Este bot es de uso privado.")
		return
	}
	text := strings.TrimSpace(msg.Text)

	// Commands interrupt any active wizard.
	switch {
	case strings.HasPrefix(text, "/start"):
		b.clearState(ctx, msg.From.ID)
		b.sendMainMenu(msg.Chat.ID)
		return
	case text == "🏠 Nueva reserva" || strings.HasPrefix(text, "/reservar"):
		b.startBookingWizard(ctx, msg.Chat.ID, msg.From.ID)
		return
	case text == "📅 Disponibilidad" || strings.HasPrefix(text, "/disponibilidad"):
		b.handleAvailabilityCommand(ctx, msg.Chat.ID, text)
		return
	case text == "💶 Liquidación" || strings.HasPrefix(text, "/liquidacion"):
		b.handleLiquidationCommand(ctx, msg.Chat.ID, text)
		return
	case strings.HasPrefix(text, "/propiedades"):
		b.handleListProperties(ctx, msg.Chat.ID)
		return
	case strings.HasPrefix(text, "/gasto"):
		b.handleExpenseCommand(ctx, msg.Chat.ID, text)
		return
	case strings.HasPrefix(text, "/borrar_reserva"):
		b.handleDeleteBooking(ctx, msg.Chat.ID, text)
		return
	case strings.HasPrefix(text, "/cancelar"):
		b.clearState(ctx, msg.From.ID)
		b.reply(msg.Chat.ID, "Operación cancelada.")
		b.sendMainMenu(msg.Chat.ID)
		return
	case text == "ℹ️ Ayuda" || strings.HasPrefix(text, "/help") || strings.HasPrefix(text, "/ayuda"):
		b.reply(msg.Chat.ID, helpText)
		return
	}

	b.handleWizardText(ctx, msg.Chat.ID, msg.From.ID, text)
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq == nil || cq.Message == nil {
		return
	}
	data := cq.Data
	_ = b.answerCallback(cq.ID)
	if data == "noop" {
		return
	}

	userID := cq.From.ID
	chatID := cq.Message.Chat.ID
	if !b.isManager(userID) {
		return
	}

	switch {
	case strings.HasPrefix(data, "prop:"):
		b.handlePropertyCallback(ctx, chatID, userID, data)
	case strings.HasPrefix(data, "cal:"):
		b.handleCalendarNav(ctx, chatID, userID, data)
	case strings.HasPrefix(data, "date:"):
		b.handleDateCallback(ctx, chatID, userID, data)
	case strings.HasPrefix(data, "src:"):
		b.handleSourceCallback(ctx, chatID, userID, data)
	case data == "confirm":
		b.handleConfirmCallback(ctx, chatID, userID)
	case data == "cancel":
		b.clearState(ctx, userID)
		b.reply(chatID, "Ok, cancelado. /reservar para empezar de nuevo.")
	case strings.HasPrefix(data, "avail:"):
		b.handleAvailabilityCallback(ctx, chatID, data)
	}
}

func (b *Bot) answerCallback(id string) error {
	_, err := b.tg.Request(tgbotapi.NewCallback(id, ""))
	return err
}

func (b *Bot) sendMainMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Elige una acción:")
	msg.ReplyMarkup = mainMenu
	_, _ = b.tg.Send(msg)
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	_, _ = b.tg.Send(msg)
}

func (b *Bot) isManager(userID int64) bool {
	if len(b.managers) == 0 {
		return true
	}
	_, ok := b.managers[userID]
	return ok
}

const helpText = `Comandos disponibles:
/reservar - asistente de nueva reserva
/disponibilidad <propiedad> - primera fecha libre y calendario
/propiedades - listado de propiedades
/gasto <propiedad> <fecha> <categoria> <importe> [descripcion]
/liquidacion <año> <mes> <by_owner|by_property> <identificador> [comision%]
/borrar_reserva <id>
/cancelar - abandonar la operación en curso`

func monthLabel(m time.Month) string {
	labels := [...]string{
		"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
		"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
	}
	return labels[int(m)-1]
}
