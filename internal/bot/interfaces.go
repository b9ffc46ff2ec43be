package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rentero/internal/liquidation"
	"rentero/internal/models"
)

// BookingService is the booking surface the bot drives.
type BookingService interface {
	CheckAvailability(ctx context.Context, propertyID int64, start, end time.Time) ([]models.Booking, error)
	FirstAvailableDate(ctx context.Context, propertyID int64, ref time.Time) (time.Time, error)
	OccupiedDates(ctx context.Context, propertyID int64) (map[string]bool, error)
	CreateBooking(ctx context.Context, b *models.Booking) error
	DeleteBooking(ctx context.Context, id int64) error
	AddExpense(ctx context.Context, e *models.Expense) error
}

// LiquidationService computes monthly settlements.
type LiquidationService interface {
	Compute(ctx context.Context, p liquidation.Params) (*liquidation.Result, error)
}

// PropertyRepository resolves the property catalog.
type PropertyRepository interface {
	GetProperty(ctx context.Context, id int64) (*models.Property, error)
	ListProperties(ctx context.Context) ([]models.Property, error)
	Owners(ctx context.Context) ([]string, error)
}

// StateRepository persists per-user wizard state between updates.
type StateRepository interface {
	GetState(ctx context.Context, userID int64) (*models.UserState, error)
	SetState(ctx context.Context, state *models.UserState) error
	ClearState(ctx context.Context, userID int64) error
}

// TelegramSender is the outgoing Telegram surface.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}
