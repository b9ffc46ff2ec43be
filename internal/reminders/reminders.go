// Package reminders notifies managers about upcoming check-ins and the
// day's check-outs over Telegram.
package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"rentero/internal/models"
)

// Telegram allows roughly 30 messages per second overall; stay well under.
var sendLimit = rate.Limit(20)

// BookingSource loads the bookings a reminder run needs.
type BookingSource interface {
	GetBookingsByCheckinRange(ctx context.Context, from, to time.Time) ([]models.Booking, error)
	GetBookingsByCheckoutRange(ctx context.Context, from, to time.Time) ([]models.Booking, error)
	GetProperty(ctx context.Context, id int64) (*models.Property, error)
}

// Sender delivers one text message to a chat.
type Sender interface {
	SendText(chatID int64, text string) error
}

// Service sends daily reminder digests to the configured manager chats.
type Service struct {
	source    BookingSource
	sender    Sender
	managers  []int64
	daysAhead int
	interval  time.Duration
	limiter   *rate.Limiter
	logger    *zerolog.Logger

	now func() time.Time
}

// New constructs the service. daysAhead is how many days before checkin the
// arrival reminder fires; interval is the poll period.
func New(source BookingSource, sender Sender, managers []int64, daysAhead int, interval time.Duration, logger *zerolog.Logger) *Service {
	if daysAhead <= 0 {
		daysAhead = 1
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Service{
		source:    source,
		sender:    sender,
		managers:  managers,
		daysAhead: daysAhead,
		interval:  interval,
		limiter:   rate.NewLimiter(sendLimit, 1),
		logger:    logger,
		now:       time.Now,
	}
}

// Start runs the reminder loop until ctx is cancelled. The first run fires
// at the next 09:00 local time, then every interval.
func (s *Service) Start(ctx context.Context) {
	wait := timeUntilNextHour(s.now(), 9)
	timer := time.NewTimer(wait)
	defer timer.Stop()

	s.logger.Info().Dur("first_run_in", wait).Msg("Reminder service started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Reminder run failed")
			}
			timer.Reset(s.interval)
		}
	}
}

// RunOnce builds and sends one digest. Exposed for manual triggering.
func (s *Service) RunOnce(ctx context.Context) error {
	today := models.Day(s.now())
	arrivalDay := today.AddDate(0, 0, s.daysAhead)

	checkins, err := s.source.GetBookingsByCheckinRange(ctx, arrivalDay, arrivalDay)
	if err != nil {
		return fmt.Errorf("load checkins: %w", err)
	}
	checkouts, err := s.source.GetBookingsByCheckoutRange(ctx, today, today)
	if err != nil {
		return fmt.Errorf("load checkouts: %w", err)
	}

	if len(checkins) == 0 && len(checkouts) == 0 {
		s.logger.Debug().Msg("Nothing to remind about")
		return nil
	}

	text := s.formatDigest(ctx, arrivalDay, checkins, checkouts)
	for _, chatID := range s.managers {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := s.sender.SendText(chatID, text); err != nil {
			s.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reminder")
		}
	}

	s.logger.Info().
		Int("checkins", len(checkins)).
		Int("checkouts", len(checkouts)).
		Int("chats", len(s.managers)).
		Msg("Reminder digest sent")
	return nil
}

func (s *Service) formatDigest(ctx context.Context, arrivalDay time.Time, checkins, checkouts []models.Booking) string {
	text := "📅 Recordatorio diario\n"

	if len(checkins) > 0 {
		text += fmt.Sprintf("\nEntradas el %s:\n", models.FormatDate(arrivalDay))
		for _, b := range checkins {
			text += fmt.Sprintf("• %s, %s (%d noches)\n", s.propertyName(ctx, b.PropertyID), b.TenantName, b.Nights())
		}
	}
	if len(checkouts) > 0 {
		text += "\nSalidas hoy:\n"
		for _, b := range checkouts {
			text += fmt.Sprintf("• %s, %s\n", s.propertyName(ctx, b.PropertyID), b.TenantName)
		}
	}
	return text
}

func (s *Service) propertyName(ctx context.Context, id int64) string {
	p, err := s.source.GetProperty(ctx, id)
	if err != nil || p == nil {
		return fmt.Sprintf("#%d", id)
	}
	return p.Name
}

func timeUntilNextHour(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
