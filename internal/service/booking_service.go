// Package service coordinates the core engine with storage, events and
// metrics. Services stay synchronous: every call is a load-compute-store
// round trip with no background work.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"rentero/internal/events"
	"rentero/internal/metrics"
	"rentero/internal/models"
	"rentero/internal/schedule"
)

// ConflictError reports the bookings that blocked a candidate range, so
// callers can show the user exactly which stays overlap.
type ConflictError struct {
	Conflicts []models.Booking
}

func (e *ConflictError) Error() string {
	var b strings.Builder
	b.WriteString("dates conflict with existing bookings:")
	for _, c := range e.Conflicts {
		fmt.Fprintf(&b, " [%s %s..%s]", c.TenantName,
			models.FormatDate(c.StartDate), models.FormatDate(c.EndDate))
	}
	return b.String()
}

// BookingRepository is the storage surface the booking service needs.
type BookingRepository interface {
	GetProperty(ctx context.Context, id int64) (*models.Property, error)
	ListProperties(ctx context.Context) ([]models.Property, error)
	GetBookingsByProperty(ctx context.Context, propertyID int64) ([]models.Booking, error)
	CreateBookingWithLock(ctx context.Context, b *models.Booking) ([]models.Booking, error)
	UpdateBookingWithLock(ctx context.Context, b *models.Booking) ([]models.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
	CreateExpense(ctx context.Context, e *models.Expense) error
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// BookingService owns booking creation, advisory conflict checks and
// availability queries.
type BookingService struct {
	repo   BookingRepository
	bus    EventPublisher
	logger *zerolog.Logger
}

// NewBookingService wires the service.
func NewBookingService(repo BookingRepository, bus EventPublisher, logger *zerolog.Logger) *BookingService {
	return &BookingService{repo: repo, bus: bus, logger: logger}
}

// CheckAvailability runs the advisory conflict check against the current
// snapshot. A nil return means the range is free right now; the definitive
// check happens again inside CreateBooking.
func (s *BookingService) CheckAvailability(ctx context.Context, propertyID int64, start, end time.Time) ([]models.Booking, error) {
	bookings, err := s.repo.GetBookingsByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return schedule.FindConflicts(propertyID, start, end, bookings)
}

// FirstAvailableDate returns the first free date for the property at or
// after ref.
func (s *BookingService) FirstAvailableDate(ctx context.Context, propertyID int64, ref time.Time) (time.Time, error) {
	bookings, err := s.repo.GetBookingsByProperty(ctx, propertyID)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.FirstAvailableDate(propertyID, bookings, ref), nil
}

// OccupiedDates returns the property's occupied calendar dates keyed by
// YYYY-MM-DD.
func (s *BookingService) OccupiedDates(ctx context.Context, propertyID int64) (map[string]bool, error) {
	bookings, err := s.repo.GetBookingsByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return schedule.OccupiedDates(propertyID, bookings), nil
}

// CreateBooking persists a booking after validation and the final conflict
// re-check. The storage layer holds the property write lock across re-check
// and insert, so the advisory-check race window closes here.
func (s *BookingService) CreateBooking(ctx context.Context, b *models.Booking) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if !models.ValidSource(b.Source) {
		return fmt.Errorf("unknown booking source %q", b.Source)
	}
	if _, err := s.repo.GetProperty(ctx, b.PropertyID); err != nil {
		return fmt.Errorf("property %d: %w", b.PropertyID, err)
	}

	conflicts, err := s.repo.CreateBookingWithLock(ctx, b)
	if err != nil {
		if len(conflicts) > 0 {
			metrics.IncBookingConflict()
			_ = s.bus.PublishJSON(events.TypeBookingConflict, map[string]interface{}{
				"property_id": b.PropertyID,
				"start_date":  models.FormatDate(b.StartDate),
				"end_date":    models.FormatDate(b.EndDate),
			})
			return &ConflictError{Conflicts: conflicts}
		}
		return err
	}

	metrics.IncBookingCreated(string(b.Source))
	if err := s.bus.PublishJSON(events.TypeBookingCreated, b); err != nil {
		s.logger.Warn().Err(err).Int64("booking_id", b.ID).Msg("Failed to publish booking event")
	}
	s.logger.Info().
		Int64("booking_id", b.ID).
		Int64("property_id", b.PropertyID).
		Str("tenant", b.TenantName).
		Str("dates", models.FormatDate(b.StartDate)+".."+models.FormatDate(b.EndDate)).
		Msg("Booking created")
	return nil
}

// UpdateBooking applies a revision with the same checks as creation.
func (s *BookingService) UpdateBooking(ctx context.Context, b *models.Booking) error {
	if err := b.Validate(); err != nil {
		return err
	}
	conflicts, err := s.repo.UpdateBookingWithLock(ctx, b)
	if err != nil {
		if len(conflicts) > 0 {
			metrics.IncBookingConflict()
			return &ConflictError{Conflicts: conflicts}
		}
		return err
	}
	return nil
}

// DeleteBooking removes a booking and announces it.
func (s *BookingService) DeleteBooking(ctx context.Context, id int64) error {
	if err := s.repo.DeleteBooking(ctx, id); err != nil {
		return err
	}
	_ = s.bus.PublishJSON(events.TypeBookingDeleted, map[string]int64{"booking_id": id})
	return nil
}

// AddExpense validates and persists an expense.
func (s *BookingService) AddExpense(ctx context.Context, e *models.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if !models.ValidCategory(e.Category) {
		return fmt.Errorf("unknown expense category %q", e.Category)
	}
	if _, err := s.repo.GetProperty(ctx, e.PropertyID); err != nil {
		return fmt.Errorf("property %d: %w", e.PropertyID, err)
	}
	if err := s.repo.CreateExpense(ctx, e); err != nil {
		return err
	}
	_ = s.bus.PublishJSON(events.TypeExpenseCreated, e)
	return nil
}
