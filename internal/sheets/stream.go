package sheets

import (
	"context"
	"encoding/json"

	"rentero/internal/events"
	"rentero/internal/models"
)

// Mutation is one incremental booking change queued between full syncs.
// A nil Booking means the booking was deleted.
type Mutation struct {
	Booking   *models.Booking
	BookingID int64
}

// Bus is the subscription side of the in-process event bus.
type Bus interface {
	Subscribe(eventType string, handler events.EventHandler)
}

// SubscribeMutations registers handlers for booking create and delete
// events and returns the feed the sync loop drains. A full feed drops the
// event instead of blocking the publisher; the next full sync reconciles.
func SubscribeMutations(bus Bus, buffer int) <-chan Mutation {
	feed := make(chan Mutation, buffer)

	bus.Subscribe(events.TypeBookingCreated, func(ev events.Event) error {
		var b models.Booking
		if err := json.Unmarshal(ev.Payload, &b); err != nil {
			return err
		}
		select {
		case feed <- Mutation{Booking: &b, BookingID: b.ID}:
		default:
		}
		return nil
	})

	bus.Subscribe(events.TypeBookingDeleted, func(ev events.Event) error {
		var payload struct {
			BookingID int64 `json:"booking_id"`
		}
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return err
		}
		select {
		case feed <- Mutation{BookingID: payload.BookingID}:
		default:
		}
		return nil
	})

	return feed
}

// Apply pushes one queued mutation to the spreadsheet.
func (s *SheetsService) Apply(ctx context.Context, m Mutation, propertyName string) error {
	if m.Booking == nil {
		return s.RemoveBooking(ctx, m.BookingID)
	}
	return s.UpsertBooking(ctx, m.Booking, propertyName)
}
