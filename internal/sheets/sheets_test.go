package sheets

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"rentero/internal/events"
	"rentero/internal/models"
)

func TestBookingRowValues(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)
	createdAt := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
	updatedAt := time.Date(2024, 5, 21, 11, 0, 0, 0, time.UTC)

	booking := &models.Booking{
		ID:         123,
		PropertyID: 7,
		TenantName: "Ana Garcia",
		StartDate:  start,
		EndDate:    end,
		RentAmount: decimal.NewFromInt(500),
		Source:     models.SourceBookingCom,
		Notes:      "late checkin",
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}

	values := bookingRowValues(booking, "Beach Flat")

	expected := []interface{}{
		int64(123),
		"Beach Flat",
		"Ana Garcia",
		"2024-06-01",
		"2024-06-08",
		7,
		"500",
		"Booking.com",
		"late checkin",
		"2024-05-20 10:00:00",
		"2024-05-21 11:00:00",
	}

	if len(values) != len(expected) {
		t.Fatalf("Expected %d values, got %d", len(expected), len(values))
	}

	for i, v := range values {
		if v != expected[i] {
			t.Errorf("At index %d: expected %v, got %v", i, expected[i], v)
		}
	}
}

func TestBookingRowValuesFallbackName(t *testing.T) {
	booking := &models.Booking{ID: 1, PropertyID: 42, RentAmount: decimal.Zero}
	values := bookingRowValues(booking, "")
	if values[1] != "#42" {
		t.Errorf("Expected #42, got %v", values[1])
	}
}

func TestCacheOperations(t *testing.T) {
	s := &SheetsService{
		rowCache: make(map[int64]int),
	}

	s.setCachedRow(100, 5)
	row, ok := s.getCachedRow(100)
	if !ok || row != 5 {
		t.Errorf("Expected row 5, got %d (ok=%v)", row, ok)
	}

	s.deleteCacheRow(100)
	_, ok = s.getCachedRow(100)
	if ok {
		t.Errorf("Expected row to be deleted from cache")
	}

	s.setCachedRow(200, 10)
	s.ClearCache()
	_, ok = s.getCachedRow(200)
	if ok {
		t.Errorf("Expected cache to be cleared")
	}
}

func TestSubscribeMutations(t *testing.T) {
	bus := events.NewEventBus()
	feed := SubscribeMutations(bus, 4)

	booking := &models.Booking{
		ID:         9,
		PropertyID: 3,
		TenantName: "Luis",
		StartDate:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC),
		RentAmount: decimal.NewFromInt(500),
		Source:     models.SourcePersonal,
	}
	if err := bus.PublishJSON(events.TypeBookingCreated, booking); err != nil {
		t.Fatalf("Publish created: %v", err)
	}
	if err := bus.PublishJSON(events.TypeBookingDeleted, map[string]int64{"booking_id": 9}); err != nil {
		t.Fatalf("Publish deleted: %v", err)
	}

	m := <-feed
	if m.Booking == nil {
		t.Fatal("Expected a booking on the create mutation")
	}
	if m.BookingID != 9 || m.Booking.TenantName != "Luis" || m.Booking.PropertyID != 3 {
		t.Errorf("Unexpected create mutation: %+v", m)
	}
	if !m.Booking.RentAmount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected rent 500, got %s", m.Booking.RentAmount)
	}

	m = <-feed
	if m.Booking != nil || m.BookingID != 9 {
		t.Errorf("Unexpected delete mutation: %+v", m)
	}

	// Irrelevant event types never reach the feed.
	if err := bus.PublishJSON(events.TypeExpenseCreated, map[string]int64{"expense_id": 1}); err != nil {
		t.Fatalf("Publish expense: %v", err)
	}
	select {
	case m = <-feed:
		t.Errorf("Expected empty feed, got %+v", m)
	default:
	}
}

func TestSubscribeMutationsDropsWhenFull(t *testing.T) {
	bus := events.NewEventBus()
	feed := SubscribeMutations(bus, 1)

	for id := int64(1); id <= 3; id++ {
		if err := bus.PublishJSON(events.TypeBookingDeleted, map[string]int64{"booking_id": id}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	m := <-feed
	if m.BookingID != 1 {
		t.Errorf("Expected first queued mutation, got %+v", m)
	}
	select {
	case m = <-feed:
		t.Errorf("Overflow should be dropped, got %+v", m)
	default:
	}
}

func TestParseRowFromRange(t *testing.T) {
	cases := []struct {
		in   string
		row  int
		ok   bool
	}{
		{"Reservas!A7:K7", 7, true},
		{"Reservas!A12", 12, true},
		{"Reservas!A:K", 0, false},
	}
	for _, c := range cases {
		row, ok := parseRowFromRange(c.in)
		if row != c.row || ok != c.ok {
			t.Errorf("parseRowFromRange(%q) = %d,%v; want %d,%v", c.in, row, ok, c.row, c.ok)
		}
	}
}
