package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentero/internal/models"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *mockRepo) ListProperties(ctx context.Context) ([]models.Property, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *mockRepo) GetBookingsByProperty(ctx context.Context, propertyID int64) ([]models.Booking, error) {
	args := m.Called(ctx, propertyID)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockRepo) CreateBookingWithLock(ctx context.Context, b *models.Booking) ([]models.Booking, error) {
	args := m.Called(ctx, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockRepo) UpdateBookingWithLock(ctx context.Context, b *models.Booking) ([]models.Booking, error) {
	args := m.Called(ctx, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockRepo) DeleteBooking(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepo) CreateExpense(ctx context.Context, e *models.Expense) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockRepo) ListBookings(ctx context.Context) ([]models.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockRepo) ListExpenses(ctx context.Context) ([]models.Expense, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Expense), args.Error(1)
}

func (m *mockRepo) SaveLiquidation(ctx context.Context, l *models.Liquidation) error {
	return m.Called(ctx, l).Error(0)
}

func (m *mockRepo) GetLiquidation(ctx context.Context, year, month int, typ models.LiquidationType, identifier string) (*models.Liquidation, error) {
	args := m.Called(ctx, year, month, typ, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Liquidation), args.Error(1)
}

type mockBus struct {
	mock.Mock
}

func (m *mockBus) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validBooking() *models.Booking {
	return &models.Booking{
		PropertyID: 1,
		TenantName: "Ana",
		StartDate:  date(2024, 6, 8),
		EndDate:    date(2024, 6, 10),
		RentAmount: decimal.NewFromInt(200),
		Source:     models.SourcePersonal,
	}
}

func TestBookingService_CreateBooking(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		svc := NewBookingService(repo, bus, &logger)

		b := validBooking()
		repo.On("GetProperty", ctx, int64(1)).Return(&models.Property{ID: 1}, nil).Once()
		repo.On("CreateBookingWithLock", ctx, b).Return(nil, nil).Once()
		bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil).Once()

		err := svc.CreateBooking(ctx, b)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("InvalidRange", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		svc := NewBookingService(repo, bus, &logger)

		b := validBooking()
		b.EndDate = b.StartDate
		err := svc.CreateBooking(ctx, b)
		assert.ErrorIs(t, err, models.ErrInvalidRange)
		repo.AssertNotCalled(t, "CreateBookingWithLock")
	})

	t.Run("UnknownSource", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		svc := NewBookingService(repo, bus, &logger)

		b := validBooking()
		b.Source = "Craigslist"
		err := svc.CreateBooking(ctx, b)
		assert.Error(t, err)
	})

	t.Run("ConflictSurfacesBookings", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockBus)
		svc := NewBookingService(repo, bus, &logger)

		b := validBooking()
		conflicting := []models.Booking{
			{ID: 9, PropertyID: 1, TenantName: "Luis", StartDate: date(2024, 6, 7), EndDate: date(2024, 6, 9)},
		}
		repo.On("GetProperty", ctx, int64(1)).Return(&models.Property{ID: 1}, nil).Once()
		repo.On("CreateBookingWithLock", ctx, b).Return(conflicting, assert.AnError).Once()
		bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil).Once()

		err := svc.CreateBooking(ctx, b)
		var conflictErr *ConflictError
		require.ErrorAs(t, err, &conflictErr)
		require.Len(t, conflictErr.Conflicts, 1)
		assert.Equal(t, "Luis", conflictErr.Conflicts[0].TenantName)
		assert.Contains(t, conflictErr.Error(), "2024-06-07")
	})
}

func TestBookingService_Availability(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()
	repo := new(mockRepo)
	bus := new(mockBus)
	svc := NewBookingService(repo, bus, &logger)

	bookings := []models.Booking{
		{ID: 1, PropertyID: 1, TenantName: "Ana", StartDate: date(2024, 6, 1), EndDate: date(2024, 6, 8)},
	}
	repo.On("GetBookingsByProperty", ctx, int64(1)).Return(bookings, nil)

	t.Run("CheckAvailability", func(t *testing.T) {
		conflicts, err := svc.CheckAvailability(ctx, 1, date(2024, 6, 8), date(2024, 6, 10))
		require.NoError(t, err)
		assert.Empty(t, conflicts)

		conflicts, err = svc.CheckAvailability(ctx, 1, date(2024, 6, 7), date(2024, 6, 9))
		require.NoError(t, err)
		assert.Len(t, conflicts, 1)
	})

	t.Run("FirstAvailableDate", func(t *testing.T) {
		got, err := svc.FirstAvailableDate(ctx, 1, date(2024, 6, 1))
		require.NoError(t, err)
		assert.Equal(t, date(2024, 6, 8), got)
	})

	t.Run("OccupiedDates", func(t *testing.T) {
		occupied, err := svc.OccupiedDates(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, occupied, 7)
		assert.True(t, occupied["2024-06-01"])
		assert.False(t, occupied["2024-06-08"])
	})
}

func TestBookingService_AddExpense(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()
	repo := new(mockRepo)
	bus := new(mockBus)
	svc := NewBookingService(repo, bus, &logger)

	e := &models.Expense{
		PropertyID:  1,
		ExpenseDate: date(2024, 6, 15),
		Category:    models.CategoryCleaning,
		Amount:      decimal.NewFromInt(50),
		Currency:    "EUR",
	}
	repo.On("GetProperty", ctx, int64(1)).Return(&models.Property{ID: 1}, nil).Once()
	repo.On("CreateExpense", ctx, e).Return(nil).Once()
	bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil).Once()

	assert.NoError(t, svc.AddExpense(ctx, e))
	repo.AssertExpectations(t)
}
