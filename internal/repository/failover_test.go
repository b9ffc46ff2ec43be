package repository

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"rentero/internal/models"
)

type mockStateRepo struct {
	mock.Mock
}

func (m *mockStateRepo) GetState(ctx context.Context, userID int64) (*models.UserState, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserState), args.Error(1)
}

func (m *mockStateRepo) SetState(ctx context.Context, state *models.UserState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *mockStateRepo) ClearState(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func TestFailoverStateRepository(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary := new(mockStateRepo)
		fallback := new(mockStateRepo)
		repo := NewFailoverStateRepository(primary, fallback, &logger)

		state := &models.UserState{UserID: 1}
		primary.On("GetState", ctx, int64(1)).Return(state, nil).Once()

		got, err := repo.GetState(ctx, 1)
		assert.NoError(t, err)
		assert.Equal(t, state, got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		primary := new(mockStateRepo)
		fallback := new(mockStateRepo)
		repo := NewFailoverStateRepository(primary, fallback, &logger)

		state := &models.UserState{UserID: 2}
		primary.On("GetState", ctx, int64(2)).Return(nil, errors.New("fail")).Once()
		fallback.On("GetState", ctx, int64(2)).Return(state, nil).Once()

		got, err := repo.GetState(ctx, 2)
		assert.NoError(t, err)
		assert.Equal(t, state, got)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("StaysOnFallbackWhileDown", func(t *testing.T) {
		primary := new(mockStateRepo)
		fallback := new(mockStateRepo)
		repo := NewFailoverStateRepository(primary, fallback, &logger)
		repo.isDown.Store(true)
		repo.lastProbe.Store(timeNowNano())

		fallback.On("SetState", ctx, mock.Anything).Return(nil).Once()

		err := repo.SetState(ctx, &models.UserState{UserID: 3})
		assert.NoError(t, err)
		primary.AssertNotCalled(t, "SetState")
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryProbeRestoresPrimary", func(t *testing.T) {
		primary := new(mockStateRepo)
		fallback := new(mockStateRepo)
		repo := NewFailoverStateRepository(primary, fallback, &logger)
		repo.isDown.Store(true)
		// Probe interval elapsed: next call goes to the primary.
		repo.lastProbe.Store(0)

		primary.On("ClearState", ctx, int64(4)).Return(nil).Once()

		err := repo.ClearState(ctx, 4)
		assert.NoError(t, err)
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})
}

func timeNowNano() int64 {
	return int64(1) << 62 // far future: suppresses the recovery probe
}
