package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"rentero/internal/models"
)

// recoveryProbeInterval is how often a downed primary is retried.
const recoveryProbeInterval = 30 * time.Second

// FailoverStateRepository serves from the primary (Redis) until it fails,
// then switches to the fallback (memory) and periodically probes the
// primary for recovery.
type FailoverStateRepository struct {
	primary  StateRepository
	fallback StateRepository
	logger   *zerolog.Logger

	isDown    atomic.Bool
	lastProbe atomic.Int64 // unix nanos of the last recovery attempt
}

// NewFailoverStateRepository wires the failover pair.
func NewFailoverStateRepository(primary, fallback StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// active picks the repository to use, occasionally retrying the primary.
func (r *FailoverStateRepository) active() StateRepository {
	if !r.isDown.Load() {
		return r.primary
	}
	now := time.Now().UnixNano()
	last := r.lastProbe.Load()
	if now-last > int64(recoveryProbeInterval) && r.lastProbe.CompareAndSwap(last, now) {
		// One caller wins the probe; others stay on the fallback.
		return r.primary
	}
	return r.fallback
}

func (r *FailoverStateRepository) markDown(err error) {
	if r.isDown.CompareAndSwap(false, true) {
		r.logger.Warn().Err(err).Msg("State primary down, switching to fallback")
	}
}

func (r *FailoverStateRepository) markUp() {
	if r.isDown.CompareAndSwap(true, false) {
		r.logger.Info().Msg("State primary recovered")
	}
}

func (r *FailoverStateRepository) GetState(ctx context.Context, userID int64) (*models.UserState, error) {
	repo := r.active()
	state, err := repo.GetState(ctx, userID)
	if err != nil && repo == r.primary {
		r.markDown(err)
		return r.fallback.GetState(ctx, userID)
	}
	if err == nil && repo == r.primary {
		r.markUp()
	}
	return state, err
}

func (r *FailoverStateRepository) SetState(ctx context.Context, state *models.UserState) error {
	repo := r.active()
	err := repo.SetState(ctx, state)
	if err != nil && repo == r.primary {
		r.markDown(err)
		return r.fallback.SetState(ctx, state)
	}
	if err == nil && repo == r.primary {
		r.markUp()
	}
	return err
}

func (r *FailoverStateRepository) ClearState(ctx context.Context, userID int64) error {
	repo := r.active()
	err := repo.ClearState(ctx, userID)
	if err != nil && repo == r.primary {
		r.markDown(err)
		return r.fallback.ClearState(ctx, userID)
	}
	if err == nil && repo == r.primary {
		r.markUp()
	}
	return err
}
