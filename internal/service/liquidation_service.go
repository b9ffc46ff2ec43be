package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"rentero/internal/events"
	"rentero/internal/liquidation"
	"rentero/internal/metrics"
	"rentero/internal/models"
)

// ErrCommissionRange signals a commission percentage outside [0, 100].
// Validated here so the aggregator can assume a sane input.
var ErrCommissionRange = errors.New("commission percentage must be between 0 and 100")

// LiquidationRepository is the storage surface the settlement service needs.
type LiquidationRepository interface {
	ListProperties(ctx context.Context) ([]models.Property, error)
	ListBookings(ctx context.Context) ([]models.Booking, error)
	ListExpenses(ctx context.Context) ([]models.Expense, error)
	SaveLiquidation(ctx context.Context, l *models.Liquidation) error
	GetLiquidation(ctx context.Context, year, month int, typ models.LiquidationType, identifier string) (*models.Liquidation, error)
}

// LiquidationService validates settlement requests, runs the aggregator
// over a fresh snapshot and caches the resulting record.
type LiquidationService struct {
	repo   LiquidationRepository
	bus    EventPublisher
	logger *zerolog.Logger
	now    func() time.Time
}

// NewLiquidationService wires the service. nowFn is injectable for tests;
// nil means time.Now.
func NewLiquidationService(repo LiquidationRepository, bus EventPublisher, logger *zerolog.Logger, nowFn func() time.Time) *LiquidationService {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &LiquidationService{repo: repo, bus: bus, logger: logger, now: nowFn}
}

// Compute runs a settlement over the current data and persists the cached
// record. An empty group is a valid outcome and is still cached.
func (s *LiquidationService) Compute(ctx context.Context, p liquidation.Params) (*liquidation.Result, error) {
	if p.CommissionPercentage.IsNegative() || p.CommissionPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return nil, ErrCommissionRange
	}
	if p.Type != models.LiquidationByOwner && p.Type != models.LiquidationByProperty {
		return nil, errors.New("unknown liquidation type")
	}

	properties, err := s.repo.ListProperties(ctx)
	if err != nil {
		return nil, err
	}
	bookings, err := s.repo.ListBookings(ctx)
	if err != nil {
		return nil, err
	}
	expenses, err := s.repo.ListExpenses(ctx)
	if err != nil {
		return nil, err
	}

	res := liquidation.Compute(p, s.now(), properties, bookings, expenses)

	if len(res.Warnings) > 0 {
		metrics.IncMalformedRows("liquidation", len(res.Warnings))
		for _, w := range res.Warnings {
			s.logger.Warn().Str("warning", w.String()).Msg("Malformed record skipped in liquidation")
		}
	}

	record := res.Record()
	if err := s.repo.SaveLiquidation(ctx, &record); err != nil {
		// Persisting the cache is best-effort; the computed numbers stand.
		s.logger.Error().Err(err).Msg("Failed to cache liquidation record")
	}

	metrics.IncLiquidationComputed(string(p.Type))
	_ = s.bus.PublishJSON(events.TypeLiquidationComputed, record)

	s.logger.Info().
		Int("year", p.Year).Int("month", int(p.Month)).
		Str("type", string(p.Type)).Str("identifier", p.Identifier).
		Bool("empty_group", res.EmptyGroup).
		Str("owner_net", res.OwnerNet.String()).
		Msg("Liquidation computed")
	return res, nil
}

// Cached returns the stored record for the settlement key without
// recomputation, or ErrNotFound.
func (s *LiquidationService) Cached(ctx context.Context, year, month int, typ models.LiquidationType, identifier string) (*models.Liquidation, error) {
	return s.repo.GetLiquidation(ctx, year, month, typ, identifier)
}

// IsStale compares a cached record against a fresh computation with the
// cached commission percentage. True means the underlying bookings or
// expenses changed since the record was stored.
func (s *LiquidationService) IsStale(ctx context.Context, cached *models.Liquidation) (bool, error) {
	p := liquidation.Params{
		Year:                 cached.Year,
		Month:                time.Month(cached.Month),
		Type:                 cached.Type,
		Identifier:           cached.Identifier,
		CommissionPercentage: cached.CommissionPercentage,
	}

	properties, err := s.repo.ListProperties(ctx)
	if err != nil {
		return false, err
	}
	bookings, err := s.repo.ListBookings(ctx)
	if err != nil {
		return false, err
	}
	expenses, err := s.repo.ListExpenses(ctx)
	if err != nil {
		return false, err
	}

	fresh := liquidation.Compute(p, s.now(), properties, bookings, expenses).Record()
	return !cached.SameTotals(&fresh), nil
}
