// Package repository stores the Telegram wizard state: Redis when
// available, an in-memory map as fallback, and a failover wrapper that
// switches between them.
package repository

import (
	"context"
	"time"

	"rentero/internal/models"
)

// StateRepository persists per-user wizard state.
type StateRepository interface {
	GetState(ctx context.Context, userID int64) (*models.UserState, error)
	SetState(ctx context.Context, state *models.UserState) error
	ClearState(ctx context.Context, userID int64) error
}

// DefaultStateTTL bounds how long an abandoned wizard survives.
const DefaultStateTTL = 30 * time.Minute
