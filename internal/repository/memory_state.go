package repository

import (
	"context"
	"sync"
	"time"

	"rentero/internal/models"
)

// MemoryStateRepository is the in-process fallback store. State is lost on
// restart, which is acceptable for a wizard mid-dialog.
type MemoryStateRepository struct {
	states map[int64]*models.UserState
	ttl    time.Duration
	mu     sync.RWMutex
}

// NewMemoryStateRepository constructs the fallback store.
func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &MemoryStateRepository{
		states: make(map[int64]*models.UserState),
		ttl:    ttl,
	}
}

func (r *MemoryStateRepository) GetState(_ context.Context, userID int64) (*models.UserState, error) {
	r.mu.RLock()
	state, ok := r.states[userID]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if time.Since(state.UpdatedAt) > r.ttl {
		r.mu.Lock()
		delete(r.states, userID)
		r.mu.Unlock()
		return nil, nil
	}
	copied := *state
	return &copied, nil
}

func (r *MemoryStateRepository) SetState(_ context.Context, state *models.UserState) error {
	state.UpdatedAt = time.Now()
	copied := *state
	r.mu.Lock()
	r.states[state.UserID] = &copied
	r.mu.Unlock()
	return nil
}

func (r *MemoryStateRepository) ClearState(_ context.Context, userID int64) error {
	r.mu.Lock()
	delete(r.states, userID)
	r.mu.Unlock()
	return nil
}
