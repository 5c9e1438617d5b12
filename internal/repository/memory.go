package repository

import (
	"context"
	"sync"

	"github.com/JonnyWalker81/trendy/engagement/internal/achievement"
	"github.com/JonnyWalker81/trendy/engagement/internal/models"
)

type memoryEventRepository struct {
	mu     sync.RWMutex
	events map[string][]models.Event
	seen   map[string]map[string]struct{}
}

// NewMemoryEventRepository creates an in-process event repository
func NewMemoryEventRepository() EventRepository {
	return &memoryEventRepository{
		events: make(map[string][]models.Event),
		seen:   make(map[string]map[string]struct{}),
	}
}

func (r *memoryEventRepository) Append(ctx context.Context, userID string, events []models.Event) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, ok := r.seen[userID]
	if !ok {
		ids = make(map[string]struct{})
		r.seen[userID] = ids
	}

	inserted := 0
	for _, e := range events {
		if _, dup := ids[e.ID]; dup {
			continue
		}
		ids[e.ID] = struct{}{}
		e.UserID = userID
		r.events[userID] = append(r.events[userID], e)
		inserted++
	}
	return inserted, nil
}

func (r *memoryEventRepository) ListByUser(ctx context.Context, userID string) ([]models.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.events[userID]
	out := make([]models.Event, len(stored))
	copy(out, stored)
	return out, nil
}

type memoryProgressRepository struct {
	mu       sync.RWMutex
	progress map[string]map[string]models.AchievementProgress
}

// NewMemoryProgressRepository creates an in-process progress repository
func NewMemoryProgressRepository() ProgressRepository {
	return &memoryProgressRepository{
		progress: make(map[string]map[string]models.AchievementProgress),
	}
}

func (r *memoryProgressRepository) GetByUser(ctx context.Context, userID string) (map[string]models.AchievementProgress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]models.AchievementProgress, len(r.progress[userID]))
	for id, rec := range r.progress[userID] {
		out[id] = rec
	}
	return out, nil
}

func (r *memoryProgressRepository) Merge(ctx context.Context, userID string, records []models.AchievementProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.progress[userID]
	if !ok {
		stored = make(map[string]models.AchievementProgress)
		r.progress[userID] = stored
	}
	for _, rec := range records {
		if existing, ok := stored[rec.AchievementID]; ok {
			rec = achievement.Merge(existing, rec)
		}
		stored[rec.AchievementID] = rec
	}
	return nil
}
