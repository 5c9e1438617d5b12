package repository

import (
	"context"

	"github.com/JonnyWalker81/trendy/engagement/internal/models"
)

// EventRepository defines the interface for event storage
type EventRepository interface {
	// Append stores events that are not already stored for the user.
	// Events are keyed by (user, event id); the count of newly stored events is returned.
	Append(ctx context.Context, userID string, events []models.Event) (int, error)
	ListByUser(ctx context.Context, userID string) ([]models.Event, error)
}

// ProgressRepository defines the interface for achievement progress storage
type ProgressRepository interface {
	GetByUser(ctx context.Context, userID string) (map[string]models.AchievementProgress, error)
	// Merge folds records into the stored progress. Progress never decreases
	// and the earliest unlock time is kept.
	Merge(ctx context.Context, userID string, records []models.AchievementProgress) error
}
