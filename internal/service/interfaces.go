package service

import (
	"context"
	"time"

	"github.com/JonnyWalker81/trendy/engagement/internal/models"
)

// EngagementService defines the interface for engagement business logic.
// A zero now means the service clock; loc must not be nil. Reads evaluated
// at a caller-supplied now never write achievement progress.
type EngagementService interface {
	// IngestEvents validates and stores a batch, then reconciles achievements
	IngestEvents(ctx context.Context, userID string, raw []models.RawEvent, loc *time.Location) (*models.IngestResult, error)
	// GetSnapshot computes the user's metrics. Reconciled progress is
	// persisted only when now is zero.
	GetSnapshot(ctx context.Context, userID string, loc *time.Location, now time.Time) (*models.Snapshot, error)
	// GetAchievements returns stored progress joined with the catalog without recomputing
	GetAchievements(ctx context.Context, userID string) (*models.AchievementsView, error)
	// ReconcileAchievements recomputes achievement progress from the event
	// log, persisting it only when now is zero
	ReconcileAchievements(ctx context.Context, userID string, loc *time.Location, now time.Time) (*models.AchievementsView, error)
	// ComputeSnapshot builds a snapshot from caller-supplied data without touching storage
	ComputeSnapshot(ctx context.Context, raw []models.RawEvent, progress []models.AchievementProgress, loc *time.Location, now time.Time) (*models.Snapshot, error)
}
