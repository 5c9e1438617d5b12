package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonnyWalker81/trendy/engagement/internal/achievement"
	"github.com/JonnyWalker81/trendy/engagement/internal/engine"
	"github.com/JonnyWalker81/trendy/engagement/internal/logger"
	"github.com/JonnyWalker81/trendy/engagement/internal/metrics"
	"github.com/JonnyWalker81/trendy/engagement/internal/models"
	"github.com/JonnyWalker81/trendy/engagement/internal/repository"
	"github.com/JonnyWalker81/trendy/engagement/internal/trend"
)

// ErrMissingUser is returned when a stateful operation has no user id
var ErrMissingUser = errors.New("user id is required")

// Settings tunes the engine for every snapshot the service computes
type Settings struct {
	TrendWindowSize int
	TrendThreshold  float64
	MaxFutureSkew   time.Duration
}

// DefaultSettings returns the engine defaults
func DefaultSettings() Settings {
	return Settings{
		TrendWindowSize: trend.DefaultWindowSize,
		TrendThreshold:  trend.DefaultThreshold,
		MaxFutureSkew:   engine.DefaultMaxFutureSkew,
	}
}

type engagementService struct {
	eventRepo    repository.EventRepository
	progressRepo repository.ProgressRepository
	catalog      achievement.Source
	metrics      *metrics.Metrics
	settings     Settings
	now          func() time.Time
}

// NewEngagementService creates a new engagement service.
// m may be nil to disable instrumentation.
func NewEngagementService(
	eventRepo repository.EventRepository,
	progressRepo repository.ProgressRepository,
	catalog achievement.Source,
	m *metrics.Metrics,
	settings Settings,
) EngagementService {
	return &engagementService{
		eventRepo:    eventRepo,
		progressRepo: progressRepo,
		catalog:      catalog,
		metrics:      m,
		settings:     settings,
		now:          time.Now,
	}
}

func (s *engagementService) options(now time.Time, loc *time.Location) engine.Options {
	if now.IsZero() {
		now = s.now()
	}
	return engine.Options{
		Now:             now,
		Location:        loc,
		TrendWindowSize: s.settings.TrendWindowSize,
		TrendThreshold:  s.settings.TrendThreshold,
		MaxFutureSkew:   s.settings.MaxFutureSkew,
	}
}

func (s *engagementService) IngestEvents(ctx context.Context, userID string, raw []models.RawEvent, loc *time.Location) (*models.IngestResult, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	log := logger.Ctx(ctx)
	opts := s.options(time.Time{}, loc)

	events, report := engine.Normalize(raw, opts.Now, opts.MaxFutureSkew)
	if report.Total > 0 {
		fields := []logger.Field{logger.Int("discarded", report.Total)}
		for reason, n := range report.ByReason {
			fields = append(fields, logger.Int(string(reason), n))
		}
		log.Warn("discarded malformed events", fields...)
	}

	inserted, err := s.eventRepo.Append(ctx, userID, events)
	if err != nil {
		return nil, fmt.Errorf("failed to store events: %w", err)
	}

	result := &models.IngestResult{
		Received:   len(raw),
		Accepted:   inserted,
		Duplicates: len(events) - inserted,
		Discarded:  report,
	}

	snapshot, err := s.reconcile(ctx, userID, opts, true)
	if err != nil {
		return nil, err
	}
	result.NewlyUnlocked = snapshot.NewlyUnlocked

	s.metrics.RecordIngest(*result)
	log.Info("ingested events",
		logger.Int("received", result.Received),
		logger.Int("accepted", result.Accepted),
		logger.Int("duplicates", result.Duplicates),
	)
	return result, nil
}

func (s *engagementService) GetSnapshot(ctx context.Context, userID string, loc *time.Location, now time.Time) (*models.Snapshot, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	return s.reconcile(ctx, userID, s.options(now, loc), now.IsZero())
}

func (s *engagementService) GetAchievements(ctx context.Context, userID string) (*models.AchievementsView, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}

	progress, err := s.progressRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievement progress: %w", err)
	}

	catalog := s.catalog.Catalog()
	records := make([]models.AchievementProgress, 0, len(progress))
	for _, rec := range progress {
		records = append(records, rec)
	}

	return &models.AchievementsView{
		Achievements:  achievement.Statuses(catalog, progress),
		NewlyUnlocked: []string{},
		TotalPoints:   achievement.TotalPoints(catalog, records),
	}, nil
}

func (s *engagementService) ReconcileAchievements(ctx context.Context, userID string, loc *time.Location, now time.Time) (*models.AchievementsView, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}

	snapshot, err := s.reconcile(ctx, userID, s.options(now, loc), now.IsZero())
	if err != nil {
		return nil, err
	}

	return &models.AchievementsView{
		Achievements:  achievement.Statuses(s.catalog.Catalog(), achievement.Index(snapshot.Achievements)),
		NewlyUnlocked: snapshot.NewlyUnlocked,
		TotalPoints:   snapshot.TotalPoints,
	}, nil
}

func (s *engagementService) ComputeSnapshot(ctx context.Context, raw []models.RawEvent, progress []models.AchievementProgress, loc *time.Location, now time.Time) (*models.Snapshot, error) {
	start := time.Now()

	snapshot, err := engine.FromRaw(raw, achievement.Index(progress), s.catalog.Catalog(), s.options(now, loc))
	if err != nil {
		return nil, fmt.Errorf("failed to compute snapshot: %w", err)
	}

	s.metrics.RecordSnapshot(time.Since(start), snapshot.NewlyUnlocked)
	return &snapshot, nil
}

// reconcile rebuilds the snapshot from the stored log. With persist set the
// resulting achievement progress is folded back into storage; a snapshot
// evaluated at a caller-supplied instant is a read-only preview.
func (s *engagementService) reconcile(ctx context.Context, userID string, opts engine.Options, persist bool) (*models.Snapshot, error) {
	start := time.Now()
	log := logger.Ctx(ctx)

	events, err := s.eventRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	progress, err := s.progressRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievement progress: %w", err)
	}

	snapshot, err := engine.Build(events, progress, s.catalog.Catalog(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to compute snapshot: %w", err)
	}
	snapshot.UserID = userID

	if !persist {
		s.metrics.RecordSnapshot(time.Since(start), nil)
		return &snapshot, nil
	}
	if err := s.progressRepo.Merge(ctx, userID, snapshot.Achievements); err != nil {
		return nil, fmt.Errorf("failed to store achievement progress: %w", err)
	}

	if len(snapshot.NewlyUnlocked) > 0 {
		log.Info("achievements unlocked",
			logger.Strings("achievements", snapshot.NewlyUnlocked),
			logger.Int("total_points", snapshot.TotalPoints),
		)
	}
	s.metrics.RecordSnapshot(time.Since(start), snapshot.NewlyUnlocked)
	return &snapshot, nil
}
