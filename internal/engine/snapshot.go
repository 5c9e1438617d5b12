// Package engine composes the streak, correlation, trend and achievement
// calculators into a single snapshot of a user's engagement.
//
// Everything here is pure: the caller supplies events, stored progress,
// the catalog, a reference instant and a timezone, and gets a value back.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/JonnyWalker81/trendy/engagement/internal/achievement"
	"github.com/JonnyWalker81/trendy/engagement/internal/correlation"
	"github.com/JonnyWalker81/trendy/engagement/internal/models"
	"github.com/JonnyWalker81/trendy/engagement/internal/streak"
	"github.com/JonnyWalker81/trendy/engagement/internal/trend"
)

const DefaultMaxFutureSkew = 24 * time.Hour

var (
	ErrMissingLocation = errors.New("engine: location is required")
	ErrMissingCatalog  = errors.New("engine: catalog is required")
)

// Options fixes everything a snapshot depends on besides the data
type Options struct {
	Now             time.Time
	Location        *time.Location
	TrendWindowSize int
	TrendThreshold  float64
	MaxFutureSkew   time.Duration
}

// DefaultOptions returns options for now in loc with default tuning
func DefaultOptions(now time.Time, loc *time.Location) Options {
	return Options{
		Now:             now,
		Location:        loc,
		TrendWindowSize: trend.DefaultWindowSize,
		TrendThreshold:  trend.DefaultThreshold,
		MaxFutureSkew:   DefaultMaxFutureSkew,
	}
}

// Build computes a snapshot from already-validated events.
// progress is the stored achievement state, keyed by achievement id.
func Build(events []models.Event, progress map[string]models.AchievementProgress, catalog *achievement.Catalog, opts Options) (models.Snapshot, error) {
	if opts.Location == nil {
		return models.Snapshot{}, ErrMissingLocation
	}
	if catalog == nil {
		return models.Snapshot{}, ErrMissingCatalog
	}

	trendReport, err := trend.Analyze(MoodPoints(events), opts.TrendWindowSize, opts.TrendThreshold)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("analyze trend: %w", err)
	}

	streaks := StreaksByKind(events, opts.Now, opts.Location)
	achievements := achievement.Reconcile(catalog, progress, Counters(events, streaks), opts.Now)

	return models.Snapshot{
		ComputedAt:    opts.Now,
		Timezone:      opts.Location.String(),
		Streaks:       streaks,
		HabitStreaks:  HabitStreaks(events, opts.Now, opts.Location),
		Totals:        Totals(events),
		Correlations:  correlation.RankFactors(FactorSamples(events)),
		Trend:         trendReport.Classification,
		Mood:          MoodSummary(events, trendReport),
		Achievements:  achievements,
		NewlyUnlocked: achievement.NewlyUnlocked(progress, achievements),
		TotalPoints:   achievement.TotalPoints(catalog, achievements),
	}, nil
}

// FromRaw validates raw events and builds a snapshot, reporting discards
func FromRaw(raw []models.RawEvent, progress map[string]models.AchievementProgress, catalog *achievement.Catalog, opts Options) (models.Snapshot, error) {
	events, report := Normalize(raw, opts.Now, opts.MaxFutureSkew)
	snapshot, err := Build(events, progress, catalog, opts)
	if err != nil {
		return models.Snapshot{}, err
	}
	snapshot.Discarded = report
	return snapshot, nil
}

// StreaksByKind computes one streak per event kind; kinds without events
// get a zero result
func StreaksByKind(events []models.Event, now time.Time, loc *time.Location) map[models.EventKind]models.StreakResult {
	byKind := make(map[models.EventKind][]time.Time, len(models.EventKinds))
	for _, e := range events {
		byKind[e.Kind] = append(byKind[e.Kind], e.OccurredAt)
	}

	out := make(map[models.EventKind]models.StreakResult, len(models.EventKinds))
	for _, k := range models.EventKinds {
		out[k] = streak.Compute(byKind[k], now, loc)
	}
	return out
}

// HabitStreaks computes a streak per habit, keyed by subject id.
// Habit events without a subject only count toward the kind-level streak.
func HabitStreaks(events []models.Event, now time.Time, loc *time.Location) map[string]models.StreakResult {
	bySubject := make(map[string][]time.Time)
	for _, e := range events {
		if e.Kind != models.EventKindHabit || e.SubjectID == "" {
			continue
		}
		bySubject[e.SubjectID] = append(bySubject[e.SubjectID], e.OccurredAt)
	}

	out := make(map[string]models.StreakResult, len(bySubject))
	for subject, timestamps := range bySubject {
		out[subject] = streak.Compute(timestamps, now, loc)
	}
	return out
}
