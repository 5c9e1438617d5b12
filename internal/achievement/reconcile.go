package achievement

import (
	"math"
	"sort"
	"time"

	"github.com/JonnyWalker81/trendy/engagement/internal/models"
)

// Reconcile advances current progress using live counters and returns the
// full set of records: catalog order first, then records for ids the catalog
// no longer knows, sorted by id and passed through untouched.
//
// Non-milestone achievements are evaluated first. Milestones are then
// evaluated against the points sum of unlocked non-milestone achievements;
// any milestone value in counters is ignored.
//
// Reconcile is idempotent: feeding its output back with the same counters
// returns the same records.
func Reconcile(catalog *Catalog, current map[string]models.AchievementProgress, counters models.Counters, now time.Time) []models.AchievementProgress {
	next := make(map[string]models.AchievementProgress, catalog.Len())

	for _, def := range catalog.definitions {
		if def.Category == models.CategoryMilestone {
			continue
		}
		prev, known := current[def.ID]
		next[def.ID] = advance(def, prev, known, counters[def.Category], now)
	}

	points := 0
	for _, def := range catalog.definitions {
		if def.Category == models.CategoryMilestone {
			continue
		}
		if next[def.ID].Unlocked() {
			points += def.Points
		}
	}

	for _, def := range catalog.definitions {
		if def.Category != models.CategoryMilestone {
			continue
		}
		prev, known := current[def.ID]
		next[def.ID] = advance(def, prev, known, float64(points), now)
	}

	out := make([]models.AchievementProgress, 0, len(next)+len(current))
	for _, def := range catalog.definitions {
		out = append(out, next[def.ID])
	}

	stale := make([]string, 0)
	for id := range current {
		if _, ok := catalog.index[id]; !ok {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)
	for _, id := range stale {
		out = append(out, current[id])
	}

	return out
}

// advance moves one record forward. Unlocked records are returned as is.
// Locked progress shows min(counter, requirement) but never drops below
// what was stored before.
func advance(def models.AchievementDefinition, prev models.AchievementProgress, known bool, counter float64, now time.Time) models.AchievementProgress {
	if known && prev.Unlocked() {
		return prev
	}

	if math.IsNaN(counter) || counter < 0 {
		counter = 0
	}

	progress := math.Min(counter, def.Requirement)
	if known && prev.Progress > progress {
		progress = prev.Progress
	}

	rec := models.AchievementProgress{
		AchievementID: def.ID,
		Progress:      progress,
	}
	if counter >= def.Requirement {
		unlockedAt := now
		rec.UnlockedAt = &unlockedAt
	}
	return rec
}

// Merge combines two records for the same achievement so neither progress
// nor unlock status can move backwards. The earliest unlock time wins.
func Merge(existing, incoming models.AchievementProgress) models.AchievementProgress {
	merged := existing
	if merged.AchievementID == "" {
		merged.AchievementID = incoming.AchievementID
	}
	if incoming.Progress > merged.Progress {
		merged.Progress = incoming.Progress
	}
	switch {
	case merged.UnlockedAt == nil:
		merged.UnlockedAt = incoming.UnlockedAt
	case incoming.UnlockedAt != nil && incoming.UnlockedAt.Before(*merged.UnlockedAt):
		merged.UnlockedAt = incoming.UnlockedAt
	}
	return merged
}

// Index keys records by achievement id
func Index(records []models.AchievementProgress) map[string]models.AchievementProgress {
	m := make(map[string]models.AchievementProgress, len(records))
	for _, r := range records {
		m[r.AchievementID] = r
	}
	return m
}

// NewlyUnlocked lists ids unlocked in next that were not unlocked in previous,
// in the order they appear in next
func NewlyUnlocked(previous map[string]models.AchievementProgress, next []models.AchievementProgress) []string {
	ids := make([]string, 0)
	for _, rec := range next {
		if !rec.Unlocked() {
			continue
		}
		if prev, ok := previous[rec.AchievementID]; ok && prev.Unlocked() {
			continue
		}
		ids = append(ids, rec.AchievementID)
	}
	return ids
}

// TotalPoints sums points of unlocked records known to the catalog
func TotalPoints(catalog *Catalog, records []models.AchievementProgress) int {
	total := 0
	for _, rec := range records {
		if !rec.Unlocked() {
			continue
		}
		if def, ok := catalog.Lookup(rec.AchievementID); ok {
			total += def.Points
		}
	}
	return total
}

// Statuses joins catalog entries with records, in catalog order.
// Entries without a record are reported locked at zero progress;
// records unknown to the catalog are left out.
func Statuses(catalog *Catalog, records map[string]models.AchievementProgress) []models.AchievementStatus {
	defs := catalog.Definitions()
	out := make([]models.AchievementStatus, 0, len(defs))
	for _, def := range defs {
		rec := records[def.ID]
		out = append(out, models.AchievementStatus{
			AchievementDefinition: def,
			Progress:              rec.Progress,
			Unlocked:              rec.Unlocked(),
			UnlockedAt:            rec.UnlockedAt,
		})
	}
	return out
}
