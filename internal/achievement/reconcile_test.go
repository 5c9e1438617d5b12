package achievement

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/JonnyWalker81/trendy/engagement/internal/models"
)

var testNow = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func mustCatalog(t *testing.T, defs ...models.AchievementDefinition) *Catalog {
	t.Helper()
	c, err := NewCatalog(defs)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return c
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestReconcile_UnlocksWhenCounterReachesRequirement(t *testing.T) {
	catalog := mustCatalog(t, models.AchievementDefinition{
		ID: "ten_sessions", Category: models.CategoryMeditationSessions, Requirement: 10, Points: 5,
	})
	current := map[string]models.AchievementProgress{
		"ten_sessions": {AchievementID: "ten_sessions", Progress: 8},
	}
	counters := models.Counters{models.CategoryMeditationSessions: 12}

	first := Reconcile(catalog, current, counters, testNow)
	if len(first) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(first))
	}
	if !first[0].Unlocked() || !first[0].UnlockedAt.Equal(testNow) {
		t.Errorf("Expected unlocked at %v, got %v", testNow, first[0].UnlockedAt)
	}
	if first[0].Progress != 10 {
		t.Errorf("Expected progress capped at 10, got %v", first[0].Progress)
	}

	// a second call later must not move the unlock time
	later := testNow.Add(48 * time.Hour)
	second := Reconcile(catalog, Index(first), counters, later)
	if !second[0].UnlockedAt.Equal(testNow) {
		t.Errorf("Expected unlock time to stay %v, got %v", testNow, second[0].UnlockedAt)
	}
}

func TestReconcile_LockedProgressIsCapped(t *testing.T) {
	catalog := mustCatalog(t, models.AchievementDefinition{
		ID: "hour", Category: models.CategoryMeditationMinutes, Requirement: 60, Points: 5,
	})

	records := Reconcile(catalog, nil, models.Counters{models.CategoryMeditationMinutes: 42.5}, testNow)
	if records[0].Unlocked() {
		t.Error("Expected locked record")
	}
	if records[0].Progress != 42.5 {
		t.Errorf("Expected progress 42.5, got %v", records[0].Progress)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	catalog := DefaultCatalog()
	counters := models.Counters{
		models.CategoryMeditationSessions: 3,
		models.CategoryHabitCompletions:   60,
		models.CategoryHabitStreak:        9,
		models.CategoryMoodCheckIns:       31,
	}

	first := Reconcile(catalog, nil, counters, testNow)
	second := Reconcile(catalog, Index(first), counters, testNow.Add(time.Hour))

	if len(first) != len(second) {
		t.Fatalf("Expected %d records, got %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.AchievementID != b.AchievementID || a.Progress != b.Progress {
			t.Errorf("record %d changed: %+v vs %+v", i, a, b)
		}
		if a.Unlocked() != b.Unlocked() {
			t.Errorf("record %s unlock state changed", a.AchievementID)
		}
		if a.Unlocked() && !a.UnlockedAt.Equal(*b.UnlockedAt) {
			t.Errorf("record %s unlock time changed", a.AchievementID)
		}
	}
}

func TestReconcile_NeverRegresses(t *testing.T) {
	catalog := mustCatalog(t,
		models.AchievementDefinition{ID: "streak7", Category: models.CategoryMoodStreak, Requirement: 7, Points: 10},
		models.AchievementDefinition{ID: "streak30", Category: models.CategoryMoodStreak, Requirement: 30, Points: 10},
	)
	current := map[string]models.AchievementProgress{
		"streak7":  {AchievementID: "streak7", Progress: 7, UnlockedAt: timePtr(testNow.Add(-72 * time.Hour))},
		"streak30": {AchievementID: "streak30", Progress: 12},
	}

	// the streak broke, so the live counter dropped to 1
	records := Reconcile(catalog, current, models.Counters{models.CategoryMoodStreak: 1}, testNow)

	if !records[0].Unlocked() {
		t.Error("Expected streak7 to stay unlocked")
	}
	if records[0] != current["streak7"] {
		t.Errorf("Expected unlocked record to pass through unchanged, got %+v", records[0])
	}
	if records[1].Progress != 12 {
		t.Errorf("Expected streak30 progress to stay 12, got %v", records[1].Progress)
	}
	if records[1].Unlocked() {
		t.Error("Expected streak30 to stay locked")
	}
}

func TestReconcile_MilestoneUsesPointsFromFirstPass(t *testing.T) {
	catalog := mustCatalog(t,
		// milestone listed first to prove evaluation order does not follow catalog order
		models.AchievementDefinition{ID: "fifty_points", Category: models.CategoryMilestone, Requirement: 50, Points: 100},
		models.AchievementDefinition{ID: "a", Category: models.CategoryJournalEntries, Requirement: 1, Points: 30},
		models.AchievementDefinition{ID: "b", Category: models.CategoryJournalEntries, Requirement: 2, Points: 25},
		models.AchievementDefinition{ID: "c", Category: models.CategoryJournalEntries, Requirement: 100, Points: 500},
	)
	counters := models.Counters{
		models.CategoryJournalEntries: 2,
		// ignored for milestones
		models.CategoryMilestone: 1000,
	}

	records := Reconcile(catalog, nil, counters, testNow)
	if records[0].AchievementID != "fifty_points" {
		t.Fatalf("Expected catalog order, got %s first", records[0].AchievementID)
	}
	if !records[0].Unlocked() {
		t.Error("Expected milestone unlocked with 55 points")
	}
	if records[0].Progress != 50 {
		t.Errorf("Expected milestone progress 50, got %v", records[0].Progress)
	}

	// with only 30 points the milestone stays locked
	records = Reconcile(catalog, nil, models.Counters{models.CategoryJournalEntries: 1}, testNow)
	if records[0].Unlocked() {
		t.Error("Expected milestone locked with 30 points")
	}
	if records[0].Progress != 30 {
		t.Errorf("Expected milestone progress 30, got %v", records[0].Progress)
	}
}

func TestReconcile_MilestonesDoNotFeedEachOther(t *testing.T) {
	catalog := mustCatalog(t,
		models.AchievementDefinition{ID: "base", Category: models.CategoryHabitCompletions, Requirement: 1, Points: 10},
		models.AchievementDefinition{ID: "m1", Category: models.CategoryMilestone, Requirement: 10, Points: 100},
		models.AchievementDefinition{ID: "m2", Category: models.CategoryMilestone, Requirement: 50, Points: 0},
	)

	records := Reconcile(catalog, nil, models.Counters{models.CategoryHabitCompletions: 1}, testNow)
	if !records[1].Unlocked() {
		t.Error("Expected m1 unlocked")
	}
	if records[2].Unlocked() {
		t.Error("Expected m2 locked, milestone points must not count")
	}
}

func TestReconcile_StaleRecordsPassThrough(t *testing.T) {
	catalog := mustCatalog(t, models.AchievementDefinition{
		ID: "known", Category: models.CategoryMoodCheckIns, Requirement: 5, Points: 1,
	})
	current := map[string]models.AchievementProgress{
		"zeta_retired":  {AchievementID: "zeta_retired", Progress: 2},
		"alpha_retired": {AchievementID: "alpha_retired", Progress: 9, UnlockedAt: timePtr(testNow.Add(-time.Hour))},
	}

	records := Reconcile(catalog, current, models.Counters{models.CategoryMoodCheckIns: 1}, testNow)
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}

	wantOrder := []string{"known", "alpha_retired", "zeta_retired"}
	for i, id := range wantOrder {
		if records[i].AchievementID != id {
			t.Errorf("records[%d] = %s, want %s", i, records[i].AchievementID, id)
		}
	}
	if records[1] != current["alpha_retired"] || records[2] != current["zeta_retired"] {
		t.Error("Expected stale records unchanged")
	}
}

func TestReconcile_NegativeOrMissingCounter(t *testing.T) {
	catalog := mustCatalog(t, models.AchievementDefinition{
		ID: "x", Category: models.CategoryJournalWords, Requirement: 100, Points: 1,
	})

	records := Reconcile(catalog, nil, models.Counters{models.CategoryJournalWords: -5}, testNow)
	if records[0].Progress != 0 {
		t.Errorf("Expected progress 0 for negative counter, got %v", records[0].Progress)
	}

	records = Reconcile(catalog, nil, nil, testNow)
	if records[0].Progress != 0 || records[0].Unlocked() {
		t.Errorf("Expected locked zero record for missing counter, got %+v", records[0])
	}
}

func TestReconcile_DefaultCatalogGolden(t *testing.T) {
	current := map[string]models.AchievementProgress{
		"first_breath":   {AchievementID: "first_breath", Progress: 1, UnlockedAt: timePtr(time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC))},
		"mood_fortnight": {AchievementID: "mood_fortnight", Progress: 9},
		"legacy_badge":   {AchievementID: "legacy_badge", Progress: 3, UnlockedAt: timePtr(time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC))},
	}
	counters := models.Counters{
		models.CategoryMeditationSessions: 12,
		models.CategoryMeditationMinutes:  45.5,
		models.CategoryMeditationStreak:   3,
		models.CategoryHabitCompletions:   50,
		models.CategoryHabitStreak:        8,
		models.CategoryMoodCheckIns:       5,
		models.CategoryMoodStreak:         2,
	}

	records := Reconcile(DefaultCatalog(), current, counters, testNow)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal records: %v", err)
	}

	g := goldie.New(t)
	g.Assert(t, "reconcile_default_catalog", data)
}

func TestMerge(t *testing.T) {
	early := testNow.Add(-time.Hour)

	tests := []struct {
		name         string
		existing     models.AchievementProgress
		incoming     models.AchievementProgress
		wantProgress float64
		wantUnlocked *time.Time
	}{
		{
			name:         "higher incoming progress wins",
			existing:     models.AchievementProgress{AchievementID: "a", Progress: 2},
			incoming:     models.AchievementProgress{AchievementID: "a", Progress: 5},
			wantProgress: 5,
		},
		{
			name:         "lower incoming progress ignored",
			existing:     models.AchievementProgress{AchievementID: "a", Progress: 5},
			incoming:     models.AchievementProgress{AchievementID: "a", Progress: 1},
			wantProgress: 5,
		},
		{
			name:         "unlock is never cleared",
			existing:     models.AchievementProgress{AchievementID: "a", Progress: 5, UnlockedAt: &early},
			incoming:     models.AchievementProgress{AchievementID: "a", Progress: 3},
			wantProgress: 5,
			wantUnlocked: &early,
		},
		{
			name:         "earliest unlock wins",
			existing:     models.AchievementProgress{AchievementID: "a", Progress: 5, UnlockedAt: timePtr(testNow)},
			incoming:     models.AchievementProgress{AchievementID: "a", Progress: 5, UnlockedAt: &early},
			wantProgress: 5,
			wantUnlocked: &early,
		},
		{
			name:         "empty existing takes incoming",
			incoming:     models.AchievementProgress{AchievementID: "a", Progress: 1, UnlockedAt: &early},
			wantProgress: 1,
			wantUnlocked: &early,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.existing, tt.incoming)
			if got.AchievementID != "a" {
				t.Errorf("AchievementID = %q, want a", got.AchievementID)
			}
			if got.Progress != tt.wantProgress {
				t.Errorf("Progress = %v, want %v", got.Progress, tt.wantProgress)
			}
			switch {
			case tt.wantUnlocked == nil && got.UnlockedAt != nil:
				t.Errorf("Expected locked, got %v", got.UnlockedAt)
			case tt.wantUnlocked != nil && (got.UnlockedAt == nil || !got.UnlockedAt.Equal(*tt.wantUnlocked)):
				t.Errorf("UnlockedAt = %v, want %v", got.UnlockedAt, tt.wantUnlocked)
			}
		})
	}
}

func TestNewlyUnlockedAndTotalPoints(t *testing.T) {
	catalog := mustCatalog(t,
		models.AchievementDefinition{ID: "a", Category: models.CategoryMoodCheckIns, Requirement: 1, Points: 10},
		models.AchievementDefinition{ID: "b", Category: models.CategoryMoodCheckIns, Requirement: 2, Points: 15},
		models.AchievementDefinition{ID: "c", Category: models.CategoryMoodCheckIns, Requirement: 9, Points: 99},
	)
	previous := map[string]models.AchievementProgress{
		"a": {AchievementID: "a", Progress: 1, UnlockedAt: timePtr(testNow.Add(-time.Hour))},
	}

	next := Reconcile(catalog, previous, models.Counters{models.CategoryMoodCheckIns: 2}, testNow)

	newly := NewlyUnlocked(previous, next)
	if len(newly) != 1 || newly[0] != "b" {
		t.Errorf("Expected [b], got %v", newly)
	}
	if got := TotalPoints(catalog, next); got != 25 {
		t.Errorf("Expected 25 points, got %d", got)
	}
}

func TestStatuses(t *testing.T) {
	catalog := DefaultCatalog()
	at := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	records := map[string]models.AchievementProgress{
		"first_breath": {AchievementID: "first_breath", Progress: 1, UnlockedAt: &at},
		"mindful_ten":  {AchievementID: "mindful_ten", Progress: 4},
		"retired":      {AchievementID: "retired", Progress: 3, UnlockedAt: &at},
	}

	statuses := Statuses(catalog, records)
	if len(statuses) != catalog.Len() {
		t.Fatalf("Expected %d statuses, got %d", catalog.Len(), len(statuses))
	}

	byID := make(map[string]models.AchievementStatus)
	for _, s := range statuses {
		byID[s.ID] = s
	}
	if _, ok := byID["retired"]; ok {
		t.Error("Expected records unknown to the catalog to be left out")
	}
	if s := byID["first_breath"]; !s.Unlocked || s.UnlockedAt == nil || s.Points != 10 {
		t.Errorf("Unexpected first_breath status: %+v", s)
	}
	if s := byID["mindful_ten"]; s.Unlocked || s.Progress != 4 {
		t.Errorf("Unexpected mindful_ten status: %+v", s)
	}
	if s := byID["hour_of_calm"]; s.Unlocked || s.Progress != 0 {
		t.Errorf("Expected untouched entry locked at zero, got %+v", s)
	}
	if statuses[0].ID != catalog.Definitions()[0].ID {
		t.Error("Expected catalog order")
	}
}
