package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonnyWalker81/trendy/engagement/internal/models"
)

func floatPtr(f float64) *float64 { return &f }

func timePtr(t time.Time) *time.Time { return &t }

func testEvents() []models.Event {
	base := time.Date(2024, time.March, 4, 9, 30, 15, 250, time.UTC)
	return []models.Event{
		{ID: "e2", Kind: models.EventKindMood, OccurredAt: base.Add(time.Hour), Payload: models.Payload{
			Score:   floatPtr(7),
			Factors: map[string]float64{"sleep": 8},
		}},
		{ID: "e1", Kind: models.EventKindHabit, OccurredAt: base, SubjectID: "water"},
	}
}

// runEventRepositoryTests exercises behavior every EventRepository must share
func runEventRepositoryTests(t *testing.T, repo EventRepository) {
	ctx := context.Background()

	n, err := repo.Append(ctx, "user-1", testEvents())
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 inserted, got %d", n)
	}

	// replaying the same batch plus one new event stores only the new one
	again := append(testEvents(), models.Event{
		ID: "e3", Kind: models.EventKindJournal, OccurredAt: time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
	})
	n, err = repo.Append(ctx, "user-1", again)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 inserted on replay, got %d", n)
	}

	// same ids under another user are distinct
	n, err = repo.Append(ctx, "user-2", testEvents())
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 inserted for second user, got %d", n)
	}

	events, err := repo.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}

	byID := make(map[string]models.Event)
	for _, e := range events {
		if e.UserID != "user-1" {
			t.Errorf("Expected user-1, got %q", e.UserID)
		}
		byID[e.ID] = e
	}

	want := testEvents()
	mood := byID["e2"]
	if !mood.OccurredAt.Equal(want[0].OccurredAt) {
		t.Errorf("Expected occurred_at %v, got %v", want[0].OccurredAt, mood.OccurredAt)
	}
	if mood.Payload.Score == nil || *mood.Payload.Score != 7 {
		t.Errorf("Expected score 7, got %v", mood.Payload.Score)
	}
	if mood.Payload.Factors["sleep"] != 8 {
		t.Errorf("Expected sleep factor 8, got %v", mood.Payload.Factors)
	}
	if byID["e1"].SubjectID != "water" {
		t.Errorf("Expected subject water, got %q", byID["e1"].SubjectID)
	}

	empty, err := repo.ListByUser(ctx, "nobody")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected no events, got %d", len(empty))
	}
}

// runProgressRepositoryTests exercises behavior every ProgressRepository must share
func runProgressRepositoryTests(t *testing.T, repo ProgressRepository) {
	ctx := context.Background()
	early := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(48 * time.Hour)

	err := repo.Merge(ctx, "user-1", []models.AchievementProgress{
		{AchievementID: "first_breath", Progress: 1, UnlockedAt: timePtr(late)},
		{AchievementID: "mindful_ten", Progress: 6},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	// lower progress and a later unlock never win; an earlier unlock does
	err = repo.Merge(ctx, "user-1", []models.AchievementProgress{
		{AchievementID: "first_breath", Progress: 1, UnlockedAt: timePtr(early)},
		{AchievementID: "mindful_ten", Progress: 3},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	got, err := repo.GetByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetByUser: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(got))
	}

	breath := got["first_breath"]
	if breath.UnlockedAt == nil || !breath.UnlockedAt.Equal(early) {
		t.Errorf("Expected earliest unlock %v, got %v", early, breath.UnlockedAt)
	}
	mindful := got["mindful_ten"]
	if mindful.Progress != 6 {
		t.Errorf("Expected progress to stay at 6, got %v", mindful.Progress)
	}
	if mindful.Unlocked() {
		t.Error("Expected mindful_ten locked")
	}

	err = repo.Merge(ctx, "user-1", []models.AchievementProgress{
		{AchievementID: "first_breath", Progress: 1},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	got, _ = repo.GetByUser(ctx, "user-1")
	if !got["first_breath"].Unlocked() {
		t.Error("Expected unlock to survive a merge without an unlock time")
	}

	other, err := repo.GetByUser(ctx, "user-2")
	if err != nil {
		t.Fatalf("GetByUser: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Expected no records for user-2, got %d", len(other))
	}
}

func TestMemoryEventRepository(t *testing.T) {
	runEventRepositoryTests(t, NewMemoryEventRepository())
}

func TestMemoryProgressRepository(t *testing.T) {
	runProgressRepositoryTests(t, NewMemoryProgressRepository())
}

func TestMemoryEventRepository_ListReturnsCopy(t *testing.T) {
	repo := NewMemoryEventRepository()
	ctx := context.Background()
	repo.Append(ctx, "u", testEvents())

	events, _ := repo.ListByUser(ctx, "u")
	events[0].ID = "mutated"

	again, _ := repo.ListByUser(ctx, "u")
	for _, e := range again {
		if e.ID == "mutated" {
			t.Fatal("Expected stored events to be unaffected by caller mutation")
		}
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "engagement.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteEventRepository(t *testing.T) {
	runEventRepositoryTests(t, openTestStore(t).Events())
}

func TestSQLiteProgressRepository(t *testing.T) {
	runProgressRepositoryTests(t, openTestStore(t).Progress())
}

func TestOpenSQLite_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engagement.db")
	ctx := context.Background()

	s1, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("first OpenSQLite() failed: %v", err)
	}
	if _, err := s1.Events().Append(ctx, "u", testEvents()); err != nil {
		t.Fatalf("Append: %v", err)
	}
	s1.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("database file was not created")
	}

	s2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("second OpenSQLite() failed: %v", err)
	}
	defer s2.Close()

	events, err := s2.Events().ListByUser(ctx, "u")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("Expected 2 events after reopen, got %d", len(events))
	}
	// ordered by occurrence
	if events[0].ID != "e1" {
		t.Errorf("Expected e1 first, got %s", events[0].ID)
	}

	var version int
	if err := s2.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("Expected user_version %d, got %d", currentSchemaVersion, version)
	}
}

func TestOpenSQLite_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engagement.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	if _, err := s.db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	s.Close()

	if _, err := OpenSQLite(path); err == nil {
		t.Error("Expected error opening a database with a newer schema")
	}
}
