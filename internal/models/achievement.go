package models

import "time"

// AchievementCategory names the live counter an achievement is measured against
type AchievementCategory string

const (
	CategoryMeditationSessions AchievementCategory = "meditation_sessions"
	CategoryMeditationMinutes  AchievementCategory = "meditation_minutes"
	CategoryMeditationStreak   AchievementCategory = "meditation_streak"
	CategoryHabitCompletions   AchievementCategory = "habit_completions"
	CategoryHabitStreak        AchievementCategory = "habit_streak"
	CategoryJournalEntries     AchievementCategory = "journal_entries"
	CategoryJournalWords       AchievementCategory = "journal_words"
	CategoryJournalStreak      AchievementCategory = "journal_streak"
	CategoryMoodCheckIns       AchievementCategory = "mood_checkins"
	CategoryMoodStreak         AchievementCategory = "mood_streak"

	// CategoryMilestone counts points of unlocked non-milestone achievements
	CategoryMilestone AchievementCategory = "milestone"
)

// Valid reports whether c is a known category
func (c AchievementCategory) Valid() bool {
	switch c {
	case CategoryMeditationSessions, CategoryMeditationMinutes, CategoryMeditationStreak,
		CategoryHabitCompletions, CategoryHabitStreak,
		CategoryJournalEntries, CategoryJournalWords, CategoryJournalStreak,
		CategoryMoodCheckIns, CategoryMoodStreak,
		CategoryMilestone:
		return true
	}
	return false
}

// Counters maps each category to its live value
type Counters map[AchievementCategory]float64

// AchievementDefinition is one catalog entry
type AchievementDefinition struct {
	ID          string              `json:"id" yaml:"id"`
	Name        string              `json:"name" yaml:"name"`
	Description string              `json:"description,omitempty" yaml:"description"`
	Category    AchievementCategory `json:"category" yaml:"category"`
	Requirement float64             `json:"requirement" yaml:"requirement"`
	Points      int                 `json:"points" yaml:"points"`
}

// AchievementProgress is a user's state for one achievement.
// A nil UnlockedAt means LOCKED; once set it is never cleared.
type AchievementProgress struct {
	AchievementID string     `json:"achievement_id"`
	Progress      float64    `json:"progress"`
	UnlockedAt    *time.Time `json:"unlocked_at"`
}

// Unlocked reports whether the achievement has been earned
func (p AchievementProgress) Unlocked() bool {
	return p.UnlockedAt != nil
}

// AchievementStatus joins a catalog entry with the user's progress on it
type AchievementStatus struct {
	AchievementDefinition
	Progress   float64    `json:"progress"`
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// AchievementsView is the user-facing list of achievements
type AchievementsView struct {
	Achievements  []AchievementStatus `json:"achievements"`
	NewlyUnlocked []string            `json:"newly_unlocked"`
	TotalPoints   int                 `json:"total_points"`
}
