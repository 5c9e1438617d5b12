package engine

import "github.com/JonnyWalker81/trendy/engagement/internal/models"

// Counters derives the live achievement counters from events and the
// per-kind streaks. Streak categories use the longest streak.
// The milestone counter is left to the achievement tracker.
func Counters(events []models.Event, streaks map[models.EventKind]models.StreakResult) models.Counters {
	c := models.Counters{
		models.CategoryMeditationSessions: 0,
		models.CategoryMeditationMinutes:  0,
		models.CategoryHabitCompletions:   0,
		models.CategoryJournalEntries:     0,
		models.CategoryJournalWords:       0,
		models.CategoryMoodCheckIns:       0,
	}

	for _, e := range events {
		switch e.Kind {
		case models.EventKindMeditation:
			c[models.CategoryMeditationSessions]++
			if e.Payload.DurationMinutes != nil {
				c[models.CategoryMeditationMinutes] += *e.Payload.DurationMinutes
			}
		case models.EventKindHabit:
			c[models.CategoryHabitCompletions]++
		case models.EventKindJournal:
			c[models.CategoryJournalEntries]++
			if e.Payload.WordCount != nil {
				c[models.CategoryJournalWords] += float64(*e.Payload.WordCount)
			}
		case models.EventKindMood:
			c[models.CategoryMoodCheckIns]++
		}
	}

	c[models.CategoryMeditationStreak] = float64(streaks[models.EventKindMeditation].Longest)
	c[models.CategoryHabitStreak] = float64(streaks[models.EventKindHabit].Longest)
	c[models.CategoryJournalStreak] = float64(streaks[models.EventKindJournal].Longest)
	c[models.CategoryMoodStreak] = float64(streaks[models.EventKindMood].Longest)

	return c
}

// Totals counts events per kind, including zero counts for every kind
func Totals(events []models.Event) map[models.EventKind]int {
	totals := make(map[models.EventKind]int, len(models.EventKinds))
	for _, k := range models.EventKinds {
		totals[k] = 0
	}
	for _, e := range events {
		totals[e.Kind]++
	}
	return totals
}
