// Package streak derives consecutive-day activity streaks.
//
// Timestamps are reduced to calendar dates in a caller-supplied zone before
// any counting happens, so "today" and "yesterday" always mean the user's
// days, never the server's.
package streak

import (
	"slices"
	"time"

	"github.com/JonnyWalker81/trendy/engagement/internal/models"
)

// ActiveDates returns the distinct calendar dates (in loc) touched by
// timestamps, in ascending order.
func ActiveDates(timestamps []time.Time, loc *time.Location) []models.Date {
	days := dayNumbers(timestamps, loc)
	dates := make([]models.Date, len(days))
	for i, n := range days {
		dates[i] = models.DateFromDayNumber(n)
	}
	return dates
}

// Compute returns the current and longest streak for timestamps as observed
// in loc. The current streak is non-zero only when the reference instant's
// own date is active; it then counts back day by day until the first gap.
// The longest streak is independent of the reference.
//
// Compute panics if loc is nil.
func Compute(timestamps []time.Time, reference time.Time, loc *time.Location) models.StreakResult {
	if loc == nil {
		panic("streak: nil location")
	}

	days := dayNumbers(timestamps, loc)
	if len(days) == 0 {
		return models.StreakResult{}
	}

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i] == days[i-1]+1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	active := make(map[int64]struct{}, len(days))
	for _, n := range days {
		active[n] = struct{}{}
	}

	current := 0
	for n := models.DateOf(reference, loc).DayNumber(); ; n-- {
		if _, ok := active[n]; !ok {
			break
		}
		current++
	}

	last := models.DateFromDayNumber(days[len(days)-1])
	return models.StreakResult{
		Current:        current,
		Longest:        longest,
		LastActiveDate: &last,
	}
}

// dayNumbers dedupes timestamps into sorted day numbers
func dayNumbers(timestamps []time.Time, loc *time.Location) []int64 {
	if len(timestamps) == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, len(timestamps))
	days := make([]int64, 0, len(timestamps))
	for _, ts := range timestamps {
		n := models.DateOf(ts, loc).DayNumber()
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		days = append(days, n)
	}

	slices.Sort(days)
	return days
}
