package engine

import (
	"math"
	"sort"

	"github.com/JonnyWalker81/trendy/engagement/internal/models"
)

// MoodSummary aggregates scored check-ins. The most frequent score is taken
// over scores rounded to whole numbers; ties go to the lower score.
func MoodSummary(events []models.Event, report models.TrendReport) models.MoodSummary {
	summary := models.MoodSummary{Trend: report}

	var sum float64
	scored := 0
	frequency := make(map[int]int)
	for _, e := range events {
		if e.Kind != models.EventKindMood {
			continue
		}
		summary.CheckIns++
		if e.Payload.Score == nil {
			continue
		}
		scored++
		sum += *e.Payload.Score
		frequency[int(math.Round(*e.Payload.Score))]++
	}

	if scored == 0 {
		return summary
	}

	avg := sum / float64(scored)
	summary.AverageScore = &avg

	scores := make([]int, 0, len(frequency))
	for s := range frequency {
		scores = append(scores, s)
	}
	sort.Ints(scores)

	best := scores[0]
	for _, s := range scores[1:] {
		if frequency[s] > frequency[best] {
			best = s
		}
	}
	summary.MostFrequentScore = &best

	return summary
}
