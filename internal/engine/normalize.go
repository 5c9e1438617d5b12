package engine

import (
	"math"
	"strings"
	"time"

	"github.com/JonnyWalker81/trendy/engagement/internal/models"
)

// earliestValid is the lower bound for accepted event timestamps
var earliestValid = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	MinMoodScore = 1
	MaxMoodScore = 10
)

// Normalize validates raw events and converts them to typed events.
// Anything that cannot be trusted is dropped and counted in the report;
// a bad event never fails the batch. Timestamps after now+maxFutureSkew
// are out of range; a non-positive skew disables that upper bound.
// The first occurrence of an id wins.
func Normalize(raw []models.RawEvent, now time.Time, maxFutureSkew time.Duration) ([]models.Event, models.DiscardReport) {
	var report models.DiscardReport
	events := make([]models.Event, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, r := range raw {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			report.Add(models.DiscardMissingID)
			continue
		}

		kind, ok := models.ParseEventKind(r.Kind)
		if !ok {
			report.Add(models.DiscardUnknownKind)
			continue
		}

		occurredAt, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(r.OccurredAt))
		if err != nil {
			report.Add(models.DiscardUnparseableTimestamp)
			continue
		}
		if occurredAt.Before(earliestValid) || (maxFutureSkew > 0 && occurredAt.After(now.Add(maxFutureSkew))) {
			report.Add(models.DiscardOutOfRange)
			continue
		}

		payload, ok := normalizePayload(kind, r.Payload)
		if !ok {
			report.Add(models.DiscardInvalidPayload)
			continue
		}

		if _, dup := seen[id]; dup {
			report.Add(models.DiscardDuplicateID)
			continue
		}
		seen[id] = struct{}{}

		events = append(events, models.Event{
			ID:         id,
			Kind:       kind,
			OccurredAt: occurredAt,
			SubjectID:  strings.TrimSpace(r.SubjectID),
			Payload:    payload,
		})
	}

	return events, report
}

// normalizePayload rejects impossible measurements and canonicalizes
// factor names. Missing measurements are fine.
func normalizePayload(kind models.EventKind, p models.Payload) (models.Payload, bool) {
	out := models.Payload{Label: strings.TrimSpace(p.Label)}

	switch kind {
	case models.EventKindMood:
		if p.Score != nil {
			s := *p.Score
			if !finite(s) || s < MinMoodScore || s > MaxMoodScore {
				return models.Payload{}, false
			}
			out.Score = &s
		}
		out.Factors = CanonicalFactors(p.Factors)
	case models.EventKindMeditation:
		if p.DurationMinutes != nil {
			d := *p.DurationMinutes
			if !finite(d) || d < 0 {
				return models.Payload{}, false
			}
			out.DurationMinutes = &d
		}
	case models.EventKindJournal:
		if p.WordCount != nil {
			w := *p.WordCount
			if w < 0 {
				return models.Payload{}, false
			}
			out.WordCount = &w
		}
	}

	return out, true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
