package engine

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/JonnyWalker81/trendy/engagement/internal/models"
)

// CanonicalFactorName folds a user-entered factor name to its grouping key:
// NFC-normalized, case-folded, trimmed, with inner whitespace runs collapsed
// to a single underscore. "Sleep Quality" and " sleep  quality" match.
func CanonicalFactorName(name string) string {
	folded := cases.Fold().String(norm.NFC.String(name))
	return strings.Join(strings.FieldsFunc(folded, unicode.IsSpace), "_")
}

// CanonicalFactors rewrites factor keys to their canonical names and drops
// empty names and non-finite values. When two keys fold to the same name the
// lexically smallest original key wins.
func CanonicalFactors(factors map[string]float64) map[string]float64 {
	if len(factors) == 0 {
		return nil
	}

	keys := make([]string, 0, len(factors))
	for k := range factors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]float64, len(factors))
	for _, k := range keys {
		v := factors[k]
		name := CanonicalFactorName(k)
		if name == "" || !finite(v) {
			continue
		}
		if _, taken := out[name]; taken {
			continue
		}
		out[name] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// FactorSamples emits one sample per present factor of every scored mood
// check-in. Check-ins without a score contribute nothing.
func FactorSamples(events []models.Event) []models.FactorSample {
	samples := make([]models.FactorSample, 0)
	for _, e := range events {
		if e.Kind != models.EventKindMood || e.Payload.Score == nil {
			continue
		}
		factors := CanonicalFactors(e.Payload.Factors)
		names := make([]string, 0, len(factors))
		for name := range factors {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			samples = append(samples, models.FactorSample{
				Outcome:     *e.Payload.Score,
				FactorName:  name,
				FactorValue: factors[name],
			})
		}
	}
	return samples
}

// MoodPoints returns the scored mood series in input order
func MoodPoints(events []models.Event) []models.OutcomePoint {
	points := make([]models.OutcomePoint, 0)
	for _, e := range events {
		if e.Kind != models.EventKindMood || e.Payload.Score == nil {
			continue
		}
		points = append(points, models.OutcomePoint{Timestamp: e.OccurredAt, Value: *e.Payload.Score})
	}
	return points
}
