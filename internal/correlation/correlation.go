// Package correlation ranks ancillary factors by how strongly they move
// with an outcome, using the Pearson correlation coefficient.
package correlation

import (
	"errors"
	"math"
	"sort"

	"github.com/JonnyWalker81/trendy/engagement/internal/models"
)

// Strength thresholds on |r|
const (
	ThresholdStrong   = 0.5
	ThresholdModerate = 0.3
	ThresholdWeak     = 0.2
)

// MinSamples is the smallest sample count for which r is defined
const MinSamples = 2

var (
	ErrLengthMismatch      = errors.New("correlation: series have different lengths")
	ErrInsufficientSamples = errors.New("correlation: at least two samples required")
)

// accumulator keeps the running sums of the computational Pearson form
// along with min/max so a constant series can be detected exactly.
type accumulator struct {
	n                      int
	sumX, sumY             float64
	sumXY, sumX2, sumY2    float64
	minX, maxX, minY, maxY float64
}

func (a *accumulator) add(x, y float64) {
	if a.n == 0 {
		a.minX, a.maxX, a.minY, a.maxY = x, x, y, y
	} else {
		a.minX = math.Min(a.minX, x)
		a.maxX = math.Max(a.maxX, x)
		a.minY = math.Min(a.minY, y)
		a.maxY = math.Max(a.maxY, y)
	}
	a.n++
	a.sumX += x
	a.sumY += y
	a.sumXY += x * y
	a.sumX2 += x * x
	a.sumY2 += y * y
}

// coefficient is 0 whenever either series has no variance
func (a *accumulator) coefficient() float64 {
	if a.minX == a.maxX || a.minY == a.maxY {
		return 0
	}

	n := float64(a.n)
	numerator := n*a.sumXY - a.sumX*a.sumY
	denominator := (n*a.sumX2 - a.sumX*a.sumX) * (n*a.sumY2 - a.sumY*a.sumY)
	if denominator <= 0 || math.IsNaN(denominator) {
		return 0
	}

	r := numerator / math.Sqrt(denominator)
	switch {
	case math.IsNaN(r):
		return 0
	case r > 1:
		return 1
	case r < -1:
		return -1
	}
	return r
}

// Pearson returns the correlation coefficient of two equal-length series
func Pearson(xs, ys []float64) (float64, error) {
	if len(xs) != len(ys) {
		return 0, ErrLengthMismatch
	}
	if len(xs) < MinSamples {
		return 0, ErrInsufficientSamples
	}

	var acc accumulator
	for i := range xs {
		acc.add(xs[i], ys[i])
	}
	return acc.coefficient(), nil
}

// RankFactors groups samples by factor name and returns one result per factor
// that has at least two samples, ordered by |r| descending and then by name.
// Samples must already be filtered for missing values.
func RankFactors(samples []models.FactorSample) []models.CorrelationResult {
	groups := make(map[string]*accumulator)
	for _, s := range samples {
		acc, ok := groups[s.FactorName]
		if !ok {
			acc = &accumulator{}
			groups[s.FactorName] = acc
		}
		acc.add(s.Outcome, s.FactorValue)
	}

	results := make([]models.CorrelationResult, 0, len(groups))
	for name, acc := range groups {
		if acc.n < MinSamples {
			continue
		}
		r := acc.coefficient()
		results = append(results, models.CorrelationResult{
			FactorName:  name,
			Coefficient: r,
			SampleSize:  acc.n,
			Strength:    Strength(r),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		ai, aj := math.Abs(results[i].Coefficient), math.Abs(results[j].Coefficient)
		if ai != aj {
			return ai > aj
		}
		return results[i].FactorName < results[j].FactorName
	})

	return results
}

// Strength labels a coefficient
func Strength(r float64) models.CorrelationStrength {
	abs := math.Abs(r)
	switch {
	case abs >= ThresholdStrong:
		return models.CorrelationStrong
	case abs >= ThresholdModerate:
		return models.CorrelationModerate
	case abs >= ThresholdWeak:
		return models.CorrelationWeak
	default:
		return models.CorrelationNegligible
	}
}
