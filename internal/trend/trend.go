// Package trend classifies the direction of an outcome series by comparing
// the means of its two most recent windows.
package trend

import (
	"errors"
	"slices"

	"github.com/JonnyWalker81/trendy/engagement/internal/models"
)

const (
	DefaultWindowSize = 7
	DefaultThreshold  = 0.5
)

var (
	ErrInvalidWindowSize = errors.New("trend: window size must be positive")
	ErrInvalidThreshold  = errors.New("trend: threshold must be positive")
)

// Classify returns only the classification of Analyze
func Classify(points []models.OutcomePoint, windowSize int, threshold float64) (models.TrendClassification, error) {
	report, err := Analyze(points, windowSize, threshold)
	if err != nil {
		return "", err
	}
	return report.Classification, nil
}

// Analyze orders points by timestamp, takes the most recent 2*windowSize of
// them and compares the newer half's mean against the older half's.
// Fewer than 2*windowSize points yields INSUFFICIENT_DATA.
func Analyze(points []models.OutcomePoint, windowSize int, threshold float64) (models.TrendReport, error) {
	if windowSize <= 0 {
		return models.TrendReport{}, ErrInvalidWindowSize
	}
	if !(threshold > 0) {
		return models.TrendReport{}, ErrInvalidThreshold
	}

	report := models.TrendReport{
		Classification: models.TrendInsufficientData,
		WindowSize:     windowSize,
		Threshold:      threshold,
		SampleSize:     len(points),
	}
	if len(points) < 2*windowSize {
		return report, nil
	}

	ordered := slices.Clone(points)
	slices.SortStableFunc(ordered, func(a, b models.OutcomePoint) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	recent := ordered[len(ordered)-2*windowSize:]
	older := mean(recent[:windowSize])
	newer := mean(recent[windowSize:])
	delta := newer - older

	report.OlderMean = &older
	report.NewerMean = &newer
	report.Delta = &delta

	switch {
	case delta > threshold:
		report.Classification = models.TrendImproving
	case delta < -threshold:
		report.Classification = models.TrendDeclining
	default:
		report.Classification = models.TrendStable
	}

	return report, nil
}

func mean(points []models.OutcomePoint) float64 {
	var sum float64
	for _, p := range points {
		sum += p.Value
	}
	return sum / float64(len(points))
}
