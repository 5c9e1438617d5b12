package models

import "time"

// StreakResult is the outcome of a streak computation for one activity
type StreakResult struct {
	Current        int   `json:"current"`
	Longest        int   `json:"longest"`
	LastActiveDate *Date `json:"last_active_date"`
}

// FactorSample pairs an outcome value with one ancillary factor reading
// taken from the same mood check-in
type FactorSample struct {
	Outcome     float64 `json:"outcome"`
	FactorName  string  `json:"factor_name"`
	FactorValue float64 `json:"factor_value"`
}

// CorrelationStrength is a coarse label for |r|
type CorrelationStrength string

const (
	CorrelationStrong     CorrelationStrength = "strong"
	CorrelationModerate   CorrelationStrength = "moderate"
	CorrelationWeak       CorrelationStrength = "weak"
	CorrelationNegligible CorrelationStrength = "negligible"
)

// CorrelationResult is the Pearson coefficient between the outcome and one factor.
// Factors with fewer than two samples never produce a result.
type CorrelationResult struct {
	FactorName  string              `json:"factor_name"`
	Coefficient float64             `json:"coefficient"`
	SampleSize  int                 `json:"sample_size"`
	Strength    CorrelationStrength `json:"strength"`
}

// OutcomePoint is one observation of the outcome series
type OutcomePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// TrendClassification is the direction of the recent outcome series
type TrendClassification string

const (
	TrendImproving        TrendClassification = "IMPROVING"
	TrendDeclining        TrendClassification = "DECLINING"
	TrendStable           TrendClassification = "STABLE"
	TrendInsufficientData TrendClassification = "INSUFFICIENT_DATA"
)

// TrendReport explains a trend classification.
// Means and Delta are nil when there was not enough data.
type TrendReport struct {
	Classification TrendClassification `json:"classification"`
	WindowSize     int                 `json:"window_size"`
	Threshold      float64             `json:"threshold"`
	SampleSize     int                 `json:"sample_size"`
	OlderMean      *float64            `json:"older_mean,omitempty"`
	NewerMean      *float64            `json:"newer_mean,omitempty"`
	Delta          *float64            `json:"delta,omitempty"`
}

// MoodSummary aggregates mood check-ins
type MoodSummary struct {
	CheckIns          int         `json:"check_ins"`
	AverageScore      *float64    `json:"average_score,omitempty"`
	MostFrequentScore *int        `json:"most_frequent_score,omitempty"`
	Trend             TrendReport `json:"trend"`
}

// Snapshot is the full set of derived metrics for one user at one instant
type Snapshot struct {
	UserID        string                     `json:"user_id,omitempty"`
	ComputedAt    time.Time                  `json:"computed_at"`
	Timezone      string                     `json:"timezone"`
	Streaks       map[EventKind]StreakResult `json:"streaks"`
	HabitStreaks  map[string]StreakResult    `json:"habit_streaks"`
	Totals        map[EventKind]int          `json:"totals"`
	Correlations  []CorrelationResult        `json:"correlations"`
	Trend         TrendClassification        `json:"trend"`
	Mood          MoodSummary                `json:"mood"`
	Achievements  []AchievementProgress      `json:"achievements"`
	NewlyUnlocked []string                   `json:"newly_unlocked"`
	TotalPoints   int                        `json:"total_points"`
	Discarded     DiscardReport              `json:"discarded"`
}
