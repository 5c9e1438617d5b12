package models

import (
	"strings"
	"time"
)

// EventKind identifies the activity a wellness event records
type EventKind string

const (
	EventKindMeditation EventKind = "meditation"
	EventKindHabit      EventKind = "habit"
	EventKindJournal    EventKind = "journal"
	EventKindMood       EventKind = "mood"
)

// EventKinds lists every known kind in a fixed order
var EventKinds = []EventKind{
	EventKindMeditation,
	EventKindHabit,
	EventKindJournal,
	EventKindMood,
}

// Valid reports whether k is one of the known event kinds
func (k EventKind) Valid() bool {
	switch k {
	case EventKindMeditation, EventKindHabit, EventKindJournal, EventKindMood:
		return true
	}
	return false
}

// ParseEventKind converts a wire value to an EventKind.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseEventKind(s string) (EventKind, bool) {
	k := EventKind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.Valid()
}

// Payload carries kind-specific measurements.
// Mood events use Score, Label and Factors; meditation uses DurationMinutes;
// journal uses WordCount. Habit events carry no measurements.
type Payload struct {
	Score           *float64           `json:"score,omitempty"`
	Label           string             `json:"label,omitempty"`
	Factors         map[string]float64 `json:"factors,omitempty"`
	DurationMinutes *float64           `json:"duration_minutes,omitempty"`
	WordCount       *int               `json:"word_count,omitempty"`
}

// Event is an immutable record of a single user activity
type Event struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id,omitempty"`
	Kind       EventKind `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
	SubjectID  string    `json:"subject_id,omitempty"`
	Payload    Payload   `json:"payload"`
}

// RawEvent is the wire form of an event before validation.
// OccurredAt stays a string so malformed timestamps can be reported
// instead of failing the whole batch.
type RawEvent struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	OccurredAt string  `json:"occurred_at"`
	SubjectID  string  `json:"subject_id,omitempty"`
	Payload    Payload `json:"payload"`
}

// DiscardReason explains why an incoming event was not accepted
type DiscardReason string

const (
	DiscardUnparseableTimestamp DiscardReason = "unparseable_timestamp"
	DiscardOutOfRange           DiscardReason = "out_of_range"
	DiscardUnknownKind          DiscardReason = "unknown_kind"
	DiscardMissingID            DiscardReason = "missing_id"
	DiscardDuplicateID          DiscardReason = "duplicate_id"
	DiscardInvalidPayload       DiscardReason = "invalid_payload"
)

// DiscardReport counts rejected events by reason
type DiscardReport struct {
	Total    int                   `json:"total"`
	ByReason map[DiscardReason]int `json:"by_reason,omitempty"`
}

// Add records one discarded event
func (r *DiscardReport) Add(reason DiscardReason) {
	if r.ByReason == nil {
		r.ByReason = make(map[DiscardReason]int)
	}
	r.ByReason[reason]++
	r.Total++
}

// IngestResult summarizes a batch submitted to the event log
type IngestResult struct {
	Received      int           `json:"received"`
	Accepted      int           `json:"accepted"`
	Duplicates    int           `json:"duplicates"`
	Discarded     DiscardReport `json:"discarded"`
	NewlyUnlocked []string      `json:"newly_unlocked"`
}
