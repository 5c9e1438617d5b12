package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/JonnyWalker81/trendy/engagement/internal/achievement"
	"github.com/JonnyWalker81/trendy/engagement/internal/models"
	"github.com/JonnyWalker81/trendy/engagement/pkg/supabase"
)

const (
	eventsTable   = "engagement_events"
	progressTable = "achievement_progress"

	// eventsPageSize must not exceed the PostgREST max-rows setting, which
	// defaults to 1000; a short page ends the listing
	eventsPageSize = 1000
)

type eventRow struct {
	UserID     string           `json:"user_id"`
	ID         string           `json:"id"`
	Kind       models.EventKind `json:"kind"`
	OccurredAt time.Time        `json:"occurred_at"`
	SubjectID  string           `json:"subject_id"`
	Payload    models.Payload   `json:"payload"`
}

type progressRow struct {
	UserID        string     `json:"user_id"`
	AchievementID string     `json:"achievement_id"`
	Progress      float64    `json:"progress"`
	UnlockedAt    *time.Time `json:"unlocked_at"`
}

type supabaseEventRepository struct {
	client   *supabase.Client
	pageSize int
}

// NewSupabaseEventRepository creates an event repository on a Supabase table
func NewSupabaseEventRepository(client *supabase.Client) EventRepository {
	return &supabaseEventRepository{client: client, pageSize: eventsPageSize}
}

func (r *supabaseEventRepository) Append(ctx context.Context, userID string, events []models.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	rows := make([]eventRow, 0, len(events))
	for _, e := range events {
		rows = append(rows, eventRow{
			UserID:     userID,
			ID:         e.ID,
			Kind:       e.Kind,
			OccurredAt: e.OccurredAt.UTC(),
			SubjectID:  e.SubjectID,
			Payload:    e.Payload,
		})
	}

	// ignore-duplicates returns only the rows that were actually inserted
	body, err := r.client.Upsert(ctx, eventsTable, rows, "user_id,id", supabase.IgnoreDuplicates)
	if err != nil {
		return 0, fmt.Errorf("failed to insert events: %w", err)
	}

	var inserted []eventRow
	if err := json.Unmarshal(body, &inserted); err != nil {
		return 0, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return len(inserted), nil
}

func (r *supabaseEventRepository) ListByUser(ctx context.Context, userID string) ([]models.Event, error) {
	var events []models.Event
	for offset := 0; ; {
		query := map[string]string{
			"user_id": fmt.Sprintf("eq.%s", userID),
			"select":  "*",
			"order":   "occurred_at.asc,id.asc",
			"limit":   strconv.Itoa(r.pageSize),
			"offset":  strconv.Itoa(offset),
		}

		body, err := r.client.Query(ctx, eventsTable, query)
		if err != nil {
			return nil, fmt.Errorf("failed to get events: %w", err)
		}

		var rows []eventRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}

		for _, row := range rows {
			events = append(events, models.Event{
				ID:         row.ID,
				UserID:     row.UserID,
				Kind:       row.Kind,
				OccurredAt: row.OccurredAt,
				SubjectID:  row.SubjectID,
				Payload:    row.Payload,
			})
		}

		if len(rows) < r.pageSize {
			break
		}
		offset += len(rows)
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

type supabaseProgressRepository struct {
	client *supabase.Client
}

// NewSupabaseProgressRepository creates a progress repository on a Supabase table
func NewSupabaseProgressRepository(client *supabase.Client) ProgressRepository {
	return &supabaseProgressRepository{client: client}
}

func (r *supabaseProgressRepository) GetByUser(ctx context.Context, userID string) (map[string]models.AchievementProgress, error) {
	query := map[string]string{
		"user_id": fmt.Sprintf("eq.%s", userID),
		"select":  "*",
	}

	body, err := r.client.Query(ctx, progressTable, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	var rows []progressRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	out := make(map[string]models.AchievementProgress, len(rows))
	for _, row := range rows {
		out[row.AchievementID] = models.AchievementProgress{
			AchievementID: row.AchievementID,
			Progress:      row.Progress,
			UnlockedAt:    row.UnlockedAt,
		}
	}
	return out, nil
}

// Merge reads the stored records, folds the incoming ones in and upserts the result.
// PostgREST has no conditional update, so a concurrent writer between the read
// and the upsert can still lose progress; the next reconcile restores it.
func (r *supabaseProgressRepository) Merge(ctx context.Context, userID string, records []models.AchievementProgress) error {
	if len(records) == 0 {
		return nil
	}

	stored, err := r.GetByUser(ctx, userID)
	if err != nil {
		return err
	}

	rows := make([]progressRow, 0, len(records))
	for _, rec := range records {
		if existing, ok := stored[rec.AchievementID]; ok {
			rec = achievement.Merge(existing, rec)
		}
		rows = append(rows, progressRow{
			UserID:        userID,
			AchievementID: rec.AchievementID,
			Progress:      rec.Progress,
			UnlockedAt:    rec.UnlockedAt,
		})
	}

	if _, err := r.client.Upsert(ctx, progressTable, rows, "user_id,achievement_id", supabase.MergeDuplicates); err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}
	return nil
}
