package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/JonnyWalker81/trendy/engagement/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - events and achievement progress
const currentSchemaVersion = 1

// Store is a SQLite database holding the event log and achievement progress.
// It runs in WAL mode with a single connection.
type Store struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path and applies the schema.
// Safe to call on an existing database.
func OpenSQLite(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Events returns the event repository backed by this store
func (s *Store) Events() EventRepository {
	return &sqliteEventRepository{db: s.db}
}

// Progress returns the progress repository backed by this store
func (s *Store) Progress() ProgressRepository {
	return &sqliteProgressRepository{db: s.db}
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

type sqliteEventRepository struct {
	db *sql.DB
}

func (r *sqliteEventRepository) Append(ctx context.Context, userID string, events []models.Event) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO engagement_events
			(user_id, id, kind, occurred_at, occurred_unix_ns, subject_id, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range events {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal payload for event %s: %w", e.ID, err)
		}

		occurred := e.OccurredAt.UTC()
		res, err := stmt.ExecContext(ctx,
			userID, e.ID, string(e.Kind),
			occurred.Format(time.RFC3339Nano), occurred.UnixNano(),
			e.SubjectID, string(payload),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert event %s: %w", e.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit events: %w", err)
	}
	return inserted, nil
}

func (r *sqliteEventRepository) ListByUser(ctx context.Context, userID string) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, occurred_at, subject_id, payload
		FROM engagement_events
		WHERE user_id = ?
		ORDER BY occurred_unix_ns, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var (
			e          models.Event
			kind       string
			occurredAt string
			payload    string
		)
		if err := rows.Scan(&e.ID, &kind, &occurredAt, &e.SubjectID, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		e.UserID = userID
		e.Kind = models.EventKind(kind)
		e.OccurredAt, err = time.Parse(time.RFC3339Nano, occurredAt)
		if err != nil {
			return nil, fmt.Errorf("event %s has corrupt timestamp %q: %w", e.ID, occurredAt, err)
		}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return nil, fmt.Errorf("event %s has corrupt payload: %w", e.ID, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

type sqliteProgressRepository struct {
	db *sql.DB
}

func (r *sqliteProgressRepository) GetByUser(ctx context.Context, userID string) (map[string]models.AchievementProgress, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT achievement_id, progress, unlocked_at
		FROM achievement_progress
		WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.AchievementProgress)
	for rows.Next() {
		var (
			rec        models.AchievementProgress
			unlockedAt sql.NullInt64
		)
		if err := rows.Scan(&rec.AchievementID, &rec.Progress, &unlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		if unlockedAt.Valid {
			t := time.Unix(0, unlockedAt.Int64).UTC()
			rec.UnlockedAt = &t
		}
		out[rec.AchievementID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate progress: %w", err)
	}
	return out, nil
}

// Merge upserts records; the conflict clause keeps the larger progress and
// the earlier unlock time so concurrent writers never regress a record.
func (r *sqliteProgressRepository) Merge(ctx context.Context, userID string, records []models.AchievementProgress) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO achievement_progress (user_id, achievement_id, progress, unlocked_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, achievement_id) DO UPDATE SET
			progress = MAX(achievement_progress.progress, excluded.progress),
			unlocked_at = CASE
				WHEN achievement_progress.unlocked_at IS NULL THEN excluded.unlocked_at
				WHEN excluded.unlocked_at IS NULL THEN achievement_progress.unlocked_at
				ELSE MIN(achievement_progress.unlocked_at, excluded.unlocked_at)
			END
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var unlockedAt sql.NullInt64
		if rec.UnlockedAt != nil {
			unlockedAt = sql.NullInt64{Int64: rec.UnlockedAt.UnixNano(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, userID, rec.AchievementID, rec.Progress, unlockedAt); err != nil {
			return fmt.Errorf("failed to upsert progress %s: %w", rec.AchievementID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit progress: %w", err)
	}
	return nil
}
