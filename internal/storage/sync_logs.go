package storage

import (
	"context"
	"fmt"

	"github.com/claude/paceplan/internal/models"
	"github.com/google/uuid"
)

// InsertSyncLog creates a new sync log entry and returns its ID.
func (db *DB) InsertSyncLog(ctx context.Context, log models.SyncLog) (uuid.UUID, error) {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO sync_logs (id, started_at, trigger, status)
		 VALUES ($1, $2, $3, $4)`,
		log.ID, log.StartedAt, log.Trigger, log.Status)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting sync log: %w", err)
	}
	return log.ID, nil
}

// UpdateSyncLog records the outcome of a sync (typically from "running" to "success" or "error").
func (db *DB) UpdateSyncLog(ctx context.Context, id uuid.UUID, log models.SyncLog) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE sync_logs SET
		 status = $2, finished_at = $3, activities_fetched = $4, activities_upserted = $5,
		 anchor = $6, statuses_recorded = $7, duration_ms = $8, error_message = $9
		 WHERE id = $1`,
		id, log.Status, log.FinishedAt, log.ActivitiesFetched, log.ActivitiesUpserted,
		log.Anchor, log.StatusesRecorded, log.DurationMs, log.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("updating sync log %s: %w", id, err)
	}
	return nil
}

// QuerySyncLogs returns the most recent sync logs.
func (db *DB) QuerySyncLogs(ctx context.Context, limit int) ([]models.SyncLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, started_at, finished_at, trigger, status, activities_fetched, activities_upserted,
		 anchor, statuses_recorded, duration_ms, error_message
		 FROM sync_logs
		 ORDER BY started_at DESC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync logs: %w", err)
	}
	defer rows.Close()

	var result []models.SyncLog
	for rows.Next() {
		var l models.SyncLog
		if err := rows.Scan(&l.ID, &l.StartedAt, &l.FinishedAt, &l.Trigger, &l.Status,
			&l.ActivitiesFetched, &l.ActivitiesUpserted, &l.Anchor, &l.StatusesRecorded,
			&l.DurationMs, &l.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scanning sync log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
