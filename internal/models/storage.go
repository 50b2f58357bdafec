package models

import (
	"time"

	"github.com/google/uuid"
)

// Sync log statuses.
const (
	SyncRunning = "running"
	SyncSuccess = "success"
	SyncError   = "error"
)

// SyncLog records one sync cycle: what was fetched, what was graded, how it ended.
type SyncLog struct {
	ID                 uuid.UUID  `json:"id"`
	StartedAt          time.Time  `json:"started_at"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
	Trigger            string     `json:"trigger"`
	Status             string     `json:"status"`
	ActivitiesFetched  int        `json:"activities_fetched"`
	ActivitiesUpserted int64      `json:"activities_upserted"`
	Anchor             *string    `json:"anchor,omitempty"`
	StatusesRecorded   int        `json:"statuses_recorded"`
	DurationMs         *int       `json:"duration_ms,omitempty"`
	ErrorMessage       *string    `json:"error_message,omitempty"`
}
