package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/claude/paceplan/internal/models"
	"github.com/jackc/pgx/v5"
)

// Keys of the two durable plan-state values.
const (
	KeyAnchorDate   = "anchor_date"
	KeyAdjustedPlan = "adjusted_plan"
)

func (db *DB) getValue(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := db.Pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return v, true, nil
}

// Anchor returns the persisted anchor Monday, if any.
func (db *DB) Anchor(ctx context.Context) (civil.Date, bool, error) {
	v, ok, err := db.getValue(ctx, KeyAnchorDate)
	if err != nil || !ok {
		return civil.Date{}, false, err
	}
	d, err := civil.ParseDate(v)
	if err != nil {
		return civil.Date{}, false, fmt.Errorf("parsing stored anchor %q: %w", v, err)
	}
	return d, true, nil
}

// SetAnchorIfAbsent stores anchor unless one is already stored, and returns
// whichever anchor is stored afterwards. Concurrent callers all see the first write.
func (db *DB) SetAnchorIfAbsent(ctx context.Context, anchor civil.Date) (civil.Date, error) {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO kv_store (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`,
		KeyAnchorDate, anchor.String())
	if err != nil {
		return civil.Date{}, fmt.Errorf("storing anchor: %w", err)
	}
	stored, ok, err := db.Anchor(ctx)
	if err != nil {
		return civil.Date{}, err
	}
	if !ok {
		return civil.Date{}, errors.New("anchor missing after insert")
	}
	return stored, nil
}

// AdjustedPlan returns the last persisted adjusted plan, if any.
func (db *DB) AdjustedPlan(ctx context.Context) (*models.Plan, bool, error) {
	v, ok, err := db.getValue(ctx, KeyAdjustedPlan)
	if err != nil || !ok {
		return nil, false, err
	}
	var p models.Plan
	if err := json.Unmarshal([]byte(v), &p); err != nil {
		return nil, false, fmt.Errorf("decoding adjusted plan: %w", err)
	}
	return &p, true, nil
}

// SaveAdjustedPlan replaces the persisted adjusted plan.
func (db *DB) SaveAdjustedPlan(ctx context.Context, p *models.Plan) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding adjusted plan: %w", err)
	}
	_, err = db.Pool.Exec(ctx,
		`INSERT INTO kv_store (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		KeyAdjustedPlan, string(data))
	if err != nil {
		return fmt.Errorf("saving adjusted plan: %w", err)
	}
	return nil
}
