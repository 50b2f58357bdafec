package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/claude/paceplan/internal/models"
	"github.com/jackc/pgx/v5"
)

const upsertActivitySQL = `INSERT INTO activities (id, source, name, sport_type, type, distance_m,
	 moving_time_sec, elapsed_time_sec, avg_heart_rate, max_heart_rate, elevation_gain,
	 start_date, start_date_local, splits)
	 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	 ON CONFLICT (id) DO UPDATE SET
	 source = EXCLUDED.source, name = EXCLUDED.name, sport_type = EXCLUDED.sport_type,
	 type = EXCLUDED.type, distance_m = EXCLUDED.distance_m, moving_time_sec = EXCLUDED.moving_time_sec,
	 elapsed_time_sec = EXCLUDED.elapsed_time_sec, avg_heart_rate = EXCLUDED.avg_heart_rate,
	 max_heart_rate = EXCLUDED.max_heart_rate, elevation_gain = EXCLUDED.elevation_gain,
	 start_date = EXCLUDED.start_date, start_date_local = EXCLUDED.start_date_local,
	 splits = COALESCE(EXCLUDED.splits, activities.splits), updated_at = NOW()
	 WHERE (activities.name, activities.distance_m, activities.moving_time_sec, activities.elapsed_time_sec,
	        activities.avg_heart_rate, activities.max_heart_rate, activities.start_date,
	        activities.start_date_local, activities.splits)
	 IS DISTINCT FROM
	       (EXCLUDED.name, EXCLUDED.distance_m, EXCLUDED.moving_time_sec, EXCLUDED.elapsed_time_sec,
	        EXCLUDED.avg_heart_rate, EXCLUDED.max_heart_rate, EXCLUDED.start_date,
	        EXCLUDED.start_date_local, COALESCE(EXCLUDED.splits, activities.splits))`

// activityArgs flattens an activity into upsert parameters.
func activityArgs(a models.Activity) ([]any, error) {
	start, ok := a.StartUTC()
	if !ok {
		return nil, fmt.Errorf("activity %s: unparseable start_date %q", a.ID, a.StartDate)
	}
	var splits []byte
	if len(a.Splits) > 0 {
		var err error
		if splits, err = json.Marshal(a.Splits); err != nil {
			return nil, fmt.Errorf("encoding splits for %s: %w", a.ID, err)
		}
	}
	return []any{
		a.ID, a.Source, a.Name, a.SportType, a.Type, a.DistanceMeters,
		a.MovingTimeSeconds, a.ElapsedTimeSeconds, a.AverageHeartRate, a.MaxHeartRate,
		a.TotalElevationGain, start, a.StartDateLocal, splits,
	}, nil
}

// UpsertActivities inserts new activities and updates changed ones in a single
// batch. Returns the number of rows inserted or changed.
func (db *DB) UpsertActivities(ctx context.Context, acts []models.Activity) (int64, error) {
	if len(acts) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, a := range acts {
		args, err := activityArgs(a)
		if err != nil {
			return 0, err
		}
		batch.Queue(upsertActivitySQL, args...)
	}

	br := db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	var affected int64
	for range acts {
		tag, err := br.Exec()
		if err != nil {
			return affected, fmt.Errorf("upserting activity: %w", err)
		}
		affected += tag.RowsAffected()
	}
	return affected, nil
}

// ListActivities returns activities started at or after since, oldest first.
// A zero since returns everything.
func (db *DB) ListActivities(ctx context.Context, since time.Time) ([]models.Activity, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, source, name, sport_type, type, distance_m, moving_time_sec, elapsed_time_sec,
		 avg_heart_rate, max_heart_rate, elevation_gain, start_date, start_date_local, splits
		 FROM activities
		 WHERE start_date >= $1
		 ORDER BY start_date, id`,
		since)
	if err != nil {
		return nil, fmt.Errorf("querying activities: %w", err)
	}
	defer rows.Close()

	var result []models.Activity
	for rows.Next() {
		var (
			a      models.Activity
			start  time.Time
			splits []byte
		)
		if err := rows.Scan(&a.ID, &a.Source, &a.Name, &a.SportType, &a.Type, &a.DistanceMeters,
			&a.MovingTimeSeconds, &a.ElapsedTimeSeconds, &a.AverageHeartRate, &a.MaxHeartRate,
			&a.TotalElevationGain, &start, &a.StartDateLocal, &splits); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		a.StartDate = models.FormatProviderTime(start)
		if len(splits) > 0 {
			if err := json.Unmarshal(splits, &a.Splits); err != nil {
				return nil, fmt.Errorf("decoding splits for %s: %w", a.ID, err)
			}
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// LatestActivityStart returns the most recent stored start time.
func (db *DB) LatestActivityStart(ctx context.Context) (time.Time, bool, error) {
	var latest *time.Time
	if err := db.Pool.QueryRow(ctx, `SELECT MAX(start_date) FROM activities`).Scan(&latest); err != nil {
		return time.Time{}, false, fmt.Errorf("querying latest activity: %w", err)
	}
	if latest == nil {
		return time.Time{}, false, nil
	}
	return latest.UTC(), true, nil
}

// ActivitiesWithoutSplits returns the IDs of runs from a source started at or
// after since that have no split data yet.
func (db *DB) ActivitiesWithoutSplits(ctx context.Context, source string, since time.Time) ([]string, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id FROM activities
		 WHERE source = $1 AND start_date >= $2 AND splits IS NULL
		   AND (LOWER(sport_type) = 'run' OR LOWER(type) = 'run')
		 ORDER BY start_date`,
		source, since)
	if err != nil {
		return nil, fmt.Errorf("querying activities without splits: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning activity id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetSplits stores split data for one activity.
func (db *DB) SetSplits(ctx context.Context, id string, splits []models.Split) error {
	data, err := json.Marshal(splits)
	if err != nil {
		return fmt.Errorf("encoding splits for %s: %w", id, err)
	}
	if _, err := db.Pool.Exec(ctx,
		`UPDATE activities SET splits = $2, updated_at = NOW() WHERE id = $1`, id, data); err != nil {
		return fmt.Errorf("storing splits for %s: %w", id, err)
	}
	return nil
}
