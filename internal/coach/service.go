// Package coach runs the sync cycle that turns fetched activities into a
// dated, fatigue-adjusted plan, and serves the resulting read model.
package coach

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/claude/paceplan/internal/adjust"
	"github.com/claude/paceplan/internal/load"
	"github.com/claude/paceplan/internal/models"
	"github.com/claude/paceplan/internal/plan"
	"github.com/claude/paceplan/internal/trafficlight"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Store is the durable state the service reads and writes. *storage.DB satisfies it.
type Store interface {
	plan.AnchorStore
	AdjustedPlan(ctx context.Context) (*models.Plan, bool, error)
	SaveAdjustedPlan(ctx context.Context, p *models.Plan) error

	UpsertActivities(ctx context.Context, acts []models.Activity) (int64, error)
	ListActivities(ctx context.Context, since time.Time) ([]models.Activity, error)
	LatestActivityStart(ctx context.Context) (time.Time, bool, error)
	ActivitiesWithoutSplits(ctx context.Context, source string, since time.Time) ([]string, error)
	SetSplits(ctx context.Context, id string, splits []models.Split) error

	InsertSyncLog(ctx context.Context, log models.SyncLog) (uuid.UUID, error)
	UpdateSyncLog(ctx context.Context, id uuid.UUID, log models.SyncLog) error
	QuerySyncLogs(ctx context.Context, limit int) ([]models.SyncLog, error)
}

// ActivitySource is the fitness provider. *strava.Client satisfies it.
type ActivitySource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
	ListActivities(ctx context.Context, tok *oauth2.Token, after time.Time) ([]models.Activity, error)
	FetchSplits(ctx context.Context, tok *oauth2.Token, ids []string) (map[string][]models.Split, error)
}

// Options configures the service.
type Options struct {
	Template   *models.Plan
	Location   *time.Location
	Thresholds trafficlight.Thresholds
	Athlete    load.Athlete
	// SourceName tags activities from the ActivitySource (for split backfill).
	SourceName string
	// LookbackDays re-fetches this many days before the newest stored activity
	// so edits made on the provider are picked up.
	LookbackDays int
	// DetailDays limits split backfill to recent runs; 0 disables it.
	DetailDays int
}

// Result summarises one sync or recompute.
type Result struct {
	Fetched  int          `json:"activities_fetched"`
	Upserted int64        `json:"activities_upserted"`
	Anchor   *civil.Date  `json:"anchor,omitempty"`
	Statuses int          `json:"statuses_recorded"`
	Plan     *models.Plan `json:"-"`
}

// Service orchestrates sync cycles. Sync and Recompute are serialized so the
// service is the single writer of plan state.
type Service struct {
	store  Store
	source ActivitySource
	opts   Options
	log    *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// New creates a Service. source may be nil, in which case Sync only
// recomputes from stored activities.
func New(store Store, source ActivitySource, opts Options, log *slog.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	plan.MustBeWellFormed(opts.Template)
	return &Service{store: store, source: source, opts: opts, log: log, now: time.Now}
}

// Sync fetches new activities from the provider, stores them and recomputes
// the adjusted plan. trigger names what started it (e.g. "cron", "api").
func (s *Service) Sync(ctx context.Context, trigger string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()
	entry := models.SyncLog{StartedAt: started, Trigger: trigger, Status: models.SyncRunning}
	logID, err := s.store.InsertSyncLog(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("creating sync log: %w", err)
	}

	res, err := s.sync(ctx)
	s.finishLog(ctx, logID, entry, res, err)
	if err != nil {
		return nil, err
	}
	s.log.Info("sync complete", "trigger", trigger,
		"fetched", res.Fetched, "upserted", res.Upserted, "statuses", res.Statuses)
	return res, nil
}

func (s *Service) sync(ctx context.Context) (*Result, error) {
	res := &Result{}
	if s.source != nil {
		if err := s.fetch(ctx, res); err != nil {
			return nil, err
		}
	}
	if err := s.recompute(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) fetch(ctx context.Context, res *Result) error {
	var after time.Time
	latest, ok, err := s.store.LatestActivityStart(ctx)
	if err != nil {
		return err
	}
	if ok {
		after = latest.AddDate(0, 0, -s.opts.LookbackDays)
	}

	tok, err := s.source.Token(ctx)
	if err != nil {
		return fmt.Errorf("authenticating with provider: %w", err)
	}
	acts, err := s.source.ListActivities(ctx, tok, after)
	if err != nil {
		return fmt.Errorf("fetching activities: %w", err)
	}
	res.Fetched = len(acts)

	if len(acts) > 0 {
		if res.Upserted, err = s.store.UpsertActivities(ctx, acts); err != nil {
			return fmt.Errorf("storing activities: %w", err)
		}
	}

	if s.opts.DetailDays > 0 {
		s.backfillSplits(ctx, tok)
	}
	return nil
}

// backfillSplits loads splits for recent runs. Splits only feed reporting,
// so failures are logged and the sync carries on.
func (s *Service) backfillSplits(ctx context.Context, tok *oauth2.Token) {
	since := s.now().AddDate(0, 0, -s.opts.DetailDays)
	ids, err := s.store.ActivitiesWithoutSplits(ctx, s.opts.SourceName, since)
	if err != nil {
		s.log.Warn("listing activities without splits", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}
	splits, err := s.source.FetchSplits(ctx, tok, ids)
	if err != nil {
		s.log.Warn("fetching splits", "error", err)
		return
	}
	for id, sp := range splits {
		if err := s.store.SetSplits(ctx, id, sp); err != nil {
			s.log.Warn("storing splits", "activity", id, "error", err)
		}
	}
}

// Recompute rebuilds the adjusted plan from stored activities without
// contacting the provider. Used after activities are pushed in directly.
func (s *Service) Recompute(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := &Result{}
	if err := s.recompute(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// recompute always starts from the template, so corrections never compound
// across cycles.
func (s *Service) recompute(ctx context.Context, res *Result) error {
	acts, err := s.store.ListActivities(ctx, time.Time{})
	if err != nil {
		return fmt.Errorf("loading activities: %w", err)
	}
	anchor, ok, err := plan.EnsureAnchor(ctx, s.store, acts)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Info("no runs yet, plan stays undated")
		return nil
	}
	res.Anchor = &anchor

	dated := plan.ApplyDates(s.opts.Template, anchor)
	statuses := s.opts.Thresholds.ClassifyPlan(dated, acts, s.opts.Location)
	res.Statuses = len(statuses)
	res.Plan = adjust.Adjust(dated, statuses)

	if err := s.store.SaveAdjustedPlan(ctx, res.Plan); err != nil {
		return fmt.Errorf("saving adjusted plan: %w", err)
	}
	return nil
}

func (s *Service) finishLog(ctx context.Context, id uuid.UUID, entry models.SyncLog, res *Result, syncErr error) {
	finished := s.now()
	ms := int(finished.Sub(entry.StartedAt).Milliseconds())
	entry.FinishedAt = &finished
	entry.DurationMs = &ms
	if syncErr != nil {
		entry.Status = models.SyncError
		msg := syncErr.Error()
		entry.ErrorMessage = &msg
		s.log.Error("sync failed", "error", syncErr)
	} else {
		entry.Status = models.SyncSuccess
		entry.ActivitiesFetched = res.Fetched
		entry.ActivitiesUpserted = res.Upserted
		entry.StatusesRecorded = res.Statuses
		if res.Anchor != nil {
			a := res.Anchor.String()
			entry.Anchor = &a
		}
	}
	if err := s.store.UpdateSyncLog(ctx, id, entry); err != nil {
		s.log.Error("updating sync log", "error", err)
	}
}
