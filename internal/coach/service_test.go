package coach

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/claude/paceplan/internal/models"
	"github.com/claude/paceplan/internal/trafficlight"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/oauth2"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Anchor(ctx context.Context) (civil.Date, bool, error) {
	args := m.Called(ctx)
	return args.Get(0).(civil.Date), args.Bool(1), args.Error(2)
}

func (m *MockStore) SetAnchorIfAbsent(ctx context.Context, d civil.Date) (civil.Date, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(civil.Date), args.Error(1)
}

func (m *MockStore) AdjustedPlan(ctx context.Context) (*models.Plan, bool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Plan), args.Bool(1), args.Error(2)
}

func (m *MockStore) SaveAdjustedPlan(ctx context.Context, p *models.Plan) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockStore) UpsertActivities(ctx context.Context, acts []models.Activity) (int64, error) {
	args := m.Called(ctx, acts)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) ListActivities(ctx context.Context, since time.Time) ([]models.Activity, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Activity), args.Error(1)
}

func (m *MockStore) LatestActivityStart(ctx context.Context) (time.Time, bool, error) {
	args := m.Called(ctx)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

func (m *MockStore) ActivitiesWithoutSplits(ctx context.Context, source string, since time.Time) ([]string, error) {
	args := m.Called(ctx, source, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) SetSplits(ctx context.Context, id string, splits []models.Split) error {
	return m.Called(ctx, id, splits).Error(0)
}

func (m *MockStore) InsertSyncLog(ctx context.Context, log models.SyncLog) (uuid.UUID, error) {
	args := m.Called(ctx, log)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockStore) UpdateSyncLog(ctx context.Context, id uuid.UUID, log models.SyncLog) error {
	return m.Called(ctx, id, log).Error(0)
}

func (m *MockStore) QuerySyncLogs(ctx context.Context, limit int) ([]models.SyncLog, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SyncLog), args.Error(1)
}

type MockSource struct {
	mock.Mock
}

func (m *MockSource) Token(ctx context.Context) (*oauth2.Token, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}

func (m *MockSource) ListActivities(ctx context.Context, tok *oauth2.Token, after time.Time) ([]models.Activity, error) {
	args := m.Called(ctx, tok, after)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Activity), args.Error(1)
}

func (m *MockSource) FetchSplits(ctx context.Context, tok *oauth2.Token, ids []string) (map[string][]models.Split, error) {
	args := m.Called(ctx, tok, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]models.Split), args.Error(1)
}

var (
	monday  = civil.Date{Year: 2024, Month: 1, Day: 1}
	now     = time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	logID   = uuid.MustParse("5f0c2a43-2c1e-4d43-9b1e-1f0a6f3f7b01")
	testTok = &oauth2.Token{AccessToken: "access"}
)

func template() *models.Plan {
	days := make([]models.Day, models.DaysPerWeek)
	for i := range days {
		days[i] = models.Day{Exercise: "Easy run", TargetDistance: "5 mi", TargetPace: "8:00"}
	}
	return &models.Plan{Weeks: []models.Week{{Label: "11", Days: days}}}
}

// slowTuesday is 5 miles at 8:16/mi, one second past the yellow tolerance.
func slowTuesday() []models.Activity {
	return []models.Activity{{
		ID: "1", SportType: "Run", StartDate: "2024-01-02T07:00:00Z",
		DistanceMeters: 8046.72, MovingTimeSeconds: 2480,
	}}
}

func newService(store Store, source ActivitySource, opts Options) *Service {
	opts.Template = template()
	opts.Thresholds = trafficlight.DefaultThresholds()
	s := New(store, source, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return now }
	return s
}

func expectSyncLog(store *MockStore, status string) {
	store.On("InsertSyncLog", mock.Anything, mock.MatchedBy(func(l models.SyncLog) bool {
		return l.Status == models.SyncRunning
	})).Return(logID, nil)
	store.On("UpdateSyncLog", mock.Anything, logID, mock.MatchedBy(func(l models.SyncLog) bool {
		return l.Status == status && l.FinishedAt != nil
	})).Return(nil)
}

// TestSyncFetchesAnchorsAndAdjusts runs a full cycle: fetch, store, anchor, classify, adjust, save.
func TestSyncFetchesAnchorsAndAdjusts(t *testing.T) {
	store := new(MockStore)
	source := new(MockSource)
	ctx := context.Background()
	acts := slowTuesday()
	latest := time.Date(2024, 1, 4, 7, 0, 0, 0, time.UTC)

	expectSyncLog(store, models.SyncSuccess)
	store.On("LatestActivityStart", ctx).Return(latest, true, nil)
	source.On("Token", ctx).Return(testTok, nil)
	source.On("ListActivities", ctx, testTok, latest.AddDate(0, 0, -3)).Return(acts, nil)
	store.On("UpsertActivities", ctx, acts).Return(int64(1), nil)
	store.On("ListActivities", ctx, time.Time{}).Return(acts, nil)
	store.On("Anchor", ctx).Return(civil.Date{}, false, nil)
	store.On("SetAnchorIfAbsent", ctx, monday).Return(monday, nil)
	store.On("SaveAdjustedPlan", ctx, mock.MatchedBy(func(p *models.Plan) bool {
		days := p.Weeks[0].Days
		return days[1].TargetPace == "8:10" && days[2].TargetPace == "8:12" &&
			days[3].TargetPace == "8:07" && days[4].TargetPace == "8:03" && days[5].TargetPace == "8:00"
	})).Return(nil)

	s := newService(store, source, Options{LookbackDays: 3})
	res, err := s.Sync(ctx, "test")

	assert.NoError(t, err)
	assert.Equal(t, 1, res.Fetched)
	assert.Equal(t, int64(1), res.Upserted)
	assert.Equal(t, 1, res.Statuses)
	if assert.NotNil(t, res.Anchor) {
		assert.Equal(t, monday, *res.Anchor)
	}
	store.AssertExpectations(t)
	source.AssertExpectations(t)
	store.AssertNotCalled(t, "AdjustedPlan", mock.Anything)
}

// TestSyncProviderFailure verifies a token failure aborts the cycle and is logged as an error.
func TestSyncProviderFailure(t *testing.T) {
	store := new(MockStore)
	source := new(MockSource)
	ctx := context.Background()

	expectSyncLog(store, models.SyncError)
	store.On("LatestActivityStart", ctx).Return(time.Time{}, false, nil)
	source.On("Token", ctx).Return(nil, errors.New("invalid_grant"))

	s := newService(store, source, Options{})
	_, err := s.Sync(ctx, "test")

	assert.Error(t, err)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "SaveAdjustedPlan", mock.Anything, mock.Anything)
}

// TestSyncWithoutRuns verifies no plan is saved while the anchor cannot be derived.
func TestSyncWithoutRuns(t *testing.T) {
	store := new(MockStore)
	ctx := context.Background()

	expectSyncLog(store, models.SyncSuccess)
	store.On("ListActivities", ctx, time.Time{}).Return([]models.Activity{}, nil)
	store.On("Anchor", ctx).Return(civil.Date{}, false, nil)

	s := newService(store, nil, Options{})
	res, err := s.Sync(ctx, "test")

	assert.NoError(t, err)
	assert.Nil(t, res.Anchor)
	store.AssertNotCalled(t, "SetAnchorIfAbsent", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "SaveAdjustedPlan", mock.Anything, mock.Anything)
}

// TestSyncBackfillsSplits verifies recent runs without splits get them, and split
// failures never fail the sync.
func TestSyncBackfillsSplits(t *testing.T) {
	store := new(MockStore)
	source := new(MockSource)
	ctx := context.Background()
	acts := slowTuesday()
	splits := map[string][]models.Split{"1": {{Distance: 1609.344, MovingTime: 496}}}

	expectSyncLog(store, models.SyncSuccess)
	store.On("LatestActivityStart", ctx).Return(time.Time{}, false, nil)
	source.On("Token", ctx).Return(testTok, nil)
	source.On("ListActivities", ctx, testTok, time.Time{}).Return(acts, nil)
	store.On("UpsertActivities", ctx, acts).Return(int64(1), nil)
	store.On("ActivitiesWithoutSplits", ctx, "strava", now.AddDate(0, 0, -7)).Return([]string{"1"}, nil)
	source.On("FetchSplits", ctx, testTok, []string{"1"}).Return(splits, nil)
	store.On("SetSplits", ctx, "1", splits["1"]).Return(errors.New("disk full"))
	store.On("ListActivities", ctx, time.Time{}).Return(acts, nil)
	store.On("Anchor", ctx).Return(monday, true, nil)
	store.On("SaveAdjustedPlan", ctx, mock.Anything).Return(nil)

	s := newService(store, source, Options{SourceName: "strava", DetailDays: 7})
	_, err := s.Sync(ctx, "test")

	assert.NoError(t, err)
	store.AssertExpectations(t)
	source.AssertExpectations(t)
}

// TestAdjustedPlanFallback verifies the dated template is served before the first save.
func TestAdjustedPlanFallback(t *testing.T) {
	store := new(MockStore)
	ctx := context.Background()
	store.On("AdjustedPlan", ctx).Return(nil, false, nil)
	store.On("Anchor", ctx).Return(monday, true, nil)

	s := newService(store, nil, Options{})
	p, err := s.AdjustedPlan(ctx)

	assert.NoError(t, err)
	if assert.NotNil(t, p.Weeks[0].Days[0].Date) {
		assert.Equal(t, monday, *p.Weeks[0].Days[0].Date)
	}
	assert.Empty(t, p.Weeks[0].Days[0].AdjustmentNote)
}

// TestStatusesBeforeAnchor verifies an empty map rather than an error.
func TestStatusesBeforeAnchor(t *testing.T) {
	store := new(MockStore)
	ctx := context.Background()
	store.On("Anchor", ctx).Return(civil.Date{}, false, nil)

	s := newService(store, nil, Options{})
	statuses, err := s.Statuses(ctx)

	assert.NoError(t, err)
	assert.Empty(t, statuses)
	store.AssertNotCalled(t, "ListActivities", mock.Anything, mock.Anything)
}

// TestThisWeek verifies the week containing a date is found in the adjusted plan.
func TestThisWeek(t *testing.T) {
	store := new(MockStore)
	ctx := context.Background()
	store.On("AdjustedPlan", ctx).Return(nil, false, nil)
	store.On("Anchor", ctx).Return(monday, true, nil)

	s := newService(store, nil, Options{})
	w, ok, err := s.ThisWeek(ctx, s.Today())

	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "11", w.Label)

	_, ok, err = s.ThisWeek(ctx, civil.Date{Year: 2025, Month: 1, Day: 1})
	assert.NoError(t, err)
	assert.False(t, ok)
}
