// Package strava fetches a runner's activities from the Strava API.
//
// A fetch is two explicit steps sharing one context: Token refreshes the
// OAuth2 access token, then ListActivities pages through the athlete's
// activities with it. FetchActivities composes both.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/claude/paceplan/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "https://www.strava.com/api/v3"
	DefaultTokenURL = "https://www.strava.com/oauth/token"
	Source          = "strava"
)

// Config holds the Strava application credentials and client limits.
type Config struct {
	ClientID          string  `yaml:"client_id"`
	ClientSecret      string  `yaml:"client_secret"`
	RefreshToken      string  `yaml:"refresh_token"`
	BaseURL           string  `yaml:"base_url"`
	TokenURL          string  `yaml:"token_url"`
	PerPage           int     `yaml:"per_page"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	DetailConcurrency int     `yaml:"detail_concurrency"`
}

// Client talks to the Strava REST API. It is safe for concurrent use.
type Client struct {
	cfg        Config
	oauth      *oauth2.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

// New creates a Client. Zero-valued limits fall back to Strava-friendly defaults.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 100
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.DetailConcurrency <= 0 {
		cfg.DetailConcurrency = 4
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.DetailConcurrency),
		logger:     logger,
		token:      &oauth2.Token{RefreshToken: cfg.RefreshToken},
	}
}

// Token returns a valid access token, exchanging the refresh token when the
// cached one has expired. Strava rotates refresh tokens; the newest is kept.
func (c *Client) Token(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.TokenSource(ctx, c.token).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing strava token: %w", err)
	}
	if tok.RefreshToken != "" && tok.RefreshToken != c.token.RefreshToken {
		c.logger.Info("strava refresh token rotated")
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = c.token.RefreshToken
	}
	c.token = tok
	return tok, nil
}

// apiActivity is the summary activity shape returned by the Strava API.
type apiActivity struct {
	ID                 int64    `json:"id"`
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	SportType          string   `json:"sport_type"`
	Distance           float64  `json:"distance"`
	MovingTime         int      `json:"moving_time"`
	ElapsedTime        int      `json:"elapsed_time"`
	TotalElevationGain float64  `json:"total_elevation_gain"`
	StartDate          string   `json:"start_date"`
	StartDateLocal     string   `json:"start_date_local"`
	AverageHeartRate   *float64 `json:"average_heartrate"`
	MaxHeartRate       *float64 `json:"max_heartrate"`
}

type apiSplit struct {
	Distance         float64  `json:"distance"`
	MovingTime       int      `json:"moving_time"`
	AverageHeartRate *float64 `json:"average_heartrate"`
}

type apiDetail struct {
	ID             int64      `json:"id"`
	SplitsStandard []apiSplit `json:"splits_standard"`
}

func (a apiActivity) toModel() models.Activity {
	return models.Activity{
		ID:                 strconv.FormatInt(a.ID, 10),
		Source:             Source,
		Name:               a.Name,
		SportType:          a.SportType,
		Type:               a.Type,
		DistanceMeters:     a.Distance,
		MovingTimeSeconds:  a.MovingTime,
		ElapsedTimeSeconds: a.ElapsedTime,
		AverageHeartRate:   a.AverageHeartRate,
		MaxHeartRate:       a.MaxHeartRate,
		TotalElevationGain: a.TotalElevationGain,
		StartDate:          a.StartDate,
		StartDateLocal:     a.StartDateLocal,
	}
}

// ListActivities pages through the athlete's activities started after the
// given time until an empty page comes back. A zero after lists everything.
func (c *Client) ListActivities(ctx context.Context, tok *oauth2.Token, after time.Time) ([]models.Activity, error) {
	var all []models.Activity
	for page := 1; ; page++ {
		params := url.Values{
			"page":     {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(c.cfg.PerPage)},
		}
		if !after.IsZero() {
			params.Set("after", strconv.FormatInt(after.Unix(), 10))
		}

		var batch []apiActivity
		if err := c.get(ctx, tok, "/athlete/activities", params, &batch); err != nil {
			return nil, fmt.Errorf("listing activities page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break
		}
		for _, a := range batch {
			all = append(all, a.toModel())
		}
	}
	c.logger.Debug("strava activities listed", "count", len(all), "after", after)
	return all, nil
}

// FetchActivities refreshes the token and lists activities in one call.
func (c *Client) FetchActivities(ctx context.Context, after time.Time) ([]models.Activity, error) {
	tok, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}
	return c.ListActivities(ctx, tok, after)
}

// FetchSplits loads per-mile splits for the given activity IDs concurrently.
// The first failure cancels the remaining requests.
func (c *Client) FetchSplits(ctx context.Context, tok *oauth2.Token, ids []string) (map[string][]models.Split, error) {
	var mu sync.Mutex
	out := make(map[string][]models.Split, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.DetailConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			var d apiDetail
			if err := c.get(ctx, tok, "/activities/"+url.PathEscape(id), nil, &d); err != nil {
				return fmt.Errorf("activity %s: %w", id, err)
			}
			splits := make([]models.Split, 0, len(d.SplitsStandard))
			for _, s := range d.SplitsStandard {
				splits = append(splits, models.Split{
					Distance:         s.Distance,
					MovingTime:       s.MovingTime,
					AverageHeartRate: s.AverageHeartRate,
				})
			}
			mu.Lock()
			out[id] = splits
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching splits: %w", err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, tok *oauth2.Token, path string, params url.Values, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.cfg.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	tok.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
