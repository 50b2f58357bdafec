package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/claude/paceplan/internal/load"
	"github.com/claude/paceplan/internal/models"
)

// HTTPClient implements DataSource by calling the PacePlan REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// the plan lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) AdjustedPlan(ctx context.Context) (*models.Plan, error) {
	var p models.Plan
	if err := c.getJSON(ctx, "/api/v1/plan", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) Anchor(ctx context.Context) (civil.Date, bool, error) {
	var body struct {
		Anchor *civil.Date `json:"anchor"`
	}
	if err := c.getJSON(ctx, "/api/v1/anchor", nil, &body); err != nil {
		return civil.Date{}, false, err
	}
	if body.Anchor == nil {
		return civil.Date{}, false, nil
	}
	return *body.Anchor, true, nil
}

func (c *HTTPClient) Statuses(ctx context.Context) (models.StatusMap, error) {
	statuses := models.StatusMap{}
	if err := c.getJSON(ctx, "/api/v1/statuses", nil, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

func (c *HTTPClient) Performance(ctx context.Context) (models.PerformanceData, []models.WeekTotals, error) {
	var body struct {
		Data   models.PerformanceData `json:"data"`
		Weekly []models.WeekTotals    `json:"weekly"`
	}
	if err := c.getJSON(ctx, "/api/v1/performance", nil, &body); err != nil {
		return nil, nil, err
	}
	return body.Data, body.Weekly, nil
}

func (c *HTTPClient) Activities(ctx context.Context, since time.Time) ([]models.Activity, error) {
	params := url.Values{}
	if !since.IsZero() {
		params.Set("since", since.Format(time.RFC3339))
	}
	var acts []models.Activity
	if err := c.getJSON(ctx, "/api/v1/activities", params, &acts); err != nil {
		return nil, err
	}
	return acts, nil
}

// Athlete fetches the server's configured athlete constants.
func (c *HTTPClient) Athlete(ctx context.Context) (load.Athlete, error) {
	var a load.Athlete
	err := c.getJSON(ctx, "/api/v1/athlete", nil, &a)
	return a, err
}
