package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/claude/paceplan/internal/load"
	"github.com/claude/paceplan/internal/strava"
	"github.com/claude/paceplan/internal/trafficlight"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Tailscale  TailscaleConfig  `yaml:"tailscale"`
	Strava     StravaConfig     `yaml:"strava"`
	Plan       PlanConfig       `yaml:"plan"`
	Athlete    AthleteConfig    `yaml:"athlete"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Sync       SyncConfig       `yaml:"sync"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// StravaConfig holds the provider credentials. Sync from Strava is disabled
// when client_id is empty; activities can still be pushed over the API.
type StravaConfig struct {
	ClientID          string  `yaml:"client_id"`
	ClientSecret      string  `yaml:"client_secret"`
	RefreshToken      string  `yaml:"refresh_token"`
	BaseURL           string  `yaml:"base_url"`
	TokenURL          string  `yaml:"token_url"`
	PerPage           int     `yaml:"per_page"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	DetailConcurrency int     `yaml:"detail_concurrency"`
}

// Enabled reports whether Strava credentials are configured.
func (s StravaConfig) Enabled() bool {
	return s.ClientID != ""
}

type PlanConfig struct {
	TemplatePath string `yaml:"template_path"`
	Timezone     string `yaml:"timezone"`
}

// Location resolves the athlete's time zone. An empty timezone means UTC.
func (p PlanConfig) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(p.Timezone)
}

type AthleteConfig struct {
	RestingHR float64 `yaml:"resting_hr"`
	MaxHR     float64 `yaml:"max_hr"`
	Sex       string  `yaml:"sex"`
}

type ClassifierConfig struct {
	DistanceFloor       float64 `yaml:"distance_floor"`
	YellowToleranceSec  int     `yaml:"yellow_tolerance_sec"`
	RangeGreenMarginSec *int    `yaml:"range_green_margin_sec"`
}

type SyncConfig struct {
	// Schedule is a cron spec; empty disables scheduled syncs.
	Schedule     string `yaml:"schedule"`
	LookbackDays int    `yaml:"lookback_days"`
	DetailDays   int    `yaml:"detail_days"`
}

// Client returns the Strava client configuration.
func (s StravaConfig) Client() strava.Config {
	return strava.Config{
		ClientID:          s.ClientID,
		ClientSecret:      s.ClientSecret,
		RefreshToken:      s.RefreshToken,
		BaseURL:           s.BaseURL,
		TokenURL:          s.TokenURL,
		PerPage:           s.PerPage,
		RequestsPerSecond: s.RequestsPerSecond,
		DetailConcurrency: s.DetailConcurrency,
	}
}

// Athlete returns the heart-rate constants used by the load estimators.
func (a AthleteConfig) Athlete() load.Athlete {
	return load.Athlete{RestingHR: a.RestingHR, MaxHR: a.MaxHR, Sex: load.Sex(a.Sex)}
}

// Thresholds returns the classifier boundaries. Call after Load so defaults are set.
func (c ClassifierConfig) Thresholds() trafficlight.Thresholds {
	th := trafficlight.DefaultThresholds()
	th.DistanceFloor = c.DistanceFloor
	th.YellowToleranceSec = c.YellowToleranceSec
	if c.RangeGreenMarginSec != nil {
		th.RangeGreenMarginSec = *c.RangeGreenMarginSec
	}
	return th
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, applies defaults, then environment
// variable overrides. Env vars use the prefix PACEPLAN_ and underscore-separated paths:
//
//	PACEPLAN_SERVER_HOST, PACEPLAN_SERVER_PORT,
//	PACEPLAN_DB_HOST, PACEPLAN_DB_PORT, PACEPLAN_DB_NAME,
//	PACEPLAN_DB_USER, PACEPLAN_DB_PASSWORD, PACEPLAN_DB_SSLMODE,
//	PACEPLAN_AUTH_API_KEY,
//	PACEPLAN_STRAVA_CLIENT_ID, PACEPLAN_STRAVA_CLIENT_SECRET, PACEPLAN_STRAVA_REFRESH_TOKEN,
//	PACEPLAN_PLAN_TEMPLATE_PATH, PACEPLAN_PLAN_TIMEZONE, PACEPLAN_SYNC_SCHEDULE
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Plan.TemplatePath == "" {
		cfg.Plan.TemplatePath = "plan.yaml"
	}
	if cfg.Athlete.Sex == "" {
		cfg.Athlete.Sex = "male"
	}
	if cfg.Classifier.DistanceFloor == 0 {
		cfg.Classifier.DistanceFloor = 0.90
	}
	if cfg.Classifier.YellowToleranceSec == 0 {
		cfg.Classifier.YellowToleranceSec = 15
	}
	if cfg.Classifier.RangeGreenMarginSec == nil {
		margin := 1
		cfg.Classifier.RangeGreenMarginSec = &margin
	}
	if cfg.Sync.LookbackDays == 0 {
		cfg.Sync.LookbackDays = 3
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "paceplan"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PACEPLAN_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PACEPLAN_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PACEPLAN_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("PACEPLAN_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("PACEPLAN_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("PACEPLAN_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("PACEPLAN_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("PACEPLAN_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("PACEPLAN_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("PACEPLAN_STRAVA_CLIENT_ID"); v != "" {
		cfg.Strava.ClientID = v
	}
	if v := os.Getenv("PACEPLAN_STRAVA_CLIENT_SECRET"); v != "" {
		cfg.Strava.ClientSecret = v
	}
	if v := os.Getenv("PACEPLAN_STRAVA_REFRESH_TOKEN"); v != "" {
		cfg.Strava.RefreshToken = v
	}
	if v := os.Getenv("PACEPLAN_PLAN_TEMPLATE_PATH"); v != "" {
		cfg.Plan.TemplatePath = v
	}
	if v := os.Getenv("PACEPLAN_PLAN_TIMEZONE"); v != "" {
		cfg.Plan.Timezone = v
	}
	if v := os.Getenv("PACEPLAN_SYNC_SCHEDULE"); v != "" {
		cfg.Sync.Schedule = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Strava.Enabled() && (c.Strava.ClientSecret == "" || c.Strava.RefreshToken == "") {
		return fmt.Errorf("strava.client_secret and strava.refresh_token are required when strava.client_id is set")
	}
	if _, err := c.Plan.Location(); err != nil {
		return fmt.Errorf("plan.timezone: %w", err)
	}
	if c.Athlete.Sex != "male" && c.Athlete.Sex != "female" {
		return fmt.Errorf("athlete.sex must be male or female, got %q", c.Athlete.Sex)
	}
	if c.Classifier.DistanceFloor <= 0 || c.Classifier.DistanceFloor > 1 {
		return fmt.Errorf("classifier.distance_floor must be in (0, 1], got %v", c.Classifier.DistanceFloor)
	}
	if c.Classifier.YellowToleranceSec < 0 || *c.Classifier.RangeGreenMarginSec < 0 {
		return fmt.Errorf("classifier tolerances must not be negative")
	}
	if c.Sync.LookbackDays < 0 || c.Sync.DetailDays < 0 {
		return fmt.Errorf("sync.lookback_days and sync.detail_days must not be negative")
	}
	return nil
}
