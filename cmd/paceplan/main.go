package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/paceplan/internal/coach"
	"github.com/claude/paceplan/internal/config"
	"github.com/claude/paceplan/internal/ingest"
	paceplanmcp "github.com/claude/paceplan/internal/mcp"
	"github.com/claude/paceplan/internal/plan"
	"github.com/claude/paceplan/internal/server"
	"github.com/claude/paceplan/internal/storage"
	"github.com/claude/paceplan/internal/strava"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/robfig/cron"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	syncOnce := flag.Bool("sync-once", false, "run one sync cycle and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("PacePlan starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Run migrations
	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, storage.MigrationsDir); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	// Connect database
	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Load plan template
	template, err := plan.LoadTemplate(cfg.Plan.TemplatePath)
	if err != nil {
		log.Error("failed to load plan template", "path", cfg.Plan.TemplatePath, "error", err)
		os.Exit(1)
	}
	loc, _ := cfg.Plan.Location()
	log.Info("plan template loaded", "weeks", len(template.Weeks), "timezone", loc.String())

	// Activity provider (optional)
	var source coach.ActivitySource
	if cfg.Strava.Enabled() {
		source = strava.New(cfg.Strava.Client(), log)
		log.Info("strava sync enabled")
	} else {
		log.Info("strava sync disabled, activities must be pushed over the API")
	}

	svc := coach.New(db, source, coach.Options{
		Template:     template,
		Location:     loc,
		Thresholds:   cfg.Classifier.Thresholds(),
		Athlete:      cfg.Athlete.Athlete(),
		SourceName:   strava.Source,
		LookbackDays: cfg.Sync.LookbackDays,
		DetailDays:   cfg.Sync.DetailDays,
	}, log)

	if *syncOnce {
		if _, err := svc.Sync(ctx, "cli"); err != nil {
			os.Exit(1)
		}
		return
	}

	// Rebuild the adjusted plan from whatever is stored
	if _, err := svc.Recompute(ctx); err != nil {
		log.Warn("initial recompute failed", "error", err)
	}

	// Scheduled sync
	if cfg.Sync.Schedule != "" {
		c := cron.New()
		err := c.AddFunc(cfg.Sync.Schedule, func() {
			syncCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			_, _ = svc.Sync(syncCtx, "cron")
		})
		if err != nil {
			log.Error("invalid sync schedule", "schedule", cfg.Sync.Schedule, "error", err)
			os.Exit(1)
		}
		c.Start()
		defer c.Stop()
		log.Info("scheduled sync enabled", "schedule", cfg.Sync.Schedule)
	}

	// Create server
	srv := server.New(svc, ingest.NewProvider(db, log), cfg.Auth.APIKey, log)

	mcpSrv := paceplanmcp.New(svc, paceplanmcp.Settings{
		Version:  Version,
		Athlete:  cfg.Athlete.Athlete(),
		Location: loc,
	}, log)
	srv.SetMCP(mcpserver.NewStreamableHTTPServer(mcpSrv))

	// Start server - tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
