package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/paceplan/internal/coach"
	"github.com/claude/paceplan/internal/config"
	"github.com/claude/paceplan/internal/importer"
	"github.com/claude/paceplan/internal/ingest"
	"github.com/claude/paceplan/internal/plan"
	"github.com/claude/paceplan/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	fitPath := flag.String("path", "", "path to a directory of .fit / .fit.gz files (required)")
	dryRun := flag.Bool("dry-run", false, "report counts without inserting into database")
	adjust := flag.Bool("adjust", false, "recompute the adjusted plan after importing")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *fitPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: paceplan-import -config config.yaml -path /path/to/fit [-dry-run] [-adjust]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	info, err := os.Stat(*fitPath)
	if err != nil || !info.IsDir() {
		log.Error("FIT path does not exist or is not a directory", "path", *fitPath)
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, storage.MigrationsDir); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode, no data will be written to the database")
	}

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Run import
	imp := importer.New(ingest.NewProvider(db, log), log, *dryRun)
	stats, err := imp.Import(ctx, *fitPath)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}
	printStats(log, stats)

	if *adjust && !*dryRun {
		template, err := plan.LoadTemplate(cfg.Plan.TemplatePath)
		if err != nil {
			log.Error("failed to load plan template", "error", err)
			os.Exit(1)
		}
		loc, _ := cfg.Plan.Location()
		svc := coach.New(db, nil, coach.Options{
			Template:   template,
			Location:   loc,
			Thresholds: cfg.Classifier.Thresholds(),
			Athlete:    cfg.Athlete.Athlete(),
		}, log)
		res, err := svc.Recompute(ctx)
		if err != nil {
			log.Error("recompute failed", "error", err)
			os.Exit(1)
		}
		log.Info("adjusted plan recomputed", "statuses", res.Statuses)
	}

	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"activities_parsed", stats.ActivitiesParsed,
		"activities_inserted", stats.ActivitiesInserted,
		"activities_unchanged", stats.ActivitiesSkipped,
		"activities_rejected", stats.ActivitiesRejected,
	)
	if len(stats.RejectedReasons) > 0 {
		log.Info("rejected activities", "reasons", stats.RejectedReasons)
	}
}
