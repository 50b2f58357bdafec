package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/claude/paceplan/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "PacePlan server URL (e.g. https://paceplan.tail1234.ts.net)")
	fitPath := flag.String("path", "", "path to a directory of .fit / .fit.gz files")
	stateDir := flag.String("state", "", "state directory (default ~/.paceplan-upload)")
	dryRun := flag.Bool("dry-run", false, "parse files but don't send to server")
	batchSize := flag.Int("batch-size", 50, "activities per request")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("paceplan-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *fitPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: paceplan-upload -server <URL> -path <FIT dir> [-state dir] [-dry-run] [-batch-size N]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *serverURL == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server is required (or use -dry-run)\n")
		os.Exit(1)
	}

	apiKey := os.Getenv("PACEPLAN_API_KEY")
	if apiKey == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: PACEPLAN_API_KEY must be set\n")
		os.Exit(1)
	}

	// Strip trailing slash from server URL
	*serverURL = strings.TrimRight(*serverURL, "/")

	info, err := os.Stat(*fitPath)
	if err != nil || !info.IsDir() {
		log.Error("FIT directory not found", "path", *fitPath)
		os.Exit(1)
	}

	// Open state database
	if *stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Error("failed to get home directory", "error", err)
			os.Exit(1)
		}
		*stateDir = filepath.Join(homeDir, ".paceplan-upload")
	}

	state, err := upload.OpenStateDB(*stateDir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	// Create client (nil-safe in dry-run mode)
	var client *upload.Client
	if !*dryRun {
		client = upload.NewClient(*serverURL, apiKey)
	}

	if *dryRun {
		log.Info("DRY RUN mode, files will be parsed but not sent")
	}

	ctx := context.Background()
	uploader := upload.New(client, state, *fitPath, *dryRun, *batchSize, log)
	stats, err := uploader.Run(ctx)
	if err != nil {
		log.Error("upload failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	if files, acts, err := state.Totals(ctx); err == nil {
		log.Info("state totals", "files", files, "activities", acts)
	}
	log.Info("upload complete")
}

func printStats(log *slog.Logger, stats *upload.Stats) {
	log.Info("upload stats",
		"files_total", stats.FilesTotal,
		"files_uploaded", stats.FilesUploaded,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"batches", stats.Batches,
		"activities_sent", stats.ActivitiesSent,
		"activities_inserted", stats.ActivitiesInserted,
		"activities_rejected", stats.ActivitiesRejected,
	)
	if len(stats.RejectedReasons) > 0 {
		log.Info("rejected activities", "reasons", stats.RejectedReasons)
	}
}
