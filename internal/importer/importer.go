// Package importer bulk-loads a directory of FIT exports into the database.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/claude/paceplan/internal/ingest"
	"github.com/claude/paceplan/internal/ingest/fit"
	"github.com/claude/paceplan/internal/models"
)

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	ActivitiesParsed   int
	ActivitiesInserted int64
	ActivitiesSkipped  int64
	ActivitiesRejected int

	RejectedReasons []string
}

// Importer reads FIT files from a directory and stores their activities.
type Importer struct {
	ingest *ingest.Provider
	log    *slog.Logger
	dryRun bool
	stats  Stats

	// parse decodes one file; fit.ReadFile outside tests.
	parse func(path string) ([]models.Activity, error)
}

// New creates a new Importer. In dry-run mode files are parsed and counted
// but nothing is written.
func New(p *ingest.Provider, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{ingest: p, log: log, dryRun: dryRun, parse: fit.ReadFile}
}

// Import processes every FIT file under dir. A file that fails to decode is
// counted and skipped; a storage failure aborts the import.
func (imp *Importer) Import(ctx context.Context, dir string) (*Stats, error) {
	files, err := fit.FindFiles(dir)
	if err != nil {
		return &imp.stats, err
	}
	imp.log.Info("found FIT files", "count", len(files), "dir", dir)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return &imp.stats, err
		}
		if err := imp.importFile(ctx, f); err != nil {
			return &imp.stats, fmt.Errorf("importing %s: %w", filepath.Base(f), err)
		}
	}
	return &imp.stats, nil
}

func (imp *Importer) importFile(ctx context.Context, path string) error {
	acts, err := imp.parse(path)
	if err != nil {
		imp.log.Warn("parse failed", "file", path, "error", err)
		imp.stats.FilesErrored++
		return nil
	}
	if len(acts) == 0 {
		imp.stats.FilesSkipped++
		return nil
	}

	imp.stats.FilesProcessed++
	imp.stats.ActivitiesParsed += len(acts)

	if imp.dryRun {
		for i := range acts {
			if reason := ingest.Validate(&acts[i]); reason != "" {
				imp.stats.ActivitiesRejected++
				imp.stats.RejectedReasons = append(imp.stats.RejectedReasons, reason)
			}
		}
		return nil
	}

	res, err := imp.ingest.IngestActivities(ctx, acts)
	if err != nil {
		return err
	}
	imp.stats.ActivitiesInserted += res.ActivitiesInserted
	imp.stats.ActivitiesSkipped += res.ActivitiesSkipped
	imp.stats.ActivitiesRejected += res.ActivitiesRejected
	imp.stats.RejectedReasons = append(imp.stats.RejectedReasons, res.RejectedReasons...)
	imp.log.Debug("imported file", "file", path, "activities", len(acts), "inserted", res.ActivitiesInserted)
	return nil
}
