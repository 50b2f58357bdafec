// Package upload pushes FIT exports from a local directory to a remote
// PacePlan server, remembering what was already sent.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/claude/paceplan/internal/ingest/fit"
	"github.com/claude/paceplan/internal/models"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	ActivitiesSent     int
	ActivitiesInserted int64
	ActivitiesRejected int
	Batches            int

	RejectedReasons []string
}

// Uploader walks a directory of FIT files, decodes them and POSTs the
// activities to the PacePlan server in batches.
type Uploader struct {
	client    *Client
	state     *StateDB
	dir       string
	dryRun    bool
	batchSize int
	log       *slog.Logger
	stats     Stats

	parse func(path string) ([]models.Activity, error)

	pending      []models.Activity
	pendingFiles []fileInfo
}

// fileInfo tracks a file's metadata for state DB operations.
type fileInfo struct {
	relPath    string
	size       int64
	hash       string
	activities int
}

// New creates a new Uploader. client may be nil in dry-run mode.
func New(client *Client, state *StateDB, dir string, dryRun bool, batchSize int, log *slog.Logger) *Uploader {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Uploader{
		client:    client,
		state:     state,
		dir:       dir,
		dryRun:    dryRun,
		batchSize: batchSize,
		log:       log,
		parse:     fit.ReadFile,
	}
}

// Run executes the upload pipeline. Files are only marked uploaded after the
// batch carrying their activities was accepted.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	files, err := fit.FindFiles(u.dir)
	if err != nil {
		return &u.stats, err
	}

	for _, f := range files {
		u.stats.FilesTotal++
		if err := u.processFile(ctx, f); err != nil {
			return &u.stats, err
		}
		if len(u.pending) >= u.batchSize {
			if err := u.flush(ctx); err != nil {
				return &u.stats, err
			}
		}
	}
	if err := u.flush(ctx); err != nil {
		return &u.stats, err
	}
	return &u.stats, nil
}

func (u *Uploader) processFile(ctx context.Context, f string) error {
	relPath, _ := filepath.Rel(u.dir, f)
	info, err := os.Stat(f)
	if err != nil {
		u.log.Warn("stat failed", "file", f, "error", err)
		u.stats.FilesErrored++
		return nil
	}

	hash, err := HashFile(f)
	if err != nil {
		u.log.Warn("hash failed", "file", f, "error", err)
		u.stats.FilesErrored++
		return nil
	}

	uploaded, err := u.state.IsUploaded(ctx, relPath, info.Size(), hash)
	if err != nil {
		return fmt.Errorf("checking state for %s: %w", relPath, err)
	}
	if uploaded {
		u.stats.FilesSkipped++
		return nil
	}

	acts, err := u.parse(f)
	if err != nil {
		u.log.Warn("parse failed", "file", f, "error", err)
		u.stats.FilesErrored++
		return nil
	}
	if len(acts) == 0 {
		u.stats.FilesSkipped++
		// Mark empty files as uploaded so we don't re-check them
		if !u.dryRun {
			_ = u.state.MarkUploaded(ctx, relPath, info.Size(), hash, 0)
		}
		return nil
	}

	u.pending = append(u.pending, acts...)
	u.pendingFiles = append(u.pendingFiles, fileInfo{relPath: relPath, size: info.Size(), hash: hash, activities: len(acts)})
	return nil
}

func (u *Uploader) flush(ctx context.Context) error {
	if len(u.pending) == 0 {
		return nil
	}
	batch, files := u.pending, u.pendingFiles
	u.pending, u.pendingFiles = nil, nil

	u.stats.Batches++
	u.stats.ActivitiesSent += len(batch)

	if u.dryRun {
		u.log.Info("dry-run: would send", "activities", len(batch), "files", len(files))
		u.stats.FilesUploaded += len(files)
		return nil
	}

	res, err := u.client.SendActivities(ctx, batch)
	if err != nil {
		return fmt.Errorf("sending batch of %d activities: %w", len(batch), err)
	}
	u.stats.ActivitiesInserted += res.ActivitiesInserted
	u.stats.ActivitiesRejected += res.ActivitiesRejected
	u.stats.RejectedReasons = append(u.stats.RejectedReasons, res.RejectedReasons...)

	for _, fi := range files {
		if err := u.state.MarkUploaded(ctx, fi.relPath, fi.size, fi.hash, fi.activities); err != nil {
			u.log.Warn("failed to mark uploaded", "file", fi.relPath, "error", err)
		}
		u.stats.FilesUploaded++
	}

	u.log.Info("uploaded batch",
		"files", len(files),
		"activities", len(batch),
		"inserted", res.ActivitiesInserted,
	)
	return nil
}
