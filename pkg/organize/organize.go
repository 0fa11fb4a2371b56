// Package organize drives a run: it scans the source tree, resolves the
// capture time of every file, plans its destination and transfers it.
package organize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/quidome/sort-media/pkg/createdat"
	"github.com/quidome/sort-media/pkg/plan"
	"github.com/quidome/sort-media/pkg/scan"
	"github.com/quidome/sort-media/pkg/transfer"
)

// ErrAllFailed is returned by Run when every processed file failed.
var ErrAllFailed = errors.New("no file could be organized")

// Config describes one run.
type Config struct {
	SourceRoot string
	DestRoot   string

	Shift createdat.Shift
	Mode  plan.Mode

	// DryRun reports what would happen without touching the filesystem.
	DryRun bool

	// Quiet suppresses the per-file report lines.
	Quiet bool

	// KeepEmptyDirs keeps source directories emptied by a move.
	KeepEmptyDirs bool

	Scan       scan.Options
	Timestamps createdat.Options
	Plan       plan.Options
	Transfer   transfer.Options

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Validate checks the source and destination roots before any file is
// touched. Outside a dry run the destination must accept new files.
func Validate(fsys afero.Fs, cfg Config) error {
	if err := checkDir(fsys, "source", cfg.SourceRoot); err != nil {
		return err
	}

	f, err := fsys.Open(cfg.SourceRoot)
	if err != nil {
		return fmt.Errorf("source %s is not readable: %w", cfg.SourceRoot, err)
	}
	_, err = f.Readdirnames(1)
	f.Close()
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("source %s is not readable: %w", cfg.SourceRoot, err)
	}

	if err := checkDir(fsys, "destination", cfg.DestRoot); err != nil {
		return err
	}

	src, dst, err := resolveRoots(fsys, cfg.SourceRoot, cfg.DestRoot)
	if err != nil {
		return err
	}
	if src == dst {
		return fmt.Errorf("source and destination are the same directory: %s", src)
	}

	if cfg.DryRun {
		return nil
	}

	check := filepath.Join(cfg.DestRoot, ".sort-media-"+uuid.NewString()+".check")
	cf, err := fsys.OpenFile(check, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("destination %s is not writable: %w", cfg.DestRoot, err)
	}
	cf.Close()
	if err := fsys.Remove(check); err != nil {
		return fmt.Errorf("remove check file: %w", err)
	}
	return nil
}

func checkDir(fsys afero.Fs, what string, path string) error {
	if path == "" {
		return fmt.Errorf("%s directory is required", what)
	}
	info, err := fsys.Stat(path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", what, path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s %s is not a directory", what, path)
	}
	return nil
}

// Run organizes the files below cfg.SourceRoot into cfg.DestRoot.
//
// Per-file problems are recorded in the returned Summary and do not stop
// the run. Run stops between files when ctx is done and returns the
// partial summary with the context error.
func Run(ctx context.Context, fsys afero.Fs, cfg Config, out io.Writer, logger *log.Logger) (Summary, error) {
	var sum Summary

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	srcReal, dstReal, err := resolveRoots(fsys, cfg.SourceRoot, cfg.DestRoot)
	if err != nil {
		return sum, err
	}

	scanOpts := cfg.Scan
	if rel, ok := within(srcReal, dstReal); ok {
		excluded := filepath.Join(cfg.SourceRoot, rel)
		logger.Debug("excluding destination from scan", "dir", excluded)
		scanOpts.Exclude = append(append([]string(nil), scanOpts.Exclude...), excluded)
	}

	res, err := scan.Walk(fsys, cfg.SourceRoot, scanOpts)
	if err != nil {
		return sum, fmt.Errorf("scan %s: %w", cfg.SourceRoot, err)
	}
	logger.Debug("scan finished", "files", len(res.Records), "skipped", len(res.Skipped), "unreadable", len(res.Errors()))

	for _, s := range res.Skipped {
		if s.Err != nil {
			logger.Warn("failed", "file", s.Path, "err", s.Err)
			sum.fail(s.Path, s.Err.Error())
			continue
		}
		logger.Info("skipping", "file", s.Path, "reason", s.Reason)
		sum.skip(s.Path, s.Reason)
	}

	planner := plan.NewPlanner(fsys, cfg.DestRoot, cfg.Mode, cfg.DryRun, cfg.Plan)
	moved := make(map[string]bool)

	for i, rec := range res.Records {
		if err = ctx.Err(); err != nil {
			logger.Warn("interrupted", "remaining", len(res.Records)-i)
			break
		}

		ts := createdat.Resolve(fsys, rec, cfg.Shift, cfg.Timestamps)
		logger.Debug("resolved", "file", rec.Path, "time", ts.CreatedAt, "source", ts.Source, "original", ts.Original)
		if ts.CreatedAt.After(now()) {
			logger.Warn("timestamp is in the future", "file", rec.Path, "time", ts.CreatedAt)
		}

		op, planErr := planner.Plan(rec.Path, ts.CreatedAt)
		if planErr != nil {
			logger.Warn("failed", "file", rec.Path, "err", planErr)
			sum.fail(rec.Path, planErr.Error())
			continue
		}

		r := transfer.Transfer(fsys, op, cfg.Transfer)
		switch {
		case r.Skipped:
			logger.Info("skipping", "file", rec.Path, "reason", op.SkipReason)
			sum.skip(rec.Path, op.SkipReason)
			continue
		case r.Error != nil:
			logger.Warn("failed", "file", rec.Path, "err", r.Error)
			sum.fail(rec.Path, r.Error.Error())
			continue
		}

		if !cfg.Quiet {
			fmt.Fprintf(out, "%s %s -> %s\n", op.Mode, op.SourcePath, op.DestinationPath)
		}

		sum.Processed++
		sum.Bytes += r.Bytes
		switch {
		case op.DryRun:
			sum.Planned++
		case op.Mode == plan.ModeMove:
			sum.Moved++
			moved[filepath.Dir(rec.Path)] = true
		default:
			sum.Copied++
		}
	}

	if len(moved) > 0 && !cfg.KeepEmptyDirs {
		pruneEmptyDirs(fsys, cfg.SourceRoot, moved, out, cfg.Quiet, logger)
	}

	if err != nil {
		return sum, err
	}
	if sum.AllFailed() {
		return sum, ErrAllFailed
	}
	return sum, nil
}

// resolveRoots returns the absolute form of both roots, with symlinks
// evaluated on the OS filesystem.
func resolveRoots(fsys afero.Fs, src, dst string) (string, string, error) {
	resolve := func(p string) (string, error) {
		if _, ok := fsys.(*afero.OsFs); !ok {
			return filepath.Clean(p), nil
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", err
		}
		return filepath.EvalSymlinks(abs)
	}

	s, err := resolve(src)
	if err != nil {
		return "", "", fmt.Errorf("resolve source: %w", err)
	}
	d, err := resolve(dst)
	if err != nil {
		return "", "", fmt.Errorf("resolve destination: %w", err)
	}
	return s, d, nil
}

// within reports whether path lies strictly below root and returns the
// relative path.
func within(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}
