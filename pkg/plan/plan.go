package plan

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/quidome/sort-media/pkg/reconcile"
)

// Mode selects how a file reaches its destination.
type Mode string

const (
	ModeCopy Mode = "copy"
	ModeMove Mode = "move"
)

// Operation represents a planned transfer from source to destination.
type Operation struct {
	SourcePath      string
	DestinationPath string
	Mode            Mode

	// DryRun makes the operation report-only.
	DryRun bool

	// Skip is set when the destination already holds an identical file.
	Skip       bool
	SkipReason string
}

// Options configures the Planner.
type Options struct {
	// Lowercase lower-cases the file name part of destinations.
	Lowercase bool

	// SkipIdentical marks an operation as skipped when a file with the
	// same content already exists at a candidate destination.
	SkipIdentical bool
}

// Prefix returns the "HH:MM:SS " prefix used for files taken at t.
func Prefix(t time.Time) string {
	return fmt.Sprintf("%02d:%02d:%02d ", t.Hour(), t.Minute(), t.Second())
}

// Dir returns <destRoot>/YEAR/YEAR-MM-DD for t.
func Dir(destRoot string, t time.Time) string {
	return filepath.Join(destRoot,
		fmt.Sprintf("%d", t.Year()),
		fmt.Sprintf("%d-%02d-%02d", t.Year(), t.Month(), t.Day()))
}

// Name returns the destination file name for filename taken at t.
// A name that already carries the prefix for t is not prefixed again.
func Name(filename string, t time.Time) string {
	prefix := Prefix(t)
	if strings.HasPrefix(filename, prefix) {
		return filename
	}
	return prefix + filename
}

// Destination computes the destination path for a file based on its creation date.
//
// The path follows the pattern: <destRoot>/YEAR/YEAR-MM-DD/HH:MM:SS <filename>
// If that path is already in claimed, or taken reports it as taken, a
// suffix _N is appended before the extension, where N starts at 1. The
// returned path is added to claimed.
func Destination(destRoot string, filename string, createdAt time.Time, claimed map[string]bool, taken func(string) bool) string {
	if claimed == nil {
		claimed = make(map[string]bool)
	}
	path := resolveCollision(Dir(destRoot, createdAt), Name(filename, createdAt), func(p string) bool {
		return claimed[p] || (taken != nil && taken(p))
	})
	claimed[path] = true
	return path
}

// resolveCollision returns the first candidate that is not taken, appending _N before the extension if needed.
func resolveCollision(dir string, filename string, taken func(string) bool) string {
	basePath := filepath.Join(dir, filename)
	if !taken(basePath) {
		return basePath
	}

	ext := filepath.Ext(filename)
	nameWithoutExt := strings.TrimSuffix(filename, ext)

	for i := 1; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", nameWithoutExt, i, ext))
		if !taken(candidate) {
			return candidate
		}
	}
}

// Planner plans the destinations of one run. It owns the set of
// destinations claimed so far, so two sources never share a destination.
type Planner struct {
	fs       afero.Fs
	destRoot string
	mode     Mode
	dryRun   bool
	opts     Options

	// claimed maps each planned destination to the source it was planned for.
	claimed map[string]string
}

func NewPlanner(fsys afero.Fs, destRoot string, mode Mode, dryRun bool, opts Options) *Planner {
	return &Planner{
		fs:       fsys,
		destRoot: destRoot,
		mode:     mode,
		dryRun:   dryRun,
		opts:     opts,
		claimed:  make(map[string]string),
	}
}

// Plan computes the operation for source, taken at createdAt.
//
// Candidates that exist on disk or were planned earlier in the run are
// skipped over. With SkipIdentical, a candidate holding the same content
// as source ends the search and the operation is marked Skip; this also
// holds for candidates planned earlier in the run but not written yet.
func (p *Planner) Plan(source string, createdAt time.Time) (Operation, error) {
	filename := filepath.Base(source)
	if p.opts.Lowercase {
		filename = strings.ToLower(filename)
	}

	op := Operation{SourcePath: source, Mode: p.mode, DryRun: p.dryRun}

	var checkErr error
	taken := func(candidate string) bool {
		if checkErr != nil {
			return false
		}

		identical := false
		claimedBy, claimed := p.claimed[candidate]
		switch {
		case claimed && !p.opts.SkipIdentical:
			return true
		case claimed:
			identical, checkErr = p.matchesClaim(source, candidate, claimedBy)
			if checkErr != nil {
				return false
			}
			if !identical {
				return true
			}
		default:
			state, err := reconcile.Check(p.fs, source, candidate, p.opts.SkipIdentical)
			if err != nil {
				checkErr = err
				return false
			}
			if state == reconcile.Occupied {
				return true
			}
			identical = state == reconcile.Identical
		}

		if identical {
			op.Skip = true
			op.SkipReason = "identical file already at " + candidate
		}
		return false
	}

	op.DestinationPath = resolveCollision(Dir(p.destRoot, createdAt), Name(filename, createdAt), taken)
	if checkErr != nil {
		return Operation{}, checkErr
	}
	if !op.Skip {
		p.claimed[op.DestinationPath] = source
	}
	return op, nil
}

// matchesClaim reports whether source has the same content as the file
// planned for candidate. The written candidate is compared when present,
// otherwise the source it was planned for.
func (p *Planner) matchesClaim(source, candidate, claimedBy string) (bool, error) {
	state, err := reconcile.Check(p.fs, source, candidate, true)
	if err != nil {
		return false, err
	}
	switch state {
	case reconcile.Identical:
		return true, nil
	case reconcile.Occupied:
		return false, nil
	}

	same, err := reconcile.FilesAreIdentical(p.fs, source, claimedBy)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return same, err
}
