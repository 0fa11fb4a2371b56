package createdat

import (
	"time"

	"github.com/spf13/afero"

	"github.com/quidome/sort-media/pkg/scan"
)

// Source describes where a CreatedAt timestamp was derived from.
//
// The priority order is:
//  1. metadata
//  2. filename (only when Options.FilenameDates is set)
//  3. mtime
type Source string

const (
	SourceMetadata Source = "metadata"
	SourceFilename Source = "filename"
	SourceMtime    Source = "mtime"
)

// Result is the resolved timestamp of one file.
type Result struct {
	// CreatedAt is Original with the run's Shift applied.
	CreatedAt time.Time

	// Original is the timestamp before shifting.
	Original time.Time

	Source Source
}

// Options configures Resolve.
type Options struct {
	// Location is used for timestamps that carry no timezone.
	// If nil, time.Local is used.
	Location *time.Location

	Extractors Extractors

	// FilenameDates enables timestamps parsed from camera file names
	// as a fallback between metadata and mtime.
	FilenameDates bool
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

// Resolve returns the shifted capture timestamp of rec. It never fails:
// when metadata cannot be read for any reason the file's modification
// time recorded during the scan is used.
func Resolve(fsys afero.Fs, rec scan.Record, shift Shift, opts Options) Result {
	loc := opts.location()

	base, source := rec.ModTime.In(loc), SourceMtime
	if t, ok := extract(fsys, rec, opts.Extractors.For(rec.Kind, loc)); ok {
		base, source = t, SourceMetadata
	} else if opts.FilenameDates {
		if t, ok := parseFromFilename(rec.Name, loc); ok {
			base, source = t, SourceFilename
		}
	}

	return Result{
		CreatedAt: shift.Apply(base),
		Original:  base,
		Source:    source,
	}
}

// extract treats every failure, including a panicking decoder, as "not available".
func extract(fsys afero.Fs, rec scan.Record, e MetadataExtractor) (t time.Time, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t, ok = time.Time{}, false
		}
	}()

	if _, none := e.(NoneAvailable); none {
		return time.Time{}, false
	}

	f, err := fsys.Open(rec.Path)
	if err != nil {
		return time.Time{}, false
	}
	defer f.Close()

	t, ok, err = e.CreatedAt(rec.Path, f)
	if err != nil || !ok || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}
