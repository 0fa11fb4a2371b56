package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Kind classifies a file by extension.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindOther Kind = "other"
)

type Options struct {
	MaxDepth int

	// MediaOnly skips files whose kind is KindOther.
	MediaOnly bool

	// Exclude lists directories that are not descended into.
	Exclude []string

	PhotoExtensions []string
	VideoExtensions []string
}

func DefaultOptions() Options {
	return Options{
		MaxDepth: -1,
		PhotoExtensions: []string{
			".jpg", ".jpeg", ".png", ".gif", ".webp", ".heic", ".tif", ".tiff", ".bmp",
		},
		VideoExtensions: []string{
			".mp4", ".mov", ".m4v", ".mkv", ".avi", ".mpg", ".webm", ".mts", ".3gp",
		},
	}
}

// Record is one regular file discovered under the scan root.
type Record struct {
	Path    string
	Name    string
	Kind    Kind
	ModTime time.Time
}

// Skip is an entry that was not turned into a Record.
//
// Err is nil for entries skipped on purpose (symlinks, special files,
// non-media files) and set when the entry could not be read.
type Skip struct {
	Path   string
	Reason string
	Err    error
}

type Result struct {
	Records []Record
	Skipped []Skip
}

// Errors returns the skips that were caused by read errors.
func (r Result) Errors() []Skip {
	var out []Skip
	for _, s := range r.Skipped {
		if s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// Walk visits root recursively in lexical order.
//
// An error is returned only when root itself cannot be read; problems with
// entries below root are reported in Result.Skipped.
func Walk(fsys afero.Fs, root string, opts Options) (Result, error) {
	if opts.MaxDepth < -1 {
		return Result{}, fs.ErrInvalid
	}

	root = filepath.Clean(root)
	photoExts := normalizeExts(opts.PhotoExtensions)
	videoExts := normalizeExts(opts.VideoExtensions)
	excluded := make(map[string]bool, len(opts.Exclude))
	for _, p := range opts.Exclude {
		excluded[filepath.Clean(p)] = true
	}

	var res Result

	err := afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			res.Skipped = append(res.Skipped, Skip{Path: path, Reason: "unreadable", Err: err})
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		if info.IsDir() {
			if rel == "." {
				return nil
			}
			if excluded[path] {
				return filepath.SkipDir
			}
			if opts.MaxDepth >= 0 && depth(rel) > opts.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if opts.MaxDepth >= 0 && depth(rel) > opts.MaxDepth {
			return nil
		}

		switch mode := info.Mode(); {
		case mode&fs.ModeSymlink != 0:
			res.Skipped = append(res.Skipped, Skip{Path: path, Reason: "symlink"})
			return nil
		case !mode.IsRegular():
			res.Skipped = append(res.Skipped, Skip{Path: path, Reason: "special file"})
			return nil
		}

		kind := KindOther
		ext := strings.ToLower(filepath.Ext(path))
		switch {
		case photoExts[ext]:
			kind = KindImage
		case videoExts[ext]:
			kind = KindVideo
		}
		if opts.MediaOnly && kind == KindOther {
			res.Skipped = append(res.Skipped, Skip{Path: path, Reason: "not a media file"})
			return nil
		}

		res.Records = append(res.Records, Record{
			Path:    path,
			Name:    info.Name(),
			Kind:    kind,
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	return res, nil
}

func normalizeExts(exts []string) map[string]bool {
	m := make(map[string]bool, len(exts))
	for _, ext := range exts {
		e := strings.TrimSpace(strings.ToLower(ext))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		m[e] = true
	}
	return m
}

func depth(rel string) int {
	rel = filepath.Clean(rel)
	if rel == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/")
}
