package createdat

import (
	"io"
	"time"

	"github.com/quidome/sort-media/pkg/scan"
)

// MetadataExtractor extracts an embedded creation timestamp from a media stream.
//
// Implementations should return (t, true, nil) when a timestamp is found.
// If no timestamp exists, return (time.Time{}, false, nil).
// Errors are treated as "not available" by Resolve.
type MetadataExtractor interface {
	CreatedAt(path string, r io.Reader) (time.Time, bool, error)
}

// NoneAvailable never finds a timestamp.
type NoneAvailable struct{}

func (NoneAvailable) CreatedAt(string, io.Reader) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

// Chain asks each extractor in turn and returns the first timestamp found.
//
// Extractors after the first one receive a fresh reader only if the
// stream can seek back to the start; otherwise they are expected to work
// from the path alone.
type Chain []MetadataExtractor

func (c Chain) CreatedAt(path string, r io.Reader) (time.Time, bool, error) {
	var firstErr error
	for i, e := range c {
		if i > 0 {
			if s, ok := r.(io.Seeker); ok {
				if _, err := s.Seek(0, io.SeekStart); err != nil {
					return time.Time{}, false, err
				}
			}
		}
		t, ok, err := e.CreatedAt(path, r)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if err == nil && ok {
			return t, true, nil
		}
	}
	return time.Time{}, false, firstErr
}

// Extractors selects the extractor used for each kind of file.
// Nil fields fall back to the built-in extractor for that kind.
type Extractors struct {
	Image MetadataExtractor
	Video MetadataExtractor
	Other MetadataExtractor

	// Fallback, when set, is consulted after the per-kind extractor
	// for every kind.
	Fallback MetadataExtractor
}

// For returns the extractor for kind.
func (e Extractors) For(kind scan.Kind, loc *time.Location) MetadataExtractor {
	var primary MetadataExtractor
	switch kind {
	case scan.KindImage:
		primary = e.Image
		if primary == nil {
			primary = ImageExtractor{Location: loc}
		}
	case scan.KindVideo:
		primary = e.Video
		if primary == nil {
			primary = VideoExtractor{Location: loc}
		}
	default:
		primary = e.Other
		if primary == nil {
			primary = NoneAvailable{}
		}
	}

	if e.Fallback == nil {
		return primary
	}
	if _, none := primary.(NoneAvailable); none {
		return e.Fallback
	}
	return Chain{primary, e.Fallback}
}
