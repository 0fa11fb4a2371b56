package createdat

import (
	"io"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// ImageExtractor reads EXIF timestamps from JPEG and TIFF streams.
type ImageExtractor struct {
	// Location is used for EXIF timestamps, which carry no timezone.
	// If nil, time.Local is used.
	Location *time.Location
}

func (e ImageExtractor) CreatedAt(path string, r io.Reader) (time.Time, bool, error) {
	x, err := exif.Decode(r)
	if err != nil {
		// exif.Decode does not hand back partially decoded data, so any
		// decode failure means there is nothing to use.
		return time.Time{}, false, nil
	}

	loc := e.Location
	if loc == nil {
		loc = time.Local
	}

	// Prefer DateTimeOriginal, then DateTimeDigitized, then DateTime.
	for _, tag := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTimeDigitized, exif.DateTime} {
		if tm, ok := exifTimeFromTag(x, tag, loc); ok {
			return tm, true, nil
		}
	}

	return time.Time{}, false, nil
}

func exifTimeFromTag(x *exif.Exif, tag exif.FieldName, loc *time.Location) (time.Time, bool) {
	f, err := x.Get(tag)
	if err != nil {
		return time.Time{}, false
	}

	s, err := f.StringVal()
	if err != nil {
		return time.Time{}, false
	}

	// EXIF DateTime format: "2006:01:02 15:04:05".
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	tm, err := time.ParseInLocation(exifLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}

	return tm, true
}

const exifLayout = "2006:01:02 15:04:05"
