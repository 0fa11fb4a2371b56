package createdat

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/barasher/go-exiftool"
)

// exiftoolTags are tried in order; the first parseable value wins.
var exiftoolTags = []string{"DateTimeOriginal", "CreateDate", "MediaCreateDate", "ModifyDate"}

// ExiftoolExtractor asks a running exiftool process for timestamps.
// It works from the file path, so the reader is ignored.
type ExiftoolExtractor struct {
	et       *exiftool.Exiftool
	location *time.Location
}

// NewExiftoolExtractor starts exiftool. Callers must Close the extractor.
func NewExiftoolExtractor(loc *time.Location) (*ExiftoolExtractor, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("start exiftool: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &ExiftoolExtractor{et: et, location: loc}, nil
}

func (e *ExiftoolExtractor) Close() error {
	return e.et.Close()
}

func (e *ExiftoolExtractor) CreatedAt(path string, _ io.Reader) (time.Time, bool, error) {
	infos := e.et.ExtractMetadata(path)
	if len(infos) != 1 {
		return time.Time{}, false, fmt.Errorf("exiftool returned %d results for %s", len(infos), path)
	}
	if infos[0].Err != nil {
		return time.Time{}, false, infos[0].Err
	}

	for _, tag := range exiftoolTags {
		v, err := infos[0].GetString(tag)
		if err != nil {
			continue
		}
		if tm, ok := parseExiftoolTime(v, e.location); ok {
			return tm, true, nil
		}
	}

	return time.Time{}, false, nil
}

// parseExiftoolTime accepts "2006:01:02 15:04:05" with an optional
// sub-second part and an optional zone suffix.
func parseExiftoolTime(v string, loc *time.Location) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "0000:00:00") {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006:01:02 15:04:05Z07:00", "2006:01:02 15:04:05.999999999Z07:00"} {
		if tm, err := time.Parse(layout, v); err == nil {
			return tm.In(loc), true
		}
	}
	for _, layout := range []string{exifLayout, "2006:01:02 15:04:05.999999999"} {
		if tm, err := time.ParseInLocation(layout, v, loc); err == nil {
			return tm, true
		}
	}
	return time.Time{}, false
}
