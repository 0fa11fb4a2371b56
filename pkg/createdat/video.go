package createdat

import (
	"errors"
	"io"
	"time"

	mp4 "github.com/abema/go-mp4"
)

// appleEpochOffset is the number of seconds between 1904-01-01 00:00:00 UTC,
// the epoch of ISO-BMFF timestamps, and the Unix epoch.
const appleEpochOffset = 2082844800

var errNotSeekable = errors.New("video metadata needs a seekable stream")

// VideoExtractor reads the creation time from the moov/mvhd box of ISO-BMFF
// containers (mp4, mov, m4v, 3gp). Other containers yield no timestamp.
type VideoExtractor struct {
	// Location the UTC creation time is converted to. If nil, time.Local is used.
	Location *time.Location
}

func (e VideoExtractor) CreatedAt(path string, r io.Reader) (time.Time, bool, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		return time.Time{}, false, errNotSeekable
	}

	boxes, err := mp4.ExtractBoxesWithPayload(rs, nil, []mp4.BoxPath{
		{mp4.BoxTypeMoov(), mp4.BoxTypeMvhd()},
	})
	if err != nil {
		return time.Time{}, false, nil
	}

	loc := e.Location
	if loc == nil {
		loc = time.Local
	}

	for _, box := range boxes {
		mvhd, ok := box.Payload.(*mp4.Mvhd)
		if !ok {
			continue
		}

		creationTime := mvhd.GetCreationTime()
		if creationTime == 0 {
			return time.Time{}, false, nil
		}

		t := time.Unix(int64(creationTime)-appleEpochOffset, 0)
		if t.Year() < 1970 {
			return time.Time{}, false, nil
		}
		return t.In(loc), true, nil
	}

	return time.Time{}, false, nil
}
