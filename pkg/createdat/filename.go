package createdat

import (
	"regexp"
	"strings"
	"time"
)

// filenamePatterns maps camera and phone naming schemes to the layout of
// the captured groups, joined with no separator.
var filenamePatterns = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`(?i)^(?:IMG|VID)_(\d{8})_(\d{6})`), "20060102150405"},
	{regexp.MustCompile(`(?i)^PXL_(\d{8})_(\d{6})\d{3,}`), "20060102150405"},
	{regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})[ _](\d{2})\.(\d{2})\.(\d{2})`), "20060102150405"},
	{regexp.MustCompile(`(?i)^IMG-(\d{8})-WA\d+`), "20060102"},
	{regexp.MustCompile(`(?i)^Screenshot_(\d{4})-(\d{2})-(\d{2})-(\d{2})-(\d{2})-(\d{2})`), "20060102150405"},
}

// parseFromFilename extracts a timestamp from well-known file naming schemes.
// Impossible dates such as month 13 are rejected.
func parseFromFilename(filename string, loc *time.Location) (time.Time, bool) {
	for _, p := range filenamePatterns {
		m := p.re.FindStringSubmatch(filename)
		if m == nil {
			continue
		}
		tm, err := time.ParseInLocation(p.layout, strings.Join(m[1:], ""), loc)
		if err != nil {
			return time.Time{}, false
		}
		return tm, true
	}
	return time.Time{}, false
}
