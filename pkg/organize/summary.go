package organize

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Failure is a file that could not be organized.
type Failure struct {
	Path   string
	Reason string
}

// Skip is a file that was left alone on purpose.
type Skip struct {
	Path   string
	Reason string
}

// Summary counts the outcomes of one run. Every processed entry ends up in
// exactly one of Copied, Moved, Planned, Skipped or Failed.
type Summary struct {
	Processed int
	Copied    int
	Moved     int
	Planned   int
	Skipped   int
	Failed    int

	// Bytes is the size of the files copied, moved or planned.
	Bytes int64

	Failures []Failure
	Skips    []Skip
}

func (s *Summary) fail(path string, reason string) {
	s.Processed++
	s.Failed++
	s.Failures = append(s.Failures, Failure{Path: path, Reason: reason})
}

func (s *Summary) skip(path string, reason string) {
	s.Processed++
	s.Skipped++
	s.Skips = append(s.Skips, Skip{Path: path, Reason: reason})
}

// AllFailed reports whether there was work and none of it succeeded.
func (s Summary) AllFailed() bool {
	return s.Failed > 0 && s.Failed == s.Processed
}

func (s Summary) String() string {
	return fmt.Sprintf("processed %d: copied %d, moved %d, planned %d, skipped %d, failed %d (%s)",
		s.Processed, s.Copied, s.Moved, s.Planned, s.Skipped, s.Failed, humanize.Bytes(uint64(s.Bytes)))
}

// Report writes the summary line to out and logs a warning per failure.
func (s Summary) Report(out io.Writer, logger *log.Logger) {
	fmt.Fprintln(out, s.String())
	for _, f := range s.Failures {
		logger.Warn("failed", "file", f.Path, "err", f.Reason)
	}
}
