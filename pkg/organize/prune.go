package organize

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

// pruneEmptyDirs removes the directories in dirs, and their ancestors below
// root, that are empty. Deeper directories go first so a parent emptied by
// removing its children is removed as well. root itself is never removed.
func pruneEmptyDirs(fsys afero.Fs, root string, dirs map[string]bool, out io.Writer, quiet bool, logger *log.Logger) {
	root = filepath.Clean(root)

	candidates := make(map[string]bool)
	for dir := range dirs {
		for d := filepath.Clean(dir); d != root; d = filepath.Dir(d) {
			if _, ok := within(root, d); !ok {
				break
			}
			candidates[d] = true
		}
	}

	ordered := make([]string, 0, len(candidates))
	for d := range candidates {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool {
		di := strings.Count(ordered[i], string(filepath.Separator))
		dj := strings.Count(ordered[j], string(filepath.Separator))
		if di != dj {
			return di > dj
		}
		return ordered[i] < ordered[j]
	})

	for _, d := range ordered {
		empty, err := afero.IsEmpty(fsys, d)
		if err != nil {
			logger.Debug("cannot inspect directory", "dir", d, "err", err)
			continue
		}
		if !empty {
			continue
		}
		if err := fsys.Remove(d); err != nil {
			logger.Warn("cannot remove empty directory", "dir", d, "err", err)
			continue
		}
		if !quiet {
			fmt.Fprintf(out, "remove empty dir %s\n", d)
		}
	}
}
