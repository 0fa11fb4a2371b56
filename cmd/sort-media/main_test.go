package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/quidome/sort-media/pkg/createdat"
)

func TestRootCommand_PrintsVersion(t *testing.T) {
	cmd := newRootCmd()

	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !strings.Contains(out.String(), version) {
		t.Fatalf("expected output to include version, got %q", out.String())
	}
}

func TestRootCommand_RequiresTwoArgs(t *testing.T) {
	cmd := newRootCmd()

	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"only-source"})

	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestRootCommand_CopiesIntoDatedDirectories(t *testing.T) {
	tmpSrc := t.TempDir()
	tmpDst := t.TempDir()

	mtime := time.Date(2020, 6, 7, 8, 9, 10, 0, time.UTC)
	writeFileWithMTime(t, tmpSrc, "holiday.jpg", mtime)

	cmd := newRootCmd()

	stdout := new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{tmpSrc, tmpDst})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	dest := expectedPath(tmpDst, "holiday.jpg", mtime)
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), stdout.String())
	}
	if want := "copy " + filepath.Join(tmpSrc, "holiday.jpg") + " -> " + dest; lines[0] != want {
		t.Fatalf("unexpected line: %q, want %q", lines[0], want)
	}
	if !strings.HasPrefix(lines[1], "processed 1: copied 1, moved 0, planned 0, skipped 0, failed 0") {
		t.Fatalf("unexpected summary: %q", lines[1])
	}

	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected destination file to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpSrc, "holiday.jpg")); err != nil {
		t.Fatalf("expected source file to remain: %v", err)
	}
}

func TestRootCommand_DryRunWritesNothing(t *testing.T) {
	tmpSrc := t.TempDir()
	tmpDst := t.TempDir()

	mtime := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	writeFileWithMTime(t, tmpSrc, "a.jpg", mtime)
	writeFileWithMTime(t, tmpSrc, "sub/b.mp4", mtime)

	cmd := newRootCmd()

	stdout := new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--dry-run", "--move", tmpSrc, tmpDst})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "move "+filepath.Join(tmpSrc, "a.jpg")+" -> "+expectedPath(tmpDst, "a.jpg", mtime)) {
		t.Fatalf("missing planned line in %q", output)
	}
	if !strings.Contains(output, "planned 2") {
		t.Fatalf("unexpected summary in %q", output)
	}
	if strings.Contains(output, "remove empty dir") {
		t.Fatalf("dry run must not report removed directories: %q", output)
	}

	entries, err := os.ReadDir(tmpDst)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("dry run wrote %d entries to the destination", len(entries))
	}
	if _, err := os.Stat(filepath.Join(tmpSrc, "sub", "b.mp4")); err != nil {
		t.Fatalf("dry run touched the source: %v", err)
	}
}

func TestRootCommand_MoveWithShift(t *testing.T) {
	tmpSrc := t.TempDir()
	tmpDst := t.TempDir()

	mtime := time.Date(2020, 5, 3, 14, 22, 10, 0, time.UTC)
	writeFileWithMTime(t, tmpSrc, "album/IMG_0001.JPG", mtime)

	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--move", "--quiet", "--year-shift=-1", tmpSrc, tmpDst})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	dest := expectedPath(tmpDst, "IMG_0001.JPG", createdat.Shift{Years: -1}.Apply(mtime.In(time.Local)))
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected %s to exist: %v", dest, err)
	}
	if _, err := os.Stat(filepath.Join(tmpSrc, "album")); !os.IsNotExist(err) {
		t.Fatalf("expected emptied source directory to be removed, stat err = %v", err)
	}
	if _, err := os.Stat(tmpSrc); err != nil {
		t.Fatalf("source root must remain: %v", err)
	}
}

func TestRootCommand_ConfigFileAndFlagOverride(t *testing.T) {
	tmpSrc := t.TempDir()
	tmpDst := t.TempDir()
	tmpCfg := t.TempDir()

	mtime := time.Date(2020, 5, 3, 14, 22, 10, 0, time.UTC)
	writeFileWithMTime(t, tmpSrc, "a.jpg", mtime)

	cfgPath := filepath.Join(tmpCfg, "sort-media.yaml")
	cfg := "move: true\nshift:\n  years: -1\n  days: 1\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--config", cfgPath, "--year-shift=-2", tmpSrc, tmpDst})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	dest := expectedPath(tmpDst, "a.jpg", createdat.Shift{Years: -2, Days: 1}.Apply(mtime.In(time.Local)))
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected %s to exist: %v", dest, err)
	}
	if _, err := os.Stat(filepath.Join(tmpSrc, "a.jpg")); !os.IsNotExist(err) {
		t.Fatalf("move from the config file was not applied")
	}
}

func TestRootCommand_FatalErrors(t *testing.T) {
	tmpSrc := t.TempDir()
	tmpDst := t.TempDir()

	badCfg := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(badCfg, []byte("no_such_key: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing source", args: []string{filepath.Join(tmpSrc, "none"), tmpDst}},
		{name: "missing destination", args: []string{tmpSrc, filepath.Join(tmpDst, "none")}},
		{name: "invalid chmod", args: []string{"--chmod=rwx", tmpSrc, tmpDst}},
		{name: "invalid max depth", args: []string{"--max-depth=-5", tmpSrc, tmpDst}},
		{name: "unknown config key", args: []string{"--config", badCfg, tmpSrc, tmpDst}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetOut(new(bytes.Buffer))
			cmd.SetErr(new(bytes.Buffer))
			cmd.SetArgs(tt.args)

			if err := cmd.Execute(); err == nil {
				t.Fatalf("expected error, got nil")
			}
		})
	}
}

// expectedPath mirrors the destination layout for a file taken at t,
// rendered in the local timezone like the command does.
func expectedPath(destRoot, name string, t time.Time) string {
	local := t.In(time.Local)
	return filepath.Join(destRoot, local.Format("2006"), local.Format("2006-01-02"), local.Format("15:04:05")+" "+name)
}

func writeFile(t *testing.T, root string, rel string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

func writeFileWithMTime(t *testing.T, root string, rel string, mtime time.Time) {
	t.Helper()

	writeFile(t, root, rel)
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}
