package reconcile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func TestCheck(t *testing.T) {
	fsys := afero.NewMemMapFs()
	write := func(path string, data []byte) {
		t.Helper()
		if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write("/src/a.jpg", []byte("same"))
	write("/dst/same.jpg", []byte("same"))
	write("/dst/other.jpg", []byte("diff"))
	if err := fsys.MkdirAll("/dst/dir.jpg", 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		candidate string
		compare   bool
		want      State
	}{
		{name: "missing is free", candidate: "/dst/none.jpg", compare: true, want: Free},
		{name: "identical content", candidate: "/dst/same.jpg", compare: true, want: Identical},
		{name: "identical without compare is occupied", candidate: "/dst/same.jpg", compare: false, want: Occupied},
		{name: "different content", candidate: "/dst/other.jpg", compare: true, want: Occupied},
		{name: "directory", candidate: "/dst/dir.jpg", compare: true, want: Occupied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Check(fsys, "/src/a.jpg", tt.candidate, tt.compare)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Check() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheck_DanglingSymlinkIsOccupied(t *testing.T) {
	tmp := t.TempDir()
	link := filepath.Join(tmp, "link.jpg")
	if err := os.Symlink(filepath.Join(tmp, "missing"), link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	got, err := Check(afero.NewOsFs(), filepath.Join(tmp, "src.jpg"), link, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != Occupied {
		t.Fatalf("Check() = %v, want occupied", got)
	}
}

func TestFilesAreIdentical_LargeFiles(t *testing.T) {
	tmp := t.TempDir()
	fsys := afero.NewOsFs()

	big := bytes.Repeat([]byte("0123456789abcdef"), 3*chunkBytes/16+7)
	changed := append([]byte(nil), big...)
	changed[len(changed)-1] ^= 0xff

	p1 := filepath.Join(tmp, "a")
	p2 := filepath.Join(tmp, "b")
	p3 := filepath.Join(tmp, "c")
	for p, data := range map[string][]byte{p1: big, p2: big, p3: changed} {
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	same, err := FilesAreIdentical(fsys, p1, p2)
	if err != nil {
		t.Fatal(err)
	}
	if !same {
		t.Fatalf("expected identical files")
	}

	same, err = FilesAreIdentical(fsys, p1, p3)
	if err != nil {
		t.Fatal(err)
	}
	if same {
		t.Fatalf("expected files to differ in the last byte")
	}
}

func TestFilesAreIdentical_MissingFile(t *testing.T) {
	if _, err := FilesAreIdentical(afero.NewMemMapFs(), "/a", "/b"); err == nil {
		t.Fatalf("expected error, got nil")
	}
}
