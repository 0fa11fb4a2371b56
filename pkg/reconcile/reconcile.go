// Package reconcile compares planned destinations with what is already on disk.
package reconcile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/spf13/afero"
)

const chunkBytes = 64 * 1024

// State describes a candidate destination path.
type State int

const (
	// Free means nothing exists at the path.
	Free State = iota
	// Occupied means a different file (or a directory, or a link) exists at the path.
	Occupied
	// Identical means a regular file with the same content as the source exists at the path.
	Identical
)

func (s State) String() string {
	switch s {
	case Free:
		return "free"
	case Identical:
		return "identical"
	default:
		return "occupied"
	}
}

// Check reports the state of candidate. Content is only compared when
// compare is set; otherwise any existing entry is Occupied.
func Check(fsys afero.Fs, source, candidate string, compare bool) (State, error) {
	info, err := lstat(fsys, candidate)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Free, nil
		}
		return Occupied, fmt.Errorf("stat %s: %w", candidate, err)
	}
	if !compare || !info.Mode().IsRegular() {
		return Occupied, nil
	}

	same, err := FilesAreIdentical(fsys, source, candidate)
	if err != nil {
		return Occupied, err
	}
	if same {
		return Identical, nil
	}
	return Occupied, nil
}

// FilesAreIdentical compares size and then content of two files.
func FilesAreIdentical(fsys afero.Fs, path1, path2 string) (bool, error) {
	info1, err := fsys.Stat(path1)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path1, err)
	}
	info2, err := fsys.Stat(path2)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path2, err)
	}
	if info1.Size() != info2.Size() {
		return false, nil
	}

	f1, err := fsys.Open(path1)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path1, err)
	}
	defer f1.Close()
	f2, err := fsys.Open(path2)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path2, err)
	}
	defer f2.Close()

	buf1 := make([]byte, chunkBytes)
	buf2 := make([]byte, chunkBytes)
	for {
		n1, err1 := io.ReadFull(f1, buf1)
		n2, err2 := io.ReadFull(f2, buf2)
		if err1 != nil && err1 != io.EOF && err1 != io.ErrUnexpectedEOF {
			return false, fmt.Errorf("read %s: %w", path1, err1)
		}
		if err2 != nil && err2 != io.EOF && err2 != io.ErrUnexpectedEOF {
			return false, fmt.Errorf("read %s: %w", path2, err2)
		}
		if n1 != n2 || !bytes.Equal(buf1[:n1], buf2[:n2]) {
			return false, nil
		}
		if err1 != nil || err2 != nil {
			// Both hit the end in the same chunk.
			return err1 != nil && err2 != nil, nil
		}
	}
}

func lstat(fsys afero.Fs, path string) (fs.FileInfo, error) {
	if l, ok := fsys.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return fsys.Stat(path)
}
