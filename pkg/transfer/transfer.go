package transfer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/djherbis/times"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/quidome/sort-media/pkg/plan"
	"github.com/quidome/sort-media/pkg/reconcile"
)

var (
	// ErrDestinationExists is returned when the destination appeared after planning.
	ErrDestinationExists = errors.New("destination file already exists")

	// ErrShortWrite is returned when fewer bytes were written than the source holds.
	ErrShortWrite = errors.New("destination is shorter than source")

	// ErrVerify is returned when the written content differs from the source.
	ErrVerify = errors.New("destination content differs from source")
)

// Result contains the outcome of a transfer.
type Result struct {
	Operation plan.Operation
	Success   bool
	Skipped   bool
	Bytes     int64
	Error     error
}

// Options configures the transfer behavior.
type Options struct {
	// FileMode sets the permissions of created files.
	// Zero keeps the source permissions.
	FileMode os.FileMode

	// Verify compares the written content with the source after a copy.
	// Moves that cannot rename always verify.
	Verify bool
}

// Transfer performs a single operation.
//
// It will:
// - Create destination directories if they don't exist
// - Never overwrite existing files
// - Never remove a moved source before its content is in place
// - Leave the filesystem untouched for dry runs and skipped operations
func Transfer(fsys afero.Fs, op plan.Operation, opts Options) Result {
	result := Result{Operation: op}

	if op.Skip {
		result.Skipped = true
		return result
	}

	info, err := fsys.Stat(op.SourcePath)
	if err != nil {
		result.Error = fmt.Errorf("stat source: %w", err)
		return result
	}
	if !info.Mode().IsRegular() {
		result.Error = fmt.Errorf("source %s is not a regular file", op.SourcePath)
		return result
	}
	result.Bytes = info.Size()

	if op.DryRun {
		result.Success = true
		return result
	}

	if err := fsys.MkdirAll(filepath.Dir(op.DestinationPath), 0o755); err != nil {
		result.Error = fmt.Errorf("create directory: %w", err)
		return result
	}

	switch op.Mode {
	case plan.ModeMove:
		err = moveFile(fsys, op.SourcePath, op.DestinationPath, info, opts)
	default:
		err = copyFile(fsys, op.SourcePath, op.DestinationPath, info, opts, opts.Verify)
	}
	if err != nil {
		result.Error = err
		return result
	}

	result.Success = true
	return result
}

// moveFile renames src when possible and falls back to a verified copy
// followed by removal of src.
func moveFile(fsys afero.Fs, src, dst string, info os.FileInfo, opts Options) error {
	if err := ensureAbsent(fsys, dst); err != nil {
		return err
	}

	if err := fsys.Rename(src, dst); err == nil {
		if opts.FileMode != 0 {
			if err := fsys.Chmod(dst, opts.FileMode); err != nil {
				return fmt.Errorf("chmod: %w", err)
			}
		}
		return nil
	}

	// Rename fails across devices; copy, verify and only then drop the source.
	if err := copyFile(fsys, src, dst, info, opts, true); err != nil {
		return err
	}
	if err := fsys.Remove(src); err != nil {
		return fmt.Errorf("remove source: %w", err)
	}
	return nil
}

// copyFile writes src to a temporary file next to dst and renames it into
// place once it is complete, so dst never holds partial content.
func copyFile(fsys afero.Fs, src, dst string, info os.FileInfo, opts Options, verify bool) error {
	atime := accessTime(fsys, src, info)

	srcFile, err := fsys.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer srcFile.Close()

	mode := opts.FileMode
	if mode == 0 {
		mode = info.Mode().Perm()
	}

	// The temporary name does not grow with dst, which may already be at the name length limit.
	tmp := filepath.Join(filepath.Dir(dst), "."+uuid.NewString()+".part")
	dstFile, err := fsys.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	cleanup := func(err error) error {
		_ = dstFile.Close()
		_ = fsys.Remove(tmp)
		return err
	}

	n, err := io.Copy(dstFile, srcFile)
	if err != nil {
		return cleanup(fmt.Errorf("copy content: %w", err))
	}
	if n != info.Size() {
		return cleanup(fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, n, info.Size()))
	}

	// Ensure data is written to disk
	if err := dstFile.Sync(); err != nil {
		return cleanup(fmt.Errorf("sync: %w", err))
	}
	if err := dstFile.Close(); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("close destination: %w", err)
	}

	if err := finish(fsys, tmp, mode, atime, info.ModTime()); err != nil {
		_ = fsys.Remove(tmp)
		return err
	}

	if verify {
		same, err := reconcile.FilesAreIdentical(fsys, src, tmp)
		if err != nil {
			_ = fsys.Remove(tmp)
			return fmt.Errorf("verify: %w", err)
		}
		if !same {
			_ = fsys.Remove(tmp)
			return ErrVerify
		}
	}

	if err := ensureAbsent(fsys, dst); err != nil {
		_ = fsys.Remove(tmp)
		return err
	}
	if err := fsys.Rename(tmp, dst); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// finish applies permissions and the source's access and modification times.
func finish(fsys afero.Fs, path string, mode os.FileMode, atime, mtime time.Time) error {
	if err := fsys.Chmod(path, mode); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := fsys.Chtimes(path, atime, mtime); err != nil {
		return fmt.Errorf("chtimes: %w", err)
	}
	return nil
}

// accessTime reads the access time on the OS filesystem; elsewhere the
// modification time stands in for it.
func accessTime(fsys afero.Fs, path string, info os.FileInfo) time.Time {
	if _, ok := fsys.(*afero.OsFs); ok {
		if ts, err := times.Stat(path); err == nil {
			return ts.AccessTime()
		}
	}
	return info.ModTime()
}

func ensureAbsent(fsys afero.Fs, path string) error {
	var err error
	if l, ok := fsys.(afero.Lstater); ok {
		_, _, err = l.LstatIfPossible(path)
	} else {
		_, err = fsys.Stat(path)
	}
	switch {
	case err == nil:
		return ErrDestinationExists
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("stat destination: %w", err)
	}
}
