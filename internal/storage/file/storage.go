package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aliskhannn/prok/internal/model"
)

const (
	dirPerm     fs.FileMode = 0o755 // owner rwx, group/other r-x
	filePerm    fs.FileMode = 0o644 // owner rw, group/other r, never executable
	stagingDir              = ".staging"
	stagingPerm fs.FileMode = 0o700
)

// Storage provides a file-based storage backend.
// It stores files under {basePath}/{subdir}/{filename} on the local filesystem.
type Storage struct {
	basePath string
}

// NewStorage creates a new Storage instance with the given basePath.
// The basePath defines the root directory where files will be stored.
func NewStorage(basePath string) *Storage {
	return &Storage{basePath: filepath.Clean(basePath)}
}

// Root returns the storage root directory.
func (s *Storage) Root() string {
	return s.basePath
}

// Path joins the root with a subfolder tag and a stored name. Both parts
// are checked against the namespace and name grammars so that the result
// can never leave the root.
func (s *Storage) Path(subdir, filename string) (string, error) {
	if !model.SubfolderPattern.MatchString(subdir) {
		return "", fmt.Errorf("invalid subfolder %q", subdir)
	}
	if !model.StoredNamePattern.MatchString(filename) {
		return "", fmt.Errorf("invalid filename %q", filename)
	}

	return filepath.Join(s.basePath, subdir, filename), nil
}

// Save stores src in the given subdirectory (e.g. "profile" or "posts")
// under filename. The content is written to a temporary file in the same
// directory and renamed into place, so readers never observe a partial file.
func (s *Storage) Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error) {
	dstPath, err := s.Path(subdir, filename)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(dstPath)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", &model.FilesystemError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", &model.FilesystemError{Op: "create", Path: dir, Err: err}
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: src}); err != nil {
		_ = tmp.Close()
		return "", &model.FilesystemError{Op: "write", Path: dstPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", &model.FilesystemError{Op: "close", Path: dstPath, Err: err}
	}
	if err := os.Chmod(tmpPath, filePerm); err != nil {
		return "", &model.FilesystemError{Op: "chmod", Path: dstPath, Err: err}
	}
	if err := os.Rename(tmpPath, dstPath); err != nil {
		return "", &model.FilesystemError{Op: "rename", Path: dstPath, Err: err}
	}
	committed = true

	return dstPath, nil
}

// Stage copies src into the private staging area and returns its path with
// a cleanup func that removes it. The cleanup func is safe to call more
// than once.
func (s *Storage) Stage(ctx context.Context, src io.Reader) (string, func(), error) {
	dir := filepath.Join(s.basePath, stagingDir)
	if err := os.MkdirAll(dir, stagingPerm); err != nil {
		return "", nil, &model.FilesystemError{Op: "mkdir", Path: dir, Err: err}
	}

	f, err := os.CreateTemp(dir, "stage-*")
	if err != nil {
		return "", nil, &model.FilesystemError{Op: "create", Path: dir, Err: err}
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := io.Copy(f, &ctxReader{ctx: ctx, r: src}); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, &model.FilesystemError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, &model.FilesystemError{Op: "close", Path: path, Err: err}
	}

	return path, cleanup, nil
}

// Load opens the file at path and returns a reader.
func (s *Storage) Load(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &model.FilesystemError{Op: "open", Path: path, Err: err}
	}

	return f, nil
}

// Open opens a stored file by subfolder and name.
func (s *Storage) Open(subdir, filename string) (*os.File, error) {
	path, err := s.Path(subdir, filename)
	if err != nil {
		return nil, err
	}

	return os.Open(path)
}

// Delete removes the file from storage. A missing file is not an error.
func (s *Storage) Delete(_ context.Context, subdir, filename string) error {
	path, err := s.Path(subdir, filename)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &model.FilesystemError{Op: "remove", Path: path, Err: err}
	}

	return nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
