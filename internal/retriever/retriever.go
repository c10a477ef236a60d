// Package retriever serves stored images after checking the requested
// name, its location on disk and the caller's right to read it.
package retriever

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/aliskhannn/prok/internal/config"
	"github.com/aliskhannn/prok/internal/model"
)

// Headers are set on every successful image response.
var Headers = map[string]string{
	"Cache-Control":          "public, max-age=3600",
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
}

// userChecker confirms that an authenticated requester still exists.
type userChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Retriever resolves subfolder/filename pairs to stored files.
type Retriever struct {
	root      string
	prefix    string
	namespace model.Namespace
	users     userChecker
}

// New creates a Retriever for the storage root in cfg.
func New(cfg config.Upload, ns model.Namespace, users userChecker) *Retriever {
	return &Retriever{
		root:      filepath.Clean(cfg.StorageRoot),
		prefix:    cfg.SecureFilenamePrefix,
		namespace: ns,
		users:     users,
	}
}

// Resolve opens subfolder/filename for the requester. requester is
// uuid.Nil for anonymous callers. It returns model.ErrNotFound for any name
// that is malformed, was not produced by the upload pipeline or does not
// exist, model.ErrForbidden when the file escapes the storage root or
// cannot be read, and model.ErrUnauthorized when a non-public subfolder is
// requested without a valid requester. The caller must close Object.Body.
func (r *Retriever) Resolve(ctx context.Context, subfolder, filename string, requester uuid.UUID) (*model.Object, error) {
	if !model.SubfolderPattern.MatchString(subfolder) {
		return nil, model.ErrNotFound
	}
	if !model.FilenamePattern.MatchString(filename) {
		return nil, model.ErrNotFound
	}
	if !strings.HasPrefix(filename, r.prefix) && !strings.HasPrefix(filename, model.ThumbnailPrefix+r.prefix) {
		return nil, model.ErrNotFound
	}

	path := filepath.Join(r.root, subfolder, filename)

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, model.ErrNotFound
	}

	if !r.contained(path) {
		return nil, model.ErrForbidden
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, model.ErrForbidden
	}

	if !r.namespace.IsPublic(subfolder) {
		if err := r.authorize(ctx, requester); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	ctype, err := sniff(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("retriever: failed to read %s: %w", filename, err)
	}

	return &model.Object{
		Body:        f,
		Name:        filename,
		ContentType: ctype,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
	}, nil
}

// contained reports whether the symlink-resolved path lies under the
// symlink-resolved root.
func (r *Retriever) contained(path string) bool {
	realRoot, err := filepath.EvalSymlinks(r.root)
	if err != nil {
		return false
	}
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}

	rel, err := filepath.Rel(realRoot, realPath)
	if err != nil {
		return false
	}

	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func (r *Retriever) authorize(ctx context.Context, requester uuid.UUID) error {
	if requester == uuid.Nil || r.users == nil {
		return model.ErrUnauthorized
	}

	ok, err := r.users.Exists(ctx, requester)
	if err != nil || !ok {
		return model.ErrUnauthorized
	}

	return nil
}

// sniff detects the content type from the leading bytes and rewinds f.
func sniff(f io.ReadSeeker) (string, error) {
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	return mt.String(), nil
}
