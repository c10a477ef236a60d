// Package sanitizer turns client-supplied filenames into storage names that
// carry nothing from the client but a validated extension.
package sanitizer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aliskhannn/prok/internal/config"
	"github.com/aliskhannn/prok/internal/model"
)

// Rejection reasons. They are stable so that repeated calls with the same
// input report the same reason.
const (
	ReasonNoFilename      = "No filename provided"
	ReasonInvalidFilename = "Invalid filename"
)

// Sanitizer generates secure storage names.
type Sanitizer struct {
	prefix  string
	allowed map[string]struct{}
	sorted  string
	now     func() time.Time
}

// New creates a Sanitizer using the prefix and allow-list from cfg.
func New(cfg config.Upload) *Sanitizer {
	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	list := make([]string, 0, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(ext, "."))
		if _, ok := allowed[ext]; ok || ext == "" {
			continue
		}
		allowed[ext] = struct{}{}
		list = append(list, ext)
	}
	sort.Strings(list)

	return &Sanitizer{
		prefix:  cfg.SecureFilenamePrefix,
		allowed: allowed,
		sorted:  strings.Join(list, ", "),
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *Sanitizer) WithClock(now func() time.Time) *Sanitizer {
	s.now = now
	return s
}

// Clean strips directory components and every character outside
// [A-Za-z0-9._-] from raw.
func Clean(raw string) string {
	if i := strings.LastIndexAny(raw, `/\`); i >= 0 {
		raw = raw[i+1:]
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}

	return b.String()
}

// Extension validates raw and returns its lower-cased, allow-listed extension.
func (s *Sanitizer) Extension(raw string) (string, error) {
	if raw == "" {
		return "", &model.ValidationError{Reason: ReasonNoFilename}
	}

	name := Clean(raw)
	if name == "" || strings.Count(name, ".") != 1 {
		return "", &model.ValidationError{Reason: ReasonInvalidFilename}
	}

	ext := strings.ToLower(name[strings.LastIndexByte(name, '.')+1:])
	if _, ok := s.allowed[ext]; !ok {
		return "", &model.ValidationError{Reason: s.notAllowed()}
	}

	return ext, nil
}

// Allowed reports whether ext (without the dot) is in the allow-list.
func (s *Sanitizer) Allowed(ext string) bool {
	_, ok := s.allowed[strings.ToLower(ext)]
	return ok
}

// AllowedList returns the allow-list joined in sorted order.
func (s *Sanitizer) AllowedList() string {
	return s.sorted
}

func (s *Sanitizer) notAllowed() string {
	return "File type not allowed. Allowed types: " + s.sorted
}

// Sanitize validates raw and returns a freshly generated storage name of the
// form {prefix}{unix}_{hash8}.{ext}. Two calls never return the same name
// except with negligible probability.
func (s *Sanitizer) Sanitize(raw string) (string, error) {
	ext, err := s.Extension(raw)
	if err != nil {
		return "", err
	}

	ts := strconv.FormatInt(s.now().Unix(), 10)
	sum := sha256.Sum256([]byte(ts + uuid.NewString()))

	return fmt.Sprintf("%s%s_%s.%s", s.prefix, ts, hex.EncodeToString(sum[:4]), ext), nil
}

// Thumbnail returns the thumbnail name belonging to a stored name.
func Thumbnail(name string) string {
	return model.ThumbnailPrefix + name
}
