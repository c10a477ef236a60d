package model

import (
	"io"
	"time"
)

// ThumbnailPrefix is prepended to the stored name of the primary variant
// to build the name of its thumbnail.
const ThumbnailPrefix = "thumb_"

// UploadRequest is a single upload handed to the pipeline by an HTTP handler.
// It lives for the duration of one Accept call and is never retained.
type UploadRequest struct {
	Body           io.ReadSeeker // raw file bytes
	Filename       string        // name declared by the client
	DeclaredLength int64         // length declared by the client, not trusted
	Subfolder      string        // namespace tag, e.g. "profile" or "posts"
}

// UploadResult describes the variants written for an accepted upload.
// ThumbnailWritten is false when the thumbnail step failed after the
// primary variant had already been stored.
type UploadResult struct {
	OriginalName     string `json:"original"`
	ThumbnailName    string `json:"thumbnail"`
	OriginalPath     string `json:"-"`
	ThumbnailPath    string `json:"-"`
	ThumbnailWritten bool   `json:"thumbnail_written"`
}

// Names returns the stored names of all written variants.
func (r UploadResult) Names() []string {
	if r.ThumbnailWritten {
		return []string{r.OriginalName, r.ThumbnailName}
	}
	return []string{r.OriginalName}
}

// TranscodeJob tells the processor where the staged source is and under
// which names the variants must be stored.
type TranscodeJob struct {
	SourcePath    string
	Subfolder     string
	Name          string
	ThumbnailName string
}

// TranscodeResult reports which variants were written.
type TranscodeResult struct {
	PrimaryWritten   bool
	ThumbnailWritten bool
	PrimaryPath      string
	ThumbnailPath    string
}

// Object is a stored image opened for streaming.
type Object struct {
	Body        io.ReadSeekCloser
	Name        string
	ContentType string
	Size        int64
	ModTime     time.Time
}

// ImageEvent is published to the media topic whenever stored variants
// appear or disappear.
type ImageEvent struct {
	Type      string    `json:"type"` // "stored" / "deleted"
	Subfolder string    `json:"subfolder"`
	Names     []string  `json:"names"`
	CreatedAt time.Time `json:"created_at"`
}

// Image event types.
const (
	EventStored  = "stored"
	EventDeleted = "deleted"
)
