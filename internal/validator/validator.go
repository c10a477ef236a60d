// Package validator checks uploaded files by their bytes rather than by the
// name the client gave them.
package validator

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register the WEBP decoder

	"github.com/aliskhannn/prok/internal/config"
	"github.com/aliskhannn/prok/internal/model"
	"github.com/aliskhannn/prok/internal/sanitizer"
)

const (
	ReasonNoFile        = "No file provided"
	ReasonInvalidImage  = "Invalid image file content"
	ReasonCorruptImage  = "Invalid image file format"
	ReasonTooManyPixels = "Image dimensions too large"
)

// part is a run of magic bytes expected at a fixed offset.
type part struct {
	offset int
	magic  []byte
}

// signature identifies a raster format by one or more parts, all of which
// must match.
type signature struct {
	format string
	parts  []part
}

var signatures = []signature{
	{"jpeg", []part{{0, []byte{0xFF, 0xD8, 0xFF}}}},
	{"png", []part{{0, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}}}},
	{"gif", []part{{0, []byte("GIF87a")}}},
	{"gif", []part{{0, []byte("GIF89a")}}},
	{"bmp", []part{{0, []byte("BM")}}},
	{"tiff", []part{{0, []byte{'I', 'I', 0x2A, 0x00}}}},
	{"tiff", []part{{0, []byte{'M', 'M', 0x00, 0x2A}}}},
	{"webp", []part{{0, []byte("RIFF")}, {8, []byte("WEBP")}}},
}

// headerLen covers the longest signature.
const headerLen = 12

// Sniff returns the raster format recognised from header, or "" when none
// of the known signatures match.
func Sniff(header []byte) string {
	for _, sig := range signatures {
		if sig.matches(header) {
			return sig.format
		}
	}
	return ""
}

func (s signature) matches(b []byte) bool {
	for _, p := range s.parts {
		if len(b) < p.offset+len(p.magic) || !bytes.Equal(b[p.offset:p.offset+len(p.magic)], p.magic) {
			return false
		}
	}
	return true
}

// Validator enforces extension, size and content rules on uploads.
type Validator struct {
	names     *sanitizer.Sanitizer
	maxLength int64
	maxPixels int
}

// New creates a Validator configured from cfg.
func New(cfg config.Upload) *Validator {
	return &Validator{
		names:     sanitizer.New(cfg),
		maxLength: cfg.MaxContentLength,
		maxPixels: cfg.MaxPixels,
	}
}

// Validate inspects the file declared as filename. declared is the length
// the client announced; it is only used to fail early, the real length is
// measured from body. On acceptance body is rewound to offset 0.
func (v *Validator) Validate(filename string, body io.ReadSeeker, declared int64) model.ValidationOutcome {
	if body == nil {
		return model.Reject(ReasonNoFile)
	}
	if filename == "" {
		return model.Reject(sanitizer.ReasonNoFilename)
	}

	if _, err := v.names.Extension(filename); err != nil {
		return model.Reject(err.Error())
	}

	if declared > v.maxLength {
		return model.Reject(v.tooLarge())
	}

	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return model.Reject(ReasonNoFile)
	}
	n, err := io.Copy(io.Discard, io.LimitReader(body, v.maxLength+1))
	if err != nil {
		return model.Reject(ReasonNoFile)
	}
	if n > v.maxLength {
		return model.Reject(v.tooLarge())
	}
	if n == 0 {
		return model.Reject(ReasonNoFile)
	}

	header := make([]byte, headerLen)
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return model.Reject(ReasonNoFile)
	}
	hn, _ := io.ReadFull(body, header)
	if Sniff(header[:hn]) == "" {
		return model.Reject(ReasonInvalidImage)
	}

	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return model.Reject(ReasonNoFile)
	}
	cfg, _, err := image.DecodeConfig(body)
	if err != nil {
		return model.Reject(ReasonCorruptImage)
	}
	if v.maxPixels > 0 && cfg.Width*cfg.Height > v.maxPixels {
		return model.Reject(ReasonTooManyPixels)
	}

	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return model.Reject(ReasonNoFile)
	}
	if _, err := imaging.Decode(body); err != nil {
		return model.Reject(ReasonCorruptImage)
	}

	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return model.Reject(ReasonNoFile)
	}

	return model.Accept()
}

func (v *Validator) tooLarge() string {
	return fmt.Sprintf("File too large. Maximum size is %gMB", float64(v.maxLength)/(1024*1024))
}
