package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/wb-go/wbf/zlog"
	_ "golang.org/x/image/webp" // register the WEBP decoder

	"github.com/aliskhannn/prok/internal/config"
	"github.com/aliskhannn/prok/internal/model"
)

// fileStorage defines the interface for file storage.
// It allows saving and loading files from a backend (e.g., local FS).
type fileStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error)
	Load(ctx context.Context, path string) (io.ReadCloser, error)
}

// Processor produces the primary and thumbnail variants of an upload.
type Processor struct {
	fileStorage fileStorage
	primary     config.Size
	thumbnail   config.Size
	quality     int
	watermark   config.Watermark
	marked      map[string]struct{}
}

// New creates a new Processor with the given file storage backend and
// upload settings.
func New(fs fileStorage, cfg config.Upload) *Processor {
	marked := make(map[string]struct{}, len(cfg.Watermark.Subfolders))
	for _, s := range cfg.Watermark.Subfolders {
		marked[s] = struct{}{}
	}

	return &Processor{
		fileStorage: fs,
		primary:     cfg.PrimarySize,
		thumbnail:   cfg.ThumbnailSize,
		quality:     cfg.CompressionQuality,
		watermark:   cfg.Watermark,
		marked:      marked,
	}
}

// Transcode decodes the staged source, stores the primary variant and then
// derives the thumbnail from the primary. A failure to produce the primary
// is returned as an error. A thumbnail failure is logged and reported
// through ThumbnailWritten; the primary stays in place.
func (p *Processor) Transcode(ctx context.Context, job model.TranscodeJob) (model.TranscodeResult, error) {
	var res model.TranscodeResult

	format, err := outputFormat(job.Name)
	if err != nil {
		return res, err
	}

	// Load the staged original.
	srcReader, err := p.fileStorage.Load(ctx, job.SourcePath)
	if err != nil {
		return res, fmt.Errorf("failed to load original image: %w", err)
	}
	defer srcReader.Close()

	// Decode into an image object.
	src, err := imaging.Decode(srcReader)
	if err != nil {
		return res, fmt.Errorf("failed to decode image: %w", err)
	}

	var primary image.Image = imaging.Fit(Flatten(src), p.primary.Width, p.primary.Height, imaging.Lanczos)
	if _, ok := p.marked[job.Subfolder]; ok && p.watermark.Text != "" {
		primary = p.stamp(primary)
	}

	res.PrimaryPath, err = p.store(ctx, job.Subfolder, job.Name, primary, format)
	if err != nil {
		return res, fmt.Errorf("failed to save primary image: %w", err)
	}
	res.PrimaryWritten = true

	// The thumbnail is derived from the already resized primary.
	thumb := imaging.Fit(primary, p.thumbnail.Width, p.thumbnail.Height, imaging.Lanczos)

	res.ThumbnailPath, err = p.store(ctx, job.Subfolder, job.ThumbnailName, thumb, format)
	if err != nil {
		zlog.Logger.Err(err).
			Str("subfolder", job.Subfolder).
			Str("name", job.ThumbnailName).
			Msg("failed to save thumbnail, keeping primary")
		res.ThumbnailPath = ""
		return res, nil
	}
	res.ThumbnailWritten = true

	return res, nil
}

// store encodes img and saves it under subdir/name.
func (p *Processor) store(ctx context.Context, subdir, name string, img image.Image, format imaging.Format) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, img, format,
		imaging.JPEGQuality(p.quality),
		imaging.PNGCompressionLevel(png.BestCompression),
	); err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", name, err)
	}

	return p.fileStorage.Save(ctx, subdir, name, buf)
}

// stamp draws the configured watermark text in the bottom-right corner.
// A font that cannot be loaded leaves the image untouched.
func (p *Processor) stamp(img image.Image) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetColor(color.White)

	fontSize := float64(dc.Width()) * 0.05 // 5% of the image width
	if err := dc.LoadFontFace(p.watermark.FontPath, fontSize); err != nil {
		zlog.Logger.Warn().Err(err).Str("font", p.watermark.FontPath).Msg("watermark font unavailable, skipping")
		return img
	}

	margin := 10.0
	dc.DrawStringAnchored(p.watermark.Text, float64(dc.Width())-margin, float64(dc.Height())-margin, 1, 0)

	return dc.Image()
}

// Flatten drops transparency: images with an alpha channel or a palette are
// converted to opaque NRGBA. Other color models are returned unchanged.
func Flatten(img image.Image) image.Image {
	switch img.(type) {
	case *image.YCbCr, *image.Gray, *image.Gray16, *image.CMYK:
		return img
	}

	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}

	return dst
}

// outputFormat picks the encoder from the stored name's extension. Formats
// without an encoder (webp) are written as PNG.
func outputFormat(name string) (imaging.Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".webp" {
		return imaging.PNG, nil
	}

	f, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return 0, fmt.Errorf("unsupported output format %q: %w", ext, err)
	}

	return f, nil
}
