// Package imaging prepares plant photos for upload: it bounds their width, re-encodes them as
// JPEG and produces the base64 data URI the recognition API expects.
package imaging

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"strings"

	apperrors "github.com/smartgarden/backend/pkg/errors"
	"golang.org/x/image/draw"
)

const (
	DefaultMaxWidth = 800
	DefaultQuality  = 70

	dataURIPrefix = "data:image/jpeg;base64,"
)

// Preprocessor downsizes and re-encodes photos into temporary files
type Preprocessor struct {
	MaxWidth int
	Quality  int
	// TempDir holds processed files; empty means os.TempDir()
	TempDir string
}

// New creates a preprocessor, substituting defaults for non-positive values
func New(maxWidth, quality int, tempDir string) *Preprocessor {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Preprocessor{MaxWidth: maxWidth, Quality: quality, TempDir: tempDir}
}

// Process decodes srcPath, scales it down to MaxWidth if wider and writes a JPEG copy.
// The source file is never modified. The caller owns the returned file.
func (p *Preprocessor) Process(ctx context.Context, srcPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperrors.NewImageProcessingError("image processing cancelled", err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", apperrors.NewImageProcessingError(fmt.Sprintf("cannot read image %s", srcPath), err)
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		return "", apperrors.NewImageProcessingError("unsupported or corrupt image", err)
	}

	img = p.resize(img)

	out, err := os.CreateTemp(p.TempDir, "plant-*.jpg")
	if err != nil {
		return "", apperrors.NewImageProcessingError("cannot create output file", err)
	}

	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: p.Quality}); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", apperrors.NewImageProcessingError("failed to encode jpeg", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", apperrors.NewImageProcessingError("failed to write jpeg", err)
	}
	return out.Name(), nil
}

func (p *Preprocessor) resize(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= p.MaxWidth {
		return img
	}
	height := b.Dy() * p.MaxWidth / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, p.MaxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// EncodeDataURI reads a processed JPEG and returns it as a data URI
func EncodeDataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperrors.NewImageProcessingError("cannot read processed image", err)
	}
	if len(data) == 0 {
		return "", apperrors.NewImageProcessingError("processed image is empty", nil)
	}
	return dataURIPrefix + strings.TrimSpace(base64.StdEncoding.EncodeToString(data)), nil
}

// PrepareDataURI processes srcPath and returns the encoded data URI, removing the temporary file
func (p *Preprocessor) PrepareDataURI(ctx context.Context, srcPath string) (string, error) {
	processed, err := p.Process(ctx, srcPath)
	if err != nil {
		return "", err
	}
	defer os.Remove(processed)
	return EncodeDataURI(processed)
}
