// Optional image optimization for e-readers: downscale, grayscale,
// JPEG re-encode.
package epubifyer

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/hashicorp/go-hclog"
	_ "golang.org/x/image/webp"
)

// ImageOptions controls optimization of images pulled into the archive.
// Zero-valued fields fall back to defaults.
type ImageOptions struct {
	MaxWidth  int  // downscale wider images to this width; 0 = 1200
	Quality   int  // JPEG quality; 0 = 80
	Grayscale bool // convert to grayscale for e-ink
}

const (
	defaultMaxImageWidth = 1200
	defaultJPEGQuality   = 80
)

func isAnimatedGIF(data []byte) bool {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return false
	}
	return len(g.Image) > 1
}

// flattenAlpha composites src onto a white background for JPEG encoding.
func flattenAlpha(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, src, b.Min, draw.Over)
	return dst
}

// optimizeImage re-encodes raster image data as JPEG, downscaled and
// optionally grayscaled. Returns ok=false to signal passthrough: SVG and
// animated GIF keep their format, and undecodable data is left alone.
func optimizeImage(data []byte, mediaType string, opts ImageOptions, log hclog.Logger) ([]byte, string, bool) {
	if strings.Contains(mediaType, "svg") {
		return nil, "", false
	}
	if strings.Contains(mediaType, "gif") && isAnimatedGIF(data) {
		return nil, "", false
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.Warn("could not decode image for optimization", "mediaType", mediaType, "error", err)
		return nil, "", false
	}

	var img image.Image = flattenAlpha(src)

	maxWidth := opts.MaxWidth
	if maxWidth <= 0 {
		maxWidth = defaultMaxImageWidth
	}
	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}
	if opts.Grayscale {
		img = imaging.Grayscale(img)
	}

	quality := opts.Quality
	if quality <= 0 {
		quality = defaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		log.Warn("JPEG encode failed", "error", err)
		return nil, "", false
	}
	return buf.Bytes(), "image/jpeg", true
}
