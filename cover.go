// Cover handling: registration of user-supplied covers from data URIs,
// URLs or local files, and generation of a deterministic pattern cover
// when none is available.
package epubifyer

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/url"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/vincent-petithory/dataurl"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const coverID = "cover-image"

// AddCover registers a cover image from a data URI, an http(s) URL or a
// local file path, and marks it as the publication cover. Unlike inline
// chapter images, cover failures are fatal: a fetch failure returns an
// error wrapping ErrCoverFetch and an unusable source format one wrapping
// ErrCoverFormat. On failure the previously set cover, if any, is kept.
func (e *Epub) AddCover(source string) (string, error) {
	var data []byte
	var mediaType, filename string

	switch {
	case strings.HasPrefix(source, "data:"):
		// Only base64 payloads are accepted.
		if !strings.Contains(source, ";base64,") {
			return "", fmt.Errorf("%w: data URI is not base64-encoded", ErrCoverFormat)
		}
		du, err := dataurl.DecodeString(source)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCoverFormat, err)
		}
		data = du.Data
		mediaType = du.ContentType()
		filename = "cover" + extForMediaType(mediaType)

	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		body, ctype, err := e.fetcher.fetch(source)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCoverFetch, err)
		}
		data = body
		mediaType = ctype
		if mediaType == "" || mediaType == "application/octet-stream" {
			if u, err := url.Parse(source); err == nil {
				mediaType = mediaTypeForPath(u.Path)
			}
		}
		if mediaType == "" || mediaType == "application/octet-stream" {
			mediaType = mimetype.Detect(data).String()
		}
		filename = "cover" + extForMediaType(mediaType)

	default:
		body, err := os.ReadFile(source)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCoverFetch, err)
		}
		data = body
		mediaType = mediaTypeForPath(source)
		if mediaType == "application/octet-stream" {
			mediaType = mimetype.Detect(data).String()
		}
		filename = "cover" + extForMediaType(mediaType)
	}

	return e.registerCover(data, mediaType, filename)
}

// GenerateCover builds a deterministic geometric PNG cover from the
// title and registers it as the publication cover.
func (e *Epub) GenerateCover(title string) (string, error) {
	data, err := generateCoverPNG(title)
	if err != nil {
		return "", err
	}
	return e.registerCover(data, "image/png", "cover.png")
}

func (e *Epub) registerCover(data []byte, mediaType, filename string) (string, error) {
	prev := e.meta.Cover
	e.meta.Cover = coverID
	if err := e.AddImage(coverID, filename, data, mediaType); err != nil {
		e.meta.Cover = prev
		return "", err
	}
	return coverID, nil
}

const (
	coverWidth  = 1200
	coverHeight = 1800
)

// generateCoverPNG renders a grayscale cover: a circle grid whose shades
// and radii derive from the title hash, with the title on a clear band
// across the middle.
func generateCoverPNG(title string) ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, coverWidth, coverHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{0xFF}), image.Point{}, draw.Src)

	hash := sha256.Sum256([]byte(title))
	drawCoverPattern(img, hash)

	face, err := loadFace(gobold.TTF, 64)
	if err != nil {
		return nil, fmt.Errorf("loading font: %w", err)
	}
	drawCoverTitle(img, title, face)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding cover PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func drawCoverPattern(img *image.Gray, hash [32]byte) {
	const (
		cols  = 12
		rows  = 18
		cellW = coverWidth / cols
		cellH = coverHeight / rows
		// Rows reserved for the title band.
		bandRowStart = 7
		bandRowEnd   = 11
	)
	for row := 0; row < rows; row++ {
		if row >= bandRowStart && row <= bandRowEnd {
			continue
		}
		for col := 0; col < cols; col++ {
			idx := (row*cols + col) % len(hash)
			b := hash[idx] ^ byte(row*17+col*31)
			// Shades limited to a range that reads well on e-ink.
			shade := uint8(0x30 + int(b)*(0xD0-0x30)/255)

			b2 := hash[(idx+7)%len(hash)] ^ byte(row*13+col*41)
			maxR := float64(cellW) / 2.2
			minR := maxR * 0.25
			radius := minR + (maxR-minR)*float64(b2)/255.0

			fillCircle(img, col*cellW+cellW/2, row*cellH+cellH/2, radius, color.Gray{Y: shade})
		}
	}
}

func fillCircle(img *image.Gray, cx, cy int, radius float64, c color.Gray) {
	r := int(math.Ceil(radius))
	r2 := radius * radius
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if float64(dx*dx+dy*dy) <= r2 {
				x, y := cx+dx, cy+dy
				if x >= 0 && x < coverWidth && y >= 0 && y < coverHeight {
					img.SetGray(x, y, c)
				}
			}
		}
	}
}

func drawCoverTitle(img *image.Gray, title string, face font.Face) {
	const (
		bandTop    = 650
		bandBottom = 1150
		padX       = 80
		maxWidth   = coverWidth - padX*2
	)
	draw.Draw(img,
		image.Rect(0, bandTop, coverWidth, bandBottom),
		image.NewUniform(color.Gray{0xFF}),
		image.Point{},
		draw.Src,
	)
	for x := padX; x < coverWidth-padX; x++ {
		img.SetGray(x, bandTop+20, color.Gray{Y: 0x99})
		img.SetGray(x, bandBottom-20, color.Gray{Y: 0x99})
	}

	lines := wrapText(title, face, maxWidth)
	lineHeight := face.Metrics().Height.Ceil() + 8
	totalHeight := len(lines) * lineHeight
	y := bandTop + (bandBottom-bandTop-totalHeight)/2 + face.Metrics().Ascent.Ceil()

	for _, line := range lines {
		lineW := font.MeasureString(face, line).Ceil()
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(color.Gray{Y: 0x00}),
			Face: face,
			Dot:  fixed.P((coverWidth-lineW)/2, y),
		}
		d.DrawString(line)
		y += lineHeight
	}
}

// wrapText splits text into lines that fit within maxWidth pixels.
func wrapText(text string, face font.Face, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		trial := current + " " + word
		if font.MeasureString(face, trial).Ceil() <= maxWidth {
			current = trial
		} else {
			lines = append(lines, current)
			current = word
		}
	}
	return append(lines, current)
}

func loadFace(ttf []byte, sizePt float64) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    sizePt,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
