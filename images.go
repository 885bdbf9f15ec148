// Inline image handling for chapter content: srcset resolution, data-URI
// decoding, remote fetching, and rewriting of references to archived
// copies under images/.
package epubifyer

import (
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/dom"
	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/vincent-petithory/dataurl"
)

// fetchConcurrency bounds parallel image downloads within one chapter.
const fetchConcurrency = 4

var mediaTypeByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
}

var extByMediaType = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/svg+xml": ".svg",
	"image/webp":    ".webp",
}

// mediaTypeForPath maps a file extension to its media type, defaulting to
// application/octet-stream for anything unrecognized.
func mediaTypeForPath(p string) string {
	if mt, ok := mediaTypeByExt[strings.ToLower(path.Ext(p))]; ok {
		return mt
	}
	return "application/octet-stream"
}

func extForMediaType(mt string) string {
	if ext, ok := extByMediaType[mt]; ok {
		return ext
	}
	return ".bin"
}

// pickLargestSrcset parses a srcset attribute value and returns the URL
// of the candidate with the largest "Nw" width descriptor. Candidates
// without a width descriptor count as width 0. Empty when the value holds
// no usable candidate.
func pickLargestSrcset(srcset string) string {
	var bestURL string
	bestWidth := -1
	for _, candidate := range strings.Split(srcset, ",") {
		fields := strings.Fields(candidate)
		if len(fields) == 0 {
			continue
		}
		u := fields[0]
		w := 0
		if len(fields) > 1 {
			desc := fields[1]
			if strings.HasSuffix(desc, "w") {
				if n, err := strconv.Atoi(strings.TrimSuffix(desc, "w")); err == nil {
					w = n
				}
			}
		}
		if w > bestWidth {
			bestURL = u
			bestWidth = w
		}
	}
	return bestURL
}

func isRemoteRef(src string) bool {
	return strings.HasPrefix(src, "http://") ||
		strings.HasPrefix(src, "https://") ||
		strings.HasPrefix(src, "blob:")
}

// registerImage stores image data as a manifest item and returns the href
// the chapter markup should reference (relative to text/).
func (e *Epub) registerImage(data []byte, mediaType string) (string, error) {
	if e.imgOpts != nil {
		if optimized, mt, ok := optimizeImage(data, mediaType, *e.imgOpts, e.log); ok {
			data, mediaType = optimized, mt
		}
	}
	id := e.nextID("img")
	filename := id + extForMediaType(mediaType)
	if err := e.AddImage(id, filename, data, mediaType); err != nil {
		return "", err
	}
	return "../images/" + filename, nil
}

type remoteImage struct {
	sel *goquery.Selection
	url string

	data      []byte
	mediaType string
	err       error
}

// inlineImages localizes every image reference in the parsed chapter:
// data URIs are decoded, remote URLs are fetched concurrently, and
// successful sources are rewritten to archived copies. Failed fetches and
// undecodable data URIs leave the element untouched. Local and relative
// references always pass through unchanged, so running the pipeline on
// its own output is a no-op. Width and height attributes are stripped
// from every element either way.
func (e *Epub) inlineImages(doc *goquery.Document) {
	doc.Find("[width]").RemoveAttr("width")
	doc.Find("[height]").RemoveAttr("height")

	var remote []*remoteImage
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if len(sel.Nodes) == 0 {
			return
		}
		node := sel.Nodes[0]
		src := dom.GetAttributeOr(node, "src", "")
		// A srcset supersedes src when it yields a candidate.
		if srcset := dom.GetAttributeOr(node, "srcset", ""); srcset != "" {
			if best := pickLargestSrcset(srcset); best != "" {
				src = best
			}
		}

		switch {
		case strings.HasPrefix(src, "data:"):
			du, err := dataurl.DecodeString(src)
			if err != nil {
				e.log.Warn("undecodable data URI, leaving image as-is", "error", err)
				return
			}
			href, err := e.registerImage(du.Data, du.ContentType())
			if err != nil {
				e.log.Warn("could not register inline image", "error", err)
				return
			}
			sel.SetAttr("src", href)
			sel.RemoveAttr("srcset")
		case isRemoteRef(src):
			remote = append(remote, &remoteImage{sel: sel, url: src})
		default:
			// Local or relative reference: already resolvable, leave it.
		}
	})

	if len(remote) == 0 {
		return
	}

	// Fetch in parallel, bounded; rewrite sequentially in document order
	// afterwards so item registration stays deterministic.
	var wg sync.WaitGroup
	sem := make(chan struct{}, fetchConcurrency)
	for _, ri := range remote {
		wg.Add(1)
		go func(ri *remoteImage) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			ri.data, ri.mediaType, ri.err = e.fetcher.fetch(ri.url)
		}(ri)
	}
	wg.Wait()

	for _, ri := range remote {
		if ri.err != nil {
			e.log.Warn("could not fetch image, leaving as-is", "url", ri.url, "error", ri.err)
			continue
		}
		mt := ri.mediaType
		if mt == "" || mt == "application/octet-stream" {
			mt = mediaTypeForPath(ri.url)
		}
		if mt == "application/octet-stream" {
			mt = mimetype.Detect(ri.data).String()
		}
		href, err := e.registerImage(ri.data, mt)
		if err != nil {
			e.log.Warn("could not register fetched image", "url", ri.url, "error", err)
			continue
		}
		ri.sel.SetAttr("src", href)
		ri.sel.RemoveAttr("srcset")
	}
}
