package epubifyer

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// Item is one manifest resource: a chapter document, image or stylesheet.
// Href is relative to the EPUB content root (e.g. "text/chapter-1.xhtml").
type Item struct {
	ID         string
	Href       string
	MediaType  string
	Properties string
	Data       []byte
}

// Epub is an EPUB 3 publication under construction.
type Epub struct {
	meta      Metadata
	items     []*Item
	itemsByID map[string]*Item
	spine     []string
	toc       []*NavPoint
	tocByID   map[string]*NavPoint
	cssHrefs  []string
	counter   int

	fetcher *fetcher
	imgOpts *ImageOptions
	log     hclog.Logger
}

// New creates an empty publication. Missing metadata gets defaults: a
// urn:uuid identifier, today's date and language "en".
func New(meta Metadata) *Epub {
	return &Epub{
		meta:      meta.withDefaults(),
		itemsByID: map[string]*Item{},
		tocByID:   map[string]*NavPoint{},
		fetcher:   newFetcher(),
		log:       hclog.NewNullLogger(),
	}
}

// SetLogger replaces the no-op default logger.
func (e *Epub) SetLogger(l hclog.Logger) {
	if l == nil {
		l = hclog.NewNullLogger()
	}
	e.log = l
}

// SetHTTPClient replaces the browser-fingerprint client used for remote
// image and cover fetches. Useful for tests and proxied environments.
func (e *Epub) SetHTTPClient(c *http.Client) {
	e.fetcher.client = c
}

// SetAllowPrivateHosts disables the private-address dial guard on the
// built-in fetch client. Off by default; remote image sources on loopback
// or RFC1918 addresses are refused unless enabled.
func (e *Epub) SetAllowPrivateHosts(allow bool) {
	e.fetcher.allowPrivate = allow
}

// SetImageOptions enables e-reader image optimization for images pulled
// into the archive by the chapter pipeline.
func (e *Epub) SetImageOptions(opts ImageOptions) {
	e.imgOpts = &opts
}

// SetMetadata overlays the non-zero fields of patch onto the current
// metadata. Fields absent from patch keep their existing values.
func (e *Epub) SetMetadata(patch Metadata) {
	e.meta = e.meta.merge(patch)
}

// Metadata returns a copy of the current metadata.
func (e *Epub) Metadata() Metadata {
	m := e.meta
	m.Tags = append([]string(nil), e.meta.Tags...)
	return m
}

// Items returns the registered manifest items in insertion order.
func (e *Epub) Items() []*Item {
	return append([]*Item(nil), e.items...)
}

// Spine returns the reading-order item ids.
func (e *Epub) Spine() []string {
	return append([]string(nil), e.spine...)
}

// TOC returns the top-level navigation entries.
func (e *Epub) TOC() []*NavPoint {
	return append([]*NavPoint(nil), e.toc...)
}

// nextID returns a fresh id with the given prefix. The counter belongs to
// the instance, so parallel builds in one process never collide.
func (e *Epub) nextID(prefix string) string {
	e.counter++
	return fmt.Sprintf("%s-%d", prefix, e.counter)
}

// addItem registers a manifest item. The id must be unique.
func (e *Epub) addItem(it *Item) error {
	if _, exists := e.itemsByID[it.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, it.ID)
	}
	e.items = append(e.items, it)
	e.itemsByID[it.ID] = it
	return nil
}

// AddImage registers image data under images/<filename>. When id matches
// the metadata cover id, the item is flagged as the cover image.
func (e *Epub) AddImage(id, filename string, data []byte, mediaType string) error {
	it := &Item{
		ID:        id,
		Href:      "images/" + filename,
		MediaType: mediaType,
		Data:      data,
	}
	if id != "" && id == e.meta.Cover {
		it.Properties = "cover-image"
	}
	return e.addItem(it)
}

// AddCSS registers a stylesheet under styles/<id>.css. Every chapter added
// afterwards links it from its head; chapters added before do not.
func (e *Epub) AddCSS(id, css string) error {
	it := &Item{
		ID:        id,
		Href:      "styles/" + id + ".css",
		MediaType: "text/css",
		Data:      []byte(css),
	}
	if err := e.addItem(it); err != nil {
		return err
	}
	e.cssHrefs = append(e.cssHrefs, it.Href)
	return nil
}

// validate checks cross-references before packaging. Findings aggregate so
// one pass reports everything.
func (e *Epub) validate() error {
	var result *multierror.Error
	for _, id := range e.spine {
		it, ok := e.itemsByID[id]
		if !ok {
			result = multierror.Append(result, fmt.Errorf("spine references unknown item %q", id))
			continue
		}
		if it.MediaType != mediaTypeXHTML {
			result = multierror.Append(result, fmt.Errorf("spine item %q has media type %s", id, it.MediaType))
		}
	}
	seen := map[string]string{}
	for _, it := range e.items {
		if prev, dup := seen[it.Href]; dup {
			result = multierror.Append(result, fmt.Errorf("items %q and %q share href %s", prev, it.ID, it.Href))
		}
		seen[it.Href] = it.ID
	}
	if e.meta.Cover != "" {
		if _, ok := e.itemsByID[e.meta.Cover]; !ok {
			result = multierror.Append(result, fmt.Errorf("cover id %q matches no item", e.meta.Cover))
		}
	}
	return result.ErrorOrNil()
}

// Generate assembles the publication into an ordered list of archive
// entries: mimetype first, then container.xml, package documents and
// content items. The document model is left untouched.
func (e *Epub) Generate() ([]ArchiveEntry, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	return e.archiveEntries(time.Now())
}

// Bytes assembles the publication and returns the EPUB archive.
func (e *Epub) Bytes() ([]byte, error) {
	entries, err := e.Generate()
	if err != nil {
		return nil, err
	}
	return buildArchive(entries)
}

// WriteTo assembles the publication and writes the archive to w.
func (e *Epub) WriteTo(w io.Writer) (int64, error) {
	data, err := e.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Save assembles the publication and writes it to path. The file is only
// touched once the archive has been built completely in memory.
func (e *Epub) Save(path string) error {
	data, err := e.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
