// OCF container assembly: ordered archive entries and ZIP encoding.
package epubifyer

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"time"
)

const (
	contentRoot      = "EPUB"
	mimetypePath     = "mimetype"
	mimetypePayload  = "application/epub+zip"
	containerXMLPath = "META-INF/container.xml"
)

// ArchiveEntry is one file (or directory, when Path ends in "/") in the
// assembled EPUB archive. Entries are ordered; the first must be the
// uncompressed mimetype file.
type ArchiveEntry struct {
	Path     string
	Data     []byte
	Compress bool
}

// archiveEntries lays out the publication as ordered archive entries.
func (e *Epub) archiveEntries(modified time.Time) ([]ArchiveEntry, error) {
	opf, err := e.buildOPF(modified)
	if err != nil {
		return nil, fmt.Errorf("building package document: %w", err)
	}
	nav, err := e.buildNav()
	if err != nil {
		return nil, fmt.Errorf("building navigation document: %w", err)
	}
	containerXML, err := buildContainerXML()
	if err != nil {
		return nil, fmt.Errorf("building container.xml: %w", err)
	}

	entries := []ArchiveEntry{
		{Path: mimetypePath, Data: []byte(mimetypePayload), Compress: false},
		{Path: "META-INF/", Compress: false},
		{Path: containerXMLPath, Data: containerXML, Compress: true},
		{Path: contentRoot + "/", Compress: false},
		{Path: contentRoot + "/nav.xhtml", Data: nav, Compress: true},
		{Path: contentRoot + "/content.opf", Data: opf, Compress: true},
	}

	// Materialize item directories once, in first-reference order.
	seenDirs := map[string]bool{}
	for _, it := range e.items {
		if i := strings.LastIndex(it.Href, "/"); i >= 0 {
			dir := contentRoot + "/" + it.Href[:i+1]
			if !seenDirs[dir] {
				seenDirs[dir] = true
				entries = append(entries, ArchiveEntry{Path: dir, Compress: false})
			}
		}
	}
	for _, it := range e.items {
		entries = append(entries, ArchiveEntry{
			Path:     contentRoot + "/" + it.Href,
			Data:     it.Data,
			Compress: true,
		})
	}
	return entries, nil
}

// buildArchive encodes ordered entries as an EPUB ZIP. The mimetype entry
// is written first and stored uncompressed, as OCF requires.
func buildArchive(entries []ArchiveEntry) ([]byte, error) {
	if len(entries) == 0 || entries[0].Path != mimetypePath {
		return nil, fmt.Errorf("first archive entry must be %s", mimetypePath)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, entry := range entries {
		header := &zip.FileHeader{
			Name:   entry.Path,
			Method: zip.Store,
		}
		if entry.Compress {
			header.Method = zip.Deflate
		}
		w, err := zw.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("creating archive entry %s: %w", entry.Path, err)
		}
		if len(entry.Data) > 0 {
			if _, err := w.Write(entry.Data); err != nil {
				return nil, fmt.Errorf("writing archive entry %s: %w", entry.Path, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing archive: %w", err)
	}
	return buf.Bytes(), nil
}
