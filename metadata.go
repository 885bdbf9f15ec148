package epubifyer

import (
	"time"

	"github.com/google/uuid"
)

// Metadata holds the Dublin Core fields written into the OPF package
// document. Zero-valued optional fields (Creator, Publisher, Description,
// Rights, Tags, Cover) are omitted from the output.
type Metadata struct {
	Title       string
	Creator     string
	Language    string
	Identifier  string
	Date        string // YYYY-MM-DD
	Publisher   string
	Description string
	Rights      string
	Cover       string // manifest id of the cover image item
	Tags        []string
}

// withDefaults fills in the fields every publication must carry: a unique
// identifier and a publication date.
func (m Metadata) withDefaults() Metadata {
	if m.Identifier == "" {
		m.Identifier = "urn:uuid:" + uuid.New().String()
	}
	if m.Date == "" {
		m.Date = time.Now().Format("2006-01-02")
	}
	if m.Language == "" {
		m.Language = "en"
	}
	return m
}

// merge overlays non-zero fields of patch onto m.
func (m Metadata) merge(patch Metadata) Metadata {
	if patch.Title != "" {
		m.Title = patch.Title
	}
	if patch.Creator != "" {
		m.Creator = patch.Creator
	}
	if patch.Language != "" {
		m.Language = patch.Language
	}
	if patch.Identifier != "" {
		m.Identifier = patch.Identifier
	}
	if patch.Date != "" {
		m.Date = patch.Date
	}
	if patch.Publisher != "" {
		m.Publisher = patch.Publisher
	}
	if patch.Description != "" {
		m.Description = patch.Description
	}
	if patch.Rights != "" {
		m.Rights = patch.Rights
	}
	if patch.Cover != "" {
		m.Cover = patch.Cover
	}
	if patch.Tags != nil {
		m.Tags = append([]string(nil), patch.Tags...)
	}
	return m
}
