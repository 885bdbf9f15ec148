package epubifyer

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

var urnUUIDRe = regexp.MustCompile(`^urn:uuid:[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestMetadataDefaults(t *testing.T) {
	m := Metadata{Title: "T"}.withDefaults()
	if !urnUUIDRe.MatchString(m.Identifier) {
		t.Errorf("identifier %q is not a urn:uuid v4", m.Identifier)
	}
	if m.Date != time.Now().Format("2006-01-02") {
		t.Errorf("date = %q, want today", m.Date)
	}
	if m.Language != "en" {
		t.Errorf("language = %q, want en", m.Language)
	}
}

func TestMetadataDefaultsKeepExplicit(t *testing.T) {
	m := Metadata{
		Identifier: "urn:isbn:123",
		Date:       "1999-12-31",
		Language:   "fr",
	}.withDefaults()
	if m.Identifier != "urn:isbn:123" || m.Date != "1999-12-31" || m.Language != "fr" {
		t.Errorf("explicit values overwritten: %+v", m)
	}
}

func TestSetMetadataMerges(t *testing.T) {
	e := New(Metadata{Title: "Old", Creator: "Author"})
	before := e.Metadata()

	e.SetMetadata(Metadata{Title: "New", Publisher: "House"})

	got := e.Metadata()
	if got.Title != "New" {
		t.Errorf("title = %q, want New", got.Title)
	}
	if got.Publisher != "House" {
		t.Errorf("publisher = %q, want House", got.Publisher)
	}
	if got.Creator != "Author" {
		t.Errorf("creator lost: %q", got.Creator)
	}
	if got.Identifier != before.Identifier {
		t.Errorf("identifier changed from %q to %q", before.Identifier, got.Identifier)
	}
}

func TestMetadataAccessorCopies(t *testing.T) {
	e := New(Metadata{Tags: []string{"a", "b"}})
	m := e.Metadata()
	m.Tags[0] = "mutated"
	m.Title = "mutated"
	if e.Metadata().Tags[0] != "a" || strings.Contains(e.Metadata().Title, "mutated") {
		t.Error("Metadata() must return an independent copy")
	}
}
