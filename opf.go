// OPF package document rendering.
package epubifyer

import (
	"time"

	"github.com/beevik/etree"
)

const (
	opfNS    = "http://www.idpf.org/2007/opf"
	dcNS     = "http://purl.org/dc/elements/1.1/"
	xhtmlNS  = "http://www.w3.org/1999/xhtml"
	epubNS   = "http://www.idpf.org/2007/ops"
	uniqueID = "pub-id"
)

// buildOPF renders content.opf. Optional Dublin Core elements appear only
// when the corresponding metadata field is set; modified is written as the
// dcterms:modified timestamp in UTC.
func (e *Epub) buildOPF(modified time.Time) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	pkg := doc.CreateElement("package")
	pkg.CreateAttr("xmlns", opfNS)
	pkg.CreateAttr("version", "3.0")
	pkg.CreateAttr("unique-identifier", uniqueID)
	pkg.CreateAttr("xml:lang", e.meta.Language)

	meta := pkg.CreateElement("metadata")
	meta.CreateAttr("xmlns:dc", dcNS)

	ident := meta.CreateElement("dc:identifier")
	ident.CreateAttr("id", uniqueID)
	ident.SetText(e.meta.Identifier)
	meta.CreateElement("dc:title").SetText(e.meta.Title)
	meta.CreateElement("dc:language").SetText(e.meta.Language)
	if e.meta.Creator != "" {
		meta.CreateElement("dc:creator").SetText(e.meta.Creator)
	}
	if e.meta.Date != "" {
		meta.CreateElement("dc:date").SetText(e.meta.Date)
	}
	if e.meta.Publisher != "" {
		meta.CreateElement("dc:publisher").SetText(e.meta.Publisher)
	}
	if e.meta.Description != "" {
		meta.CreateElement("dc:description").SetText(e.meta.Description)
	}
	if e.meta.Rights != "" {
		meta.CreateElement("dc:rights").SetText(e.meta.Rights)
	}
	for _, tag := range e.meta.Tags {
		meta.CreateElement("dc:subject").SetText(tag)
	}
	mod := meta.CreateElement("meta")
	mod.CreateAttr("property", "dcterms:modified")
	mod.SetText(modified.UTC().Format("2006-01-02T15:04:05Z"))
	if e.meta.Cover != "" {
		cover := meta.CreateElement("meta")
		cover.CreateAttr("name", "cover")
		cover.CreateAttr("content", e.meta.Cover)
	}

	manifest := pkg.CreateElement("manifest")
	nav := manifest.CreateElement("item")
	nav.CreateAttr("id", "nav")
	nav.CreateAttr("href", "nav.xhtml")
	nav.CreateAttr("media-type", mediaTypeXHTML)
	nav.CreateAttr("properties", "nav")
	for _, it := range e.items {
		el := manifest.CreateElement("item")
		el.CreateAttr("id", it.ID)
		el.CreateAttr("href", it.Href)
		el.CreateAttr("media-type", it.MediaType)
		if it.Properties != "" {
			el.CreateAttr("properties", it.Properties)
		}
	}

	spine := pkg.CreateElement("spine")
	for _, id := range e.spineItemIDs() {
		ref := spine.CreateElement("itemref")
		ref.CreateAttr("idref", id)
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

// spineItemIDs returns the reading order for the spine element: the
// declared spine filtered to XHTML documents, or every XHTML item in
// manifest order when the declared spine yields nothing.
func (e *Epub) spineItemIDs() []string {
	var ids []string
	for _, id := range e.spine {
		if it, ok := e.itemsByID[id]; ok && it.MediaType == mediaTypeXHTML {
			ids = append(ids, id)
		}
	}
	if len(ids) > 0 {
		return ids
	}
	for _, it := range e.items {
		if it.MediaType == mediaTypeXHTML {
			ids = append(ids, it.ID)
		}
	}
	return ids
}
