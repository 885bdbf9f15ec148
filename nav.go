// Navigation document and OCF container.xml rendering.
package epubifyer

import "github.com/beevik/etree"

// buildNav renders nav.xhtml: the TOC as nested ordered lists. An empty
// TOC degrades to a single "Start" entry pointing at the first content
// document, or a dead anchor when there is none.
func (e *Epub) buildNav() ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.CreateDirective("DOCTYPE html")

	root := doc.CreateElement("html")
	root.CreateAttr("xmlns", xhtmlNS)
	root.CreateAttr("xmlns:epub", epubNS)
	root.CreateAttr("lang", e.meta.Language)
	root.CreateAttr("xml:lang", e.meta.Language)

	head := root.CreateElement("head")
	head.CreateElement("title").SetText("Table of Contents")

	body := root.CreateElement("body")
	nav := body.CreateElement("nav")
	nav.CreateAttr("epub:type", "toc")
	nav.CreateElement("h1").SetText("Table of Contents")

	ol := nav.CreateElement("ol")
	if len(e.toc) == 0 {
		li := ol.CreateElement("li")
		a := li.CreateElement("a")
		if first := e.firstContentHref(); first != "" {
			a.CreateAttr("href", first)
		}
		a.SetText("Start")
	} else {
		appendNavList(ol, e.toc)
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

func appendNavList(ol *etree.Element, points []*NavPoint) {
	for _, np := range points {
		li := ol.CreateElement("li")
		a := li.CreateElement("a")
		a.CreateAttr("href", np.Href)
		a.SetText(np.Label)
		if len(np.Children) > 0 {
			appendNavList(li.CreateElement("ol"), np.Children)
		}
	}
}

func (e *Epub) firstContentHref() string {
	for _, id := range e.spineItemIDs() {
		if it, ok := e.itemsByID[id]; ok {
			return it.Href
		}
	}
	return ""
}

// buildContainerXML renders META-INF/container.xml, pointing reading
// systems at the package document.
func buildContainerXML() ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	container := doc.CreateElement("container")
	container.CreateAttr("version", "1.0")
	container.CreateAttr("xmlns", "urn:oasis:names:tc:opendocument:xmlns:container")

	rootfiles := container.CreateElement("rootfiles")
	rootfile := rootfiles.CreateElement("rootfile")
	rootfile.CreateAttr("full-path", contentRoot+"/content.opf")
	rootfile.CreateAttr("media-type", "application/oebps-package+xml")

	doc.Indent(2)
	return doc.WriteToBytes()
}
