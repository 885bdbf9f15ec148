package epubifyer

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const mediaTypeXHTML = "application/xhtml+xml"

// ChapterContent is the content accepted by AddChapter: a single HTML
// string, a pre-split list of parts, or explicitly ordered parts.
type ChapterContent interface {
	chapterParts() []string
}

// HTML is a chapter body as one HTML string.
type HTML string

func (h HTML) chapterParts() []string { return []string{string(h)} }

// HTMLParts is a chapter pre-split into sequential parts, each becoming
// its own spine document.
type HTMLParts []string

func (p HTMLParts) chapterParts() []string { return p }

// OrderedPart pairs a part with an explicit sort key.
type OrderedPart struct {
	Order int
	HTML  string
}

// OrderedParts is a chapter whose parts carry explicit ordering. Parts
// are sorted ascending by Order before use; equal keys keep their given
// relative order.
type OrderedParts []OrderedPart

func (p OrderedParts) chapterParts() []string {
	sorted := append(OrderedParts(nil), p...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	parts := make([]string, len(sorted))
	for i, op := range sorted {
		parts[i] = op.HTML
	}
	return parts
}

// AddChapter adds a chapter. Multi-part content becomes one spine
// document per part, with ids <id>_part1, <id>_part2, ... and "(Part N)"
// appended to the displayed title; single-part content keeps the id as
// given. An empty id is generated. Only the first part appears in the
// TOC. Returns the id of the first part.
func (e *Epub) AddChapter(title string, content ChapterContent, id string) (string, error) {
	parts := content.chapterParts()
	if len(parts) == 0 {
		return "", ErrNoContent
	}
	if id == "" {
		id = e.nextID("chapter")
	}

	firstID := ""
	for i, part := range parts {
		partID := id
		partTitle := title
		if len(parts) > 1 {
			partID = fmt.Sprintf("%s_part%d", id, i+1)
			partTitle = fmt.Sprintf("%s (Part %d)", title, i+1)
		}
		body := e.buildChapterBody(part)
		doc := e.chapterShell(partTitle, body)
		it := &Item{
			ID:        partID,
			Href:      "text/" + partID + ".xhtml",
			MediaType: mediaTypeXHTML,
			Data:      []byte(doc),
		}
		if err := e.addItem(it); err != nil {
			return "", err
		}
		e.spine = append(e.spine, partID)
		if i == 0 {
			firstID = partID
			e.appendNavPoint(&NavPoint{ID: partID, Label: title, Href: it.Href}, "")
		}
	}
	return firstID, nil
}

// buildChapterBody runs one part through the content pipeline: parse,
// localize images, sanitize, serialize as XHTML. Unparseable content
// degrades to escaped plain text.
func (e *Epub) buildChapterBody(content string) string {
	content = stripInvalidXMLChars(content)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		e.log.Warn("chapter HTML parse failed, falling back to plain text", "error", err)
		return plainTextFallback(content)
	}

	e.inlineImages(doc)

	root := doc.Get(0)
	sanitizeTree(root)

	body := findBody(root)
	if body == nil {
		return plainTextFallback(content)
	}
	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		renderXHTML(&buf, c)
	}
	return buf.String()
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if body := findBody(c); body != nil {
			return body
		}
	}
	return nil
}

// chapterShell wraps a cleaned body fragment in a complete XHTML chapter
// document, linking every registered stylesheet.
func (e *Epub) chapterShell(title, body string) string {
	var links strings.Builder
	for _, href := range e.cssHrefs {
		fmt.Fprintf(&links, "  <link rel=\"stylesheet\" type=\"text/css\" href=\"../%s\"/>\n", href)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops" lang="%s" xml:lang="%s">
<head>
  <title>%s</title>
%s</head>
<body>
%s
</body>
</html>
`, escapeAttr(e.meta.Language), escapeAttr(e.meta.Language), escapeText(title), links.String(), body)
}
