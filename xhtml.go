package epubifyer

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// voidElements must be emitted self-closed in XHTML and never receive a
// closing tag or children.
var voidElements = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true,
	atom.Embed: true, atom.Hr: true, atom.Img: true, atom.Input: true,
	atom.Link: true, atom.Meta: true, atom.Param: true, atom.Source: true,
	atom.Track: true, atom.Wbr: true,
}

var (
	multiNewlineRe = regexp.MustCompile(`\n{2,}`)
	// Named or numeric character references already present in the text.
	// Ampersands inside these spans stay as-is; every other ampersand is
	// escaped.
	entityRe    = regexp.MustCompile(`&(?:#[0-9]+|#[xX][0-9a-fA-F]+|[A-Za-z][A-Za-z0-9]*);`)
	stripTagsRe = regexp.MustCompile(`<[^>]*>`)
)

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\u00a0", "&#160;",
)

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"\u00a0", "&#160;",
)

// escapeText escapes character data for XHTML. Runs of blank lines
// collapse to a single newline, bare ampersands are escaped without
// double-escaping references that are already well-formed, and
// non-breaking spaces become numeric references (the named &nbsp; entity
// is undefined in XHTML without the full DTD).
func escapeText(s string) string {
	s = multiNewlineRe.ReplaceAllString(s, "\n")
	spans := entityRe.FindAllStringIndex(s, -1)
	if spans == nil {
		return textEscaper.Replace(s)
	}
	var b strings.Builder
	b.Grow(len(s) + 16)
	prev := 0
	for _, span := range spans {
		b.WriteString(textEscaper.Replace(s[prev:span[0]]))
		b.WriteString(s[span[0]:span[1]])
		prev = span[1]
	}
	b.WriteString(textEscaper.Replace(s[prev:]))
	return b.String()
}

// escapeAttr escapes an attribute value for double-quoted XHTML output.
func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}

// renderXHTML serializes a cleaned node tree as XHTML. Void elements are
// always self-closed; comments and doctypes are dropped.
func renderXHTML(buf *bytes.Buffer, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		buf.WriteString(escapeText(n.Data))
	case html.ElementNode:
		buf.WriteByte('<')
		buf.WriteString(n.Data)
		for _, a := range n.Attr {
			buf.WriteByte(' ')
			if a.Namespace != "" {
				buf.WriteString(a.Namespace)
				buf.WriteByte(':')
			}
			buf.WriteString(a.Key)
			buf.WriteString(`="`)
			buf.WriteString(escapeAttr(a.Val))
			buf.WriteByte('"')
		}
		if voidElements[n.DataAtom] {
			buf.WriteString("/>")
			return
		}
		buf.WriteByte('>')
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderXHTML(buf, c)
		}
		buf.WriteString("</")
		buf.WriteString(n.Data)
		buf.WriteByte('>')
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderXHTML(buf, c)
		}
	case html.CommentNode, html.DoctypeNode:
		// dropped
	case html.RawNode:
		buf.WriteString(n.Data)
	}
}

// plainTextFallback is the degraded path taken when content cannot be
// parsed as HTML: all markup is stripped and the remaining text is
// escaped into a single paragraph.
func plainTextFallback(content string) string {
	text := stripTagsRe.ReplaceAllString(content, "")
	return "<p>" + escapeText(text) + "</p>"
}

// stripInvalidXMLChars removes characters not allowed in XML 1.0 content.
// Valid: #x9 | #xA | #xD | [#x20-#xD7FF] | [#xE000-#xFFFD] | [#x10000-#x10FFFF]
func stripInvalidXMLChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0x9 || r == 0xA || r == 0xD ||
			(r >= 0x20 && r <= 0xD7FF) ||
			(r >= 0xE000 && r <= 0xFFFD) ||
			(r >= 0x10000 && r <= 0x10FFFF) {
			return r
		}
		return -1
	}, s)
}
