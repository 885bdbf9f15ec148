// HTML to XHTML sanitization for EPUB 3 compliance.
// Reduces arbitrary web HTML to the element and attribute set EPUB 3
// reading systems accept.
package epubifyer

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// allowedElements is the element allow-list. Anything else is demoted to
// a div (keeping its children) or removed outright when childless.
var allowedElements = map[string]bool{
	"div": true, "p": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "ul": true, "ol": true, "li": true, "dl": true,
	"dt": true, "dd": true, "address": true, "hr": true, "pre": true,
	"blockquote": true, "cite": true, "em": true, "strong": true,
	"small": true, "s": true, "dfn": true, "abbr": true, "data": true,
	"time": true, "code": true, "var": true, "samp": true, "kbd": true,
	"sub": true, "sup": true, "i": true, "b": true, "u": true, "mark": true,
	"ruby": true, "rt": true, "rp": true, "bdi": true, "bdo": true,
	"span": true, "br": true, "wbr": true, "ins": true, "del": true,
	"img": true, "table": true, "caption": true, "colgroup": true,
	"col": true, "tbody": true, "thead": true, "tfoot": true, "tr": true,
	"td": true, "th": true, "section": true, "article": true,
	"aside": true, "header": true, "footer": true, "main": true,
	"figure": true, "figcaption": true, "nav": true, "a": true,
}

// droppedElements are removed with their entire subtree. Demoting these
// to a container would surface script bodies and style sheets as visible
// text.
var droppedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"iframe": true, "object": true,
}

// globalAttrs are allowed on every element.
var globalAttrs = map[string]bool{
	"id": true, "class": true, "style": true, "title": true,
	"lang": true, "dir": true, "epub:type": true, "xml:lang": true,
}

// tagAttrs are additionally allowed on specific elements.
var tagAttrs = map[string]map[string]bool{
	"a":          {"href": true, "rel": true, "type": true},
	"img":        {"src": true, "alt": true},
	"td":         {"colspan": true, "rowspan": true, "headers": true},
	"th":         {"colspan": true, "rowspan": true, "scope": true, "headers": true},
	"ol":         {"start": true, "reversed": true, "type": true},
	"time":       {"datetime": true},
	"data":       {"value": true},
	"blockquote": {"cite": true},
	"q":          {"cite": true},
	"ins":        {"cite": true, "datetime": true},
	"del":        {"cite": true, "datetime": true},
	"col":        {"span": true},
	"colgroup":   {"span": true},
}

// allowedAttr reports whether an attribute survives sanitization: global
// attributes, the data-* custom attribute space, and per-tag extras.
func allowedAttr(tag string, a html.Attribute) bool {
	key := a.Key
	if a.Namespace != "" {
		key = a.Namespace + ":" + a.Key
	}
	if globalAttrs[key] {
		return true
	}
	if strings.HasPrefix(key, "data-") {
		return true
	}
	return tagAttrs[tag][key]
}

// frameElement reports whether n is part of the parser-supplied document
// frame rather than content.
func frameElement(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Html, atom.Head, atom.Body:
		return true
	}
	return false
}

// sanitizeTree cleans a parsed tree in place. Disallowed elements that
// still carry children become plain divs with the children migrated in
// order; childless ones and the droppedElements set are removed. Sibling
// order is never changed.
func sanitizeTree(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && !frameElement(c) {
			if droppedElements[c.Data] {
				n.RemoveChild(c)
				c = next
				continue
			}
			if !allowedElements[c.Data] {
				if c.FirstChild == nil {
					n.RemoveChild(c)
					c = next
					continue
				}
				// Demote to a generic container, children intact.
				c.Data = "div"
				c.DataAtom = atom.Div
				c.Attr = nil
			} else {
				filterAttrs(c)
			}
		}
		sanitizeTree(c)
		c = next
	}
}

func filterAttrs(n *html.Node) {
	filtered := n.Attr[:0]
	for _, a := range n.Attr {
		if allowedAttr(n.Data, a) {
			filtered = append(filtered, a)
		}
	}
	n.Attr = filtered
}
