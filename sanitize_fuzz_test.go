package epubifyer

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

// FuzzSanitize feeds arbitrary bytes through the parse/sanitize/serialize
// pipeline and checks the output never contains a disallowed element and
// always reparses.
func FuzzSanitize(f *testing.F) {
	seeds := []string{
		"<p>hello</p>",
		"<script>alert(1)</script>",
		"<center><p>x</p></center>",
		`<img src="a.png" onerror="x()">`,
		"<table><tr><td>1</td></tr></table>",
		"<p>a & b < c</p>",
		"plain text, no markup",
		"<<<>>>&&&",
		"<p unclosed",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		input = stripInvalidXMLChars(input)
		root, err := html.Parse(strings.NewReader(input))
		if err != nil {
			t.Skip()
		}
		sanitizeTree(root)
		body := findBody(root)
		if body == nil {
			t.Skip()
		}
		var buf bytes.Buffer
		for c := body.FirstChild; c != nil; c = c.NextSibling {
			renderXHTML(&buf, c)
		}

		out := buf.String()
		reparsed, err := html.Parse(strings.NewReader(out))
		if err != nil {
			t.Fatalf("output does not reparse: %v\noutput: %q", err, out)
		}
		var walk func(n *html.Node)
		walk = func(n *html.Node) {
			if n.Type == html.ElementNode && !frameElement(n) && !allowedElements[n.Data] {
				t.Errorf("disallowed element <%s> in output %q", n.Data, out)
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
		walk(reparsed)
	})
}
