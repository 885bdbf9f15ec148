package epubifyer

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPickLargestSrcset(t *testing.T) {
	tests := []struct {
		name   string
		srcset string
		want   string
	}{
		{
			"largest width wins",
			"small.jpg 320w, large.jpg 1280w, medium.jpg 640w",
			"large.jpg",
		},
		{
			"single candidate",
			"only.jpg 640w",
			"only.jpg",
		},
		{
			"no descriptors",
			"a.jpg, b.jpg",
			"a.jpg",
		},
		{
			"density descriptors count zero",
			"a.jpg 2x, b.jpg 100w",
			"b.jpg",
		},
		{"empty", "", ""},
		{"whitespace only", "  ,  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickLargestSrcset(tt.srcset); got != tt.want {
				t.Errorf("pickLargestSrcset(%q) = %q, want %q", tt.srcset, got, tt.want)
			}
		})
	}
}

func TestMediaTypeForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"photo.jpg", "image/jpeg"},
		{"photo.JPEG", "image/jpeg"},
		{"art.png", "image/png"},
		{"anim.gif", "image/gif"},
		{"logo.svg", "image/svg+xml"},
		{"pic.webp", "image/webp"},
		{"file.xyz", "application/octet-stream"},
		{"noext", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := mediaTypeForPath(tt.path); got != tt.want {
			t.Errorf("mediaTypeForPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

// tinyPNG is a 1x1 transparent PNG.
var tinyPNG = mustBase64("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

func mustBase64(s string) []byte {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return data
}

func TestAddChapterInlinesDataURI(t *testing.T) {
	e := New(Metadata{})
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(tinyPNG)
	_, err := e.AddChapter("C", HTML(`<p><img src="`+uri+`" alt="dot"/></p>`), "c")
	if err != nil {
		t.Fatal(err)
	}

	var img *Item
	for _, it := range e.Items() {
		if it.MediaType == "image/png" {
			img = it
		}
	}
	if img == nil {
		t.Fatal("no image item registered")
	}
	if !strings.HasPrefix(img.Href, "images/") || !strings.HasSuffix(img.Href, ".png") {
		t.Errorf("image href = %q", img.Href)
	}
	if len(img.Data) != len(tinyPNG) {
		t.Errorf("image data %d bytes, want %d", len(img.Data), len(tinyPNG))
	}

	doc := string(e.itemsByID["c"].Data)
	if strings.Contains(doc, "data:image") {
		t.Errorf("data URI not rewritten:\n%s", doc)
	}
	if !strings.Contains(doc, `src="../`+img.Href+`"`) {
		t.Errorf("chapter does not reference %q:\n%s", img.Href, doc)
	}
	if !strings.Contains(doc, `alt="dot"`) {
		t.Errorf("alt lost:\n%s", doc)
	}
}

func TestAddChapterFetchesRemoteImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(tinyPNG)
	}))
	defer srv.Close()

	e := New(Metadata{})
	e.SetHTTPClient(srv.Client())
	_, err := e.AddChapter("C", HTML(`<p><img src="`+srv.URL+`/dot.png"/></p>`), "c")
	if err != nil {
		t.Fatal(err)
	}

	var img *Item
	for _, it := range e.Items() {
		if it.MediaType == "image/png" {
			img = it
		}
	}
	if img == nil {
		t.Fatal("remote image not registered")
	}
	doc := string(e.itemsByID["c"].Data)
	if strings.Contains(doc, srv.URL) {
		t.Errorf("remote URL not rewritten:\n%s", doc)
	}
	if !strings.Contains(doc, `src="../`+img.Href+`"`) {
		t.Errorf("chapter does not reference %q:\n%s", img.Href, doc)
	}
}

func TestAddChapterSrcsetSupersedesSrc(t *testing.T) {
	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.Header().Set("Content-Type", "image/png")
		w.Write(tinyPNG)
	}))
	defer srv.Close()

	e := New(Metadata{})
	e.SetHTTPClient(srv.Client())
	markup := `<img src="` + srv.URL + `/small.png" srcset="` +
		srv.URL + `/small.png 320w, ` + srv.URL + `/big.png 1280w"/>`
	if _, err := e.AddChapter("C", HTML(markup), "c"); err != nil {
		t.Fatal(err)
	}
	if requested != "/big.png" {
		t.Errorf("fetched %q, want /big.png", requested)
	}
	doc := string(e.itemsByID["c"].Data)
	if strings.Contains(doc, "srcset") {
		t.Errorf("srcset not removed:\n%s", doc)
	}
}

func TestAddChapterFailedFetchLeavesSrc(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	e := New(Metadata{})
	e.SetHTTPClient(srv.Client())
	src := srv.URL + "/gone.png"
	_, err := e.AddChapter("C", HTML(`<p><img src="`+src+`"/>after</p>`), "c")
	if err != nil {
		t.Fatalf("per-image failure must not fail the chapter: %v", err)
	}

	if len(e.Items()) != 1 {
		t.Fatalf("items = %d, want only the chapter", len(e.Items()))
	}
	doc := string(e.Items()[0].Data)
	if !strings.Contains(doc, `src="`+src+`"`) {
		t.Errorf("failed fetch should leave src unchanged:\n%s", doc)
	}
	if !strings.Contains(doc, "after") {
		t.Errorf("surrounding content lost:\n%s", doc)
	}
}

func TestAddChapterLocalRefsUntouched(t *testing.T) {
	e := New(Metadata{})
	_, err := e.AddChapter("C", HTML(`<p><img src="../images/already.png" alt="x"/></p>`), "c")
	if err != nil {
		t.Fatal(err)
	}
	if len(e.Items()) != 1 {
		t.Fatalf("local reference must not register items, got %d", len(e.Items()))
	}
	doc := string(e.Items()[0].Data)
	if !strings.Contains(doc, `src="../images/already.png"`) {
		t.Errorf("local src modified:\n%s", doc)
	}
}

func TestAddChapterStripsDimensions(t *testing.T) {
	e := New(Metadata{})
	_, err := e.AddChapter("C", HTML(
		`<table width="500"><tr><td height="20">x</td></tr></table>`+
			`<img src="local.png" width="100" height="50"/>`), "c")
	if err != nil {
		t.Fatal(err)
	}
	doc := string(e.Items()[0].Data)
	if strings.Contains(doc, "width=") || strings.Contains(doc, "height=") {
		t.Errorf("width/height attributes not stripped:\n%s", doc)
	}
}
