package epubifyer

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReadLimited(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		limit   int64
		want    string
		wantErr bool
	}{
		{"under limit", "hello", 10, "hello", false},
		{"at limit", "hello", 5, "hello", false},
		{"over limit", "hello world", 5, "", true},
		{"unlimited", strings.Repeat("x", 1000), 0, strings.Repeat("x", 1000), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readLimited(strings.NewReader(tt.input), tt.limit)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("got %d bytes, want %d", len(got), len(tt.want))
			}
		})
	}
}

func TestBareMediaType(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"image/png", "image/png"},
		{"text/html; charset=utf-8", "text/html"},
		{"  image/jpeg ", "image/jpeg"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := bareMediaType(tt.input); got != tt.want {
			t.Errorf("bareMediaType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFetcherFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); !strings.Contains(got, "Firefox") {
			t.Errorf("unexpected User-Agent %q", got)
		}
		w.Header().Set("Content-Type", "image/png; charset=binary")
		w.Write([]byte("pngbytes"))
	}))
	defer srv.Close()

	f := newFetcher()
	f.client = srv.Client()
	body, ctype, err := f.fetch(srv.URL + "/a.png")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(body) != "pngbytes" {
		t.Errorf("body = %q", body)
	}
	if ctype != "image/png" {
		t.Errorf("content type = %q, want image/png", ctype)
	}
}

func TestFetcherFetchHTTPErrorNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newFetcher()
	f.client = srv.Client()
	if _, _, err := f.fetch(srv.URL); err == nil {
		t.Fatal("expected error for HTTP 500")
	}
	if calls != 1 {
		t.Errorf("HTTP error status retried %d times, want a single attempt", calls)
	}
}

func TestFetcherFetchSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer srv.Close()

	f := newFetcher()
	f.client = srv.Client()
	f.maxBytes = 1024
	if _, _, err := f.fetch(srv.URL); err == nil {
		t.Fatal("expected error for oversized body")
	}
}

func TestHasPort(t *testing.T) {
	if !hasPort("example.com:443") {
		t.Error("example.com:443 has a port")
	}
	if hasPort("example.com") {
		t.Error("example.com has no port")
	}
}
