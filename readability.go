package epubifyer

import (
	"bytes"
	"fmt"
	"net/url"

	"codeberg.org/readeck/go-readability"
)

// AddChapterFromURL fetches a web page, extracts the readable article
// from it and adds the result as a chapter. An empty title falls back to
// the extracted article title. Returns the chapter item id.
func (e *Epub) AddChapterFromURL(title, rawURL string) (string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	body, _, err := e.fetcher.fetch(rawURL)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	e.log.Info("fetched page", "url", rawURL, "bytes", len(body))

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", fmt.Errorf("extracting article from %s: %w", rawURL, err)
	}
	if article.Content == "" {
		return "", fmt.Errorf("no readable content in %s", rawURL)
	}
	if title == "" {
		title = article.Title
	}
	if title == "" {
		title = rawURL
	}
	return e.AddChapter(title, HTML(article.Content), "")
}
