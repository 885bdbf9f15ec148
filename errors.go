package epubifyer

import "errors"

// Sentinel errors returned by the package. Callers can test for them
// with errors.Is; most are returned wrapped with context.
var (
	// ErrCoverFetch indicates the cover image could not be retrieved
	// from its URL or file path.
	ErrCoverFetch = errors.New("epubifyer: cover fetch failed")

	// ErrCoverFormat indicates the cover source was recognized but its
	// format could not be handled (for example a data URI that is not
	// base64-encoded).
	ErrCoverFormat = errors.New("epubifyer: unsupported cover format")

	// ErrNoContent indicates a chapter was added with no usable content.
	ErrNoContent = errors.New("epubifyer: chapter has no content")

	// ErrDuplicateID indicates an item id is already registered.
	ErrDuplicateID = errors.New("epubifyer: duplicate item id")
)
