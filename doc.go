// Package epubifyer builds EPUB 3 publications from HTML content.
//
// An Epub accumulates chapters, images and stylesheets through its Add*
// methods, then serializes the whole publication as a single ZIP archive
// with Bytes, WriteTo or Save. Chapter HTML is parsed, cleaned down to an
// EPUB-safe element and attribute set, and re-serialized as XHTML; remote
// and data-URI images referenced by chapters are pulled into the archive
// and the markup rewritten to point at them.
//
// An Epub is not safe for concurrent use.
package epubifyer
