// Package core defines the pipeline types and interfaces for postpress.
// Each stage of the export pipeline is a clean, testable interface.
package core

import "context"

// FetchResult holds the raw HTML and response metadata from a fetch.
type FetchResult struct {
	URL        string
	StatusCode int
	HTML       string
}

// Fetcher retrieves raw HTML from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// ImageFetcher retrieves binary image data. The returned media type is the
// server's Content-Type and may be empty.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, string, error)
}

// Extractor pulls the article body from raw HTML, stripping noise.
type Extractor interface {
	Extract(html string) (string, error)
}

// Normalizer turns a fetched post into a NormalizedDocument.
type Normalizer interface {
	Normalize(ctx context.Context, post PostRef, raw *FetchResult) (*NormalizedDocument, error)
}

// CoverResolver produces the cover asset for an export job.
type CoverResolver interface {
	Resolve(ctx context.Context, mode CoverMode, custom *CoverImage, pub PublicationRef, needImage bool) (*CoverAsset, error)
}

// Renderer packages a Compilation into the bytes of one output file.
type Renderer interface {
	Render(comp *Compilation, cover *CoverAsset) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".epub", ".txt").
	Extension() string
}
