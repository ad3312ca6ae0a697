// Package normalize implements the Normalizer interface.
// It turns a fetched post page into a NormalizedDocument: page metadata
// merged with the post listing, the body split into structural blocks,
// footnotes pulled out and numbered, and images optionally embedded.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/gaurav-prasanna/postpress/core"
	"github.com/gaurav-prasanna/postpress/core/extract"
)

const wordsPerMinute = 225

// Options controls optional normalizer behavior.
type Options struct {
	// Images retrieves inline images. Required when FetchImages is set.
	Images       core.ImageFetcher
	FetchImages  bool
	ImageTimeout time.Duration
}

// DocumentNormalizer converts post pages into NormalizedDocuments.
type DocumentNormalizer struct {
	extractor core.Extractor
	opts      Options
}

// New creates a DocumentNormalizer.
func New(opts Options) *DocumentNormalizer {
	if opts.ImageTimeout <= 0 {
		opts.ImageTimeout = core.DefaultEngineSettings().ImageTimeout
	}
	return &DocumentNormalizer{extractor: extract.New(), opts: opts}
}

// Normalize builds a NormalizedDocument from a fetched post page. Any failure
// is a *core.ContentParseError.
func (n *DocumentNormalizer) Normalize(ctx context.Context, post core.PostRef, raw *core.FetchResult) (*core.NormalizedDocument, error) {
	fail := func(err error) (*core.NormalizedDocument, error) {
		return nil, &core.ContentParseError{PostID: post.ID, Err: err}
	}

	if raw == nil || strings.TrimSpace(raw.HTML) == "" {
		return fail(errors.New("empty content"))
	}

	meta, err := extract.ExtractMetadata(raw.HTML)
	if err != nil {
		return fail(err)
	}

	body, err := n.extractor.Extract(raw.HTML)
	if err != nil {
		return fail(err)
	}

	root, err := goquery.NewDocumentFromReader(strings.NewReader("<div id=\"postpress-root\">" + body + "</div>"))
	if err != nil {
		return fail(fmt.Errorf("parsing body: %w", err))
	}
	container := root.Find("#postpress-root").First()

	base := baseURL(raw.URL, post.URL)
	scrubTokenDelimiters(container.Get(0))
	footnotes := extractFootnotes(container)
	absolutizeLinks(container, base)

	blocks, err := buildBlocks(container)
	if err != nil {
		return fail(err)
	}
	if len(blocks) == 0 {
		return fail(errors.New("no content blocks found"))
	}

	doc := &core.NormalizedDocument{
		PostID:      post.ID,
		Title:       firstNonEmpty(meta.Title, post.Title),
		Author:      firstNonEmpty(meta.Author, post.Author),
		PublishedAt: core.ParsePublishedAt(firstNonEmpty(meta.PublishedAt, post.PublishedAt)),
		URL:         post.URL,
		Tags:        meta.Tags,
		Subtitle:    firstNonEmpty(meta.Subtitle, post.Subtitle),
		Summary:     post.Summary,
		Blocks:      blocks,
		Footnotes:   footnotes,
	}
	if len(doc.Tags) == 0 {
		doc.Tags = post.Tags
	}
	if strings.TrimSpace(doc.Title) == "" {
		doc.Title = "Untitled"
	}

	doc.ReadingTimeMinutes = meta.ReadingTimeMinutes
	if doc.ReadingTimeMinutes == 0 {
		doc.ReadingTimeMinutes = estimateReadingTime(blocks)
	}

	for i := range doc.Blocks {
		if img := doc.Blocks[i].Image; img != nil {
			img.Src = resolveURL(base, img.Src)
		}
	}
	if n.opts.FetchImages && n.opts.Images != nil {
		if err := n.embedImages(ctx, doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// estimateReadingTime counts words across all block text.
func estimateReadingTime(blocks []core.Block) int {
	words := 0
	for _, b := range blocks {
		words += len(strings.Fields(b.Text))
		for _, item := range b.Items {
			words += len(strings.Fields(item.Text))
		}
	}
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) / wordsPerMinute))
}

func baseURL(candidates ...string) *url.URL {
	for _, c := range candidates {
		if u, err := url.Parse(c); err == nil && u.IsAbs() {
			return u
		}
	}
	return nil
}

func resolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if base == nil || ref == "" {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// absolutizeLinks points every remaining link at the web so packaged files
// carry no dangling relative references.
func absolutizeLinks(s *goquery.Selection, base *url.URL) {
	s.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		resolved := resolveURL(base, href)
		if !strings.HasPrefix(resolved, "http://") && !strings.HasPrefix(resolved, "https://") && !strings.HasPrefix(resolved, "mailto:") {
			a.RemoveAttr("href")
			return
		}
		a.SetAttr("href", resolved)
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
