// Package extract implements the Extractor interface.
// It isolates a post body from a full publication page by:
//  1. Finding the best content container (Substack body selectors, then <article>, <main>, <body>)
//  2. Removing noise elements (scripts, embeds, forms, subscribe and share widgets)
//  3. Sanitizing what remains with a UGC policy
//
// Images are kept; the normalizer decides whether to embed them.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// ErrNoContent is returned when a page has no usable body container.
var ErrNoContent = errors.New("no content container found in HTML")

// bodySelectors are tried in order; the first non-empty match wins.
var bodySelectors = []string{
	".available-content",
	"article .body",
	"article .markup",
	".body.markup",
	"article",
	"main",
	"body",
}

// noiseSelectors are removed from the chosen container.
var noiseSelectors = []string{
	"script", "style", "noscript", "template",
	"iframe", "video", "audio", "embed", "object",
	"svg", "canvas",
	"form", "button", "input", "select", "textarea",
	".subscribe-widget", ".subscription-widget-wrap", ".subscription-widget",
	".share-dialog", ".post-ufi", ".button-wrapper", ".paywall",
	".image-link-expand", "[data-component-name='SubscribeWidgetToDOM']",
	"[data-component-name='ButtonCreateButton']",
}

// HTMLExtractor strips noise from HTML and returns the post body fragment.
type HTMLExtractor struct {
	policy *bluemonday.Policy
}

// New creates an HTMLExtractor.
func New() *HTMLExtractor {
	p := bluemonday.UGCPolicy()
	// Footnote detection relies on class and id hooks.
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^[\w\- ]+$`)).Globally()
	p.AllowAttrs("data-src").OnElements("img")
	p.AllowElements("figure", "figcaption", "picture", "section", "aside")
	return &HTMLExtractor{policy: p}
}

// Extract takes raw HTML and returns the sanitized inner HTML of the post body.
func (e *HTMLExtractor) Extract(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	var content *goquery.Selection
	for _, sel := range bodySelectors {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		if strings.TrimSpace(s.Text()) == "" && s.Find("img").Length() == 0 {
			continue
		}
		content = s
		break
	}
	if content == nil {
		return "", ErrNoContent
	}

	for _, sel := range noiseSelectors {
		content.Find(sel).Remove()
	}

	inner, err := content.Html()
	if err != nil {
		return "", fmt.Errorf("serializing content: %w", err)
	}

	cleaned := e.policy.Sanitize(inner)
	if strings.TrimSpace(cleaned) == "" {
		return "", ErrNoContent
	}
	return cleaned, nil
}
