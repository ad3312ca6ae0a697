package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Metadata is what a post page says about itself.
type Metadata struct {
	Title              string
	Author             string
	PublishedAt        string
	Subtitle           string
	ImageURL           string
	Tags               []string
	ReadingTimeMinutes int
}

var readingTimePattern = regexp.MustCompile(`(?i)(\d+)\s*min(?:ute)?s?\s*read`)

// authorSelectors are text candidates for the byline, after the meta tags.
var authorSelectors = []string{
	"[itemprop='author']",
	"a[rel='author']",
	".pencraft .byline-name",
	".post-meta .author",
}

// ExtractMetadata reads page-level metadata from raw HTML. Missing values are
// left empty.
func ExtractMetadata(html string) (Metadata, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Metadata{}, fmt.Errorf("parsing HTML: %w", err)
	}

	m := Metadata{
		Title:       firstNonEmpty(metaProperty(doc, "og:title"), firstText(doc, "h1")),
		Author:      extractAuthor(doc),
		PublishedAt: metaProperty(doc, "article:published_time"),
		Subtitle:    metaProperty(doc, "og:description"),
		ImageURL:    metaProperty(doc, "og:image"),
	}

	doc.Find("meta[property='article:tag']").Each(func(_ int, s *goquery.Selection) {
		if v := collapseSpace(s.AttrOr("content", "")); v != "" {
			m.Tags = append(m.Tags, v)
		}
	})

	if match := readingTimePattern.FindStringSubmatch(doc.Text()); match != nil {
		if n, err := strconv.Atoi(match[1]); err == nil && n > 0 {
			m.ReadingTimeMinutes = n
		}
	}
	return m, nil
}

func extractAuthor(doc *goquery.Document) string {
	candidates := []string{
		metaName(doc, "author"),
		metaName(doc, "parsely-author"),
		metaProperty(doc, "article:author"),
		metaProperty(doc, "og:article:author"),
	}
	for _, sel := range authorSelectors {
		candidates = append(candidates, firstText(doc, sel))
	}
	candidates = append(candidates, jsonLDAuthor(doc))

	for _, c := range candidates {
		c = collapseSpace(c)
		if c == "" {
			continue
		}
		switch strings.ToLower(c) {
		case "substack", "unknown":
			continue
		}
		return c
	}
	return ""
}

func jsonLDAuthor(doc *goquery.Document) string {
	var found string
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &v); err != nil {
			return true
		}
		for _, name := range collectAuthorNames(v, nil) {
			if name = collapseSpace(name); name != "" {
				found = name
				return false
			}
		}
		return true
	})
	return found
}

func collectAuthorNames(v any, out []string) []string {
	switch t := v.(type) {
	case map[string]any:
		switch a := t["author"].(type) {
		case string:
			out = append(out, a)
		case map[string]any:
			if name, ok := a["name"].(string); ok {
				out = append(out, name)
			}
		case []any:
			for _, item := range a {
				if obj, ok := item.(map[string]any); ok {
					if name, ok := obj["name"].(string); ok {
						out = append(out, name)
					}
				}
			}
		}
		for key, child := range t {
			if key == "author" {
				continue
			}
			out = collectAuthorNames(child, out)
		}
	case []any:
		for _, item := range t {
			out = collectAuthorNames(item, out)
		}
	}
	return out
}

func metaProperty(doc *goquery.Document, property string) string {
	return collapseSpace(doc.Find(fmt.Sprintf("meta[property='%s']", property)).First().AttrOr("content", ""))
}

func metaName(doc *goquery.Document, name string) string {
	return collapseSpace(doc.Find(fmt.Sprintf("meta[name='%s']", name)).First().AttrOr("content", ""))
}

func firstText(doc *goquery.Document, selector string) string {
	return collapseSpace(doc.Find(selector).First().Text())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
