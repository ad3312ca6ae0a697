// Package crawl discovers a publication and its posts.
// The RSS feed is tried first; when it is missing or empty the archive page
// is scanned for post links. Publication identity (author and author image)
// is then filled in from the homepage when the listing lacks it.
package crawl

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/gaurav-prasanna/postpress/core"
	"github.com/gaurav-prasanna/postpress/core/extract"
)

// ErrNoPosts is returned when neither the feed nor the archive lists posts.
var ErrNoPosts = errors.New("could not discover any posts from feed or archive")

// now is replaced in tests.
var now = time.Now

// Listing is a discovered publication and its posts, newest first for feeds
// and in archive order otherwise.
type Listing struct {
	Publication core.PublicationRef `json:"publication"`
	Posts       []core.PostRef      `json:"posts"`
	// Source is "feed" or "archive".
	Source string `json:"source"`
}

type rssFeed struct {
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Image rssImage  `xml:"image"`
	Items []rssItem `xml:"item"`
}

type rssImage struct {
	URL string `xml:"url"`
}

type rssItem struct {
	Title       string       `xml:"title"`
	Link        string       `xml:"link"`
	GUID        string       `xml:"guid"`
	PubDate     string       `xml:"pubDate"`
	Description string       `xml:"description"`
	Author      string       `xml:"author"`
	Creator     string       `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Categories  []string     `xml:"category"`
	Enclosure   rssEnclosure `xml:"enclosure"`
}

type rssEnclosure struct {
	URL  string `xml:"url,attr"`
	Type string `xml:"type,attr"`
}

// DiscoverPublication lists the posts of the publication at input, which may
// be a full URL, a host, or a bare Substack name.
func DiscoverPublication(ctx context.Context, input string, fetcher core.Fetcher) (*Listing, error) {
	baseURL, err := NormalizePublicationURL(input)
	if err != nil {
		return nil, err
	}

	listing, feedErr := discoverFromFeed(ctx, baseURL, fetcher)
	if feedErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Debug("feed unavailable, scanning archive", "publication", baseURL, "error", feedErr)
		var archiveErr error
		listing, archiveErr = discoverFromArchive(ctx, baseURL, fetcher)
		if archiveErr != nil {
			return nil, fmt.Errorf("%w (feed: %v; archive: %v)", ErrNoPosts, feedErr, archiveErr)
		}
	}

	hydrateIdentity(ctx, &listing.Publication, fetcher)
	return listing, nil
}

func feedCandidates(baseURL string) []string {
	candidates := []string{baseURL + "/feed", baseURL + "/rss"}
	if strings.Contains(baseURL, "substack.com") {
		candidates = append(candidates, baseURL+"/feed?source=desktop")
	}
	return candidates
}

func discoverFromFeed(ctx context.Context, baseURL string, fetcher core.Fetcher) (*Listing, error) {
	var lastErr error
	for _, feedURL := range feedCandidates(baseURL) {
		res, err := fetcher.Fetch(ctx, feedURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("feed candidate %s: %w", feedURL, err)
			continue
		}

		var feed rssFeed
		if err := xml.Unmarshal([]byte(res.HTML), &feed); err != nil {
			lastErr = fmt.Errorf("parsing feed %s: %w", feedURL, err)
			continue
		}
		posts := postsFromFeed(feed.Channel)
		if len(posts) == 0 {
			return nil, fmt.Errorf("feed %s lists no posts", feedURL)
		}
		return &Listing{
			Publication: core.PublicationRef{
				URL:            baseURL,
				Title:          strings.TrimSpace(feed.Channel.Title),
				Author:         firstFeedAuthor(feed.Channel.Items),
				AuthorImageURL: strings.TrimSpace(feed.Channel.Image.URL),
			},
			Posts:  posts,
			Source: "feed",
		}, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no feed candidates")
	}
	return nil, lastErr
}

func postsFromFeed(ch rssChannel) []core.PostRef {
	posts := make([]core.PostRef, 0, len(ch.Items))
	for _, item := range ch.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		id := strings.TrimSpace(item.GUID)
		if id == "" {
			id = link
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = "Untitled post"
		}

		published := strings.TrimSpace(item.PubDate)
		if p := core.ParsePublishedAt(published); p.Valid {
			published = p.Time.Format(time.RFC3339)
		}

		var cover string
		if strings.HasPrefix(item.Enclosure.Type, "image/") || item.Enclosure.Type == "" {
			cover = strings.TrimSpace(item.Enclosure.URL)
		}

		var tags []string
		for _, c := range item.Categories {
			if c = strings.TrimSpace(c); c != "" {
				tags = append(tags, c)
			}
		}

		posts = append(posts, core.PostRef{
			ID:            id,
			Title:         title,
			PublishedAt:   published,
			URL:           link,
			Author:        itemAuthor(item),
			CoverImageURL: cover,
			Tags:          tags,
			Subtitle:      strings.TrimSpace(item.Description),
		})
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return core.ParsePublishedAt(posts[i].PublishedAt).SortKey() > core.ParsePublishedAt(posts[j].PublishedAt).SortKey()
	})
	return posts
}

func itemAuthor(item rssItem) string {
	if a := strings.TrimSpace(item.Creator); a != "" {
		return a
	}
	return strings.TrimSpace(item.Author)
}

func firstFeedAuthor(items []rssItem) string {
	for _, item := range items {
		if a := itemAuthor(item); a != "" {
			return a
		}
	}
	return ""
}

func discoverFromArchive(ctx context.Context, baseURL string, fetcher core.Fetcher) (*Listing, error) {
	archiveURL := baseURL + "/archive"
	res, err := fetcher.Fetch(ctx, archiveURL)
	if err != nil {
		return nil, fmt.Errorf("fetching archive: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.HTML))
	if err != nil {
		return nil, fmt.Errorf("parsing archive: %w", err)
	}
	meta, _ := extract.ExtractMetadata(res.HTML)

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = "Substack publication"
	}

	// Archive pages carry no dates. Synthetic timestamps one second apart keep
	// the archive's own order under the default newest-first sort.
	stamp := now().UTC()
	links := NewLinkSet()
	titles := make(map[string]string)
	doc.Find("a[href*='/p/']").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		full := resolveLink(href, base)
		if full == "" || IsAsset(full) || !IsPostURL(full) || !IsSameHost(full, base.Host) {
			return
		}
		full = NormalizeURL(full)
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" || !links.Add(full) {
			return
		}
		titles[full] = text
	})
	if links.Len() == 0 {
		return nil, errors.New("archive lists no posts")
	}

	posts := make([]core.PostRef, 0, links.Len())
	for i, link := range links.All() {
		posts = append(posts, core.PostRef{
			ID:          link,
			Title:       titles[link],
			PublishedAt: stamp.Add(-time.Duration(i) * time.Second).Format(time.RFC3339),
			URL:         link,
			Author:      meta.Author,
		})
	}

	return &Listing{
		Publication: core.PublicationRef{
			URL:            baseURL,
			Title:          title,
			Author:         meta.Author,
			AuthorImageURL: meta.ImageURL,
		},
		Posts:  posts,
		Source: "archive",
	}, nil
}

// hydrateIdentity fills a missing author or author image from the homepage.
// Failures leave the publication as it is.
func hydrateIdentity(ctx context.Context, pub *core.PublicationRef, fetcher core.Fetcher) {
	needsAuthor := strings.TrimSpace(pub.Author) == ""
	needsImage := strings.TrimSpace(pub.AuthorImageURL) == ""
	if !needsAuthor && !needsImage {
		return
	}

	res, err := fetcher.Fetch(ctx, pub.URL)
	if err != nil {
		slog.Debug("homepage unavailable", "publication", pub.URL, "error", err)
		return
	}
	meta, err := extract.ExtractMetadata(res.HTML)
	if err != nil {
		return
	}
	if needsAuthor {
		pub.Author = meta.Author
	}
	if needsImage {
		pub.AuthorImageURL = meta.ImageURL
	}
}
