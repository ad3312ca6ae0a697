package crawl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/postpress/core/fetch"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
  <title>Field Notes</title>
  <image><url>https://cdn.example/avatar.png</url></image>
  <item>
    <title>Older post</title>
    <link>https://fieldnotes.example/p/older</link>
    <guid isPermaLink="false">older-guid</guid>
    <pubDate>Mon, 01 Jan 2024 09:00:00 GMT</pubDate>
    <dc:creator>Ann Writer</dc:creator>
    <category>essays</category>
  </item>
  <item>
    <title><![CDATA[Newer & better]]></title>
    <link>https://fieldnotes.example/p/newer</link>
    <pubDate>Fri, 01 Mar 2024 09:00:00 GMT</pubDate>
    <description>A subtitle</description>
    <enclosure url="https://cdn.example/newer.jpg" type="image/jpeg" length="0"/>
  </item>
</channel>
</rss>`

const archiveHTML = `<html><head><title>Field Notes Archive</title>
<meta name="author" content="Ann Writer">
<meta property="og:image" content="https://cdn.example/og.png">
</head><body>
<a href="/p/first">First post</a>
<a href="/p/first#comments">First post</a>
<a href="https://fieldnotes.example/p/second/">Second post</a>
<a href="/p/"></a>
<a href="https://elsewhere.example/p/foreign">Foreign</a>
<a href="/about">About</a>
</body></html>`

func newServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if r.URL.RawQuery != "" {
			key += "?" + r.URL.RawQuery
		}
		body, ok := routes[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNormalizePublicationURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"fieldnotes", "https://fieldnotes.substack.com"},
		{"fieldnotes.substack.com", "https://fieldnotes.substack.com"},
		{"https://example.com/p/some-post?ref=x", "https://example.com"},
		{"  http://localhost:8080/archive ", "http://localhost:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizePublicationURL(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := NormalizePublicationURL("   ")
	require.ErrorIs(t, err, ErrEmptyPublication)
}

func TestRules(t *testing.T) {
	require.True(t, IsPostURL("https://x.substack.com/p/hello"))
	require.False(t, IsPostURL("https://x.substack.com/p/"))
	require.False(t, IsPostURL("https://x.substack.com/about"))
	require.True(t, IsAsset("https://x.substack.com/p/cover.PNG"))
	require.True(t, IsSameHost("https://X.substack.com/p/a", "x.substack.com"))
	require.Equal(t, "https://x.substack.com/p/a", NormalizeURL("https://x.substack.com/p/a/?utm=1#c"))
}

func TestLinkSet(t *testing.T) {
	s := NewLinkSet()
	require.True(t, s.Add("a"))
	require.True(t, s.Add("b"))
	require.False(t, s.Add("a"))
	require.Equal(t, 2, s.Len())
	require.Equal(t, []string{"a", "b"}, s.All())
}

func TestDiscoverPublication_Feed(t *testing.T) {
	srv := newServer(t, map[string]string{"/feed": feedXML})

	listing, err := DiscoverPublication(context.Background(), srv.URL, fetch.New())
	require.NoError(t, err)
	require.Equal(t, "feed", listing.Source)

	pub := listing.Publication
	require.Equal(t, srv.URL, pub.URL)
	require.Equal(t, "Field Notes", pub.Title)
	require.Equal(t, "Ann Writer", pub.Author)
	require.Equal(t, "https://cdn.example/avatar.png", pub.AuthorImageURL)

	require.Len(t, listing.Posts, 2)
	newer, older := listing.Posts[0], listing.Posts[1]
	require.Equal(t, "Newer & better", newer.Title)
	require.Equal(t, "https://fieldnotes.example/p/newer", newer.ID)
	require.Equal(t, "2024-03-01T09:00:00Z", newer.PublishedAt)
	require.Equal(t, "https://cdn.example/newer.jpg", newer.CoverImageURL)
	require.Equal(t, "A subtitle", newer.Subtitle)

	require.Equal(t, "older-guid", older.ID)
	require.Equal(t, "Ann Writer", older.Author)
	require.Equal(t, []string{"essays"}, older.Tags)
}

func TestDiscoverPublication_FallsBackToArchive(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	routes := map[string]string{"/feed": "not xml at all <<<"}
	srv := newServer(t, routes)
	routes["/archive"] = strings.ReplaceAll(archiveHTML, "https://fieldnotes.example", srv.URL)

	listing, err := DiscoverPublication(context.Background(), srv.URL, fetch.New())
	require.NoError(t, err)
	require.Equal(t, "archive", listing.Source)
	require.Equal(t, "Field Notes Archive", listing.Publication.Title)
	require.Equal(t, "Ann Writer", listing.Publication.Author)
	require.Equal(t, "https://cdn.example/og.png", listing.Publication.AuthorImageURL)

	require.Len(t, listing.Posts, 2)
	require.Equal(t, srv.URL+"/p/first", listing.Posts[0].URL)
	require.Equal(t, "First post", listing.Posts[0].Title)
	require.Equal(t, srv.URL+"/p/second", listing.Posts[1].URL)
	require.Equal(t, "2024-06-01T12:00:00Z", listing.Posts[0].PublishedAt)
	require.Equal(t, "2024-06-01T11:59:59Z", listing.Posts[1].PublishedAt)
}

func TestDiscoverPublication_HydratesFromHomepage(t *testing.T) {
	feed := strings.Replace(feedXML, "<dc:creator>Ann Writer</dc:creator>", "", 1)
	feed = strings.Replace(feed, "<image><url>https://cdn.example/avatar.png</url></image>", "", 1)
	srv := newServer(t, map[string]string{
		"/feed": feed,
		"/":     `<html><head><meta name="author" content="Home Author"><meta property="og:image" content="https://cdn.example/home.png"></head><body></body></html>`,
	})

	listing, err := DiscoverPublication(context.Background(), srv.URL, fetch.New())
	require.NoError(t, err)
	require.Equal(t, "Home Author", listing.Publication.Author)
	require.Equal(t, "https://cdn.example/home.png", listing.Publication.AuthorImageURL)
}

func TestDiscoverPublication_NothingFound(t *testing.T) {
	srv := newServer(t, map[string]string{"/archive": "<html><body><a href='/about'>About</a></body></html>"})

	_, err := DiscoverPublication(context.Background(), srv.URL, fetch.New())
	require.ErrorIs(t, err, ErrNoPosts)
}
