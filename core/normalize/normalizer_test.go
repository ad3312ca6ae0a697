package normalize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/postpress/core"
)

const postPage = `<html><head>
<meta property="og:title" content="Page Title">
<meta property="article:published_time" content="2024-02-03T04:05:06Z">
</head><body><article>
<div class="available-content"><div class="body markup">
<h2>Section</h2>
<p>Claim<a class="footnote-anchor" id="footnote-anchor-1" href="#footnote-1">1</a> here, see <a href="/p/other">other</a>.</p>
<ul><li>one</li><li>two</li></ul>
<blockquote><p>quoted words</p></blockquote>
<pre><code>x := 1</code></pre>
<figure><img src="/img/a.png" alt="diagram"><figcaption>Fig one</figcaption></figure>
<div class="footnote"><a id="footnote-1" href="#footnote-anchor-1" class="footnote-number">1</a><div class="footnote-content"><p>The note text.</p></div></div>
</div></div>
</article></body></html>`

var testPost = core.PostRef{
	ID:          "p1",
	Title:       "Listing Title",
	PublishedAt: "2023-01-01T00:00:00Z",
	URL:         "https://pub.substack.com/p/hello",
	Author:      "Listing Author",
	Summary:     "From the feed",
}

type fakeImages struct {
	data map[string][]byte
	err  error
	hits map[string]int
}

func (f *fakeImages) FetchImage(_ context.Context, url string) ([]byte, string, error) {
	if f.hits == nil {
		f.hits = map[string]int{}
	}
	f.hits[url]++
	if f.err != nil {
		return nil, "", f.err
	}
	d, ok := f.data[url]
	if !ok {
		return nil, "", errors.New("not found")
	}
	return d, "application/octet-stream", nil
}

func kinds(blocks []core.Block) []core.BlockKind {
	out := make([]core.BlockKind, len(blocks))
	for i, b := range blocks {
		out[i] = b.Kind
	}
	return out
}

func TestNormalize_BlocksAndMetadata(t *testing.T) {
	doc, err := New(Options{}).Normalize(context.Background(), testPost, &core.FetchResult{URL: testPost.URL, HTML: postPage})
	require.NoError(t, err)

	require.Equal(t, "Page Title", doc.Title)
	require.Equal(t, "Listing Author", doc.Author)
	require.Equal(t, "From the feed", doc.Summary)
	require.True(t, doc.PublishedAt.Valid)
	require.Equal(t, 2024, doc.PublishedAt.Time.Year())
	require.Equal(t, 1, doc.ReadingTimeMinutes)

	require.Equal(t, []core.BlockKind{
		core.BlockHeading,
		core.BlockParagraph,
		core.BlockList,
		core.BlockBlockquote,
		core.BlockCode,
		core.BlockImage,
	}, kinds(doc.Blocks))

	require.Equal(t, 2, doc.Blocks[0].Level)
	para := doc.Blocks[1]
	require.Contains(t, para.Text, core.FootnoteToken(1))
	require.Contains(t, para.HTML, core.FootnoteToken(1))
	require.Contains(t, para.HTML, `href="https://pub.substack.com/p/other"`)
	require.Len(t, doc.Blocks[2].Items, 2)
	require.Equal(t, "x := 1", doc.Blocks[4].Text)

	img := doc.Blocks[5].Image
	require.Equal(t, "https://pub.substack.com/img/a.png", img.Src)
	require.Equal(t, "diagram", img.Alt)
	require.Equal(t, "Fig one", img.Caption)
	require.False(t, img.Embedded())

	require.Equal(t, []core.Footnote{{Number: 1, Text: "The note text."}}, doc.Footnotes)
	for _, b := range doc.Blocks {
		require.NotContains(t, b.Text, "The note text.")
	}
}

func TestNormalize_EmbedsImages(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nrest")
	images := &fakeImages{data: map[string][]byte{"https://pub.substack.com/img/a.png": png}}
	n := New(Options{Images: images, FetchImages: true})

	doc, err := n.Normalize(context.Background(), testPost, &core.FetchResult{URL: testPost.URL, HTML: postPage})
	require.NoError(t, err)
	img := doc.Blocks[5].Image
	require.True(t, img.Embedded())
	require.Equal(t, "image/png", img.MediaType)
	require.Empty(t, doc.Warnings)
}

func TestNormalize_ImageFailureIsWarning(t *testing.T) {
	n := New(Options{Images: &fakeImages{err: errors.New("timeout")}, FetchImages: true})

	doc, err := n.Normalize(context.Background(), testPost, &core.FetchResult{URL: testPost.URL, HTML: postPage})
	require.NoError(t, err)
	require.False(t, doc.Blocks[5].Image.Embedded())
	require.Len(t, doc.Warnings, 1)
	require.Contains(t, doc.Warnings[0], "not embedded")
}

func TestNormalize_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  *core.FetchResult
	}{
		{"nil", nil},
		{"empty", &core.FetchResult{HTML: "   "}},
		{"no body", &core.FetchResult{HTML: "<html><body></body></html>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Options{}).Normalize(context.Background(), testPost, tt.raw)
			var parseErr *core.ContentParseError
			require.True(t, errors.As(err, &parseErr))
			require.Equal(t, "p1", parseErr.PostID)
		})
	}
}

func TestNormalize_ReadingTimeFromPage(t *testing.T) {
	page := strings.Replace(postPage, "<article>", "<article><div class=\"meta\">12 min read</div>", 1)
	doc, err := New(Options{}).Normalize(context.Background(), testPost, &core.FetchResult{URL: testPost.URL, HTML: page})
	require.NoError(t, err)
	require.Equal(t, 12, doc.ReadingTimeMinutes)
}

func TestExtractFootnotes_GenericSection(t *testing.T) {
	page := `<html><body><main>
<p>Text<sup><a href="#fn1" id="fnref1">1</a></sup> more<sup><a href="#fn2">2</a></sup>.</p>
<section class="footnotes"><ol>
<li id="fn1"><p>First note. <a href="#fnref1" class="footnote-backref">↩</a></p></li>
<li id="fn2"><p>2. Second note.</p></li>
<li id="fn3"><p>3.</p></li>
</ol></section>
</main></body></html>`
	doc, err := New(Options{}).Normalize(context.Background(), testPost, &core.FetchResult{URL: testPost.URL, HTML: page})
	require.NoError(t, err)
	require.Equal(t, []core.Footnote{{Number: 1, Text: "First note."}, {Number: 2, Text: "Second note."}}, doc.Footnotes)
	require.Len(t, doc.Blocks, 1)
	require.Contains(t, doc.Blocks[0].Text, core.FootnoteToken(1))
	require.Contains(t, doc.Blocks[0].Text, core.FootnoteToken(2))
	require.NotContains(t, doc.Blocks[0].HTML, "<sup>")
}

func bodyPage(body string) string {
	return `<html><head><meta property="og:title" content="Body"></head><body><article>` +
		`<div class="available-content"><div class="body markup">` + body + `</div></div></article></body></html>`
}

func TestNormalize_BlockTextIsPlain(t *testing.T) {
	page := bodyPage(`<p>Use a &lt;div&gt; when x &lt; 5 &amp;&amp; y &gt; 2. Literal *stars* and snake_case_name, see <a href="https://e.com/a">the docs</a>.</p>` +
		`<p>1. Not a list</p>` +
		`<p>line one<br>line   two</p>` +
		`<blockquote><p>first</p><p>second</p></blockquote>` +
		`<ul><li><strong>bold</strong> item</li></ul>`)
	doc, err := New(Options{}).Normalize(context.Background(), testPost, &core.FetchResult{URL: testPost.URL, HTML: page})
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 5)

	require.Equal(t, "Use a <div> when x < 5 && y > 2. Literal *stars* and snake_case_name, see the docs.", doc.Blocks[0].Text)
	require.Equal(t, "1. Not a list", doc.Blocks[1].Text)
	require.Equal(t, "line one\nline two", doc.Blocks[2].Text)
	require.Equal(t, "first\n\nsecond", doc.Blocks[3].Text)
	require.Equal(t, "bold item", doc.Blocks[4].Items[0].Text)

	require.Contains(t, doc.Blocks[0].HTML, "&lt;div&gt;")
	require.Contains(t, doc.Blocks[0].HTML, `href="https://e.com/a"`)
}

func TestNormalize_TokenLookalikesStayText(t *testing.T) {
	page := bodyPage(`<p>The template syntax {{fn:2}} is literal here.</p><p>Forged &#xE000;fn:1&#xE001; marker.</p>`)
	doc, err := New(Options{}).Normalize(context.Background(), testPost, &core.FetchResult{URL: testPost.URL, HTML: page})
	require.NoError(t, err)
	require.Empty(t, doc.Footnotes)
	require.Len(t, doc.Blocks, 2)
	require.Equal(t, "The template syntax {{fn:2}} is literal here.", doc.Blocks[0].Text)
	require.Equal(t, "Forged fn:1 marker.", doc.Blocks[1].Text)
	require.NotContains(t, doc.Blocks[1].HTML, core.FootnoteToken(1))
}

func TestCleanupFootnoteText(t *testing.T) {
	require.Equal(t, "A note", cleanupFootnoteText(" [3]  A note ↩"))
	require.Equal(t, "Another", cleanupFootnoteText("2. Another back to content"))
	require.False(t, meaningfulFootnote("42"))
	require.False(t, meaningfulFootnote("Back"))
	require.True(t, meaningfulFootnote("A real note"))
}
