package render

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/postpress/core"
)

// chapterImage is an image file referenced by a chapter.
type chapterImage struct {
	ID        string
	Href      string
	MediaType string
	Data      []byte
}

// xhtmlBody renders doc's blocks as XHTML. Embedded images are named after
// the chapter number and returned for the manifest.
func xhtmlBody(doc *core.NormalizedDocument, chapter int) (string, []chapterImage) {
	var (
		b       strings.Builder
		images  []chapterImage
		refSeen = map[int]bool{}
	)
	refs := func(s string) string {
		return doc.ReplaceFootnoteRefs(s, func(n int) string {
			id := ""
			if !refSeen[n] {
				refSeen[n] = true
				id = fmt.Sprintf(` id="footnote-ref-%d"`, n)
			}
			return fmt.Sprintf(`<a class="footnote-ref" href="#footnote-%d"%s epub:type="noteref"><sup>%d</sup></a>`, n, id, n)
		})
	}

	for _, blk := range doc.Blocks {
		switch blk.Kind {
		case core.BlockParagraph:
			fmt.Fprintf(&b, "<p>%s</p>\n", refs(blk.HTML))
		case core.BlockHeading:
			level := blk.Level + 1
			if level < 2 {
				level = 2
			}
			if level > 6 {
				level = 6
			}
			fmt.Fprintf(&b, "<h%d>%s</h%d>\n", level, refs(blk.HTML), level)
		case core.BlockBlockquote:
			fmt.Fprintf(&b, "<blockquote>%s</blockquote>\n", refs(blk.HTML))
		case core.BlockList:
			tag := "ul"
			if blk.Ordered {
				tag = "ol"
			}
			fmt.Fprintf(&b, "<%s>\n", tag)
			for _, item := range blk.Items {
				fmt.Fprintf(&b, "<li>%s</li>\n", refs(item.HTML))
			}
			fmt.Fprintf(&b, "</%s>\n", tag)
		case core.BlockCode:
			fmt.Fprintf(&b, "<pre><code>%s</code></pre>\n", blk.HTML)
		case core.BlockImage:
			img := blk.Image
			ext, ok := core.ImageExtension(img.MediaType)
			if !img.Embedded() || !ok {
				fmt.Fprintf(&b, "<p class=\"image-placeholder\">[Image: %s]</p>\n", html.EscapeString(img.Label()))
				continue
			}
			n := len(images) + 1
			ci := chapterImage{
				ID:        fmt.Sprintf("chapter-%d-img-%d", chapter, n),
				Href:      fmt.Sprintf("images/chapter-%d-img-%d.%s", chapter, n, ext),
				MediaType: img.MediaType,
				Data:      img.Data,
			}
			images = append(images, ci)
			b.WriteString("<figure>")
			fmt.Fprintf(&b, `<img src="../%s" alt="%s"/>`, ci.Href, html.EscapeString(img.Alt))
			if img.Caption != "" {
				fmt.Fprintf(&b, "<figcaption>%s</figcaption>", html.EscapeString(img.Caption))
			}
			b.WriteString("</figure>\n")
		}
	}

	if len(doc.Footnotes) > 0 {
		b.WriteString("<section class=\"footnotes\" epub:type=\"footnotes\">\n<h2>Footnotes</h2>\n<ol>\n")
		for _, fn := range doc.Footnotes {
			back := ""
			if refSeen[fn.Number] {
				back = fmt.Sprintf(` <a class="footnote-back" href="#footnote-ref-%d">&#8617;</a>`, fn.Number)
			}
			fmt.Fprintf(&b, "<li id=\"footnote-%d\" value=\"%d\">%s%s</li>\n",
				fn.Number, fn.Number, html.EscapeString(fn.Text), back)
		}
		b.WriteString("</ol>\n</section>\n")
	}
	return b.String(), images
}

func escapeXML(s string) string {
	return html.EscapeString(s)
}
