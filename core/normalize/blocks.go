package normalize

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/collapse"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/postpress/core"
)

// blockSelector matches elements that start their own block when nested
// inside a generic container.
const blockSelector = "p, h1, h2, h3, h4, h5, h6, blockquote, ul, ol, pre, figure, picture, img, div, section, article, aside, table, hr"

var inlineTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "cite": true, "code": true, "em": true,
	"i": true, "kbd": true, "mark": true, "q": true, "s": true, "small": true,
	"span": true, "strong": true, "sub": true, "sup": true, "u": true,
}

type blockBuilder struct {
	blocks []core.Block
	err    error
}

// buildBlocks walks the body container in document order.
func buildBlocks(root *goquery.Selection) ([]core.Block, error) {
	b := &blockBuilder{}
	b.walk(root)
	if b.err != nil {
		return nil, b.err
	}
	return b.blocks, nil
}

func (b *blockBuilder) walk(s *goquery.Selection) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if b.err != nil {
			return
		}
		node := c.Get(0)
		switch node.Type {
		case html.TextNode:
			if text := collapseSpace(node.Data); text != "" {
				b.blocks = append(b.blocks, core.Block{Kind: core.BlockParagraph, Text: text, HTML: html.EscapeString(text)})
			}
			return
		case html.ElementNode:
		default:
			return
		}

		switch tag := goquery.NodeName(c); tag {
		case "p":
			b.paragraph(c, false)
		case "h1", "h2", "h3", "h4", "h5", "h6":
			b.heading(c, int(tag[1]-'0'))
		case "blockquote":
			b.blockquote(c)
		case "ul", "ol":
			b.list(c, tag == "ol")
		case "pre":
			b.code(c)
		case "figure", "picture", "img":
			b.figure(c)
		case "table":
			b.table(c)
		case "hr", "br":
		default:
			switch {
			case inlineTags[tag]:
				b.paragraph(c, true)
			case c.Find(blockSelector).Length() > 0:
				b.walk(c)
			default:
				b.paragraph(c, false)
			}
		}
	})
}

// paragraph emits the element's text as a paragraph, then any images it held.
func (b *blockBuilder) paragraph(c *goquery.Selection, outer bool) {
	var images []core.Block
	c.Find("img").Each(func(_ int, img *goquery.Selection) {
		if blk, ok := imageBlock(img, ""); ok {
			images = append(images, blk)
		}
	})
	c.Find("img, picture").Remove()

	markup, err := serialize(c, outer)
	if err != nil {
		b.err = err
		return
	}
	if text := plainText(c); text != "" {
		b.blocks = append(b.blocks, core.Block{Kind: core.BlockParagraph, Text: text, HTML: strings.TrimSpace(markup)})
	}
	b.blocks = append(b.blocks, images...)
}

func (b *blockBuilder) heading(c *goquery.Selection, level int) {
	text := collapseSpace(c.Text())
	if text == "" {
		return
	}
	b.blocks = append(b.blocks, core.Block{Kind: core.BlockHeading, Level: level, Text: text, HTML: html.EscapeString(text)})
}

func (b *blockBuilder) blockquote(c *goquery.Selection) {
	c.Find("img, picture").Remove()
	markup, err := serialize(c, false)
	if err != nil {
		b.err = err
		return
	}
	text := plainText(c)
	if text == "" {
		return
	}
	b.blocks = append(b.blocks, core.Block{Kind: core.BlockBlockquote, Text: text, HTML: strings.TrimSpace(markup)})
}

func (b *blockBuilder) list(c *goquery.Selection, ordered bool) {
	var items []core.ListItem
	c.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		if b.err != nil {
			return
		}
		li.Find("img, picture").Remove()
		markup, err := serialize(li, false)
		if err != nil {
			b.err = err
			return
		}
		if text := plainText(li); text != "" {
			items = append(items, core.ListItem{Text: text, HTML: strings.TrimSpace(markup)})
		}
	})
	if len(items) == 0 {
		return
	}
	b.blocks = append(b.blocks, core.Block{Kind: core.BlockList, Ordered: ordered, Items: items})
}

func (b *blockBuilder) code(c *goquery.Selection) {
	text := strings.TrimRight(c.Text(), "\n\r\t ")
	if strings.TrimSpace(text) == "" {
		return
	}
	b.blocks = append(b.blocks, core.Block{Kind: core.BlockCode, Text: text, HTML: html.EscapeString(text)})
}

func (b *blockBuilder) figure(c *goquery.Selection) {
	img := c
	if goquery.NodeName(c) != "img" {
		img = c.Find("img").First()
	}
	caption := collapseSpace(c.Find("figcaption").Text())
	if img.Length() == 0 {
		if caption != "" {
			b.blocks = append(b.blocks, core.Block{Kind: core.BlockParagraph, Text: caption, HTML: html.EscapeString(caption)})
		}
		return
	}
	if blk, ok := imageBlock(img, caption); ok {
		b.blocks = append(b.blocks, blk)
	}
}

// table flattens to a paragraph; packagers have no table layout.
func (b *blockBuilder) table(c *goquery.Selection) {
	text := plainText(c)
	if text == "" {
		return
	}
	b.blocks = append(b.blocks, core.Block{Kind: core.BlockParagraph, Text: text, HTML: html.EscapeString(collapseSpace(c.Text()))})
}

func imageBlock(img *goquery.Selection, caption string) (core.Block, bool) {
	src := strings.TrimSpace(img.AttrOr("src", ""))
	if src == "" {
		src = strings.TrimSpace(img.AttrOr("data-src", ""))
	}
	if src == "" || strings.HasPrefix(src, "data:") {
		return core.Block{}, false
	}
	return core.Block{
		Kind: core.BlockImage,
		Image: &core.Image{
			Src:     src,
			Alt:     collapseSpace(img.AttrOr("alt", "")),
			Caption: caption,
		},
	}, true
}

// serialize renders markup through x/net/html, which writes void elements in
// their self-closing XHTML form.
func serialize(c *goquery.Selection, outer bool) (string, error) {
	var (
		markup string
		err    error
	)
	if outer {
		markup, err = goquery.OuterHtml(c)
	} else {
		markup, err = c.Html()
	}
	if err != nil {
		return "", fmt.Errorf("serializing block: %w", err)
	}
	return markup, nil
}

// plainText renders the element's content as text: entities decoded, markup
// dropped, whitespace collapsed the way a browser would, and line breaks kept
// at <br> and block boundaries. Table cells are joined with " | ".
func plainText(c *goquery.Selection) string {
	if c.Length() == 0 {
		return ""
	}
	root := c.Clone().Get(0)
	collapse.Collapse(root, &collapse.DomFuncs{
		IsPreformattedNode: func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == "pre" },
	})

	var b strings.Builder
	breakLine := func(blank bool) {
		if b.Len() == 0 {
			return
		}
		text := b.String()
		want := "\n"
		if blank {
			want = "\n\n"
		}
		for !strings.HasSuffix(text, want) {
			b.WriteByte('\n')
			text += "\n"
		}
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
		default:
			return
		}
		switch n.Data {
		case "br":
			b.WriteByte('\n')
			return
		case "td", "th":
			if text := b.String(); text != "" && !strings.HasSuffix(text, "\n") {
				b.WriteString(" | ")
			}
		}
		paragraph := n.Data == "p"
		block := paragraph || textBlockTags[n.Data]
		if block {
			breakLine(paragraph)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if block {
			breakLine(paragraph)
		}
	}
	walk(root)

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if l == "" && (len(out) == 0 || out[len(out)-1] == "") {
			continue
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// textBlockTags start a new line in plain text.
var textBlockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "dd": true,
	"div": true, "dl": true, "dt": true, "figcaption": true, "figure": true,
	"footer": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "header": true, "hr": true, "li": true, "ol": true, "pre": true,
	"section": true, "table": true, "tr": true, "ul": true,
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
