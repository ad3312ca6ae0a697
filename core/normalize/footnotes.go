package normalize

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/postpress/core"
)

var (
	leadingMarker = regexp.MustCompile(`^\s*(?:\[\d+\]|\d+\s*[.)])\s*`)
	trailingBack  = regexp.MustCompile(`(?i)(↩\x{FE0E}?|\[back\]|\bback(?: to (?:content|article|text))?|\breturn to (?:article|content))\s*$`)
)

const genericFootnoteContainers = "section.footnotes, div.footnotes, ol.footnotes, aside.footnotes"

const footnoteNavigation = "a.footnote-backref, a.footnote-back, a.footnote-number, a[rev='footnote'], a[href^='#fnref'], a[href^='#footnote-ref'], a[href^='#footnote-anchor']"

type footnoteCandidate struct {
	ids  []string
	text string
}

// extractFootnotes numbers the footnotes found in root, removes their
// containers, and replaces links to them with footnote tokens.
func extractFootnotes(root *goquery.Selection) []core.Footnote {
	var candidates []footnoteCandidate

	substack := root.Find("div.footnote")
	substack.Each(func(_ int, s *goquery.Selection) {
		c := footnoteCandidate{ids: collectIDs(s)}
		if content := s.Find(".footnote-content"); content.Length() > 0 {
			c.text = content.Text()
		} else {
			clone := s.Clone()
			clone.Find(footnoteNavigation).Remove()
			c.text = clone.Text()
		}
		candidates = append(candidates, c)
	})
	substack.Remove()

	generic := root.Find(genericFootnoteContainers)
	generic.Each(func(_ int, section *goquery.Selection) {
		section.Find("li").Each(func(_ int, li *goquery.Selection) {
			clone := li.Clone()
			clone.Find(footnoteNavigation).Remove()
			candidates = append(candidates, footnoteCandidate{ids: collectIDs(li), text: clone.Text()})
		})
	})
	generic.Remove()

	var footnotes []core.Footnote
	byID := map[string]int{}
	for _, c := range candidates {
		text := cleanupFootnoteText(c.text)
		if !meaningfulFootnote(text) {
			continue
		}
		n := len(footnotes) + 1
		footnotes = append(footnotes, core.Footnote{Number: n, Text: text})
		for _, id := range c.ids {
			if _, taken := byID[id]; !taken {
				byID[id] = n
			}
			if key := footnoteKey(id); key != "" {
				if _, taken := byID[key]; !taken {
					byID[key] = n
				}
			}
		}
	}
	if len(footnotes) == 0 {
		return nil
	}

	root.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := a.AttrOr("href", "")
		i := strings.LastIndexByte(href, '#')
		if i < 0 {
			return
		}
		frag := strings.ToLower(href[i+1:])
		n, ok := byID[frag]
		if !ok {
			n, ok = byID[footnoteKey(frag)]
		}
		if !ok {
			return
		}
		target := a
		if parent := a.Parent(); goquery.NodeName(parent) == "sup" && collapseSpace(parent.Text()) == collapseSpace(a.Text()) {
			target = parent
		}
		target.ReplaceWithHtml(core.FootnoteToken(n))
	})
	return footnotes
}

// scrubTokenDelimiters removes footnote token delimiters from page text and
// attributes, so only extracted footnote links become references.
func scrubTokenDelimiters(n *html.Node) {
	for i := range n.Attr {
		n.Attr[i].Val = core.StripFootnoteDelimiters(n.Attr[i].Val)
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.TextNode {
			c.Data = core.StripFootnoteDelimiters(c.Data)
			if c.Data == "" {
				n.RemoveChild(c)
			}
		} else {
			scrubTokenDelimiters(c)
		}
		c = next
	}
}

func collectIDs(s *goquery.Selection) []string {
	var ids []string
	s.Find("[id]").AddSelection(s).Each(func(_ int, el *goquery.Selection) {
		id := strings.ToLower(strings.TrimSpace(el.AttrOr("id", "")))
		if id != "" && !strings.Contains(id, "footnote-anchor") && !strings.HasPrefix(id, "fnref") {
			ids = append(ids, id)
		}
	})
	return ids
}

func cleanupFootnoteText(s string) string {
	text := collapseSpace(s)
	text = leadingMarker.ReplaceAllString(text, "")
	for trailingBack.MatchString(text) {
		text = strings.TrimSpace(trailingBack.ReplaceAllString(text, ""))
	}
	return strings.TrimSpace(text)
}

func meaningfulFootnote(s string) bool {
	normalized := strings.TrimFunc(strings.ToLower(strings.TrimSpace(s)), func(r rune) bool {
		return !isASCIIAlnum(r)
	})
	if normalized == "" {
		return false
	}
	switch normalized {
	case "back", "return", "back to content", "return to article", "return to content", "see above":
		return false
	}
	return strings.IndexFunc(normalized, func(r rune) bool { return r < '0' || r > '9' }) >= 0
}

func footnoteKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if isASCIIAlnum(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
