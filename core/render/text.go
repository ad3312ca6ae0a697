// Package render provides the packagers for the postpress pipeline.
// This file implements the plain text packager.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gaurav-prasanna/postpress/core"
)

var (
	textRule      = strings.Repeat("-", 60)
	textDelimiter = strings.Repeat("=", 60)
)

// TextRenderer writes Compilations as UTF-8 plain text. Images become
// bracketed placeholders.
type TextRenderer struct{}

// NewTextRenderer creates a TextRenderer.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// Render converts a Compilation into text bytes. The cover image is ignored.
func (r *TextRenderer) Render(comp *core.Compilation, _ *core.CoverAsset) ([]byte, error) {
	if comp == nil || len(comp.Documents) == 0 {
		return nil, fmt.Errorf("nothing to render")
	}

	var b strings.Builder
	if comp.TitlePage {
		fmt.Fprintf(&b, "Publication: %s\n", comp.Title)
		fmt.Fprintf(&b, "Author: %s\n", comp.Author)
		fmt.Fprintf(&b, "Posts: %d\n\n", len(comp.Documents))
	}

	for i, doc := range comp.Documents {
		if comp.Combined || i > 0 {
			b.WriteString(textDelimiter)
			b.WriteString("\n\n")
		}
		writeTextDocument(&b, doc, comp.Fields)
		b.WriteString("\n")
	}
	return []byte(strings.TrimRight(b.String(), "\n") + "\n"), nil
}

// Extension returns the file extension for text output.
func (r *TextRenderer) Extension() string {
	return ".txt"
}

func writeTextDocument(b *strings.Builder, doc *core.NormalizedDocument, fields core.FieldSet) {
	b.WriteString(doc.Title)
	b.WriteString("\n")
	b.WriteString(textRule)
	b.WriteString("\n")

	if lines := core.MetadataLines(doc, fields); len(lines) > 0 {
		for _, l := range lines {
			fmt.Fprintf(b, "%s: %s\n", l.Label, l.Value)
		}
	}
	b.WriteString("\n")

	parts := make([]string, 0, len(doc.Blocks))
	for _, blk := range doc.Blocks {
		if s := textBlock(blk); s != "" {
			parts = append(parts, s)
		}
	}
	b.WriteString(textFootnoteRefs(doc, strings.Join(parts, "\n\n")))
	b.WriteString("\n")

	if len(doc.Footnotes) > 0 {
		b.WriteString("\nFootnotes\n")
		for _, fn := range doc.Footnotes {
			fmt.Fprintf(b, "[%d] %s\n", fn.Number, fn.Text)
		}
	}
}

func textBlock(blk core.Block) string {
	switch blk.Kind {
	case core.BlockHeading:
		return strings.ToUpper(blk.Text)
	case core.BlockBlockquote:
		lines := strings.Split(blk.Text, "\n")
		for i, l := range lines {
			lines[i] = strings.TrimRight("> "+l, " ")
		}
		return strings.Join(lines, "\n")
	case core.BlockList:
		var items []string
		for i, item := range blk.Items {
			marker := "- "
			if blk.Ordered {
				marker = strconv.Itoa(i+1) + ". "
			}
			indent := strings.Repeat(" ", len(marker))
			items = append(items, marker+strings.ReplaceAll(item.Text, "\n", "\n"+indent))
		}
		return strings.Join(items, "\n")
	case core.BlockCode:
		lines := strings.Split(blk.Text, "\n")
		for i, l := range lines {
			lines[i] = "    " + l
		}
		return strings.Join(lines, "\n")
	case core.BlockImage:
		s := "[Image: " + blk.Image.Label() + "]"
		if c := strings.TrimSpace(blk.Image.Caption); c != "" && c != blk.Image.Label() {
			s += "\n" + c
		}
		return s
	}
	return blk.Text
}

// textFootnoteRefs renders doc's footnote tokens in s as bracketed numbers.
func textFootnoteRefs(doc *core.NormalizedDocument, s string) string {
	return doc.ReplaceFootnoteRefs(s, func(n int) string {
		return "[" + strconv.Itoa(n) + "]"
	})
}
