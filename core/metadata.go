package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MetadataLine is one labeled metadata value ready for rendering.
type MetadataLine struct {
	Field MetadataField
	Label string
	Value string
}

var metadataLabels = map[MetadataField]string{
	FieldTitle:       "Title",
	FieldAuthor:      "Author",
	FieldPublishedAt: "Published",
	FieldURL:         "URL",
	FieldTags:        "Tags",
	FieldSubtitle:    "Subtitle",
	FieldReadingTime: "Reading time",
	FieldSummary:     "Summary",
}

// MetadataLines returns the lines for exactly the selected fields, in
// AllMetadataFields order. Every packager renders metadata through here.
func MetadataLines(doc *NormalizedDocument, fields FieldSet) []MetadataLine {
	if doc == nil || len(fields) == 0 {
		return nil
	}
	var lines []MetadataLine
	for _, f := range AllMetadataFields {
		if !fields.Has(f) {
			continue
		}
		lines = append(lines, MetadataLine{Field: f, Label: metadataLabels[f], Value: metadataValue(doc, f)})
	}
	return lines
}

func metadataValue(doc *NormalizedDocument, f MetadataField) string {
	switch f {
	case FieldTitle:
		return orNA(doc.Title)
	case FieldAuthor:
		if strings.TrimSpace(doc.Author) == "" {
			return "Unknown"
		}
		return doc.Author
	case FieldPublishedAt:
		return orNA(doc.PublishedAt.String())
	case FieldURL:
		return orNA(doc.URL)
	case FieldTags:
		return orNA(strings.Join(doc.Tags, ", "))
	case FieldSubtitle:
		return orNA(doc.Subtitle)
	case FieldReadingTime:
		if doc.ReadingTimeMinutes <= 0 {
			return "N/A"
		}
		return fmt.Sprintf("%d min", doc.ReadingTimeMinutes)
	case FieldSummary:
		return orNA(doc.Summary)
	}
	return "N/A"
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return strings.TrimSpace(s)
}

// Footnote references are carried through block Text and HTML as tokens so
// each packager can render them its own way. The delimiters are private-use
// runes, which the normalizer strips from page text.
const (
	footnoteTokenOpen  = "\uE000"
	footnoteTokenClose = "\uE001"
)

var footnoteTokenPattern = regexp.MustCompile(`\x{E000}fn:(\d+)\x{E001}`)

// FootnoteToken returns the in-body reference token for footnote n.
func FootnoteToken(n int) string {
	return footnoteTokenOpen + "fn:" + strconv.Itoa(n) + footnoteTokenClose
}

// StripFootnoteDelimiters removes the runes footnote tokens are built from.
func StripFootnoteDelimiters(s string) string {
	if !strings.ContainsAny(s, footnoteTokenOpen+footnoteTokenClose) {
		return s
	}
	return strings.NewReplacer(footnoteTokenOpen, "", footnoteTokenClose, "").Replace(s)
}

// ReplaceFootnoteRefs rewrites the footnote tokens in s using render. Only
// footnotes the document carries are rendered; tokens for any other number
// are dropped.
func (d *NormalizedDocument) ReplaceFootnoteRefs(s string, render func(n int) string) string {
	if !strings.Contains(s, footnoteTokenOpen) {
		return s
	}
	return footnoteTokenPattern.ReplaceAllStringFunc(s, func(tok string) string {
		m := footnoteTokenPattern.FindStringSubmatch(tok)
		n, err := strconv.Atoi(m[1])
		if err != nil || !d.hasFootnote(n) {
			return ""
		}
		return render(n)
	})
}

func (d *NormalizedDocument) hasFootnote(n int) bool {
	for _, fn := range d.Footnotes {
		if fn.Number == n {
			return true
		}
	}
	return false
}
