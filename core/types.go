package core

import (
	"strings"
	"time"
)

// PublicationRef identifies the publication being exported.
type PublicationRef struct {
	URL            string `json:"url"`
	Title          string `json:"title"`
	Author         string `json:"author,omitempty"`
	AuthorImageURL string `json:"authorImageUrl,omitempty"`
}

// PostRef is a post as listed by the publication, before its content is fetched.
type PostRef struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	PublishedAt   string   `json:"publishedAt"`
	URL           string   `json:"url"`
	Author        string   `json:"author,omitempty"`
	CoverImageURL string   `json:"coverImageUrl,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Subtitle      string   `json:"subtitle,omitempty"`
	Summary       string   `json:"summary,omitempty"`
}

// PublishedAt is a publication timestamp as found in the source. Raw is kept
// even when it cannot be parsed.
type PublishedAt struct {
	Raw   string
	Time  time.Time
	Valid bool
}

var publishedLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParsePublishedAt parses raw with the layouts publications are known to use.
func ParsePublishedAt(raw string) PublishedAt {
	trimmed := strings.TrimSpace(raw)
	p := PublishedAt{Raw: trimmed}
	if trimmed == "" {
		return p
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			p.Time = t.UTC()
			p.Valid = true
			return p
		}
	}
	return p
}

// SortKey returns milliseconds since the Unix epoch; unparseable timestamps sort as 0.
func (p PublishedAt) SortKey() int64 {
	if !p.Valid {
		return 0
	}
	return p.Time.UnixMilli()
}

func (p PublishedAt) String() string {
	if p.Valid {
		return p.Time.Format(time.RFC3339)
	}
	return p.Raw
}

// BlockKind is the structural type of a content block.
type BlockKind string

const (
	BlockParagraph  BlockKind = "paragraph"
	BlockHeading    BlockKind = "heading"
	BlockImage      BlockKind = "image"
	BlockBlockquote BlockKind = "blockquote"
	BlockList       BlockKind = "list"
	BlockCode       BlockKind = "code"
)

// Block is one structural unit of a post body.
//
// Text is the plain-text rendition used by the text and PDF packagers. HTML is the inner XHTML used by the EPUB packager. Both may
// carry footnote reference tokens (see FootnoteToken).
type Block struct {
	Kind    BlockKind
	Level   int
	Text    string
	HTML    string
	Items   []ListItem
	Ordered bool
	Image   *Image
}

// ListItem is one entry of a list block.
type ListItem struct {
	Text string
	HTML string
}

// Image is an image referenced by a post body.
type Image struct {
	Src       string
	Alt       string
	Caption   string
	Data      []byte
	MediaType string
}

// Embedded reports whether the image bytes were retrieved.
func (i *Image) Embedded() bool {
	return i != nil && len(i.Data) > 0
}

// Label is the short description used by placeholders.
func (i *Image) Label() string {
	switch {
	case i == nil:
		return "image"
	case strings.TrimSpace(i.Alt) != "":
		return strings.TrimSpace(i.Alt)
	case strings.TrimSpace(i.Caption) != "":
		return strings.TrimSpace(i.Caption)
	case i.Src != "":
		return i.Src
	}
	return "image"
}

// Footnote is a numbered note extracted from a post body.
type Footnote struct {
	Number int
	Text   string
}

// NormalizedDocument is the format-neutral form of one post.
type NormalizedDocument struct {
	PostID             string
	Title              string
	Author             string
	PublishedAt        PublishedAt
	URL                string
	Tags               []string
	Subtitle           string
	Summary            string
	ReadingTimeMinutes int
	Blocks             []Block
	Footnotes          []Footnote
	Warnings           []string
}

// CoverImage is an image in its final, embeddable form.
type CoverImage struct {
	Data      []byte
	MediaType string
	Extension string
}

// CoverAsset is the cover for a job: an optional image plus title page text.
type CoverAsset struct {
	Image  *CoverImage
	Title  string
	Author string
}

// Compilation is one output file's worth of documents.
type Compilation struct {
	Title     string
	Author    string
	Documents []*NormalizedDocument
	// Ordinals holds each document's 1-based position in the resolved order.
	Ordinals  []int
	Fields    FieldSet
	TitlePage bool
	FileStem  string
	Combined  bool
}

// JobStatus is the terminal state of an export job.
type JobStatus string

const (
	StatusCompleted JobStatus = "completed"
	StatusCancelled JobStatus = "cancelled"
)

// Failure records why a post or an output file could not be produced.
type Failure struct {
	PostID string `json:"postId"`
	Reason string `json:"reason"`
}

// ExportOutcome is the aggregate result of an export job.
type ExportOutcome struct {
	Status    JobStatus `json:"status"`
	Succeeded []string  `json:"succeeded"`
	Failed    []Failure `json:"failed"`
	Files     []string  `json:"outputFiles"`
	Warnings  []string  `json:"warnings"`
}

// Request is everything the engine needs to run one export.
type Request struct {
	Publication PublicationRef
	Posts       []PostRef
	Config      ExportConfiguration
}
