package core

import (
	"fmt"
	"strings"
)

// Format is an output file format.
type Format string

const (
	FormatEPUB Format = "epub"
	FormatTXT  Format = "txt"
	FormatPDF  Format = "pdf"
)

// EmbedsImages reports whether the format carries image bytes.
func (f Format) EmbedsImages() bool {
	return f == FormatEPUB || f == FormatPDF
}

// Mode selects which posts take part in an export.
type Mode string

const (
	ModeEntireProfile Mode = "entire_profile"
	ModeSpecificPosts Mode = "specific_posts"
)

// OrderMode selects how posts are ordered.
type OrderMode string

const (
	OrderDate   OrderMode = "date"
	OrderManual OrderMode = "manual"
)

// SortDirection applies to date ordering.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// Granularity selects one file per post or one file for all posts.
type Granularity string

const (
	GranularityPerPost  Granularity = "per_post"
	GranularityCombined Granularity = "combined"
)

// CoverMode selects where the cover image comes from.
type CoverMode string

const (
	CoverPublicationAuthor CoverMode = "publication_author"
	CoverCustom            CoverMode = "custom"
)

// MetadataField names a piece of post metadata that may be rendered.
type MetadataField string

const (
	FieldTitle       MetadataField = "title"
	FieldAuthor      MetadataField = "author"
	FieldPublishedAt MetadataField = "publishedAt"
	FieldURL         MetadataField = "url"
	FieldTags        MetadataField = "tags"
	FieldSubtitle    MetadataField = "subtitle"
	FieldReadingTime MetadataField = "readingTime"
	FieldSummary     MetadataField = "summary"
)

// AllMetadataFields lists every field in rendering order.
var AllMetadataFields = []MetadataField{
	FieldTitle,
	FieldAuthor,
	FieldPublishedAt,
	FieldURL,
	FieldTags,
	FieldSubtitle,
	FieldReadingTime,
	FieldSummary,
}

// FieldSet is the set of metadata fields selected for rendering.
type FieldSet map[MetadataField]bool

// NewFieldSet builds a FieldSet from a list of fields.
func NewFieldSet(fields []MetadataField) FieldSet {
	set := make(FieldSet, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// Has reports whether f is selected.
func (s FieldSet) Has(f MetadataField) bool {
	return s[f]
}

// ExportConfiguration is the caller's description of one export job.
type ExportConfiguration struct {
	Mode            Mode            `json:"mode"`
	SelectedPostIDs []string        `json:"selectedPostIds,omitempty"`
	OrderMode       OrderMode       `json:"orderMode"`
	ManualOrder     []string        `json:"manualOrder,omitempty"`
	SortDirection   SortDirection   `json:"sortDirection"`
	Formats         []Format        `json:"formats"`
	Granularity     Granularity     `json:"granularity"`
	CoverMode       CoverMode       `json:"coverMode"`
	CustomCover     *CoverImage     `json:"-"`
	MetadataFields  []MetadataField `json:"metadataFields"`
	OutputDirectory string          `json:"outputDirectory"`
}

// WithDefaults fills unset enum fields with their defaults.
func (c ExportConfiguration) WithDefaults() ExportConfiguration {
	if c.Mode == "" {
		c.Mode = ModeEntireProfile
	}
	if c.OrderMode == "" {
		c.OrderMode = OrderDate
	}
	if c.SortDirection == "" {
		c.SortDirection = SortDescending
	}
	if c.Granularity == "" {
		c.Granularity = GranularityPerPost
	}
	if c.CoverMode == "" {
		c.CoverMode = CoverPublicationAuthor
	}
	return c
}

// Validate checks the configuration without touching the filesystem.
func (c ExportConfiguration) Validate() error {
	switch c.Mode {
	case ModeEntireProfile:
	case ModeSpecificPosts:
		if len(c.SelectedPostIDs) == 0 {
			return &ConfigurationError{Field: "selectedPostIds", Message: "specific_posts mode requires at least one selected post"}
		}
	default:
		return &ConfigurationError{Field: "mode", Message: fmt.Sprintf("unknown mode %q", c.Mode)}
	}

	switch c.OrderMode {
	case OrderDate, OrderManual:
	default:
		return &ConfigurationError{Field: "orderMode", Message: fmt.Sprintf("unknown order mode %q", c.OrderMode)}
	}

	switch c.SortDirection {
	case SortAscending, SortDescending:
	default:
		return &ConfigurationError{Field: "sortDirection", Message: fmt.Sprintf("unknown sort direction %q", c.SortDirection)}
	}

	if len(c.Formats) == 0 {
		return &ConfigurationError{Field: "formats", Message: "at least one output format is required"}
	}
	seen := make(map[Format]bool, len(c.Formats))
	for _, f := range c.Formats {
		switch f {
		case FormatEPUB, FormatTXT, FormatPDF:
		default:
			return &ConfigurationError{Field: "formats", Message: fmt.Sprintf("unsupported format %q (use epub, txt or pdf)", f)}
		}
		if seen[f] {
			return &ConfigurationError{Field: "formats", Message: fmt.Sprintf("format %q listed twice", f)}
		}
		seen[f] = true
	}

	switch c.Granularity {
	case GranularityPerPost, GranularityCombined:
	default:
		return &ConfigurationError{Field: "granularity", Message: fmt.Sprintf("unknown granularity %q", c.Granularity)}
	}

	switch c.CoverMode {
	case CoverPublicationAuthor:
	case CoverCustom:
		if c.NeedsImages() && (c.CustomCover == nil || len(c.CustomCover.Data) == 0) {
			return &ConfigurationError{Field: "customCover", Message: "custom cover mode requires a cover image"}
		}
	default:
		return &ConfigurationError{Field: "coverMode", Message: fmt.Sprintf("unknown cover mode %q", c.CoverMode)}
	}

	known := NewFieldSet(AllMetadataFields)
	for _, f := range c.MetadataFields {
		if !known.Has(f) {
			return &ConfigurationError{Field: "metadataFields", Message: fmt.Sprintf("unknown metadata field %q", f)}
		}
	}

	if strings.TrimSpace(c.OutputDirectory) == "" {
		return &ConfigurationError{Field: "outputDirectory", Message: "output directory is required"}
	}
	return nil
}

// NeedsImages reports whether any requested format embeds images.
func (c ExportConfiguration) NeedsImages() bool {
	for _, f := range c.Formats {
		if f.EmbedsImages() {
			return true
		}
	}
	return false
}

// Fields returns the selected metadata fields as a set.
func (c ExportConfiguration) Fields() FieldSet {
	return NewFieldSet(c.MetadataFields)
}
