package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() ExportConfiguration {
	return ExportConfiguration{
		Formats:         []Format{FormatTXT},
		MetadataFields:  []MetadataField{FieldTitle},
		OutputDirectory: "/tmp/out",
	}.WithDefaults()
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, ModeEntireProfile, cfg.Mode)
	require.Equal(t, OrderDate, cfg.OrderMode)
	require.Equal(t, SortDescending, cfg.SortDirection)
	require.Equal(t, GranularityPerPost, cfg.Granularity)
	require.Equal(t, CoverPublicationAuthor, cfg.CoverMode)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ExportConfiguration)
		field  string
	}{
		{"no formats", func(c *ExportConfiguration) { c.Formats = nil }, "formats"},
		{"unknown format", func(c *ExportConfiguration) { c.Formats = []Format{"docx"} }, "formats"},
		{"duplicate format", func(c *ExportConfiguration) { c.Formats = []Format{FormatTXT, FormatTXT} }, "formats"},
		{"specific without ids", func(c *ExportConfiguration) { c.Mode = ModeSpecificPosts }, "selectedPostIds"},
		{"unknown field", func(c *ExportConfiguration) { c.MetadataFields = []MetadataField{"wordCount"} }, "metadataFields"},
		{"missing output dir", func(c *ExportConfiguration) { c.OutputDirectory = "  " }, "outputDirectory"},
		{"bad granularity", func(c *ExportConfiguration) { c.Granularity = "per_chapter" }, "granularity"},
		{"custom cover without image for epub", func(c *ExportConfiguration) {
			c.Formats = []Format{FormatEPUB}
			c.CoverMode = CoverCustom
		}, "customCover"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
			require.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestValidate_CustomCoverOnlyNeededForImageFormats(t *testing.T) {
	cfg := validConfig()
	cfg.CoverMode = CoverCustom
	require.NoError(t, cfg.Validate())

	cfg.Formats = []Format{FormatTXT, FormatPDF}
	require.Error(t, cfg.Validate())

	cfg.CustomCover = &CoverImage{Data: []byte{0x89, 'P', 'N', 'G'}}
	require.NoError(t, cfg.Validate())
}

func TestParsePublishedAt(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
	}{
		{"2024-03-01T10:00:00Z", true},
		{"2024-03-01T10:00:00.123+02:00", true},
		{"Fri, 01 Mar 2024 10:00:00 GMT", true},
		{"Fri, 1 Mar 2024 10:00:00 +0000", true},
		{"2024-03-01", true},
		{"last tuesday", false},
		{"", false},
	}
	for _, tt := range tests {
		p := ParsePublishedAt(tt.raw)
		require.Equal(t, tt.valid, p.Valid, tt.raw)
		if !tt.valid {
			require.Equal(t, int64(0), p.SortKey())
		}
	}
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("boom")
	var nilErr *ContentFetchError
	require.Equal(t, "", nilErr.Error())
	require.ErrorIs(t, &ContentFetchError{PostID: "p", URL: "u", Err: cause}, cause)
	require.ErrorIs(t, &PackagingError{File: "a.epub", Format: FormatEPUB, Err: cause}, cause)
	require.ErrorIs(t, &CoverError{Source: "x", Err: cause}, cause)
}
