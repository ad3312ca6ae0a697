// Package cmd — export command.
// Discovers the publication, runs the export job and reports what was
// written: discover → fetch → extract → normalize → assemble → package.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/postpress/core"
	"github.com/gaurav-prasanna/postpress/core/cover"
	"github.com/gaurav-prasanna/postpress/core/export"
	"github.com/gaurav-prasanna/postpress/crawl"
)

// exportFlags holds the raw flag values of the export command.
type exportFlags struct {
	formats     []string
	posts       []string
	order       string
	manual      []string
	direction   string
	granularity string
	cover       string
	coverFile   string
	fields      []string
	outputDir   string
	asJSON      bool
}

var exportOpts exportFlags

var exportCmd = &cobra.Command{
	Use:   "export <publication>",
	Short: "Export a publication's posts to EPUB, TXT or PDF",
	Long: `Export fetches every selected post of a publication, normalizes it, and
packages the results in each requested format.

The publication may be a full URL, a host name, or a bare Substack name.
Press Ctrl-C to cancel; files already written are kept.

Examples:
  postpress export fieldnotes --format epub
  postpress export https://fieldnotes.substack.com --format epub --format txt --granularity combined
  postpress export fieldnotes --posts https://fieldnotes.substack.com/p/hello --format txt --output_dir ./out
  postpress export fieldnotes --order manual --manual id3,id1 --cover custom --cover-file cover.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	f := exportCmd.Flags()
	f.StringSliceVar(&exportOpts.formats, "format", []string{"epub"}, "Output format: epub, txt or pdf (repeatable)")
	f.StringSliceVar(&exportOpts.posts, "posts", nil, "Export only these post ids (default: every post)")
	f.StringVar(&exportOpts.order, "order", string(core.OrderDate), "Post order: date or manual")
	f.StringSliceVar(&exportOpts.manual, "manual", nil, "Post ids in the desired order (with --order manual)")
	f.StringVar(&exportOpts.direction, "direction", string(core.SortDescending), "Date order direction: asc or desc")
	f.StringVar(&exportOpts.granularity, "granularity", string(core.GranularityPerPost), "per_post or combined")
	f.StringVar(&exportOpts.cover, "cover", "author", "Cover source: author or custom")
	f.StringVar(&exportOpts.coverFile, "cover-file", "", "Image file or data URL for --cover custom")
	f.StringSliceVar(&exportOpts.fields, "fields", fieldNames(core.AllMetadataFields), "Metadata fields to include")
	f.StringVar(&exportOpts.outputDir, "output_dir", "", "Output directory (default: current directory)")
	f.BoolVar(&exportOpts.asJSON, "json", false, "Print the outcome as JSON")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := exportOpts.configuration()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher := newFetcher()
	out := cmd.OutOrStdout()

	if !exportOpts.asJSON {
		fmt.Fprintf(out, "Discovering posts from %s...\n", args[0])
	}
	listing, err := crawl.DiscoverPublication(ctx, args[0], fetcher)
	if err != nil {
		return fmt.Errorf("discovering publication: %w", err)
	}
	if !exportOpts.asJSON {
		fmt.Fprintf(out, "Found %d posts in %q\n", len(listing.Posts), listing.Publication.Title)
	}

	exporter := export.New(export.Options{
		Fetcher:  fetcher,
		Images:   fetcher,
		Settings: settings,
	})
	outcome, err := exporter.Run(ctx, core.Request{
		Publication: listing.Publication,
		Posts:       listing.Posts,
		Config:      cfg,
	})
	if err != nil {
		return err
	}

	if exportOpts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	}
	return report(out, cmd.ErrOrStderr(), outcome)
}

// configuration turns flag values into an ExportConfiguration. The result is
// validated again by the engine.
func (f exportFlags) configuration() (core.ExportConfiguration, error) {
	dir := f.outputDir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return core.ExportConfiguration{}, fmt.Errorf("resolving output directory: %w", err)
	}

	cfg := core.ExportConfiguration{
		Mode:            core.ModeEntireProfile,
		OrderMode:       core.OrderMode(strings.ToLower(f.order)),
		ManualOrder:     splitList(f.manual),
		SortDirection:   core.SortDirection(strings.ToLower(f.direction)),
		Granularity:     core.Granularity(strings.ToLower(f.granularity)),
		OutputDirectory: abs,
	}
	if ids := splitList(f.posts); len(ids) > 0 {
		cfg.Mode = core.ModeSpecificPosts
		cfg.SelectedPostIDs = ids
	}
	for _, name := range splitList(f.formats) {
		cfg.Formats = append(cfg.Formats, core.Format(strings.ToLower(name)))
	}
	for _, name := range splitList(f.fields) {
		cfg.MetadataFields = append(cfg.MetadataFields, core.MetadataField(name))
	}

	switch strings.ToLower(f.cover) {
	case "", "author", string(core.CoverPublicationAuthor):
		cfg.CoverMode = core.CoverPublicationAuthor
	case string(core.CoverCustom):
		cfg.CoverMode = core.CoverCustom
		if f.coverFile != "" {
			img, err := loadCover(f.coverFile)
			if err != nil {
				return core.ExportConfiguration{}, &core.ConfigurationError{Field: "customCover", Message: "cannot load --cover-file", Err: err}
			}
			cfg.CustomCover = img
		}
	default:
		cfg.CoverMode = core.CoverMode(f.cover)
	}

	if err := cfg.WithDefaults().Validate(); err != nil {
		return core.ExportConfiguration{}, err
	}
	return cfg, nil
}

// loadCover reads a cover from a file path or a base64 data URL.
func loadCover(src string) (*core.CoverImage, error) {
	if strings.HasPrefix(src, "data:") {
		data, mediaType, err := cover.DecodeDataURL(src)
		if err != nil {
			return nil, err
		}
		return cover.FromBytes(data, mediaType)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	return cover.FromBytes(data, "")
}

func report(out, errOut io.Writer, outcome *core.ExportOutcome) error {
	for _, path := range outcome.Files {
		size := "?"
		if info, err := os.Stat(path); err == nil {
			size = humanize.Bytes(uint64(info.Size()))
		}
		fmt.Fprintf(out, "✓ Written: %s (%s)\n", path, size)
	}
	for _, f := range outcome.Failed {
		fmt.Fprintf(errOut, "✗ %s: %s\n", f.PostID, f.Reason)
	}
	for _, w := range outcome.Warnings {
		fmt.Fprintf(errOut, "! %s\n", w)
	}

	fmt.Fprintf(out, "\n%d succeeded, %d failed, %d files written\n",
		len(outcome.Succeeded), len(outcome.Failed), len(outcome.Files))

	if outcome.Status == core.StatusCancelled {
		return context.Canceled
	}
	if len(outcome.Files) == 0 && len(outcome.Failed) > 0 {
		return fmt.Errorf("no files were written")
	}
	return nil
}

// splitList flattens repeated and comma-separated flag values, dropping blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func fieldNames(fields []core.MetadataField) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return names
}
