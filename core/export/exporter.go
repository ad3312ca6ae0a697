// Package export runs export jobs: it selects and orders posts, resolves the
// cover once, fetches and normalizes posts with bounded concurrency, and
// packages the results into every requested format.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/gaurav-prasanna/postpress/core"
	"github.com/gaurav-prasanna/postpress/core/assemble"
	"github.com/gaurav-prasanna/postpress/core/cover"
	"github.com/gaurav-prasanna/postpress/core/normalize"
	"github.com/gaurav-prasanna/postpress/core/output"
	"github.com/gaurav-prasanna/postpress/core/render"
)

const tracerName = "postpress/export"

// Options wires an Exporter to its collaborators. Fetcher is required; the
// rest default to the production implementations.
type Options struct {
	Fetcher  core.Fetcher
	Images   core.ImageFetcher
	Settings core.EngineSettings
	Logger   *slog.Logger

	// Cover overrides the default cover resolver.
	Cover core.CoverResolver
	// Normalizer overrides the default normalizer, which embeds inline
	// images only when a requested format carries them.
	Normalizer core.Normalizer
	// Renderers overrides the packager used for a format.
	Renderers map[core.Format]core.Renderer
}

// Exporter runs export jobs. It holds no per-job state and may run several
// jobs concurrently.
type Exporter struct {
	opts Options
	log  *slog.Logger
}

// New creates an Exporter.
func New(opts Options) *Exporter {
	d := core.DefaultEngineSettings()
	if opts.Settings.Concurrency <= 0 {
		opts.Settings.Concurrency = d.Concurrency
	}
	if opts.Settings.FetchTimeout <= 0 {
		opts.Settings.FetchTimeout = d.FetchTimeout
	}
	if opts.Settings.ImageTimeout <= 0 {
		opts.Settings.ImageTimeout = d.ImageTimeout
	}
	if opts.Settings.Language == "" {
		opts.Settings.Language = d.Language
	}
	if opts.Images == nil {
		if imgs, ok := opts.Fetcher.(core.ImageFetcher); ok {
			opts.Images = imgs
		}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Cover == nil {
		opts.Cover = cover.NewResolver(opts.Images, opts.Settings.ImageTimeout, log)
	}
	return &Exporter{opts: opts, log: log}
}

// postResult is the outcome of fetching and normalizing one post. A result
// with neither doc nor err was abandoned by cancellation.
type postResult struct {
	doc *core.NormalizedDocument
	err error
}

// Run executes one export job. Only a *core.ConfigurationError is returned
// as an error; every other problem is recorded in the outcome.
func (e *Exporter) Run(ctx context.Context, req core.Request) (*core.ExportOutcome, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "export.run")
	defer span.End()

	cfg := req.Config.WithDefaults()
	if err := cfg.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if e.opts.Fetcher == nil {
		return nil, &core.ConfigurationError{Field: "fetcher", Message: "no content fetcher configured"}
	}

	renderers, err := e.renderers(cfg.Formats)
	if err != nil {
		return nil, err
	}

	writer, err := output.New(cfg.OutputDirectory)
	if err != nil {
		return nil, &core.ConfigurationError{Field: "outputDirectory", Message: "output directory is not usable", Err: err}
	}

	outcome := &core.ExportOutcome{
		Status:    core.StatusCompleted,
		Succeeded: []string{},
		Failed:    []core.Failure{},
		Files:     []string{},
		Warnings:  []string{},
	}

	selected, warnings := SelectPosts(req.Posts, cfg)
	outcome.Warnings = append(outcome.Warnings, warnings...)
	ordered := ResolveOrder(selected, cfg)
	needImages := cfg.NeedsImages()

	span.SetAttributes(
		attribute.String("publication.url", req.Publication.URL),
		attribute.Int("posts.selected", len(ordered)),
		attribute.String("granularity", string(cfg.Granularity)),
	)
	e.log.Info("export started",
		"publication", req.Publication.Title,
		"posts", len(ordered),
		"formats", formatList(cfg.Formats),
		"granularity", cfg.Granularity,
	)

	asset, err := e.opts.Cover.Resolve(ctx, cfg.CoverMode, cfg.CustomCover, req.Publication, needImages)
	if err != nil {
		var cfgErr *core.ConfigurationError
		if errors.As(err, &cfgErr) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("cover image unavailable, using text cover: %v", err))
	}
	if asset == nil {
		asset = &core.CoverAsset{Title: req.Publication.Title, Author: req.Publication.Author}
	}

	if ctx.Err() != nil {
		outcome.Status = core.StatusCancelled
		return outcome, nil
	}

	results := e.fetchAll(ctx, ordered, needImages)

	var (
		docs     []*core.NormalizedDocument
		ordinals []int
	)
	for i, r := range results {
		switch {
		case r.doc != nil:
			outcome.Succeeded = append(outcome.Succeeded, ordered[i].ID)
			outcome.Warnings = append(outcome.Warnings, r.doc.Warnings...)
			docs = append(docs, r.doc)
			ordinals = append(ordinals, i+1)
		case r.err != nil:
			outcome.Failed = append(outcome.Failed, core.Failure{PostID: ordered[i].ID, Reason: r.err.Error()})
		}
	}

	if ctx.Err() != nil {
		e.log.Info("export cancelled", "succeeded", len(outcome.Succeeded), "failed", len(outcome.Failed))
		outcome.Status = core.StatusCancelled
		return outcome, nil
	}

	if len(docs) == 0 {
		outcome.Warnings = append(outcome.Warnings, "no posts were exported successfully; no files were written")
	} else if e.packageAll(ctx, cfg, req.Publication, docs, ordinals, asset, renderers, writer, outcome) {
		outcome.Status = core.StatusCancelled
	}

	e.log.Info("export finished",
		"status", outcome.Status,
		"succeeded", len(outcome.Succeeded),
		"failed", len(outcome.Failed),
		"files", len(outcome.Files),
	)
	return outcome, nil
}

// fetchAll fetches and normalizes posts with at most Concurrency in flight.
// Results are indexed by position so collation keeps the resolved order.
func (e *Exporter) fetchAll(ctx context.Context, posts []core.PostRef, needImages bool) []postResult {
	results := make([]postResult, len(posts))
	normalizer := e.normalizer(needImages)

	var g errgroup.Group
	g.SetLimit(e.opts.Settings.Concurrency)
	for i, post := range posts {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = e.processPost(ctx, normalizer, post)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Exporter) processPost(ctx context.Context, normalizer core.Normalizer, post core.PostRef) postResult {
	if ctx.Err() != nil {
		return postResult{}
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "export.post")
	defer span.End()
	span.SetAttributes(attribute.String("post.id", post.ID), attribute.String("post.url", post.URL))

	fail := func(err error) postResult {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.log.Warn("post failed", "post", post.ID, "error", err)
		return postResult{err: err}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.opts.Settings.FetchTimeout)
	raw, err := e.opts.Fetcher.Fetch(fetchCtx, post.URL)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return postResult{}
		}
		return fail(&core.ContentFetchError{PostID: post.ID, URL: post.URL, Err: err})
	}

	doc, err := normalizer.Normalize(ctx, post, raw)
	if err != nil {
		if ctx.Err() != nil {
			return postResult{}
		}
		var parseErr *core.ContentParseError
		if !errors.As(err, &parseErr) {
			err = &core.ContentParseError{PostID: post.ID, Err: err}
		}
		return fail(err)
	}
	if doc == nil {
		return fail(&core.ContentParseError{PostID: post.ID, Err: errors.New("normalizer returned no document")})
	}

	e.log.Debug("post normalized", "post", post.ID, "blocks", len(doc.Blocks), "warnings", len(doc.Warnings))
	return postResult{doc: doc}
}

// packageAll builds and writes every file. It reports whether the job was
// cancelled along the way.
func (e *Exporter) packageAll(
	ctx context.Context,
	cfg core.ExportConfiguration,
	pub core.PublicationRef,
	docs []*core.NormalizedDocument,
	ordinals []int,
	asset *core.CoverAsset,
	renderers map[core.Format]core.Renderer,
	writer *output.Writer,
	outcome *core.ExportOutcome,
) bool {
	for _, format := range cfg.Formats {
		renderer := renderers[format]
		for _, comp := range assemble.Assemble(docs, ordinals, pub, cfg) {
			if ctx.Err() != nil {
				return true
			}
			name := comp.FileStem + renderer.Extension()

			path, err := e.packageOne(ctx, comp, asset, renderer, writer, name, format)
			if err != nil {
				if ctx.Err() != nil {
					return true
				}
				e.log.Error("packaging failed", "file", name, "error", err)
				outcome.Failed = append(outcome.Failed, core.Failure{PostID: "file:" + name, Reason: err.Error()})
				continue
			}
			e.log.Info("file written", "path", path, "format", format)
			outcome.Files = append(outcome.Files, path)
		}
	}
	return false
}

func (e *Exporter) packageOne(
	ctx context.Context,
	comp *core.Compilation,
	asset *core.CoverAsset,
	renderer core.Renderer,
	writer *output.Writer,
	name string,
	format core.Format,
) (string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "export.package")
	defer span.End()
	span.SetAttributes(attribute.String("file", name), attribute.String("format", string(format)))

	data, err := renderer.Render(comp, asset)
	if err == nil {
		var path string
		path, err = writer.Write(ctx, name, data)
		if err == nil {
			return path, nil
		}
	}
	err = &core.PackagingError{File: name, Format: format, Err: err}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return "", err
}

func (e *Exporter) renderers(formats []core.Format) (map[core.Format]core.Renderer, error) {
	out := make(map[core.Format]core.Renderer, len(formats))
	for _, f := range formats {
		if r, ok := e.opts.Renderers[f]; ok && r != nil {
			out[f] = r
			continue
		}
		r, err := render.New(f, e.opts.Settings)
		if err != nil {
			return nil, &core.ConfigurationError{Field: "formats", Message: err.Error()}
		}
		out[f] = r
	}
	return out, nil
}

func (e *Exporter) normalizer(needImages bool) core.Normalizer {
	if e.opts.Normalizer != nil {
		return e.opts.Normalizer
	}
	return normalize.New(normalize.Options{
		Images:       e.opts.Images,
		FetchImages:  needImages && e.opts.Images != nil,
		ImageTimeout: e.opts.Settings.ImageTimeout,
	})
}

func formatList(formats []core.Format) string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return strings.Join(names, ",")
}
