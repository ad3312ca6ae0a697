// Package cover resolves the cover asset for an export job.
package cover

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gaurav-prasanna/postpress/core"
)

// Resolver builds the cover asset for a job. It is called once per job.
type Resolver struct {
	images  core.ImageFetcher
	timeout time.Duration
	logger  *slog.Logger
}

// NewResolver creates a Resolver that fetches author images through images.
func NewResolver(images core.ImageFetcher, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = core.DefaultEngineSettings().ImageTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{images: images, timeout: timeout, logger: logger}
}

// Resolve returns the cover for pub. The returned asset is never nil.
//
// In custom mode any problem with the supplied image is a
// *core.ConfigurationError. In publication_author mode a failed image fetch
// returns the text-only asset together with a *core.CoverError.
func (r *Resolver) Resolve(ctx context.Context, mode core.CoverMode, custom *core.CoverImage, pub core.PublicationRef, needImage bool) (*core.CoverAsset, error) {
	asset := &core.CoverAsset{
		Title:  strings.TrimSpace(pub.Title),
		Author: strings.TrimSpace(pub.Author),
	}
	if asset.Title == "" {
		asset.Title = "Untitled publication"
	}
	if asset.Author == "" {
		asset.Author = "Unknown author"
	}
	if !needImage {
		return asset, nil
	}

	switch mode {
	case core.CoverCustom:
		if custom == nil || len(custom.Data) == 0 {
			return asset, &core.ConfigurationError{Field: "customCover", Message: "custom cover mode requires a cover image"}
		}
		img, err := FromBytes(custom.Data, custom.MediaType)
		if err != nil {
			return asset, &core.ConfigurationError{Field: "customCover", Message: "custom cover is not a usable image", Err: err}
		}
		asset.Image = img
		return asset, nil

	case core.CoverPublicationAuthor:
		src := strings.TrimSpace(pub.AuthorImageURL)
		if src == "" {
			return asset, nil
		}
		img, err := r.fetch(ctx, src)
		if err != nil {
			r.logger.Warn("cover image unavailable", "url", src, "error", err)
			return asset, &core.CoverError{Source: src, Err: err}
		}
		asset.Image = img
		return asset, nil
	}
	return asset, &core.ConfigurationError{Field: "coverMode", Message: fmt.Sprintf("unknown cover mode %q", mode)}
}

func (r *Resolver) fetch(ctx context.Context, src string) (*core.CoverImage, error) {
	if strings.HasPrefix(src, "data:") {
		data, mediaType, err := DecodeDataURL(src)
		if err != nil {
			return nil, err
		}
		return FromBytes(data, mediaType)
	}
	if u, err := url.Parse(src); err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("author image URL %q is not absolute", src)
	}
	if r.images == nil {
		return nil, errors.New("no image fetcher configured")
	}

	fctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	data, declared, err := r.images.FetchImage(fctx, src)
	if err != nil {
		return nil, err
	}
	return FromBytes(data, declared)
}

// FromBytes wraps image bytes verbatim, detecting the media type from the
// content and falling back to hint.
func FromBytes(data []byte, hint string) (*core.CoverImage, error) {
	if len(data) == 0 {
		return nil, errors.New("image is empty")
	}
	mediaType := core.SniffImageType(data, hint)
	if mediaType == "" {
		return nil, errors.New("data is not a recognized image")
	}
	ext, ok := core.ImageExtension(mediaType)
	if !ok {
		return nil, fmt.Errorf("unsupported cover image type %q", mediaType)
	}
	return &core.CoverImage{Data: data, MediaType: mediaType, Extension: ext}, nil
}

// DecodeDataURL decodes a base64 data URL such as the one a file picker
// hands over for a custom cover.
func DecodeDataURL(s string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return nil, "", errors.New("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errors.New("data URL has no payload")
	}
	mediaType, encoding, _ := strings.Cut(meta, ";")
	if !strings.EqualFold(encoding, "base64") {
		return nil, "", fmt.Errorf("data URL encoding %q is not supported", encoding)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decoding data URL: %w", err)
	}
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return data, mediaType, nil
}
