package normalize

import (
	"context"
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/postpress/core"
)

// embeddableImages are the media types packagers may embed.
var embeddableImages = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type fetchedImage struct {
	data      []byte
	mediaType string
	err       error
}

// embedImages fetches every image block. A failed image becomes a warning and
// stays a placeholder; only cancellation of ctx aborts the document.
func (n *DocumentNormalizer) embedImages(ctx context.Context, doc *core.NormalizedDocument) error {
	cache := map[string]fetchedImage{}
	for i := range doc.Blocks {
		img := doc.Blocks[i].Image
		if img == nil || img.Src == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !strings.HasPrefix(img.Src, "http://") && !strings.HasPrefix(img.Src, "https://") {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("post %s: image %q has no absolute URL; using placeholder", doc.PostID, img.Src))
			continue
		}

		got, seen := cache[img.Src]
		if !seen {
			got = n.fetchImage(ctx, img.Src)
			cache[img.Src] = got
		}
		if got.err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("post %s: image %s not embedded: %v", doc.PostID, img.Src, got.err))
			continue
		}
		if !embeddableImages[got.mediaType] {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("post %s: image %s has unsupported type %q; using placeholder", doc.PostID, img.Src, got.mediaType))
			continue
		}
		img.Data = got.data
		img.MediaType = got.mediaType
	}
	return nil
}

func (n *DocumentNormalizer) fetchImage(ctx context.Context, src string) fetchedImage {
	ictx, cancel := context.WithTimeout(ctx, n.opts.ImageTimeout)
	defer cancel()
	data, declared, err := n.opts.Images.FetchImage(ictx, src)
	if err != nil {
		return fetchedImage{err: err}
	}
	return fetchedImage{data: data, mediaType: core.SniffImageType(data, declared)}
}
