package core

import (
	"net/http"
	"strings"
)

var imageExtensions = map[string]string{
	"image/jpeg":    "jpg",
	"image/png":     "png",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/svg+xml": "svg",
}

// ImageExtension returns the file extension for an image media type.
func ImageExtension(mediaType string) (string, bool) {
	ext, ok := imageExtensions[baseMediaType(mediaType)]
	return ext, ok
}

// SniffImageType detects the media type of image bytes, falling back to
// hint when the content is not recognized. It returns "" when neither
// identifies an image.
func SniffImageType(data []byte, hint string) string {
	if len(data) > 0 {
		if sniffed := baseMediaType(http.DetectContentType(data)); strings.HasPrefix(sniffed, "image/") {
			return sniffed
		}
	}
	if h := baseMediaType(hint); strings.HasPrefix(h, "image/") {
		return h
	}
	return ""
}

func baseMediaType(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
