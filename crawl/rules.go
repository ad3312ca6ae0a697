// Package crawl — URL rules.
// Helpers to normalize publication addresses and filter archive links.
package crawl

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ErrEmptyPublication is returned when no publication address is given.
var ErrEmptyPublication = errors.New("publication URL cannot be empty")

// assetExtensions are link targets that are never posts.
var assetExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".svg": true, ".webp": true, ".ico": true,
	".css": true, ".js": true,
	".mp3": true, ".mp4": true, ".m4a": true, ".wav": true,
	".zip": true, ".pdf": true, ".epub": true,
}

// NormalizePublicationURL turns user input into the publication's base URL.
// A bare name becomes https://<name>.substack.com, a host without scheme is
// given https, and any path, query or fragment is dropped.
func NormalizePublicationURL(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", ErrEmptyPublication
	}

	candidate := trimmed
	switch {
	case strings.HasPrefix(trimmed, "http://"), strings.HasPrefix(trimmed, "https://"):
	case strings.Contains(trimmed, "."):
		candidate = "https://" + trimmed
	default:
		candidate = "https://" + trimmed + ".substack.com"
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", fmt.Errorf("invalid publication URL %q: %w", input, err)
	}
	if parsed.Host == "" || parsed.Hostname() == "" {
		return "", fmt.Errorf("publication URL %q has no host", input)
	}
	return parsed.Scheme + "://" + parsed.Host, nil
}

// IsSameHost reports whether rawURL is served from host.
func IsSameHost(rawURL string, host string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Host, host)
}

// IsAsset reports whether rawURL points at a static file rather than a page.
func IsAsset(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return assetExtensions[strings.ToLower(path.Ext(parsed.Path))]
}

// IsPostURL reports whether rawURL looks like a post permalink (/p/<slug>).
func IsPostURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	idx := strings.Index(parsed.Path, "/p/")
	return idx >= 0 && len(strings.Trim(parsed.Path[idx+3:], "/")) > 0
}

// NormalizeURL strips the fragment, query and trailing slash so the same
// post linked several ways is seen once.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.Fragment = ""
	parsed.RawQuery = ""
	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}
	return parsed.String()
}

// resolveLink resolves href against base, skipping non-navigational links.
func resolveLink(href string, base *url.URL) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	for _, scheme := range []string{"mailto:", "javascript:", "tel:"} {
		if strings.HasPrefix(strings.ToLower(href), scheme) {
			return ""
		}
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(parsed).String()
}
