// Package urlnorm canonicalises article URLs so that the same article
// reached through different links is stored once.
package urlnorm

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
)

// trackingParams lists query parameters that never change page content.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"gclsrc":       {},
	"dclid":        {},
	"msclkid":      {},
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

var (
	// ErrEmpty is returned for blank input.
	ErrEmpty = errors.New("normalize url: empty input")
	// ErrNotAbsolute is returned when scheme or host is missing.
	ErrNotAbsolute = errors.New("normalize url: missing scheme or host")
	// ErrUnsupportedScheme is returned for anything but http and https.
	ErrUnsupportedScheme = errors.New("normalize url: unsupported scheme")
)

// Normalize returns the canonical form of an absolute http(s) URL:
// lowercase scheme and host, no default port, no fragment, tracking
// parameters removed, remaining query keys sorted, dot-segments resolved
// and trailing slashes trimmed. The scheme itself is kept as given.
func Normalize(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", ErrEmpty
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("normalize url: %w", err)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", ErrNotAbsolute
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	if _, ok := defaultPorts[parsed.Scheme]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, parsed.Scheme)
	}

	parsed.Host = normalizeHost(parsed)
	parsed.Fragment = ""
	parsed.RawFragment = ""
	parsed.User = nil
	parsed.RawQuery = buildCleanQuery(parsed.Query())
	parsed.Path = normalizePath(parsed.Path)
	parsed.RawPath = ""

	return parsed.String(), nil
}

// Resolve resolves href against base and normalizes the result.
func Resolve(base, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", ErrEmpty
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("resolve url: %w", err)
	}

	if !ref.IsAbs() {
		baseURL, baseErr := url.Parse(base)
		if baseErr != nil {
			return "", fmt.Errorf("resolve url base: %w", baseErr)
		}
		ref = baseURL.ResolveReference(ref)
	}

	return Normalize(ref.String())
}

// Host returns the lowercase hostname of rawURL, or "" when it has none.
func Host(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

func normalizeHost(u *url.URL) string {
	hostname := strings.ToLower(u.Hostname())
	port := u.Port()

	if port == "" || defaultPorts[u.Scheme] == port {
		return hostname
	}

	return hostname + ":" + port
}

// buildCleanQuery drops tracking parameters and encodes the rest with
// sorted keys. Values keep their original order.
func buildCleanQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		if _, isTracking := trackingParams[strings.ToLower(key)]; !isTracking {
			keys = append(keys, key)
		}
	}

	if len(keys) == 0 {
		return ""
	}

	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		for j, val := range values[key] {
			if i > 0 || j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(val))
		}
	}

	return b.String()
}

func normalizePath(p string) string {
	if p == "" || p == "/" {
		return "/"
	}

	cleaned := path.Clean(p)

	return strings.TrimRight(cleaned, "/")
}
