// Package reelid derives the cache identity for an Instagram reel URL.
// Parsing is a pure function: the same input always yields the same
// identity, and nothing here touches the network or any store.
package reelid

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidReference marks input that cannot be resolved to a reel
// identity. Handlers map it to a client error, never to a scrape.
var ErrInvalidReference = errors.New("invalid reel reference")

var shortcodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var allowedHosts = map[string]bool{
	"instagram.com":     true,
	"www.instagram.com": true,
	"m.instagram.com":   true,
	"instagr.am":        true,
	"www.instagr.am":    true,
}

// Ref is a resolved reel reference.
type Ref struct {
	// ID is the shortcode used as cache identity and blob key prefix.
	ID string
	// CanonicalURL is the normalized form stored as source_url and
	// handed to the scraper, with query and fragment stripped.
	CanonicalURL string
}

// Parse resolves a raw URL string into a Ref. It accepts /reel/,
// /reels/ and /p/ paths on instagram.com hosts and normalizes them to
// a single canonical form so that trivially different spellings of the
// same reel share one cache entry.
func Parse(raw string) (Ref, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Ref{}, fmt.Errorf("%w: empty input", ErrInvalidReference)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	if u.Scheme == "" && u.Host == "" {
		// Tolerate bare "instagram.com/reel/x" without a scheme.
		u, err = url.Parse("https://" + trimmed)
		if err != nil {
			return Ref{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
		}
	}

	switch u.Scheme {
	case "http", "https":
	default:
		return Ref{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidReference, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if !allowedHosts[host] {
		return Ref{}, fmt.Errorf("%w: host %q is not an instagram host", ErrInvalidReference, host)
	}

	kind, id, err := splitPath(u.EscapedPath())
	if err != nil {
		return Ref{}, err
	}

	return Ref{
		ID:           id,
		CanonicalURL: fmt.Sprintf("https://www.instagram.com/%s/%s/", kind, id),
	}, nil
}

// splitPath extracts the content kind and shortcode from a reel path.
// "/reels/" is folded into "/reel/" so both spellings share identity.
func splitPath(path string) (kind, id string, err error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("%w: path %q has no shortcode", ErrInvalidReference, path)
	}

	switch parts[0] {
	case "reel", "reels":
		kind = "reel"
	case "p":
		kind = "p"
	default:
		return "", "", fmt.Errorf("%w: path %q is not a reel or post", ErrInvalidReference, path)
	}

	id = parts[1]
	if id == "" || !shortcodePattern.MatchString(id) {
		return "", "", fmt.Errorf("%w: shortcode %q is malformed", ErrInvalidReference, id)
	}
	return kind, id, nil
}
