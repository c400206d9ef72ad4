package runner

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ErrNoURL      = errors.New("no URL given")
	ErrInvalidURL = errors.New("invalid URL")
)

// schemes a headless browser can load as a test page.
var loadableSchemes = map[string]struct{}{
	"http":  {},
	"https": {},
	"file":  {},
	"about": {},
	"data":  {},
}

// hostPortRe matches "localhost:8080", "127.0.0.1:9876/test.html" and the like.
var hostPortRe = regexp.MustCompile(`^[A-Za-z0-9.\-]+:[0-9]+([/?#].*)?$`)

// NormalizeURL checks the target argument. URLs with a loadable scheme pass
// through unchanged. A scheme-less argument naming an existing file becomes a
// file:// URL, and a bare host:port target gets http://.
func NormalizeURL(raw string) (string, error) {
	if raw == "" {
		return "", ErrNoURL
	}

	u, err := url.Parse(raw)
	if err == nil {
		if _, ok := loadableSchemes[strings.ToLower(u.Scheme)]; ok {
			return raw, nil
		}
	}

	if _, statErr := os.Stat(raw); statErr == nil {
		abs, absErr := filepath.Abs(raw)
		if absErr != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, absErr)
		}
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
	}

	if hostPortRe.MatchString(raw) {
		return "http://" + raw, nil
	}

	switch {
	case err != nil:
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	case len(u.Scheme) > 1:
		return "", fmt.Errorf("%w: %q: unsupported scheme %q", ErrInvalidURL, raw, u.Scheme)
	default:
		return "", fmt.Errorf("%w: %q has no scheme and is not an existing file", ErrInvalidURL, raw)
	}
}
