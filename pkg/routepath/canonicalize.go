// Package routepath normalizes request paths before they reach the
// route resolver. All matching happens against canonical paths, so the
// resolver never sees duplicate slashes, dot segments, or a trailing
// slash.
package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// Canonical is the result of canonicalizing a request path.
type Canonical struct {
	// Path is the canonical path (without query string). Always starts
	// with "/" and never ends with one, except for the root path "/".
	Path string

	// Segments are the decoded path segments of Path. Empty for "/".
	Segments []string

	// Query is the raw query string (without leading "?").
	Query string
}

// Canonicalization errors.
var (
	ErrBackslashInPath      = errors.New("routepath: path contains backslash")
	ErrNullByteInPath       = errors.New("routepath: path contains null byte")
	ErrInvalidPercentEscape = errors.New("routepath: invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("routepath: path escapes root via ..")
	ErrEncodedSlash         = errors.New("routepath: encoded slash (%2F) in path segment")
)

// Canonicalize normalizes a URL path:
//   - collapses duplicate slashes (/blog//post -> /blog/post)
//   - removes "." segments and resolves ".." segments
//   - strips a single trailing slash (except for the root "/")
//   - percent-decodes each segment
//
// Inputs containing a backslash, a NUL byte (literal or encoded), an
// invalid percent escape, or a ".." that would climb above the root are
// rejected. A query string may be present; it is split off and returned
// verbatim.
func Canonicalize(input string) (Canonical, error) {
	if input == "" {
		return Canonical{Path: "/"}, nil
	}

	path, query, _ := strings.Cut(input, "?")

	// SECURITY: backslashes and NUL bytes never appear in legitimate
	// route paths; both are common smuggling vectors.
	if strings.Contains(path, "\\") {
		return Canonical{}, ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return Canonical{}, ErrNullByteInPath
	}

	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return Canonical{}, err
		}
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}

	var segments []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(segments) == 0 {
				// SECURITY: ".." above the root.
				return Canonical{}, ErrPathEscapesRoot
			}
			segments = segments[:len(segments)-1]
		default:
			decoded, err := url.PathUnescape(seg)
			if err != nil {
				return Canonical{}, ErrInvalidPercentEscape
			}
			// SECURITY: a decoded "/" would smuggle an extra segment
			// past the resolver.
			if strings.Contains(decoded, "/") {
				return Canonical{}, ErrEncodedSlash
			}
			segments = append(segments, decoded)
		}
	}

	canonical := "/" + strings.Join(segments, "/")

	return Canonical{
		Path:     canonical,
		Segments: segments,
		Query:    query,
	}, nil
}

// validatePercentEscapes checks that every "%" starts a valid %XX escape.
func validatePercentEscapes(path string) error {
	i := 0
	for i < len(path) {
		if path[i] == '%' {
			if i+2 >= len(path) {
				return ErrInvalidPercentEscape
			}
			if !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
				return ErrInvalidPercentEscape
			}
			i += 3
		} else {
			i++
		}
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
