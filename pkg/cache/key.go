package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Key addresses one (route, parameter bindings) combination. The
// readable route prefix is kept for logs and events; the digest makes
// the key deterministic regardless of parameter iteration order.
type Key string

// NewKey derives a cache key from a route identity and its bound
// parameters. The same route and bindings always produce the same key.
func NewKey(route string, params map[string]string, wildcards map[string][]string) Key {
	h := sha256.New()
	h.Write([]byte(route))

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.Write([]byte{0})
		h.Write([]byte(name))
		h.Write([]byte{'='})
		h.Write([]byte(params[name]))
	}

	names = names[:0]
	for name := range wildcards {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.Write([]byte{1})
		h.Write([]byte(name))
		h.Write([]byte{'='})
		h.Write([]byte(strings.Join(wildcards[name], "\x00")))
	}

	return Key(route + "#" + hex.EncodeToString(h.Sum(nil)[:16]))
}

// Route returns the readable route prefix of the key.
func (k Key) Route() string {
	if i := strings.LastIndexByte(string(k), '#'); i >= 0 {
		return string(k[:i])
	}
	return string(k)
}

// String returns the key as a string.
func (k Key) String() string { return string(k) }
