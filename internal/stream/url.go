package stream

import (
	"net/url"
	"strings"
)

const streamPathPrefix = "/stream/"

// StreamingPath renders an object key as the public proxy path. All playback
// URLs go through this form so every consumer gets range-aware serving
// instead of hitting the bucket directly.
func StreamingPath(key string) string {
	return streamPathPrefix + url.PathEscape(key)
}

// ResolveKey maps a public URL or path back to an object key. Two shapes are
// accepted: the proxy path produced by StreamingPath, and a direct bucket URL
// (scheme://host/bucket/key...) kept from records written before keys were
// normalized at write time. Anything else is reported as unresolved and the
// caller treats the input as an opaque URL.
func ResolveKey(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}

	if escaped, ok := strings.CutPrefix(input, streamPathPrefix); ok {
		key, err := url.PathUnescape(escaped)
		if err != nil || key == "" {
			return "", false
		}
		return key, true
	}

	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		parsed, err := url.Parse(input)
		if err != nil || parsed.Host == "" {
			return "", false
		}
		segments := strings.Split(strings.TrimPrefix(parsed.Path, "/"), "/")
		if len(segments) < 2 {
			return "", false
		}
		key := strings.Join(segments[1:], "/")
		if key == "" {
			return "", false
		}
		return key, true
	}

	return "", false
}
