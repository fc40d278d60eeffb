package stream

import (
	"strconv"
	"strings"
)

// RangeKind classifies a parsed Range header.
type RangeKind int

const (
	// RangeNone means no usable range was requested; serve the full object
	// with status 200. Malformed headers land here so playback degrades to a
	// full download instead of failing outright.
	RangeNone RangeKind = iota
	// RangeSatisfiable carries a concrete inclusive byte interval; serve 206.
	RangeSatisfiable
	// RangeUnsatisfiable means the request named bytes outside the object;
	// respond 416 with no body.
	RangeUnsatisfiable
)

type RangeResult struct {
	Kind  RangeKind
	Start int64
	End   int64
}

// ParseRange interprets a Range header value against a known object size.
// Only the single-range form bytes=<start>-<end> is supported; start defaults
// to 0 and end to size-1 when omitted. Multi-range requests and anything the
// parser cannot read are treated as no range at all.
func ParseRange(header string, size int64) RangeResult {
	header = strings.TrimSpace(header)
	if header == "" || size <= 0 {
		return RangeResult{Kind: RangeNone}
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return RangeResult{Kind: RangeNone}
	}
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.Contains(spec, ",") {
		return RangeResult{Kind: RangeNone}
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return RangeResult{Kind: RangeNone}
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	start := int64(0)
	if startStr != "" {
		parsed, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil || parsed < 0 {
			return RangeResult{Kind: RangeNone}
		}
		start = parsed
	}

	end := size - 1
	if endStr != "" {
		parsed, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || parsed < 0 {
			return RangeResult{Kind: RangeNone}
		}
		end = parsed
	}

	if start >= size || end >= size || start > end {
		return RangeResult{Kind: RangeUnsatisfiable}
	}
	return RangeResult{Kind: RangeSatisfiable, Start: start, End: end}
}
