package storage

import (
	"fmt"
	"regexp"
	"strings"
)

// MediaKind selects the key prefix a stored object lives under.
type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindCover MediaKind = "cover"
)

const (
	audioPrefix = "audio"
	coverPrefix = "covers"
)

var (
	ownerIDPattern   = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)
	extensionPattern = regexp.MustCompile(`^[a-z0-9]{1,8}$`)
)

func (k MediaKind) Valid() bool {
	return k == KindAudio || k == KindCover
}

func (k MediaKind) prefix() string {
	if k == KindCover {
		return coverPrefix
	}
	return audioPrefix
}

// BuildMediaKey derives the deterministic object key for a media upload.
// Audio and cover keys share the owning entity's identifier under distinct
// prefixes, so re-uploading for the same owner overwrites in place.
func BuildMediaKey(kind MediaKind, ownerID, extension string) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("invalid media kind: %q", kind)
	}
	if !ownerIDPattern.MatchString(ownerID) {
		return "", fmt.Errorf("invalid owner id: %q", ownerID)
	}
	extension = strings.ToLower(strings.TrimPrefix(extension, "."))
	if !extensionPattern.MatchString(extension) {
		return "", fmt.Errorf("invalid file extension: %q", extension)
	}
	return fmt.Sprintf("%s/%s.%s", kind.prefix(), ownerID, extension), nil
}
