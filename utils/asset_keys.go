package utils

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// BuildAssetKey derives the storage key for an owned asset:
// <category>/<ownerId>/<subtype>/<timestamp>_<originalName>.
// The timestamp keeps re-uploads of the same filename from colliding.
func BuildAssetKey(category, ownerID, subtype, originalName string, now time.Time) string {
	name := SanitizeFilename(originalName)
	return path.Join(category, ownerID, subtype,
		fmt.Sprintf("%d_%s", now.UnixMilli(), name))
}

// SanitizeFilename strips path components and characters that have no place
// in an object key.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeKeyChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		name = "asset"
	}
	return name
}
