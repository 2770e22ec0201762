package utils

import (
	"regexp"
	"strings"
)

var invalidFolderChars = regexp.MustCompile(`[<>:."/\\|?*]`)

// SanitizeFolderName strips characters that are invalid in directory names
// on common filesystems and trims surrounding whitespace
func SanitizeFolderName(name string) string {
	return strings.TrimSpace(invalidFolderChars.ReplaceAllString(name, ""))
}
