package slskd

import "strings"

// Soulseek paths always use backslash separators, so they are split literally
// instead of with the local path utilities.
const separator = "\\"

// ParentDir returns the directory portion of a Soulseek file path
func ParentDir(path string) string {
	idx := strings.LastIndex(path, separator)
	if idx < 0 {
		return path
	}
	return path[:idx]
}

// BaseName returns the final segment of a Soulseek path
func BaseName(path string) string {
	idx := strings.LastIndex(path, separator)
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// Join joins a Soulseek directory and filename
func Join(dir, name string) string {
	return dir + separator + name
}
