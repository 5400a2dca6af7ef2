package errors

import (
	"strings"
	"unicode"
)

// ValidateEntryPath validates an entry module path supplied as a build
// input. It rejects paths that could be used for traversal outside the
// build root or that cannot be stable module identities.
//
// The validation rules are intentionally conservative:
//   - No empty paths
//   - No control characters or null bytes
//   - No parent-directory traversal
//   - No backslashes (identities are slash-separated)
//   - Maximum length of 512 characters
func ValidateEntryPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidEntry, "entry path cannot be empty")
	}

	if len(path) > 512 {
		return New(ErrCodeInvalidEntry, "entry path too long (max 512 characters)")
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidEntry, "entry path contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(path, pattern) {
			return New(ErrCodeInvalidEntry, "entry path contains invalid sequence: %q", pattern)
		}
	}

	return nil
}
