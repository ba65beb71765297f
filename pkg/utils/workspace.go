package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// SummarizeWorkspace walks the workspace and returns a textual snapshot of
// its files: small text files with truncated content, large or binary
// files as name-and-size entries. Hidden directories (.git, .anvil, ...)
// are skipped. The snapshot is taken once at session start.
func SummarizeWorkspace(root string, maxFileSize int) string {
	if maxFileSize <= 0 {
		maxFileSize = 4096
	}

	var summary []string

	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}

		name := info.Name()
		if info.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			relPath = path
		}

		if info.Size() > int64(maxFileSize) {
			summary = append(summary, fmt.Sprintf("%s (size: %d bytes, skipped)", relPath, info.Size()))
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			summary = append(summary, fmt.Sprintf("%s (error reading: %v)", relPath, err))
			return nil
		}
		if IsBinary(content) {
			summary = append(summary, fmt.Sprintf("%s (binary, %d bytes)", relPath, info.Size()))
			return nil
		}

		summary = append(summary, fmt.Sprintf("%s:\n%s\n---", relPath, string(content)))
		return nil
	})

	if len(summary) == 0 {
		return "(empty workspace)"
	}
	return strings.Join(summary, "\n")
}

// IsBinary reports whether content looks like binary data: a NUL byte or
// invalid UTF-8 in the first kilobyte.
func IsBinary(content []byte) bool {
	probe := content
	if len(probe) > 1024 {
		probe = probe[:1024]
	}
	if len(probe) == 0 {
		return false
	}
	for _, b := range probe {
		if b == 0 {
			return true
		}
	}
	// The probe may split a multibyte rune at its end; trim a partial rune
	// before judging validity.
	for len(probe) > 0 && !utf8.Valid(probe) {
		if len(content) <= 1024 {
			break
		}
		probe = probe[:len(probe)-1]
		if len(probe) < 1021 {
			break
		}
	}
	return !utf8.Valid(probe)
}
