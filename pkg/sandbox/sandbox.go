// Package sandbox confines agent actions to a workspace directory.
//
// Every filesystem action resolves its requested path through Resolve and
// performs all subsequent I/O on the resolved absolute path, so there is no
// gap between the check and the use. Script sources additionally pass
// through ScreenScript before execution.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// PathEscapeError reports an attempt to access a path outside the
// workspace root.
type PathEscapeError struct {
	Root string
	Path string
}

func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("path %q escapes workspace root %q", e.Path, e.Root)
}

// RejectedError reports a script that failed the safety screen.
type RejectedError struct {
	Pattern string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("script rejected by safety screen: contains %q", e.Pattern)
}

// Resolve validates that requestedPath stays inside workspaceRoot and
// returns the absolute path to use for all subsequent I/O.
//
// The check covers ".." traversal, absolute-path override, and symlink
// escape: the nearest existing ancestor of the candidate path is resolved
// through filepath.EvalSymlinks before the containment check, so a symlink
// pointing outside the workspace cannot smuggle I/O past the guard.
func Resolve(workspaceRoot, requestedPath string) (string, error) {
	absRoot, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return "", fmt.Errorf("invalid workspace root: %w", err)
	}

	resolvedRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("invalid workspace root: %w", err)
	}

	var candidate string
	if filepath.IsAbs(requestedPath) {
		candidate = filepath.Clean(requestedPath)
	} else {
		candidate = filepath.Join(resolvedRoot, requestedPath)
	}

	resolved, err := resolveExistingAncestor(candidate)
	if err != nil {
		return "", err
	}

	if !isWithin(resolvedRoot, resolved) {
		return "", &PathEscapeError{Root: workspaceRoot, Path: requestedPath}
	}

	return resolved, nil
}

// resolveExistingAncestor resolves symlinks in the longest existing prefix
// of path and rejoins the non-existing suffix. This lets Resolve validate
// paths for files that are about to be created.
func resolveExistingAncestor(path string) (string, error) {
	suffix := ""
	current := path

	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Join(resolved, suffix), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("cannot resolve path: %w", err)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("cannot resolve path: %s", path)
		}
		suffix = filepath.Join(filepath.Base(current), suffix)
		current = parent
	}
}

func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Denied call patterns for ScreenScript. The scan is lexical: it catches
// the destructive calls an honest script would contain, not what a hostile
// one can obfuscate through string building or indirection.
var deniedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bos\.remove\s*\(`),
	regexp.MustCompile(`\bos\.unlink\s*\(`),
	regexp.MustCompile(`\bos\.rmdir\s*\(`),
	regexp.MustCompile(`\bos\.removedirs\s*\(`),
	regexp.MustCompile(`\bshutil\.rmtree\s*\(`),
	regexp.MustCompile(`\bpathlib\.Path\([^)]*\)\.unlink`),
	regexp.MustCompile(`\brm\s+(-[a-zA-Z]*[rf][a-zA-Z]*\s+)+`),
	regexp.MustCompile(`\brmdir\b`),
	regexp.MustCompile(`\bfind\b.*-delete\b`),
}

// ScreenScript scans script source for destructive call patterns and
// returns a RejectedError on the first match. A nil return means the
// source passed the screen, not that it is safe.
func ScreenScript(source string) error {
	for _, pattern := range deniedPatterns {
		if loc := pattern.FindString(source); loc != "" {
			return &RejectedError{Pattern: strings.TrimSpace(loc)}
		}
	}
	return nil
}
