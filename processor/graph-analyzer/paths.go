package graphanalyzer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ResolvePaths expands glob patterns to concrete directories. Supports
// single-level (*) and recursive (**) wildcards.
//
// Examples:
//   - "./services/*" → ["./services/auth", "./services/users", ...]
//   - "./backend" → ["./backend"]
//
// Returns only directories, deduplicated, in pattern order.
func ResolvePaths(patterns []string) ([]string, error) {
	var resolved []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		paths, err := resolvePattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("resolve pattern %q: %w", pattern, err)
		}
		for _, p := range paths {
			if !seen[p] {
				seen[p] = true
				resolved = append(resolved, p)
			}
		}
	}

	return resolved, nil
}

func resolvePattern(pattern string) ([]string, error) {
	if !containsGlob(pattern) {
		absPath, err := filepath.Abs(pattern)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("path is not a directory: %s", absPath)
		}
		return []string{absPath}, nil
	}

	absPattern, err := makeAbsolutePattern(pattern)
	if err != nil {
		return nil, err
	}

	matches, err := doublestar.FilepathGlob(absPattern)
	if err != nil {
		return nil, fmt.Errorf("glob error: %w", err)
	}

	var dirs []string
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue
		}
		if info.IsDir() {
			dirs = append(dirs, match)
		}
	}

	if len(dirs) == 0 {
		return nil, fmt.Errorf("no directories match pattern: %s", pattern)
	}
	return dirs, nil
}

func containsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// makeAbsolutePattern makes the literal prefix of a pattern absolute
// while preserving the glob suffix.
func makeAbsolutePattern(pattern string) (string, error) {
	globIdx := strings.IndexAny(pattern, "*?[")
	if globIdx == -1 {
		return filepath.Abs(pattern)
	}

	dirPart := pattern[:globIdx]
	if lastSep := strings.LastIndexAny(dirPart, "/"+string(filepath.Separator)); lastSep >= 0 {
		dirPart = pattern[:lastSep]
	} else {
		dirPart = "."
	}
	globPart := pattern[len(dirPart):]

	absDir, err := filepath.Abs(dirPart)
	if err != nil {
		return "", err
	}
	return absDir + filepath.FromSlash(globPart), nil
}
