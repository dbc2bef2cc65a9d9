package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExtension is the extension of record files picked up from
// directories.
const DefaultExtension = ".json"

// ResolveFiles expands glob patterns to concrete files.
// Supports both single-level wildcards (*) and recursive wildcards (**).
//
// Examples:
//   - "./packages/*.json" → every JSON file directly under packages
//   - "./packages/**/*.json" → every JSON file below packages
//   - "./packages" → same as "./packages/**/*.json"
//
// Files are returned once each, sorted within a pattern, in pattern order.
func ResolveFiles(patterns []string) ([]string, error) {
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

// resolvePattern expands a single pattern to files.
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
			return []string{absPath}, nil
		}
		pattern = filepath.Join(absPath, "**", "*"+DefaultExtension)
	}

	absPattern, err := makeAbsolutePattern(pattern)
	if err != nil {
		return nil, err
	}

	files, err := globFiles(absPattern)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files match pattern: %s", pattern)
	}
	return files, nil
}

// globFiles returns the regular files matching an absolute pattern, sorted.
func globFiles(absPattern string) ([]string, error) {
	// Use doublestar for ** support
	matches, err := doublestar.FilepathGlob(absPattern)
	if err != nil {
		return nil, fmt.Errorf("glob error: %w", err)
	}

	var files []string
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue // Skip paths that can't be stat'd
		}
		if info.Mode().IsRegular() {
			files = append(files, match)
		}
	}

	slices.Sort(files)
	return files, nil
}

// containsGlob checks if a pattern contains glob characters.
func containsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// makeAbsolutePattern converts a relative pattern to absolute.
// Preserves glob characters in the pattern.
func makeAbsolutePattern(pattern string) (string, error) {
	if filepath.IsAbs(pattern) {
		return pattern, nil
	}

	globIdx := strings.IndexAny(pattern, "*?[{")
	if globIdx == -1 {
		return filepath.Abs(pattern)
	}

	// Split at the last separator before the glob
	dirPart := "."
	globPart := pattern
	if lastSep := strings.LastIndexAny(pattern[:globIdx], "/"+string(filepath.Separator)); lastSep >= 0 {
		dirPart = pattern[:lastSep]
		globPart = pattern[lastSep:]
	} else {
		globPart = string(filepath.Separator) + pattern
	}

	absDir, err := filepath.Abs(dirPart)
	if err != nil {
		return "", err
	}

	return absDir + filepath.FromSlash(globPart), nil
}
