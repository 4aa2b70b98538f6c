// Package utils contains general helper functions used across fileprompt.
package utils

import (
	"path/filepath"
	"strings"
)

const pathSegmentSeparator = "/"

var patternFileNames = map[string]struct{}{
	IgnoreFileName:    {},
	GitIgnoreFileName: {},
}

// IsPatternFileName reports whether name is one of the ignore pattern files.
func IsPatternFileName(name string) bool {
	_, isPatternFile := patternFileNames[name]
	return isPatternFile
}

// DeduplicateStrings removes duplicate values from a slice while preserving order.
// The first occurrence of each unique value is kept.
func DeduplicateStrings(values []string) []string {
	encounteredValues := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if _, exists := encounteredValues[value]; !exists {
			encounteredValues[value] = struct{}{}
			result = append(result, value)
		}
	}
	return result
}

// ContainsString checks if a slice of strings contains a specific target string.
func ContainsString(stringSlice []string, targetString string) bool {
	for _, currentString := range stringSlice {
		if currentString == targetString {
			return true
		}
	}
	return false
}

// WorkspaceRelativePath returns fullPath relative to root in forward-slash form.
// It returns "." when both resolve to the same directory and reports false when
// fullPath lies outside root.
func WorkspaceRelativePath(fullPath, root string) (string, bool) {
	cleanPath := filepath.Clean(fullPath)
	cleanRoot := filepath.Clean(root)
	if cleanPath == cleanRoot {
		return ".", true
	}
	relativePath, relativeError := filepath.Rel(cleanRoot, cleanPath)
	if relativeError != nil {
		return filepath.ToSlash(cleanPath), false
	}
	slashPath := filepath.ToSlash(relativePath)
	if slashPath == ".." || strings.HasPrefix(slashPath, "../") {
		return filepath.ToSlash(cleanPath), false
	}
	return slashPath, true
}

// DisplayPath returns the workspace-relative form of fullPath, or its absolute
// slash form when it lies outside the workspace.
func DisplayPath(fullPath, root string) string {
	displayPath, _ := WorkspaceRelativePath(fullPath, root)
	return displayPath
}

// SplitPathSegments splits a slash path into its non-empty segments.
func SplitPathSegments(slashPath string) []string {
	rawSegments := strings.Split(slashPath, pathSegmentSeparator)
	segments := rawSegments[:0]
	for _, segment := range rawSegments {
		if segment == "" || segment == "." {
			continue
		}
		segments = append(segments, segment)
	}
	return segments
}

// ComparePathSegments orders two slash paths segment by segment using ordinal
// comparison, which is the order a depth-first walk of a sorted tree produces.
func ComparePathSegments(leftPath, rightPath string) int {
	leftSegments := SplitPathSegments(leftPath)
	rightSegments := SplitPathSegments(rightPath)
	for segmentIndex := 0; segmentIndex < len(leftSegments) && segmentIndex < len(rightSegments); segmentIndex++ {
		if comparison := strings.Compare(leftSegments[segmentIndex], rightSegments[segmentIndex]); comparison != 0 {
			return comparison
		}
	}
	return len(leftSegments) - len(rightSegments)
}

// HasPathPrefix reports whether candidate equals prefix or lies below it.
// Both values are expected in forward-slash form.
func HasPathPrefix(candidate, prefix string) bool {
	trimmedPrefix := strings.TrimSuffix(prefix, pathSegmentSeparator)
	if trimmedPrefix == "" {
		return false
	}
	return candidate == trimmedPrefix || strings.HasPrefix(candidate, trimmedPrefix+pathSegmentSeparator)
}
