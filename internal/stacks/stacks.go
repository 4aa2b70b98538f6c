// Package stacks edits user-named path lists kept in configuration.
package stacks

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/temirov/fileprompt/internal/types"
	"github.com/temirov/fileprompt/internal/utils"
)

var (
	// ErrStackNotFound reports a reference to a stack that does not exist.
	ErrStackNotFound = errors.New("stack not found")
	// ErrNothingLeftToCopy reports a stack whose paths have all disappeared.
	ErrNothingLeftToCopy = errors.New("nothing left to copy")
	// ErrEmptyStackName reports a blank stack name.
	ErrEmptyStackName = errors.New("stack name must not be empty")
)

const errorStackNotFoundFormat = "%w: %s"

// Add creates the stack name with paths, or appends the paths it does not
// already contain when the stack exists. The input slice is not modified.
func Add(stacks []types.Stack, name string, paths []string) ([]types.Stack, error) {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return nil, ErrEmptyStackName
	}
	updated := clone(stacks)
	for stackIndex := range updated {
		if updated[stackIndex].Name != trimmedName {
			continue
		}
		combined := append(updated[stackIndex].Paths, paths...)
		updated[stackIndex].Paths = utils.DeduplicateStrings(combined)
		return updated, nil
	}
	return append(updated, types.Stack{Name: trimmedName, Paths: utils.DeduplicateStrings(paths)}), nil
}

// Remove deletes the stack name.
func Remove(stacks []types.Stack, name string) ([]types.Stack, error) {
	updated := make([]types.Stack, 0, len(stacks))
	found := false
	for _, stack := range clone(stacks) {
		if stack.Name == name {
			found = true
			continue
		}
		updated = append(updated, stack)
	}
	if !found {
		return nil, fmt.Errorf(errorStackNotFoundFormat, ErrStackNotFound, name)
	}
	return updated, nil
}

// RemovePath deletes one path from the stack name. Removing a path the stack
// does not hold leaves it unchanged.
func RemovePath(stacks []types.Stack, name string, path string) ([]types.Stack, error) {
	updated := clone(stacks)
	for stackIndex := range updated {
		if updated[stackIndex].Name != name {
			continue
		}
		remaining := make([]string, 0, len(updated[stackIndex].Paths))
		for _, existingPath := range updated[stackIndex].Paths {
			if existingPath != path {
				remaining = append(remaining, existingPath)
			}
		}
		updated[stackIndex].Paths = remaining
		return updated, nil
	}
	return nil, fmt.Errorf(errorStackNotFoundFormat, ErrStackNotFound, name)
}

// Find returns the stack name.
func Find(stacks []types.Stack, name string) (types.Stack, error) {
	for _, stack := range stacks {
		if stack.Name == name {
			return stack, nil
		}
	}
	return types.Stack{}, fmt.Errorf(errorStackNotFoundFormat, ErrStackNotFound, name)
}

// Resolve returns the stack paths for which exists reports true, in order.
func Resolve(stack types.Stack, exists func(path string) bool) ([]string, error) {
	var remaining []string
	for _, path := range stack.Paths {
		if exists(path) {
			remaining = append(remaining, path)
		}
	}
	if len(remaining) == 0 {
		return nil, ErrNothingLeftToCopy
	}
	return remaining, nil
}

// MatchHistory returns the name of the stack holding the same set of paths as
// entry. Ordering is ignored, so two selections of the same files in a
// different order match the same stack.
func MatchHistory(entry types.HistoryEntry, stacks []types.Stack) (string, bool) {
	entryKey := sortedKey(entry.Paths)
	for _, stack := range stacks {
		if sortedKey(stack.Paths) == entryKey {
			return stack.Name, true
		}
	}
	return "", false
}

// AnnotateHistory fills StackName on every entry that matches a stack.
func AnnotateHistory(entries []types.HistoryEntry, stacks []types.Stack) []types.HistoryEntry {
	annotated := make([]types.HistoryEntry, len(entries))
	for entryIndex, entry := range entries {
		if stackName, matched := MatchHistory(entry, stacks); matched {
			entry.StackName = stackName
		}
		annotated[entryIndex] = entry
	}
	return annotated
}

func sortedKey(paths []string) string {
	sorted := append([]string{}, paths...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}

func clone(stacks []types.Stack) []types.Stack {
	cloned := make([]types.Stack, 0, len(stacks))
	for _, stack := range stacks {
		cloned = append(cloned, types.Stack{Name: stack.Name, Paths: append([]string{}, stack.Paths...)})
	}
	return cloned
}
