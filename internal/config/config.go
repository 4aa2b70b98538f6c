// Package config loads application settings and parses ignore pattern files.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/temirov/fileprompt/internal/utils"
)

const (
	commentPrefix = "#"

	errorLoadPatternFileFormat = "loading %s: %w"
	errorWalkWorkspaceFormat   = "discovering pattern files under %s: %w"
)

// PatternSet holds the patterns of one pattern file together with the
// workspace-relative directory that contains it ("" for the workspace root).
type PatternSet struct {
	Directory string
	FilePath  string
	Patterns  []string
}

// LoadPatternFile reads a gitignore-style file and returns its non-comment patterns.
// A missing file yields no patterns and no error.
func LoadPatternFile(fileSystem afero.Fs, patternFilePath string) ([]string, error) {
	fileHandle, openFileError := fileSystem.Open(patternFilePath)
	if openFileError != nil {
		if errors.Is(openFileError, os.ErrNotExist) {
			return nil, nil
		}
		return nil, openFileError
	}
	defer fileHandle.Close()

	var patterns []string
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		trimmedLine := strings.TrimSpace(scanner.Text())
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, commentPrefix) {
			continue
		}
		patterns = append(patterns, trimmedLine)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	return patterns, nil
}

// DiscoverPatternSets walks rootDirectoryPath and loads every pattern file named in
// patternFileNames. Sets are returned in walk order, so a directory's files precede
// those of its descendants. The .git directory is never entered.
func DiscoverPatternSets(fileSystem afero.Fs, rootDirectoryPath string, patternFileNames []string) ([]PatternSet, error) {
	if len(patternFileNames) == 0 {
		return nil, nil
	}
	var patternSets []PatternSet

	walkFunction := func(currentPath string, fileInformation os.FileInfo, walkError error) error {
		if walkError != nil {
			return walkError
		}
		if !fileInformation.IsDir() {
			return nil
		}
		if fileInformation.Name() == utils.GitDirectoryName {
			return filepath.SkipDir
		}

		relativeDirectory := utils.DisplayPath(currentPath, rootDirectoryPath)
		if relativeDirectory == "." {
			relativeDirectory = ""
		}
		for _, patternFileName := range patternFileNames {
			patternFilePath := filepath.Join(currentPath, patternFileName)
			patterns, loadError := LoadPatternFile(fileSystem, patternFilePath)
			if loadError != nil {
				return fmt.Errorf(errorLoadPatternFileFormat, patternFilePath, loadError)
			}
			if len(patterns) == 0 {
				continue
			}
			patternSets = append(patternSets, PatternSet{
				Directory: relativeDirectory,
				FilePath:  patternFilePath,
				Patterns:  patterns,
			})
		}
		return nil
	}

	if walkError := afero.Walk(fileSystem, rootDirectoryPath, walkFunction); walkError != nil {
		return nil, fmt.Errorf(errorWalkWorkspaceFormat, rootDirectoryPath, walkError)
	}
	return patternSets, nil
}
