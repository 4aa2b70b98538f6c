// Package ignore decides which workspace paths are excluded from a copy job.
package ignore

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"

	"github.com/temirov/fileprompt/internal/config"
	"github.com/temirov/fileprompt/internal/utils"
)

const (
	negationPrefix    = "!"
	anchorPrefix      = "/"
	directorySuffix   = "/"
	anyDepthSeparator = "/**/"

	errorBuildFilterFormat = "build ignore filter for %s: %w"
)

// Settings selects the sources a Filter is compiled from.
type Settings struct {
	RespectPatternFiles bool
	UseIgnoreFile       bool
	IgnoredExtensions   []string
	ExplicitPaths       []string
}

// SettingsFromConfiguration derives Settings from application configuration.
func SettingsFromConfiguration(applicationConfiguration config.ApplicationConfiguration) Settings {
	return Settings{
		RespectPatternFiles: applicationConfiguration.ShouldRespectGitignore(),
		UseIgnoreFile:       applicationConfiguration.ShouldUseIgnoreFile(),
		IgnoredExtensions:   append([]string{}, applicationConfiguration.IgnoredExtensions...),
		ExplicitPaths:       append([]string{}, applicationConfiguration.ExtraIgnoredFiles...),
	}
}

// PatternFileNames returns the pattern files honored under settings.
func (settings Settings) PatternFileNames() []string {
	if !settings.RespectPatternFiles {
		return nil
	}
	if settings.UseIgnoreFile {
		return []string{utils.GitIgnoreFileName, utils.IgnoreFileName}
	}
	return []string{utils.GitIgnoreFileName}
}

// Filter is an immutable exclusion predicate for one workspace root.
type Filter struct {
	root          string
	matcher       *gitignore.GitIgnore
	extensions    map[string]struct{}
	explicitPaths []string
}

// NewFilter discovers pattern files under root and compiles them together with
// the extension and explicit path denylists.
func NewFilter(fileSystem afero.Fs, root string, settings Settings) (*Filter, error) {
	cleanRoot := filepath.Clean(root)
	patternSets, discoverError := config.DiscoverPatternSets(fileSystem, cleanRoot, settings.PatternFileNames())
	if discoverError != nil {
		return nil, fmt.Errorf(errorBuildFilterFormat, cleanRoot, discoverError)
	}
	return compileFilter(cleanRoot, patternSets, settings), nil
}

func compileFilter(root string, patternSets []config.PatternSet, settings Settings) *Filter {
	var scopedPatterns []string
	for _, patternSet := range patternSets {
		for _, pattern := range patternSet.Patterns {
			scopedPatterns = append(scopedPatterns, scopePattern(patternSet.Directory, pattern))
		}
	}

	filter := &Filter{
		root:       root,
		extensions: make(map[string]struct{}),
	}
	if len(scopedPatterns) > 0 {
		filter.matcher = gitignore.CompileIgnoreLines(scopedPatterns...)
	}
	for _, extension := range config.NormalizeExtensions(settings.IgnoredExtensions) {
		filter.extensions[extension] = struct{}{}
	}
	for _, explicitPath := range settings.ExplicitPaths {
		trimmed := strings.TrimSpace(filepath.ToSlash(explicitPath))
		trimmed = strings.TrimPrefix(trimmed, "./")
		if trimmed == "" {
			continue
		}
		filter.explicitPaths = append(filter.explicitPaths, trimmed)
	}
	return filter
}

// scopePattern rewrites a pattern read from the pattern file in directory so it
// only matches paths below that directory once merged with every other file.
func scopePattern(directory string, pattern string) string {
	if directory == "" {
		return pattern
	}
	prefix := ""
	body := pattern
	if strings.HasPrefix(body, negationPrefix) {
		prefix = negationPrefix
		body = strings.TrimPrefix(body, negationPrefix)
	}
	core := strings.TrimSuffix(body, directorySuffix)
	switch {
	case strings.HasPrefix(body, anchorPrefix):
		return prefix + anchorPrefix + directory + body
	case strings.Contains(core, directorySuffix):
		return prefix + anchorPrefix + directory + anchorPrefix + body
	default:
		return prefix + anchorPrefix + directory + anyDepthSeparator + body
	}
}

// Root returns the workspace root this filter was compiled for.
func (filter *Filter) Root() string {
	return filter.root
}

// IsExcluded reports whether absolutePath is excluded. Pattern files and
// anything inside a .git directory are always excluded.
func (filter *Filter) IsExcluded(absolutePath string, isDirectory bool) bool {
	relativePath, insideWorkspace := utils.WorkspaceRelativePath(absolutePath, filter.root)
	segments := utils.SplitPathSegments(relativePath)
	for _, segment := range segments {
		if segment == utils.GitDirectoryName {
			return true
		}
	}
	baseName := path.Base(relativePath)
	if !isDirectory {
		if utils.IsPatternFileName(baseName) {
			return true
		}
		if _, denied := filter.extensions[strings.ToLower(path.Ext(baseName))]; denied {
			return true
		}
	}
	if !insideWorkspace || relativePath == "." {
		return false
	}
	for _, explicitPath := range filter.explicitPaths {
		if utils.HasPathPrefix(relativePath, explicitPath) {
			return true
		}
	}
	if filter.matcher == nil {
		return false
	}
	candidate := relativePath
	if isDirectory {
		candidate += directorySuffix
	}
	return filter.matcher.MatchesPath(candidate)
}
