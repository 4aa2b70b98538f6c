package traversal_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/temirov/fileprompt/internal/ignore"
	"github.com/temirov/fileprompt/internal/traversal"
	"github.com/temirov/fileprompt/internal/types"
	"github.com/temirov/fileprompt/internal/utils"
)

var errPermissionDenied = errors.New("permission denied")

type failingOpenFs struct {
	afero.Fs
	failingPath string
}

func (fileSystem failingOpenFs) Open(name string) (afero.File, error) {
	if filepath.Clean(name) == fileSystem.failingPath {
		return nil, errPermissionDenied
	}
	return fileSystem.Fs.Open(name)
}

type excludeNothing struct{}

func (excludeNothing) IsExcluded(string, bool) bool { return false }

func writeFiles(testingHandle *testing.T, root string, files map[string]string) {
	testingHandle.Helper()
	for relativePath, content := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(relativePath))
		if mkdirError := os.MkdirAll(filepath.Dir(fullPath), 0o755); mkdirError != nil {
			testingHandle.Fatalf("mkdir %s: %v", fullPath, mkdirError)
		}
		if writeError := os.WriteFile(fullPath, []byte(content), 0o644); writeError != nil {
			testingHandle.Fatalf("write %s: %v", fullPath, writeError)
		}
	}
}

func relativePaths(root string, records []types.FileRecord) []string {
	paths := make([]string, 0, len(records))
	for _, record := range records {
		paths = append(paths, utils.DisplayPath(record.Path, root))
	}
	return paths
}

func TestGatherFilesScenario(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	writeFiles(testingHandle, root, map[string]string{
		"keep.js":          `console.log("hi");`,
		"ignore.log":       "log",
		"sub/nested.txt":   "nested",
		"ignoreDir/bad.js": "bad",
		"extra.txt":        "extra",
		".gitignore":       "ignoreDir/\nignore.log\n",
		".git/HEAD":        "ref: refs/heads/main\n",
	})
	filter, buildError := ignore.NewFilter(afero.NewOsFs(), root, ignore.Settings{
		RespectPatternFiles: true,
		UseIgnoreFile:       true,
		IgnoredExtensions:   []string{".log"},
		ExplicitPaths:       []string{"extra.txt"},
	})
	if buildError != nil {
		testingHandle.Fatalf("NewFilter: %v", buildError)
	}

	records, gatherError := traversal.GatherFiles(context.Background(), afero.NewOsFs(), []string{root}, filter)
	if gatherError != nil {
		testingHandle.Fatalf("GatherFiles: %v", gatherError)
	}
	expected := []string{"keep.js", "sub/nested.txt"}
	if actual := relativePaths(root, records); !reflect.DeepEqual(actual, expected) {
		testingHandle.Fatalf("expected %v, got %v", expected, actual)
	}
	if records[0].Size != int64(len(`console.log("hi");`)) || records[0].LastModified.IsZero() {
		testingHandle.Fatalf("unexpected metadata: %+v", records[0])
	}
}

func TestGatherFilesExclusionMonotonicity(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	writeFiles(testingHandle, root, map[string]string{
		"a.log":           "a",
		"deep/b.log":      "b",
		"vendor/lib.go":   "package lib",
		"main.go":         "package main",
		".gitignore":      "!*.log\n!vendor/\n",
		"deep/.gitignore": "!b.log\n",
	})
	filter, buildError := ignore.NewFilter(afero.NewOsFs(), root, ignore.Settings{
		RespectPatternFiles: true,
		IgnoredExtensions:   []string{"log"},
		ExplicitPaths:       []string{"vendor"},
	})
	if buildError != nil {
		testingHandle.Fatalf("NewFilter: %v", buildError)
	}
	records, gatherError := traversal.GatherFiles(context.Background(), afero.NewOsFs(), []string{root}, filter)
	if gatherError != nil {
		testingHandle.Fatalf("GatherFiles: %v", gatherError)
	}
	for _, relativePath := range relativePaths(root, records) {
		if strings.HasSuffix(relativePath, ".log") || strings.HasPrefix(relativePath, "vendor/") {
			testingHandle.Fatalf("denylisted path %s survived traversal", relativePath)
		}
	}
	if len(records) != 1 {
		testingHandle.Fatalf("expected only main.go, got %v", relativePaths(root, records))
	}
}

func TestGatherFilesDeduplicatesAndOrders(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	writeFiles(testingHandle, root, map[string]string{
		"b.txt":     "b",
		"a/z.txt":   "z",
		"a-b/x.txt": "x",
		"B.txt":     "B",
	})
	selection := []string{
		filepath.Join(root, "b.txt"),
		root,
		filepath.Join(root, "a"),
		filepath.Join(root, "b.txt"),
	}
	records, gatherError := traversal.GatherFiles(context.Background(), afero.NewOsFs(), selection, excludeNothing{})
	if gatherError != nil {
		testingHandle.Fatalf("GatherFiles: %v", gatherError)
	}
	expected := []string{"B.txt", "a/z.txt", "a-b/x.txt", "b.txt"}
	if actual := relativePaths(root, records); !reflect.DeepEqual(actual, expected) {
		testingHandle.Fatalf("expected %v, got %v", expected, actual)
	}
}

func TestGatherFilesSelectedFileHonorsFilter(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	writeFiles(testingHandle, root, map[string]string{"notes.log": "n", "main.go": "m"})
	filter, _ := ignore.NewFilter(afero.NewOsFs(), root, ignore.Settings{IgnoredExtensions: []string{".log"}})
	selection := []string{filepath.Join(root, "notes.log"), filepath.Join(root, "main.go")}
	records, gatherError := traversal.GatherFiles(context.Background(), afero.NewOsFs(), selection, filter)
	if gatherError != nil {
		testingHandle.Fatalf("GatherFiles: %v", gatherError)
	}
	if actual := relativePaths(root, records); !reflect.DeepEqual(actual, []string{"main.go"}) {
		testingHandle.Fatalf("unexpected records %v", actual)
	}
}

func TestGatherFilesMissingSelection(testingHandle *testing.T) {
	missingPath := filepath.Join(testingHandle.TempDir(), "missing.txt")
	_, gatherError := traversal.GatherFiles(context.Background(), afero.NewOsFs(), []string{missingPath}, excludeNothing{})
	if gatherError == nil || !strings.Contains(gatherError.Error(), missingPath) {
		testingHandle.Fatalf("expected error naming %s, got %v", missingPath, gatherError)
	}
}

func TestGatherFilesUnreadableDirectoryAborts(testingHandle *testing.T) {
	memoryFs := afero.NewMemMapFs()
	root := filepath.FromSlash("/workspace")
	for _, relativePath := range []string{"ok/a.txt", "locked/b.txt", "c.txt"} {
		if writeError := afero.WriteFile(memoryFs, filepath.Join(root, filepath.FromSlash(relativePath)), []byte("x"), 0o644); writeError != nil {
			testingHandle.Fatalf("write: %v", writeError)
		}
	}
	lockedPath := filepath.Join(root, "locked")
	fileSystem := failingOpenFs{Fs: memoryFs, failingPath: lockedPath}

	records, gatherError := traversal.NewWalker(fileSystem, 2).GatherFiles(context.Background(), []string{root}, excludeNothing{})
	if gatherError == nil {
		testingHandle.Fatalf("expected an error, got records %v", records)
	}
	if records != nil {
		testingHandle.Fatalf("expected no partial results")
	}
	if !errors.Is(gatherError, errPermissionDenied) || !strings.Contains(gatherError.Error(), lockedPath) {
		testingHandle.Fatalf("unexpected error: %v", gatherError)
	}
}

func TestGatherFilesSkipsSymlinkedDirectories(testingHandle *testing.T) {
	if runtime.GOOS == "windows" {
		testingHandle.Skip("symlinks require elevated privileges on windows")
	}
	root := testingHandle.TempDir()
	outside := testingHandle.TempDir()
	writeFiles(testingHandle, root, map[string]string{"real/file.txt": "r"})
	writeFiles(testingHandle, outside, map[string]string{"target.txt": "t", "dir/inner.txt": "i"})
	if linkError := os.Symlink(filepath.Join(outside, "dir"), filepath.Join(root, "linked")); linkError != nil {
		testingHandle.Fatalf("symlink: %v", linkError)
	}
	if linkError := os.Symlink(filepath.Join(outside, "target.txt"), filepath.Join(root, "link.txt")); linkError != nil {
		testingHandle.Fatalf("symlink: %v", linkError)
	}

	records, gatherError := traversal.GatherFiles(context.Background(), afero.NewOsFs(), []string{root}, excludeNothing{})
	if gatherError != nil {
		testingHandle.Fatalf("GatherFiles: %v", gatherError)
	}
	expected := []string{"link.txt", "real/file.txt"}
	if actual := relativePaths(root, records); !reflect.DeepEqual(actual, expected) {
		testingHandle.Fatalf("expected %v, got %v", expected, actual)
	}
}
