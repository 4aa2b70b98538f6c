package ignore_test

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/temirov/fileprompt/internal/ignore"
)

const filterTestRoot = "/workspace"

type fixtureFile struct {
	path    string
	content string
}

func newFixture(testingHandle *testing.T, files []fixtureFile) afero.Fs {
	testingHandle.Helper()
	fileSystem := afero.NewMemMapFs()
	for _, file := range files {
		fullPath := filepath.Join(filepath.FromSlash(filterTestRoot), filepath.FromSlash(file.path))
		if writeError := afero.WriteFile(fileSystem, fullPath, []byte(file.content), 0o644); writeError != nil {
			testingHandle.Fatalf("write %s: %v", fullPath, writeError)
		}
	}
	return fileSystem
}

func absolute(relativePath string) string {
	return filepath.Join(filepath.FromSlash(filterTestRoot), filepath.FromSlash(relativePath))
}

func scenarioFiles() []fixtureFile {
	return []fixtureFile{
		{path: "keep.js", content: `console.log("hi");`},
		{path: "ignore.log", content: "log"},
		{path: "sub/nested.txt", content: "nested"},
		{path: "ignoreDir/bad.js", content: "bad"},
		{path: "extra.txt", content: "extra"},
		{path: ".gitignore", content: "ignoreDir/\nignore.log\n"},
	}
}

func TestFilterScenario(testingHandle *testing.T) {
	fileSystem := newFixture(testingHandle, scenarioFiles())
	settings := ignore.Settings{
		RespectPatternFiles: true,
		UseIgnoreFile:       true,
		IgnoredExtensions:   []string{".log"},
		ExplicitPaths:       []string{"extra.txt"},
	}
	filter, buildError := ignore.NewFilter(fileSystem, filepath.FromSlash(filterTestRoot), settings)
	if buildError != nil {
		testingHandle.Fatalf("NewFilter: %v", buildError)
	}

	testCases := []struct {
		name     string
		path     string
		isDir    bool
		excluded bool
	}{
		{name: "kept file", path: "keep.js", excluded: false},
		{name: "nested kept file", path: "sub/nested.txt", excluded: false},
		{name: "sub directory", path: "sub", isDir: true, excluded: false},
		{name: "ignored log", path: "ignore.log", excluded: true},
		{name: "ignored directory", path: "ignoreDir", isDir: true, excluded: true},
		{name: "file in ignored directory", path: "ignoreDir/bad.js", excluded: true},
		{name: "explicit path", path: "extra.txt", excluded: true},
		{name: "pattern file", path: ".gitignore", excluded: true},
		{name: "git directory", path: ".git", isDir: true, excluded: true},
		{name: "inside git directory", path: ".git/config", excluded: true},
		{name: "workspace root", path: ".", isDir: true, excluded: false},
	}
	for _, testCase := range testCases {
		testingHandle.Run(testCase.name, func(testingHandle *testing.T) {
			actual := filter.IsExcluded(absolute(testCase.path), testCase.isDir)
			if actual != testCase.excluded {
				testingHandle.Fatalf("expected excluded=%t for %s, got %t", testCase.excluded, testCase.path, actual)
			}
			if repeated := filter.IsExcluded(absolute(testCase.path), testCase.isDir); repeated != actual {
				testingHandle.Fatalf("IsExcluded is not idempotent for %s", testCase.path)
			}
		})
	}
}

func TestFilterExtensionIsCaseInsensitive(testingHandle *testing.T) {
	filter, buildError := ignore.NewFilter(afero.NewMemMapFs(), filterTestRoot, ignore.Settings{IgnoredExtensions: []string{"LOG"}})
	if buildError != nil {
		testingHandle.Fatalf("NewFilter: %v", buildError)
	}
	if !filter.IsExcluded(absolute("Build.Log"), false) {
		testingHandle.Fatalf("expected Build.Log to match the .log extension")
	}
	if filter.IsExcluded(absolute("logs"), true) {
		testingHandle.Fatalf("extension denylist must not apply to directories")
	}
	if filter.IsExcluded(absolute("catalog"), false) {
		testingHandle.Fatalf("extension match must be exact")
	}
}

func TestFilterExplicitPrefix(testingHandle *testing.T) {
	filter, buildError := ignore.NewFilter(afero.NewMemMapFs(), filterTestRoot, ignore.Settings{ExplicitPaths: []string{"build", "./docs/"}})
	if buildError != nil {
		testingHandle.Fatalf("NewFilter: %v", buildError)
	}
	testCases := []struct {
		path     string
		excluded bool
	}{
		{path: "build", excluded: true},
		{path: "build/out.js", excluded: true},
		{path: "builder/out.js", excluded: false},
		{path: "docs/readme.md", excluded: true},
	}
	for _, testCase := range testCases {
		if actual := filter.IsExcluded(absolute(testCase.path), false); actual != testCase.excluded {
			testingHandle.Errorf("%s: expected %t, got %t", testCase.path, testCase.excluded, actual)
		}
	}
}

func TestFilterNegationAndNestedScope(testingHandle *testing.T) {
	fileSystem := newFixture(testingHandle, []fixtureFile{
		{path: ".gitignore", content: "*.tmp\n!keep.tmp\n"},
		{path: "pkg/.gitignore", content: "generated.go\n/local.txt\nassets/raw/\n"},
		{path: "pkg/.ignore", content: "notes.md\n"},
	})
	filter, buildError := ignore.NewFilter(fileSystem, filterTestRoot, ignore.Settings{RespectPatternFiles: true, UseIgnoreFile: true})
	if buildError != nil {
		testingHandle.Fatalf("NewFilter: %v", buildError)
	}
	testCases := []struct {
		path     string
		isDir    bool
		excluded bool
	}{
		{path: "scratch.tmp", excluded: true},
		{path: "keep.tmp", excluded: false},
		{path: "deep/keep.tmp", excluded: false},
		{path: "pkg/generated.go", excluded: true},
		{path: "pkg/inner/generated.go", excluded: true},
		{path: "generated.go", excluded: false},
		{path: "other/generated.go", excluded: false},
		{path: "pkg/local.txt", excluded: true},
		{path: "pkg/inner/local.txt", excluded: false},
		{path: "pkg/assets/raw", isDir: true, excluded: true},
		{path: "pkg/assets", isDir: true, excluded: false},
		{path: "pkg/notes.md", excluded: true},
		{path: "notes.md", excluded: false},
	}
	for _, testCase := range testCases {
		if actual := filter.IsExcluded(absolute(testCase.path), testCase.isDir); actual != testCase.excluded {
			testingHandle.Errorf("%s: expected %t, got %t", testCase.path, testCase.excluded, actual)
		}
	}
}

func TestFilterPatternFilesDisabled(testingHandle *testing.T) {
	fileSystem := newFixture(testingHandle, scenarioFiles())
	filter, buildError := ignore.NewFilter(fileSystem, filterTestRoot, ignore.Settings{RespectPatternFiles: false, ExplicitPaths: []string{"extra.txt"}})
	if buildError != nil {
		testingHandle.Fatalf("NewFilter: %v", buildError)
	}
	if filter.IsExcluded(absolute("ignore.log"), false) {
		testingHandle.Fatalf("expected pattern files to be ignored when disabled")
	}
	if !filter.IsExcluded(absolute("extra.txt"), false) {
		testingHandle.Fatalf("explicit paths still apply when pattern files are disabled")
	}
	if !filter.IsExcluded(absolute(".git"), true) {
		testingHandle.Fatalf(".git is always excluded")
	}
}

func TestFilterIgnoreFileOptional(testingHandle *testing.T) {
	fileSystem := newFixture(testingHandle, []fixtureFile{{path: ".ignore", content: "secret.txt\n"}})
	filter, buildError := ignore.NewFilter(fileSystem, filterTestRoot, ignore.Settings{RespectPatternFiles: true, UseIgnoreFile: false})
	if buildError != nil {
		testingHandle.Fatalf("NewFilter: %v", buildError)
	}
	if filter.IsExcluded(absolute("secret.txt"), false) {
		testingHandle.Fatalf("expected .ignore to be skipped when disabled")
	}
}
