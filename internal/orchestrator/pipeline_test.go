package orchestrator_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/temirov/fileprompt/internal/ignore"
	"github.com/temirov/fileprompt/internal/markdown"
	"github.com/temirov/fileprompt/internal/orchestrator"
	"github.com/temirov/fileprompt/internal/services/clipboard"
	"github.com/temirov/fileprompt/internal/tokenizer"
	"github.com/temirov/fileprompt/internal/traversal"
	"github.com/temirov/fileprompt/internal/types"
)

type failingCopier struct{}

func (failingCopier) Copy(string) error { return errors.New("clipboard unavailable") }

func newTestPipeline(copier clipboard.Copier, settings ignore.Settings) *orchestrator.CopyPipeline {
	fileSystem := afero.NewOsFs()
	return &orchestrator.CopyPipeline{
		Filters:       ignore.NewCache(fileSystem, settings),
		Walker:        traversal.NewWalker(fileSystem, traversal.DefaultDirectoryReadLimit),
		Assembler:     markdown.NewAssembler(fileSystem, markdown.NewCache(), tokenizer.WhitespaceCounter{}),
		Copier:        copier,
		IncludeTokens: true,
	}
}

func TestCopyPipelineScenario(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	files := map[string]string{
		"keep.js":          `console.log("hi");`,
		"ignore.log":       "log",
		"sub/nested.txt":   "nested",
		"ignoreDir/bad.js": "bad",
		"extra.txt":        "extra",
		".gitignore":       "ignoreDir/\nignore.log\n",
	}
	for relativePath, content := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(relativePath))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			testingHandle.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
			testingHandle.Fatalf("write: %v", err)
		}
	}

	var sink bytes.Buffer
	pipeline := newTestPipeline(clipboard.NewWriterService(&sink), ignore.Settings{
		RespectPatternFiles: true,
		UseIgnoreFile:       true,
		IgnoredExtensions:   []string{".log"},
		ExplicitPaths:       []string{"extra.txt"},
	})
	outcome, runError := pipeline.Run(context.Background(), types.SelectionRequest{WorkspaceRoot: root, Paths: []string{root}})
	if runError != nil {
		testingHandle.Fatalf("Run: %v", runError)
	}
	if outcome.Files != 2 {
		testingHandle.Fatalf("expected 2 files, got %d", outcome.Files)
	}
	expectedTree := "📄 keep.js (1 tok, 18 B)\n📁 sub/\n└── 📄 nested.txt (1 tok, 6 B)"
	if outcome.Tree != expectedTree {
		testingHandle.Fatalf("expected tree:\n%s\ngot:\n%s", expectedTree, outcome.Tree)
	}
	for _, forbidden := range []string{"ignore.log", "bad.js", "extra.txt", ".gitignore"} {
		if strings.Contains(sink.String(), forbidden) {
			testingHandle.Fatalf("document unexpectedly mentions %s", forbidden)
		}
	}
	if !strings.HasPrefix(sink.String(), "**Total tokens:** 2\n\n# File Tree\n\n") {
		testingHandle.Fatalf("unexpected document header: %q", sink.String())
	}
	if sink.String() != outcome.Document || outcome.Bytes != 24 {
		testingHandle.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestCopyPipelineTreeWithoutTokens(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("one two"), 0o644); err != nil {
		testingHandle.Fatalf("write: %v", err)
	}
	var sink bytes.Buffer
	pipeline := newTestPipeline(clipboard.NewWriterService(&sink), ignore.Settings{})
	pipeline.IncludeTokens = false
	outcome, runError := pipeline.Run(context.Background(), types.SelectionRequest{WorkspaceRoot: root, Paths: []string{root}})
	if runError != nil {
		testingHandle.Fatalf("Run: %v", runError)
	}
	if outcome.Tree != "📄 a.txt (7 B)" {
		testingHandle.Fatalf("expected a tree without token counts, got %q", outcome.Tree)
	}
	if strings.Contains(sink.String(), "Total tokens") {
		testingHandle.Fatalf("token header must be omitted, got %q", sink.String())
	}
}

func TestCopyPipelineEnvironmentErrors(testingHandle *testing.T) {
	pipeline := newTestPipeline(failingCopier{}, ignore.Settings{})
	if _, err := pipeline.Run(context.Background(), types.SelectionRequest{Paths: []string{"/x"}}); !errors.Is(err, types.ErrNoWorkspace) {
		testingHandle.Fatalf("expected ErrNoWorkspace, got %v", err)
	}
	if _, err := pipeline.Run(context.Background(), types.SelectionRequest{WorkspaceRoot: testingHandle.TempDir()}); !errors.Is(err, types.ErrNoSelection) {
		testingHandle.Fatalf("expected ErrNoSelection, got %v", err)
	}
}

func TestCopyPipelineCopyFailure(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644); err != nil {
		testingHandle.Fatalf("write: %v", err)
	}
	pipeline := newTestPipeline(failingCopier{}, ignore.Settings{})
	_, runError := pipeline.Run(context.Background(), types.SelectionRequest{WorkspaceRoot: root, Paths: []string{root}})
	if runError == nil || !strings.Contains(runError.Error(), "clipboard unavailable") {
		testingHandle.Fatalf("expected clipboard error, got %v", runError)
	}
}
