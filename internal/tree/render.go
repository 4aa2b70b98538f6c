package tree

import (
	"fmt"
	"strings"

	"github.com/temirov/fileprompt/internal/types"
	"github.com/temirov/fileprompt/internal/utils"
)

const (
	middleBranch       = "├── "
	lastBranch         = "└── "
	verticalContinue   = "│   "
	emptyContinue      = "    "
	directoryIcon      = "📁"
	fileIcon           = "📄"
	collapsedSeparator = "/"
	lineSeparator      = "\n"

	fileLabelFormat      = "%s %s (%s)"
	fileTokenLabelFormat = "%s %s (%d tok, %s)"
	directoryLabelFormat = "%s %s/"
)

// Render builds, prunes and renders records relative to workspaceRoot. It
// returns the tree text and the total byte size of all leaves. A non-nil
// fileTokens map, keyed by absolute path, adds token counts to file labels.
func Render(workspaceRoot string, records []types.FileRecord, fileTokens map[string]int) (string, int64) {
	var totalBytes int64
	for _, record := range records {
		totalBytes += record.Size
	}
	pruned := Prune(Build(workspaceRoot, records))
	if pruned == nil {
		return "", totalBytes
	}
	return RenderDirectory(pruned, fileTokens), totalBytes
}

// RenderDirectory serializes the children of root. Top-level entries are flush
// left; deeper entries carry branch glyphs.
func RenderDirectory(root *Directory, fileTokens map[string]int) string {
	var lines []string
	renderChildren(root, "", true, fileTokens, &lines)
	return strings.Join(lines, lineSeparator)
}

func renderChildren(directory *Directory, prefix string, topLevel bool, fileTokens map[string]int, lines *[]string) {
	children := directory.Children()
	for childIndex, child := range children {
		isLast := childIndex == len(children)-1
		branch := ""
		childPrefix := ""
		if !topLevel {
			branch = prefix + middleBranch
			childPrefix = prefix + verticalContinue
			if isLast {
				branch = prefix + lastBranch
				childPrefix = prefix + emptyContinue
			}
		}

		switch node := child.(type) {
		case *File:
			*lines = append(*lines, branch+fileLabel(node, fileTokens))
		case *Directory:
			label, collapsed := collapseChain(node)
			*lines = append(*lines, branch+fmt.Sprintf(directoryLabelFormat, directoryIcon, label))
			renderChildren(collapsed, childPrefix, false, fileTokens, lines)
		}
	}
}

// collapseChain follows single-child directory chains and returns the combined
// label and the directory whose children are rendered next.
func collapseChain(directory *Directory) (string, *Directory) {
	label := directory.name
	current := directory
	for len(current.children) == 1 {
		onlyChild := current.Children()[0]
		nextDirectory, isDirectory := onlyChild.(*Directory)
		if !isDirectory {
			break
		}
		label += collapsedSeparator + nextDirectory.name
		current = nextDirectory
	}
	return label, current
}

func fileLabel(file *File, fileTokens map[string]int) string {
	size := utils.FormatSize(file.Record.Size)
	if tokens, counted := fileTokens[file.Record.Path]; counted {
		return fmt.Sprintf(fileTokenLabelFormat, fileIcon, file.name, tokens, size)
	}
	return fmt.Sprintf(fileLabelFormat, fileIcon, file.name, size)
}
