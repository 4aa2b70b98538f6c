// Package tree renders a file selection as an indented directory tree.
package tree

import (
	"sort"

	"github.com/temirov/fileprompt/internal/types"
	"github.com/temirov/fileprompt/internal/utils"
)

// Node is either a *Directory or a *File.
type Node interface {
	Name() string
	isNode()
}

// Directory is an interior node keyed by child name.
type Directory struct {
	name     string
	children map[string]Node
}

// File is a leaf node carrying exactly one file record.
type File struct {
	name   string
	Record types.FileRecord
}

func newDirectory(name string) *Directory {
	return &Directory{name: name, children: make(map[string]Node)}
}

// Name returns the directory's own path segment.
func (directory *Directory) Name() string { return directory.name }

// Name returns the file's own path segment.
func (file *File) Name() string { return file.name }

func (*Directory) isNode() {}
func (*File) isNode()      {}

// Children returns the directory's children ordered by ordinal name comparison.
func (directory *Directory) Children() []Node {
	children := make([]Node, 0, len(directory.children))
	for _, child := range directory.children {
		children = append(children, child)
	}
	sort.Slice(children, func(left, right int) bool {
		return children[left].Name() < children[right].Name()
	})
	return children
}

// Files returns every leaf record below the directory in render order.
func (directory *Directory) Files() []types.FileRecord {
	var records []types.FileRecord
	for _, child := range directory.Children() {
		switch node := child.(type) {
		case *File:
			records = append(records, node.Record)
		case *Directory:
			records = append(records, node.Files()...)
		}
	}
	return records
}

// Build creates a tree rooted at workspaceRoot from records. Paths outside the
// workspace become top-level leaves named by their absolute path.
func Build(workspaceRoot string, records []types.FileRecord) *Directory {
	root := newDirectory("")
	for _, record := range records {
		relativePath, inside := utils.WorkspaceRelativePath(record.Path, workspaceRoot)
		if !inside {
			root.children[relativePath] = &File{name: relativePath, Record: record}
			continue
		}
		segments := utils.SplitPathSegments(relativePath)
		if len(segments) == 0 {
			continue
		}
		parent := root.ensureDirectory(segments[:len(segments)-1])
		leafName := segments[len(segments)-1]
		parent.children[leafName] = &File{name: leafName, Record: record}
	}
	return root
}

func (directory *Directory) ensureDirectory(segments []string) *Directory {
	current := directory
	for _, segment := range segments {
		existing, found := current.children[segment]
		next, isDirectory := existing.(*Directory)
		if !found || !isDirectory {
			next = newDirectory(segment)
			current.children[segment] = next
		}
		current = next
	}
	return current
}

// Prune returns a copy of directory without subdirectories that have no file
// descendants. The input tree is left untouched. A nil result means nothing
// survived.
func Prune(directory *Directory) *Directory {
	pruned := newDirectory(directory.name)
	for childName, child := range directory.children {
		switch node := child.(type) {
		case *File:
			pruned.children[childName] = &File{name: node.name, Record: node.Record}
		case *Directory:
			if prunedChild := Prune(node); prunedChild != nil {
				pruned.children[childName] = prunedChild
			}
		}
	}
	if len(pruned.children) == 0 {
		return nil
	}
	return pruned
}
