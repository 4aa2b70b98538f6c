// Package traversal expands a selection of files and directories into the
// set of files a copy job emits.
package traversal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/temirov/fileprompt/internal/types"
	"github.com/temirov/fileprompt/internal/utils"
)

const (
	// DefaultDirectoryReadLimit bounds concurrent directory listings.
	DefaultDirectoryReadLimit = 16

	errorStatSelectionFormat = "stat %s: %w"
	errorReadDirectoryFormat = "read directory %s: %w"
	errorResolveLinkFormat   = "resolve link %s: %w"
)

// Excluder reports whether a path must be left out of the result.
type Excluder interface {
	IsExcluded(absolutePath string, isDirectory bool) bool
}

// Walker gathers files concurrently on a file system.
type Walker struct {
	fileSystem afero.Fs
	readSlots  *semaphore.Weighted
}

// NewWalker returns a Walker that runs at most directoryReadLimit listings at once.
func NewWalker(fileSystem afero.Fs, directoryReadLimit int64) *Walker {
	if directoryReadLimit <= 0 {
		directoryReadLimit = DefaultDirectoryReadLimit
	}
	return &Walker{
		fileSystem: fileSystem,
		readSlots:  semaphore.NewWeighted(directoryReadLimit),
	}
}

// GatherFiles expands selection into file records. Selected files are kept
// unless excluded; selected directories are walked, pruning every excluded
// child before descending. Any stat or listing failure aborts the walk.
// Records are de-duplicated and returned in tree order.
func (walker *Walker) GatherFiles(ctx context.Context, selection []string, excluder Excluder) ([]types.FileRecord, error) {
	collector := newRecordCollector()
	group, groupContext := errgroup.WithContext(ctx)

	for _, selectedPath := range utils.DeduplicateStrings(selection) {
		absolutePath := filepath.Clean(selectedPath)
		group.Go(func() error {
			return walker.visitSelection(groupContext, group, absolutePath, excluder, collector)
		})
	}

	if walkError := group.Wait(); walkError != nil {
		return nil, walkError
	}
	return collector.records(), nil
}

func (walker *Walker) visitSelection(ctx context.Context, group *errgroup.Group, absolutePath string, excluder Excluder, collector *recordCollector) error {
	fileInformation, statError := walker.fileSystem.Stat(absolutePath)
	if statError != nil {
		return fmt.Errorf(errorStatSelectionFormat, absolutePath, statError)
	}
	if fileInformation.IsDir() {
		if fileInformation.Name() == utils.GitDirectoryName {
			return nil
		}
		return walker.visitDirectory(ctx, group, absolutePath, excluder, collector)
	}
	if !excluder.IsExcluded(absolutePath, false) {
		collector.add(newFileRecord(absolutePath, fileInformation))
	}
	return nil
}

func (walker *Walker) visitDirectory(ctx context.Context, group *errgroup.Group, directoryPath string, excluder Excluder, collector *recordCollector) error {
	directoryEntries, readError := walker.readDirectory(ctx, directoryPath)
	if readError != nil {
		return readError
	}
	for _, directoryEntry := range directoryEntries {
		if directoryEntry.Name() == utils.GitDirectoryName {
			continue
		}
		childPath := filepath.Join(directoryPath, directoryEntry.Name())
		childInformation := directoryEntry
		if directoryEntry.Mode()&os.ModeSymlink != 0 {
			targetInformation, statError := walker.fileSystem.Stat(childPath)
			if statError != nil {
				return fmt.Errorf(errorResolveLinkFormat, childPath, statError)
			}
			if targetInformation.IsDir() {
				continue
			}
			childInformation = targetInformation
		}
		if childInformation.IsDir() {
			if excluder.IsExcluded(childPath, true) {
				continue
			}
			subdirectoryPath := childPath
			group.Go(func() error {
				return walker.visitDirectory(ctx, group, subdirectoryPath, excluder, collector)
			})
			continue
		}
		if excluder.IsExcluded(childPath, false) {
			continue
		}
		collector.add(newFileRecord(childPath, childInformation))
	}
	return nil
}

func (walker *Walker) readDirectory(ctx context.Context, directoryPath string) ([]os.FileInfo, error) {
	if acquireError := walker.readSlots.Acquire(ctx, 1); acquireError != nil {
		return nil, acquireError
	}
	defer walker.readSlots.Release(1)

	directoryEntries, readError := afero.ReadDir(walker.fileSystem, directoryPath)
	if readError != nil {
		return nil, fmt.Errorf(errorReadDirectoryFormat, directoryPath, readError)
	}
	return directoryEntries, nil
}

func newFileRecord(absolutePath string, fileInformation os.FileInfo) types.FileRecord {
	return types.FileRecord{
		Path:         absolutePath,
		Size:         fileInformation.Size(),
		LastModified: fileInformation.ModTime(),
	}
}

type recordCollector struct {
	mutex  sync.Mutex
	byPath map[string]types.FileRecord
}

func newRecordCollector() *recordCollector {
	return &recordCollector{byPath: make(map[string]types.FileRecord)}
}

func (collector *recordCollector) add(record types.FileRecord) {
	collector.mutex.Lock()
	defer collector.mutex.Unlock()
	collector.byPath[record.Path] = record
}

func (collector *recordCollector) records() []types.FileRecord {
	collector.mutex.Lock()
	defer collector.mutex.Unlock()
	result := make([]types.FileRecord, 0, len(collector.byPath))
	for _, record := range collector.byPath {
		result = append(result, record)
	}
	sort.Slice(result, func(left, right int) bool {
		return utils.ComparePathSegments(filepath.ToSlash(result[left].Path), filepath.ToSlash(result[right].Path)) < 0
	})
	return result
}

// GatherFiles walks selection on fileSystem with the default read limit.
func GatherFiles(ctx context.Context, fileSystem afero.Fs, selection []string, excluder Excluder) ([]types.FileRecord, error) {
	return NewWalker(fileSystem, DefaultDirectoryReadLimit).GatherFiles(ctx, selection, excluder)
}
