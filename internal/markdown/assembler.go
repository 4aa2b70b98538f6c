// Package markdown renders file contents as fenced Markdown sections.
package markdown

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/fileprompt/internal/tokenizer"
	"github.com/temirov/fileprompt/internal/types"
	"github.com/temirov/fileprompt/internal/utils"
)

const (
	// DefaultReadLimit bounds concurrent file reads.
	DefaultReadLimit = 16

	backtick           = '`'
	minimumFenceLength = 3
	segmentSeparator   = "\n"

	segmentHeadingFormat     = "## File: `%s`\n"
	binaryPlaceholderFormat  = "[binary file omitted, %s]"
	documentTokensFormat     = "**Total tokens:** %d\n\n"
	documentTreeHeading      = "# File Tree\n\n"
	documentSectionSeparator = "\n\n"

	errorStatFileFormat  = "stat %s: %w"
	errorReadFileFormat  = "read %s: %w"
	errorCountFileFormat = "count tokens for %s: %w"
)

// Document is the assembled file section of one job. FileTokens maps each
// absolute path to its token count and is nil when no counter is configured.
type Document struct {
	Body       string
	Files      int
	Tokens     int
	FileTokens map[string]int
}

// Assembler turns file records into Markdown sections.
type Assembler struct {
	fileSystem afero.Fs
	cache      *Cache
	counter    tokenizer.Counter
	readLimit  int
}

// NewAssembler returns an Assembler reading through fileSystem. A nil counter
// disables token counting; a nil cache disables caching.
func NewAssembler(fileSystem afero.Fs, cache *Cache, counter tokenizer.Counter) *Assembler {
	return &Assembler{
		fileSystem: fileSystem,
		cache:      cache,
		counter:    counter,
		readLimit:  DefaultReadLimit,
	}
}

// Assemble renders one section per record in input order. Reads run
// concurrently; any read failure aborts assembly without touching the cache
// for the failed file.
func (assembler *Assembler) Assemble(ctx context.Context, workspaceRoot string, records []types.FileRecord) (Document, error) {
	blocks := make([]cacheEntry, len(records))
	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(assembler.readLimit)
	for recordIndex, record := range records {
		group.Go(func() error {
			if contextError := groupContext.Err(); contextError != nil {
				return contextError
			}
			entry, renderError := assembler.renderBlock(record.Path)
			if renderError != nil {
				return renderError
			}
			blocks[recordIndex] = entry
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return Document{}, waitError
	}

	segments := make([]string, 0, len(records))
	totalTokens := 0
	var fileTokens map[string]int
	if assembler.counter != nil {
		fileTokens = make(map[string]int, len(records))
	}
	for recordIndex, record := range records {
		heading := fmt.Sprintf(segmentHeadingFormat, utils.DisplayPath(record.Path, workspaceRoot))
		segments = append(segments, heading+blocks[recordIndex].block)
		totalTokens += blocks[recordIndex].tokens
		if fileTokens != nil {
			fileTokens[record.Path] = blocks[recordIndex].tokens
		}
	}
	return Document{
		Body:       strings.Join(segments, segmentSeparator),
		Files:      len(records),
		Tokens:     totalTokens,
		FileTokens: fileTokens,
	}, nil
}

func (assembler *Assembler) renderBlock(absolutePath string) (cacheEntry, error) {
	fileInformation, statError := assembler.fileSystem.Stat(absolutePath)
	if statError != nil {
		return cacheEntry{}, fmt.Errorf(errorStatFileFormat, absolutePath, statError)
	}
	if assembler.cache != nil {
		if cached, found := assembler.cache.lookup(absolutePath, fileInformation.Size(), fileInformation.ModTime()); found {
			return cached, nil
		}
	}

	content, readError := afero.ReadFile(assembler.fileSystem, absolutePath)
	if readError != nil {
		return cacheEntry{}, fmt.Errorf(errorReadFileFormat, absolutePath, readError)
	}

	entry := cacheEntry{
		size:         fileInformation.Size(),
		lastModified: fileInformation.ModTime(),
	}
	if utils.IsBinary(content) {
		entry.block = FencedBlock(DetectLanguage(absolutePath), fmt.Sprintf(binaryPlaceholderFormat, utils.FormatSize(int64(len(content)))))
	} else {
		text := string(content)
		entry.block = FencedBlock(DetectLanguage(absolutePath), text)
		if assembler.counter != nil {
			tokens, countError := assembler.counter.CountString(text)
			if countError != nil {
				return cacheEntry{}, fmt.Errorf(errorCountFileFormat, absolutePath, countError)
			}
			entry.tokens = tokens
		}
	}

	if assembler.cache != nil {
		assembler.cache.store(absolutePath, entry)
	}
	return entry, nil
}

// FencedBlock wraps content in a fence longer than any backtick run it contains.
func FencedBlock(language string, content string) string {
	fence := strings.Repeat(string(backtick), fenceLength(content))
	return fence + language + "\n" + content + "\n" + fence + "\n"
}

func fenceLength(content string) int {
	longestRun := 0
	currentRun := 0
	for _, character := range content {
		if character == backtick {
			currentRun++
			if currentRun > longestRun {
				longestRun = currentRun
			}
			continue
		}
		currentRun = 0
	}
	if longestRun+1 > minimumFenceLength {
		return longestRun + 1
	}
	return minimumFenceLength
}

// Compose joins the tree and file sections into the final document. The token
// header is written only when includeTokens is set.
func Compose(treeText string, document Document, includeTokens bool) string {
	var builder strings.Builder
	if includeTokens {
		builder.WriteString(fmt.Sprintf(documentTokensFormat, document.Tokens))
	}
	builder.WriteString(documentTreeHeading)
	builder.WriteString(treeText)
	builder.WriteString(documentSectionSeparator)
	builder.WriteString(document.Body)
	return builder.String()
}
