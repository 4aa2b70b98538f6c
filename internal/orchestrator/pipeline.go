package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/temirov/fileprompt/internal/ignore"
	"github.com/temirov/fileprompt/internal/markdown"
	"github.com/temirov/fileprompt/internal/services/clipboard"
	"github.com/temirov/fileprompt/internal/traversal"
	"github.com/temirov/fileprompt/internal/tree"
	"github.com/temirov/fileprompt/internal/types"
)

const (
	errorResolveFilterFormat = "resolve ignore filter: %w"
	errorGatherFilesFormat   = "gather files: %w"
	errorAssembleFormat      = "assemble markdown: %w"
	errorCopyFormat          = "write clipboard: %w"
)

// CopyPipeline gathers, renders and assembles a selection, then writes the
// document to the clipboard sink. With IncludeTokens the tree waits for the
// assembled per-file token counts; otherwise both run concurrently.
type CopyPipeline struct {
	Filters       *ignore.Cache
	Walker        *traversal.Walker
	Assembler     *markdown.Assembler
	Copier        clipboard.Copier
	IncludeTokens bool
}

// Run executes one job. Nothing is copied when any stage fails.
func (pipeline *CopyPipeline) Run(ctx context.Context, request types.SelectionRequest) (types.Outcome, error) {
	startedAt := time.Now()
	if strings.TrimSpace(request.WorkspaceRoot) == "" {
		return types.Outcome{}, types.ErrNoWorkspace
	}
	if len(request.Paths) == 0 {
		return types.Outcome{}, types.ErrNoSelection
	}

	filter, filterError := pipeline.Filters.Filter(request.WorkspaceRoot)
	if filterError != nil {
		return types.Outcome{}, fmt.Errorf(errorResolveFilterFormat, filterError)
	}
	records, gatherError := pipeline.Walker.GatherFiles(ctx, request.Paths, filter)
	if gatherError != nil {
		return types.Outcome{}, fmt.Errorf(errorGatherFilesFormat, gatherError)
	}

	var (
		treeText   string
		totalBytes int64
		document   markdown.Document
	)
	group, groupContext := errgroup.WithContext(ctx)
	if !pipeline.IncludeTokens {
		group.Go(func() error {
			treeText, totalBytes = tree.Render(filter.Root(), records, nil)
			return nil
		})
	}
	group.Go(func() error {
		assembled, assembleError := pipeline.Assembler.Assemble(groupContext, filter.Root(), records)
		if assembleError != nil {
			return fmt.Errorf(errorAssembleFormat, assembleError)
		}
		document = assembled
		return nil
	})
	if waitError := group.Wait(); waitError != nil {
		return types.Outcome{}, waitError
	}
	if pipeline.IncludeTokens {
		treeText, totalBytes = tree.Render(filter.Root(), records, document.FileTokens)
	}

	text := markdown.Compose(treeText, document, pipeline.IncludeTokens)
	if copyError := pipeline.Copier.Copy(text); copyError != nil {
		return types.Outcome{}, fmt.Errorf(errorCopyFormat, copyError)
	}

	finishedAt := time.Now()
	return types.Outcome{
		Request:    request,
		Files:      len(records),
		Bytes:      totalBytes,
		Tokens:     document.Tokens,
		Duration:   finishedAt.Sub(startedAt),
		Document:   text,
		Tree:       treeText,
		FinishedAt: finishedAt,
	}, nil
}
