package cli

import (
	"github.com/spf13/cobra"
)

const (
	copyUse              = "copy [paths...]"
	copyAlias            = "c"
	copyShortDescription = "copy files and folders as Markdown (" + copyAlias + ")"
	copyLongDescription  = `Copy the selected files and folders as one Markdown document.
Without paths the whole workspace is copied. Relative paths are resolved
against the workspace root. Excluded paths are skipped and folders are
expanded recursively.`
	copyUsageExample = `  # Copy the whole workspace
  fileprompt copy

  # Copy two folders and print the document instead
  fileprompt copy --stdout cmd internal`
)

// createCopyCommand returns the copy subcommand.
func createCopyCommand(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     copyUse,
		Aliases: []string{copyAlias},
		Short:   copyShortDescription,
		Long:    copyLongDescription,
		Example: copyUsageExample,
		Args:    cobra.ArbitraryArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			env, environmentError := newEnvironment(options, command.OutOrStdout())
			if environmentError != nil {
				return environmentError
			}
			paths, resolveError := env.absolutePaths(arguments)
			if resolveError != nil {
				return resolveError
			}
			_, copyError := newApplication(env).copyPaths(command.Context(), paths)
			return copyError
		},
	}
}
