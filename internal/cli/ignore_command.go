package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/fileprompt/internal/config"
)

const (
	ignoreUse                    = "ignore"
	ignoreShortDescription       = "manage the explicit ignore list"
	ignoreAddUse                 = "add <paths...>"
	ignoreAddShortDescription    = "add paths to the explicit ignore list"
	ignoreRemoveUse              = "remove <paths...>"
	ignoreRemoveShortDescription = "remove paths from the explicit ignore list"
	ignoreListUse                = "list"
	ignoreListShortDescription   = "print the explicit ignore list"

	ignoreAddedFormat     = "ignored %s\n"
	ignoreRemovedFormat   = "no longer ignored %s\n"
	ignoreNotListedFormat = "%s is not in the ignore list"
	ignoreEntryFormat     = "%s\n"
)

// createIgnoreCommand returns the ignore subcommand and its children.
func createIgnoreCommand(options *rootOptions) *cobra.Command {
	ignoreCommand := &cobra.Command{
		Use:   ignoreUse,
		Short: ignoreShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	addCommand := &cobra.Command{
		Use:   ignoreAddUse,
		Short: ignoreAddShortDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			env, environmentError := newEnvironment(options, command.OutOrStdout())
			if environmentError != nil {
				return environmentError
			}
			return editIgnoreList(env, arguments, func(entries []string, relative string) ([]string, error) {
				for _, entry := range entries {
					if entry == relative {
						return entries, nil
					}
				}
				fmt.Fprintf(command.OutOrStdout(), ignoreAddedFormat, relative)
				return append(entries, relative), nil
			})
		},
	}

	removeCommand := &cobra.Command{
		Use:   ignoreRemoveUse,
		Short: ignoreRemoveShortDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			env, environmentError := newEnvironment(options, command.OutOrStdout())
			if environmentError != nil {
				return environmentError
			}
			return editIgnoreList(env, arguments, func(entries []string, relative string) ([]string, error) {
				kept := make([]string, 0, len(entries))
				for _, entry := range entries {
					if entry != relative {
						kept = append(kept, entry)
					}
				}
				if len(kept) == len(entries) {
					return nil, fmt.Errorf(ignoreNotListedFormat, relative)
				}
				fmt.Fprintf(command.OutOrStdout(), ignoreRemovedFormat, relative)
				return kept, nil
			})
		},
	}

	listCommand := &cobra.Command{
		Use:   ignoreListUse,
		Short: ignoreListShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			env, environmentError := newEnvironment(options, command.OutOrStdout())
			if environmentError != nil {
				return environmentError
			}
			for _, entry := range env.currentConfiguration().ExtraIgnoredFiles {
				fmt.Fprintf(command.OutOrStdout(), ignoreEntryFormat, entry)
			}
			return nil
		},
	}

	ignoreCommand.AddCommand(addCommand, removeCommand, listCommand)
	return ignoreCommand
}

// editIgnoreList applies edit once per argument to the ignore list of the
// workspace configuration file and writes the result back.
func editIgnoreList(env *environment, arguments []string, edit func(entries []string, relative string) ([]string, error)) error {
	entries, readError := env.store.ReadList(config.ExtraIgnoredFilesKey)
	if readError != nil {
		return readError
	}
	for _, argument := range arguments {
		relative, relativeError := env.workspaceRelative(argument)
		if relativeError != nil {
			return relativeError
		}
		edited, editError := edit(entries, relative)
		if editError != nil {
			return editError
		}
		entries = edited
	}
	return env.store.WriteList(config.ExtraIgnoredFilesKey, entries)
}
