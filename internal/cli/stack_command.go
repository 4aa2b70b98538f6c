package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/temirov/fileprompt/internal/stacks"
	"github.com/temirov/fileprompt/internal/types"
)

const (
	stackUse                        = "stack"
	stackShortDescription           = "manage saved stacks of paths"
	stackAddUse                     = "add <name> <paths...>"
	stackAddShortDescription        = "create a stack or append paths to it"
	stackListUse                    = "list"
	stackListShortDescription       = "print saved stacks"
	stackRemoveUse                  = "remove <name>"
	stackRemoveShortDescription     = "delete a stack"
	stackRemovePathUse              = "remove-path <name> <path>"
	stackRemovePathShortDescription = "remove one path from a stack"
	stackCopyUse                    = "copy <name>"
	stackCopyShortDescription       = "copy the paths of a stack that still exist"

	stackSavedFormat       = "saved stack %s with %d paths\n"
	stackRemovedFormat     = "removed stack %s\n"
	stackPathRemovedFormat = "removed %s from stack %s\n"
	stackHeaderFormat      = "%s (%d)\n"
	stackPathFormat        = "  %s\n"
)

// createStackCommand returns the stack subcommand and its children.
func createStackCommand(options *rootOptions) *cobra.Command {
	stackCommand := &cobra.Command{
		Use:   stackUse,
		Short: stackShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	addCommand := &cobra.Command{
		Use:   stackAddUse,
		Short: stackAddShortDescription,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			env, environmentError := newEnvironment(options, command.OutOrStdout())
			if environmentError != nil {
				return environmentError
			}
			stack, addError := addStack(env, arguments[0], arguments[1:])
			if addError != nil {
				return addError
			}
			fmt.Fprintf(command.OutOrStdout(), stackSavedFormat, stack.Name, len(stack.Paths))
			return nil
		},
	}

	listCommand := &cobra.Command{
		Use:   stackListUse,
		Short: stackListShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			env, environmentError := newEnvironment(options, command.OutOrStdout())
			if environmentError != nil {
				return environmentError
			}
			for _, stack := range env.currentConfiguration().SavedStacks {
				fmt.Fprintf(command.OutOrStdout(), stackHeaderFormat, stack.Name, len(stack.Paths))
				for _, stackPath := range stack.Paths {
					fmt.Fprintf(command.OutOrStdout(), stackPathFormat, stackPath)
				}
			}
			return nil
		},
	}

	removeCommand := &cobra.Command{
		Use:   stackRemoveUse,
		Short: stackRemoveShortDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			env, environmentError := newEnvironment(options, command.OutOrStdout())
			if environmentError != nil {
				return environmentError
			}
			if removeError := removeStack(env, arguments[0]); removeError != nil {
				return removeError
			}
			fmt.Fprintf(command.OutOrStdout(), stackRemovedFormat, arguments[0])
			return nil
		},
	}

	removePathCommand := &cobra.Command{
		Use:   stackRemovePathUse,
		Short: stackRemovePathShortDescription,
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			env, environmentError := newEnvironment(options, command.OutOrStdout())
			if environmentError != nil {
				return environmentError
			}
			removedPath, removeError := removeStackPath(env, arguments[0], arguments[1])
			if removeError != nil {
				return removeError
			}
			fmt.Fprintf(command.OutOrStdout(), stackPathRemovedFormat, removedPath, arguments[0])
			return nil
		},
	}

	copyCommand := &cobra.Command{
		Use:   stackCopyUse,
		Short: stackCopyShortDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			env, environmentError := newEnvironment(options, command.OutOrStdout())
			if environmentError != nil {
				return environmentError
			}
			paths, resolveError := resolveStack(env, arguments[0])
			if resolveError != nil {
				return resolveError
			}
			_, copyError := newApplication(env).copyPaths(command.Context(), paths)
			return copyError
		},
	}

	stackCommand.AddCommand(addCommand, listCommand, removeCommand, removePathCommand, copyCommand)
	return stackCommand
}

// addStack stores the absolute form of paths under name in the workspace configuration file.
func addStack(env *environment, name string, paths []string) (types.Stack, error) {
	name = strings.TrimSpace(name)
	absolutePaths := make([]string, 0, len(paths))
	for _, candidate := range paths {
		absolute, resolveError := env.absolutePath(candidate)
		if resolveError != nil {
			return types.Stack{}, resolveError
		}
		absolutePaths = append(absolutePaths, absolute)
	}
	var saved types.Stack
	editError := editStacks(env, func(current []types.Stack) ([]types.Stack, error) {
		updated, addError := stacks.Add(current, name, absolutePaths)
		if addError != nil {
			return nil, addError
		}
		saved, addError = stacks.Find(updated, name)
		return updated, addError
	})
	return saved, editError
}

func removeStack(env *environment, name string) error {
	return editStacks(env, func(current []types.Stack) ([]types.Stack, error) {
		return stacks.Remove(current, name)
	})
}

// removeStackPath removes path from the stack and returns the absolute form that was removed.
func removeStackPath(env *environment, name string, path string) (string, error) {
	absolute, resolveError := env.absolutePath(path)
	if resolveError != nil {
		return "", resolveError
	}
	editError := editStacks(env, func(current []types.Stack) ([]types.Stack, error) {
		return stacks.RemovePath(current, name, absolute)
	})
	return absolute, editError
}

// resolveStack returns the paths of the named stack that still exist on disk.
func resolveStack(env *environment, name string) ([]string, error) {
	stack, findError := stacks.Find(env.currentConfiguration().SavedStacks, name)
	if findError != nil {
		return nil, findError
	}
	return stacks.Resolve(stack, pathExists)
}

// editStacks rewrites the saved stacks of the workspace configuration file
// and reloads the merged configuration.
func editStacks(env *environment, edit func(current []types.Stack) ([]types.Stack, error)) error {
	current, readError := env.store.ReadStacks()
	if readError != nil {
		return readError
	}
	updated, editError := edit(current)
	if editError != nil {
		return editError
	}
	if writeError := env.store.WriteStacks(updated); writeError != nil {
		return writeError
	}
	_, reloadError := env.reloadConfiguration()
	return reloadError
}

func pathExists(path string) bool {
	_, statError := os.Stat(path)
	return statError == nil
}
