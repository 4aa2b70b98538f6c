package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/fileprompt/internal/config"
)

const (
	initUse                  = "init"
	initShortDescription     = "write a default configuration file"
	globalFlagName           = "global"
	globalFlagDescription    = "write ~/.fileprompt/config.yaml instead of the workspace file"
	forceFlagName            = "force"
	forceFlagDescription     = "overwrite an existing configuration file"
	initWrittenMessageFormat = "wrote %s\n"
	errorInitWorkspaceFormat = "resolve workspace for init: %w"
)

// createInitCommand returns the init subcommand.
func createInitCommand(options *rootOptions) *cobra.Command {
	var writeGlobal bool
	var overwrite bool
	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			initOptions := config.InitOptions{Target: config.InitTargetLocal, Force: overwrite}
			if writeGlobal {
				initOptions.Target = config.InitTargetGlobal
			} else {
				workspaceRoot, resolveError := resolveAbsolutePath(options.workspacePath)
				if resolveError != nil {
					return fmt.Errorf(errorInitWorkspaceFormat, resolveError)
				}
				initOptions.WorkingDirectory = workspaceRoot
			}
			writtenPath, initError := config.InitializeConfiguration(initOptions)
			if initError != nil {
				return initError
			}
			fmt.Fprintf(command.OutOrStdout(), initWrittenMessageFormat, writtenPath)
			return nil
		},
	}
	initCommand.Flags().BoolVar(&writeGlobal, globalFlagName, false, globalFlagDescription)
	initCommand.Flags().BoolVar(&overwrite, forceFlagName, false, forceFlagDescription)
	return initCommand
}
