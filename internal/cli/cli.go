// Package cli provides the command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/fileprompt/internal/utils"
)

const (
	workspaceFlagName      = "workspace"
	workspaceFlagShorthand = "w"
	configFlagName         = "config"
	stdoutFlagName         = "stdout"
	verboseFlagName        = "verbose"
	versionFlagName        = "version"
	tokensFlagName         = "tokens"
	modelFlagName          = "model"
	defaultWorkspacePath   = "."
	versionTemplate        = "fileprompt version: %s\n"

	rootUse              = "fileprompt"
	rootShortDescription = "copy files and folders as one Markdown document"
	rootLongDescription  = `fileprompt gathers the selected files and folders, skips everything matched by
.gitignore and .ignore files, the configured extension denylist and the explicit
ignore list, and copies a Markdown document with a file tree and fenced file
contents to the clipboard.

Use serve to keep caches and history warm between requests, and --stdout to
print the document instead of copying it.`

	workspaceFlagDescription = "workspace root (defaults to the current directory)"
	configFlagDescription    = "path of the workspace configuration file"
	stdoutFlagDescription    = "write the document to standard output instead of the clipboard"
	verboseFlagDescription   = "log watcher and cache events"
	versionFlagDescription   = "display application version"
	tokensFlagDescription    = "include the total token count"
	modelFlagDescription     = "tokenizer model used for token counting"

	errorBuildLoggerFormat = "build logger: %w"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	workspacePath  string
	configPath     string
	forceStdout    bool
	verbose        bool
	showVersion    bool
	tokensOverride *bool
	modelOverride  string
	logger         *zap.Logger
}

// Execute runs the fileprompt application.
func Execute() error {
	rootCommand := createRootCommand()
	return rootCommand.Execute()
}

// createRootCommand builds the root Cobra command.
func createRootCommand() *cobra.Command {
	options := &rootOptions{}

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			if options.showVersion {
				fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				os.Exit(0)
			}
			logger, loggerError := utils.NewApplicationLogger(options.verbose)
			if loggerError != nil {
				return fmt.Errorf(errorBuildLoggerFormat, loggerError)
			}
			options.logger = logger
			return nil
		},
		PersistentPostRun: func(command *cobra.Command, arguments []string) {
			if options.logger != nil {
				_ = options.logger.Sync()
			}
		},
	}

	persistentFlags := rootCommand.PersistentFlags()
	persistentFlags.StringVarP(&options.workspacePath, workspaceFlagName, workspaceFlagShorthand, defaultWorkspacePath, workspaceFlagDescription)
	persistentFlags.StringVar(&options.configPath, configFlagName, "", configFlagDescription)
	persistentFlags.BoolVar(&options.forceStdout, stdoutFlagName, false, stdoutFlagDescription)
	persistentFlags.BoolVar(&options.verbose, verboseFlagName, false, verboseFlagDescription)
	persistentFlags.BoolVar(&options.showVersion, versionFlagName, false, versionFlagDescription)
	registerOverrideFlag(persistentFlags, &options.tokensOverride, tokensFlagName, tokensFlagDescription)
	persistentFlags.StringVar(&options.modelOverride, modelFlagName, "", modelFlagDescription)

	rootCommand.AddCommand(
		createCopyCommand(options),
		createIgnoreCommand(options),
		createStackCommand(options),
		createServeCommand(options),
		createHistoryCommand(options),
		createInitCommand(options),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// loggerOrNop returns the logger built by the root command, or a no-op logger
// when a subcommand runs without it.
func (options *rootOptions) loggerOrNop() *zap.Logger {
	if options.logger == nil {
		return zap.NewNop()
	}
	return options.logger
}
