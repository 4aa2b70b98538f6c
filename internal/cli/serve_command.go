package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/fileprompt/internal/config"
	"github.com/temirov/fileprompt/internal/ignore"
	"github.com/temirov/fileprompt/internal/services/server"
)

const (
	serveUse              = "serve"
	serveShortDescription = "run the local control surface with warm caches"
	serveLongDescription  = `Run a long-lived process that serves copy, stack and history commands over
HTTP on the configured server.address. Pattern files and configuration files
are watched so cached ignore filters and settings stay current.`
	addressFlagName        = "address"
	addressFlagDescription = "listen address (overrides server.address)"

	serveListeningFormat    = "listening on %s\n"
	reloadFailedMessage     = "configuration reload failed"
	errorStartWatcherFormat = "start workspace watcher: %w"
)

// createServeCommand returns the serve subcommand.
func createServeCommand(options *rootOptions) *cobra.Command {
	var listenAddress string
	serveCommand := &cobra.Command{
		Use:   serveUse,
		Short: serveShortDescription,
		Long:  serveLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			env, environmentError := newEnvironment(options, command.OutOrStdout())
			if environmentError != nil {
				return environmentError
			}
			ctx, stop := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, newApplication(env), listenAddress, func(address string) {
				fmt.Fprintf(command.OutOrStdout(), serveListeningFormat, address)
			})
		},
	}
	serveCommand.Flags().StringVar(&listenAddress, addressFlagName, "", addressFlagDescription)
	return serveCommand
}

// runServer watches the workspace and serves the application until ctx is canceled.
func runServer(ctx context.Context, app *application, listenAddress string, notify func(string)) error {
	env := app.environment
	watcher := ignore.NewWatcher(env.workspaceRoot, app.filters, env.logger)
	configurationPaths := []string{env.localConfigPath}
	if globalPath, globalError := config.GlobalConfigurationPath(); globalError == nil {
		configurationPaths = append(configurationPaths, globalPath)
	}
	watcher.WatchConfiguration(configurationPaths, func(string) {
		if reloadError := app.reload(); reloadError != nil {
			env.logger.Error(reloadFailedMessage, zap.Error(reloadError))
		}
	})
	if startError := watcher.Start(); startError != nil {
		return fmt.Errorf(errorStartWatcherFormat, startError)
	}
	defer watcher.Stop()

	if listenAddress == "" {
		listenAddress = env.currentConfiguration().ServerAddress()
	}
	controlSurface := server.NewServer(server.Config{
		Address:      listenAddress,
		Capabilities: serverCapabilities(),
		Executors:    serverExecutors(app),
	})
	return controlSurface.Run(ctx, notify)
}
