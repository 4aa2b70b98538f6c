package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/fileprompt/internal/config"
	"github.com/temirov/fileprompt/internal/ignore"
	"github.com/temirov/fileprompt/internal/markdown"
	"github.com/temirov/fileprompt/internal/orchestrator"
	"github.com/temirov/fileprompt/internal/services/clipboard"
	"github.com/temirov/fileprompt/internal/tokenizer"
	"github.com/temirov/fileprompt/internal/traversal"
	"github.com/temirov/fileprompt/internal/types"
	"github.com/temirov/fileprompt/internal/utils"
)

const (
	tokenizerFallbackMessage = "token counter fell back to whitespace splitting"
	configurationReloaded    = "configuration reloaded"

	errorResolveWorkspaceFormat = "resolve workspace %s: %w"
	errorWorkspaceNotDirFormat  = "workspace %s is not a directory"
	errorLoadConfigFormat       = "load configuration: %w"
	errorResolveConfigFormat    = "resolve configuration path: %w"
	errorResolvePathFormat      = "resolve path %s: %w"
	errorOutsideWorkspaceFormat = "%s is outside the workspace %s"
)

// environment is the resolved workspace and configuration of one invocation.
type environment struct {
	workspaceRoot     string
	loadOptions       config.LoadOptions
	localConfigPath   string
	configuration     config.ApplicationConfiguration
	store             config.Store
	logger            *zap.Logger
	output            io.Writer
	forceStdout       bool
	tokensOverride    *bool
	modelOverride     string
	configurationLock sync.RWMutex
}

func newEnvironment(options *rootOptions, output io.Writer) (*environment, error) {
	workspacePath := options.workspacePath
	if strings.TrimSpace(workspacePath) == "" {
		workspacePath = defaultWorkspacePath
	}
	workspaceRoot, absoluteError := filepath.Abs(workspacePath)
	if absoluteError != nil {
		return nil, fmt.Errorf(errorResolveWorkspaceFormat, workspacePath, absoluteError)
	}
	workspaceInformation, statError := os.Stat(workspaceRoot)
	if statError != nil {
		return nil, fmt.Errorf(errorResolveWorkspaceFormat, workspaceRoot, statError)
	}
	if !workspaceInformation.IsDir() {
		return nil, fmt.Errorf(errorWorkspaceNotDirFormat, workspaceRoot)
	}

	loadOptions := config.LoadOptions{WorkingDirectory: workspaceRoot, ExplicitFilePath: options.configPath}
	localConfigPath, resolveError := config.LocalConfigurationPath(loadOptions)
	if resolveError != nil {
		return nil, fmt.Errorf(errorResolveConfigFormat, resolveError)
	}
	configuration, loadError := config.LoadApplicationConfiguration(loadOptions)
	if loadError != nil {
		return nil, fmt.Errorf(errorLoadConfigFormat, loadError)
	}

	return &environment{
		workspaceRoot:   workspaceRoot,
		loadOptions:     loadOptions,
		localConfigPath: localConfigPath,
		configuration:   configuration,
		store:           config.NewStore(localConfigPath),
		logger:          options.loggerOrNop(),
		output:          output,
		forceStdout:     options.forceStdout,
		tokensOverride:  options.tokensOverride,
		modelOverride:   options.modelOverride,
	}, nil
}

// currentConfiguration returns the configuration loaded most recently.
func (env *environment) currentConfiguration() config.ApplicationConfiguration {
	env.configurationLock.RLock()
	defer env.configurationLock.RUnlock()
	return env.configuration
}

// reloadConfiguration reads the configuration files again.
func (env *environment) reloadConfiguration() (config.ApplicationConfiguration, error) {
	configuration, loadError := config.LoadApplicationConfiguration(env.loadOptions)
	if loadError != nil {
		return config.ApplicationConfiguration{}, fmt.Errorf(errorLoadConfigFormat, loadError)
	}
	env.configurationLock.Lock()
	env.configuration = configuration
	env.configurationLock.Unlock()
	return configuration, nil
}

func (env *environment) tokensEnabled(configuration config.ApplicationConfiguration) bool {
	if env.tokensOverride != nil {
		return *env.tokensOverride
	}
	return configuration.TokensEnabled()
}

func (env *environment) tokenModel(configuration config.ApplicationConfiguration) string {
	if strings.TrimSpace(env.modelOverride) != "" {
		return env.modelOverride
	}
	return configuration.TokenModel()
}

func (env *environment) clipboardMode(configuration config.ApplicationConfiguration) string {
	if env.forceStdout {
		return types.ClipboardStdout
	}
	return configuration.ClipboardMode()
}

// absolutePath resolves a command line path against the workspace root, the
// same base the control surface uses.
func (env *environment) absolutePath(candidate string) (string, error) {
	if filepath.IsAbs(candidate) {
		return filepath.Clean(candidate), nil
	}
	return filepath.Join(env.workspaceRoot, candidate), nil
}

func resolveAbsolutePath(candidate string) (string, error) {
	if filepath.IsAbs(candidate) {
		return filepath.Clean(candidate), nil
	}
	absolute, absoluteError := filepath.Abs(candidate)
	if absoluteError != nil {
		return "", fmt.Errorf(errorResolvePathFormat, candidate, absoluteError)
	}
	return absolute, nil
}

// absolutePaths resolves every candidate, defaulting to the workspace root.
func (env *environment) absolutePaths(candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return []string{env.workspaceRoot}, nil
	}
	resolved := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		absolute, resolveError := env.absolutePath(candidate)
		if resolveError != nil {
			return nil, resolveError
		}
		resolved = append(resolved, absolute)
	}
	return utils.DeduplicateStrings(resolved), nil
}

// workspaceRelative returns the slash-separated workspace-relative form of candidate.
func (env *environment) workspaceRelative(candidate string) (string, error) {
	absolute, resolveError := env.absolutePath(candidate)
	if resolveError != nil {
		return "", resolveError
	}
	relative, inside := utils.WorkspaceRelativePath(absolute, env.workspaceRoot)
	if !inside || relative == "." {
		return "", fmt.Errorf(errorOutsideWorkspaceFormat, absolute, env.workspaceRoot)
	}
	return relative, nil
}

// application owns the process-lifetime state: caches, history and the scheduler.
type application struct {
	environment *environment
	fileSystem  afero.Fs
	filters     *ignore.Cache
	contents    *markdown.Cache
	walker      *traversal.Walker
	scheduler   *orchestrator.Scheduler

	pipelineLock sync.RWMutex
	pipeline     *orchestrator.CopyPipeline
}

func newApplication(env *environment) *application {
	fileSystem := afero.NewOsFs()
	configuration := env.currentConfiguration()
	app := &application{
		environment: env,
		fileSystem:  fileSystem,
		filters:     ignore.NewCache(fileSystem, ignore.SettingsFromConfiguration(configuration)),
		contents:    markdown.NewCache(),
		walker:      traversal.NewWalker(fileSystem, traversal.DefaultDirectoryReadLimit),
	}
	app.pipeline = app.buildPipeline(configuration)
	app.scheduler = orchestrator.NewScheduler(
		app,
		orchestrator.NewHistory(configuration.HistoryCapacity()),
		orchestrator.WithLogger(env.logger),
	)
	return app
}

func (app *application) buildPipeline(configuration config.ApplicationConfiguration) *orchestrator.CopyPipeline {
	includeTokens := app.environment.tokensEnabled(configuration)
	var counter tokenizer.Counter
	if includeTokens {
		fallbackCounter, counterError := tokenizer.NewCounterWithFallback(tokenizer.Config{Model: app.environment.tokenModel(configuration)})
		if counterError != nil {
			app.environment.logger.Warn(tokenizerFallbackMessage, zap.Error(counterError))
		}
		counter = fallbackCounter
	}
	return &orchestrator.CopyPipeline{
		Filters:       app.filters,
		Walker:        app.walker,
		Assembler:     markdown.NewAssembler(app.fileSystem, app.contents, counter),
		Copier:        clipboard.Select(app.environment.clipboardMode(configuration), app.environment.output),
		IncludeTokens: includeTokens,
	}
}

// Run executes one job through the current pipeline.
func (app *application) Run(ctx context.Context, request types.SelectionRequest) (types.Outcome, error) {
	app.pipelineLock.RLock()
	pipeline := app.pipeline
	app.pipelineLock.RUnlock()
	return pipeline.Run(ctx, request)
}

// reload applies changed configuration: ignore settings, tokenizer and
// clipboard sink. Cached file contents are dropped.
func (app *application) reload() error {
	configuration, reloadError := app.environment.reloadConfiguration()
	if reloadError != nil {
		return reloadError
	}
	app.filters.UpdateSettings(ignore.SettingsFromConfiguration(configuration))
	app.contents.Clear()
	pipeline := app.buildPipeline(configuration)
	app.pipelineLock.Lock()
	app.pipeline = pipeline
	app.pipelineLock.Unlock()
	app.environment.logger.Debug(configurationReloaded)
	return nil
}

// copyPaths submits one job for the absolute paths and waits for that job's own result.
func (app *application) copyPaths(ctx context.Context, paths []string) (orchestrator.Result, error) {
	ticket := app.scheduler.Track(types.SelectionRequest{WorkspaceRoot: app.environment.workspaceRoot, Paths: paths})
	return ticket.Wait(ctx)
}

var _ orchestrator.Pipeline = (*application)(nil)
