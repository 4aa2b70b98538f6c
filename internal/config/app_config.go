package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/temirov/fileprompt/internal/types"
	"github.com/temirov/fileprompt/internal/utils"
)

const (
	defaultHistorySize   = 20
	defaultTokenModel    = "gpt-4o"
	defaultServerAddress = "127.0.0.1:8787"
	extensionSeparator   = "."
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds the settings consumed by the copy pipeline and its commands.
type ApplicationConfiguration struct {
	RespectGitignore  *bool               `mapstructure:"respect_gitignore"`
	UseIgnoreFile     *bool               `mapstructure:"use_ignore_file"`
	IgnoredExtensions []string            `mapstructure:"ignored_extensions"`
	ExtraIgnoredFiles []string            `mapstructure:"extra_ignored_files"`
	SavedStacks       []types.Stack       `mapstructure:"saved_stacks"`
	HistorySize       *int                `mapstructure:"history_size"`
	Tokens            TokenConfiguration  `mapstructure:"tokens"`
	Clipboard         string              `mapstructure:"clipboard"`
	Server            ServerConfiguration `mapstructure:"server"`
}

// TokenConfiguration controls token counting defaults.
type TokenConfiguration struct {
	Enabled *bool  `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// ServerConfiguration controls the local control surface started by serve.
type ServerConfiguration struct {
	Address string `mapstructure:"address"`
}

// GlobalConfigurationPath returns the path of the per-user configuration file.
func GlobalConfigurationPath() (string, error) {
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for configuration: %w", err)
	}
	return filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName), nil
}

// LocalConfigurationPath returns the workspace configuration path, honoring an explicit override.
func LocalConfigurationPath(options LoadOptions) (string, error) {
	return resolveLocalConfigPath(options.WorkingDirectory, options.ExplicitFilePath)
}

// LoadApplicationConfiguration loads configuration from global and local files.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if globalPath, err := GlobalConfigurationPath(); err == nil {
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	if localPath != "" {
		localConfig, loadErr := loadConfigurationFromPath(localPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(localConfig)
	}

	merged.IgnoredExtensions = NormalizeExtensions(merged.IgnoredExtensions)
	merged.ExtraIgnoredFiles = utils.DeduplicateStrings(merged.ExtraIgnoredFiles)

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if workingDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
			}
			return absolute, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	if workingDirectory == "" {
		return "", nil
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	if override.RespectGitignore != nil {
		result.RespectGitignore = cloneBool(override.RespectGitignore)
	}
	if override.UseIgnoreFile != nil {
		result.UseIgnoreFile = cloneBool(override.UseIgnoreFile)
	}
	if len(override.IgnoredExtensions) > 0 {
		result.IgnoredExtensions = append([]string{}, override.IgnoredExtensions...)
	}
	if len(override.ExtraIgnoredFiles) > 0 {
		result.ExtraIgnoredFiles = append([]string{}, override.ExtraIgnoredFiles...)
	}
	if len(override.SavedStacks) > 0 {
		result.SavedStacks = cloneStacks(override.SavedStacks)
	}
	if override.HistorySize != nil {
		result.HistorySize = cloneInt(override.HistorySize)
	}
	result.Tokens = result.Tokens.merge(override.Tokens)
	if override.Clipboard != "" {
		result.Clipboard = override.Clipboard
	}
	if override.Server.Address != "" {
		result.Server.Address = override.Server.Address
	}
	return result
}

func (config TokenConfiguration) merge(override TokenConfiguration) TokenConfiguration {
	result := config
	if override.Enabled != nil {
		result.Enabled = cloneBool(override.Enabled)
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	return result
}

// ShouldRespectGitignore reports whether pattern files are honored. Defaults to true.
func (config ApplicationConfiguration) ShouldRespectGitignore() bool {
	return config.RespectGitignore == nil || *config.RespectGitignore
}

// ShouldUseIgnoreFile reports whether .ignore files are read next to .gitignore. Defaults to true.
func (config ApplicationConfiguration) ShouldUseIgnoreFile() bool {
	return config.UseIgnoreFile == nil || *config.UseIgnoreFile
}

// HistoryCapacity returns the size of the history ring buffer.
func (config ApplicationConfiguration) HistoryCapacity() int {
	if config.HistorySize == nil || *config.HistorySize <= 0 {
		return defaultHistorySize
	}
	return *config.HistorySize
}

// TokensEnabled reports whether token totals are computed.
func (config ApplicationConfiguration) TokensEnabled() bool {
	return config.Tokens.Enabled != nil && *config.Tokens.Enabled
}

// TokenModel returns the tokenizer model name.
func (config ApplicationConfiguration) TokenModel() string {
	if strings.TrimSpace(config.Tokens.Model) == "" {
		return defaultTokenModel
	}
	return config.Tokens.Model
}

// ClipboardMode returns the configured clipboard sink, defaulting to the system clipboard.
func (config ApplicationConfiguration) ClipboardMode() string {
	switch strings.ToLower(strings.TrimSpace(config.Clipboard)) {
	case types.ClipboardStdout:
		return types.ClipboardStdout
	default:
		return types.ClipboardSystem
	}
}

// ServerAddress returns the listen address of the control surface.
func (config ApplicationConfiguration) ServerAddress() string {
	if config.Server.Address == "" {
		return defaultServerAddress
	}
	return config.Server.Address
}

// NormalizeExtensions lower-cases extensions, ensures a leading dot and removes duplicates.
func NormalizeExtensions(extensions []string) []string {
	normalized := make([]string, 0, len(extensions))
	for _, extension := range extensions {
		trimmed := strings.ToLower(strings.TrimSpace(extension))
		if trimmed == "" || trimmed == extensionSeparator {
			continue
		}
		if !strings.HasPrefix(trimmed, extensionSeparator) {
			trimmed = extensionSeparator + trimmed
		}
		normalized = append(normalized, trimmed)
	}
	return utils.DeduplicateStrings(normalized)
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneStacks(stacks []types.Stack) []types.Stack {
	cloned := make([]types.Stack, 0, len(stacks))
	for _, stack := range stacks {
		cloned = append(cloned, types.Stack{Name: stack.Name, Paths: append([]string{}, stack.Paths...)})
	}
	return cloned
}
