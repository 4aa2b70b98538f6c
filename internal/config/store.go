package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/temirov/fileprompt/internal/types"
)

const (
	// ExtraIgnoredFilesKey names the explicit ignore list in the configuration file.
	ExtraIgnoredFilesKey = "extra_ignored_files"
	// SavedStacksKey names the saved stacks list in the configuration file.
	SavedStacksKey = "saved_stacks"

	yamlMapTag          = "!!map"
	storeFilePermission = 0o600
	storeDirPermission  = 0o755

	errorReadStoreFormat   = "read configuration %s: %w"
	errorParseStoreFormat  = "parse configuration %s: %w"
	errorDecodeKeyFormat   = "decode %s from %s: %w"
	errorEncodeKeyFormat   = "encode %s: %w"
	errorWriteStoreFormat  = "write configuration %s: %w"
	errorNotMappingFormat  = "configuration %s must contain a mapping at the top level"
	errorCreateStoreFormat = "create configuration directory %s: %w"
)

// Store persists single-entry edits to one YAML configuration file while
// keeping every unrelated key, comment and ordering intact.
type Store struct {
	path string
}

// NewStore returns a Store editing the file at path.
func NewStore(path string) Store {
	return Store{path: path}
}

// Path returns the file edited by the store.
func (store Store) Path() string {
	return store.path
}

// ReadList returns the string list stored under key.
func (store Store) ReadList(key string) ([]string, error) {
	var values []string
	if err := store.read(key, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// WriteList replaces the string list stored under key.
func (store Store) WriteList(key string, values []string) error {
	if values == nil {
		values = []string{}
	}
	return store.write(key, values)
}

// ReadStacks returns the saved stacks.
func (store Store) ReadStacks() ([]types.Stack, error) {
	var stacks []types.Stack
	if err := store.read(SavedStacksKey, &stacks); err != nil {
		return nil, err
	}
	return stacks, nil
}

// WriteStacks replaces the saved stacks.
func (store Store) WriteStacks(stacks []types.Stack) error {
	if stacks == nil {
		stacks = []types.Stack{}
	}
	return store.write(SavedStacksKey, stacks)
}

func (store Store) read(key string, target interface{}) error {
	document, err := store.loadDocument()
	if err != nil {
		return err
	}
	valueNode := lookupMappingValue(document.Content[0], key)
	if valueNode == nil {
		return nil
	}
	if decodeErr := valueNode.Decode(target); decodeErr != nil {
		return fmt.Errorf(errorDecodeKeyFormat, key, store.path, decodeErr)
	}
	return nil
}

func (store Store) write(key string, value interface{}) error {
	document, err := store.loadDocument()
	if err != nil {
		return err
	}
	valueNode := &yaml.Node{}
	if encodeErr := valueNode.Encode(value); encodeErr != nil {
		return fmt.Errorf(errorEncodeKeyFormat, key, encodeErr)
	}
	setMappingValue(document.Content[0], key, valueNode)

	serialized, marshalErr := yaml.Marshal(document)
	if marshalErr != nil {
		return fmt.Errorf(errorEncodeKeyFormat, key, marshalErr)
	}
	directory := filepath.Dir(store.path)
	if mkdirErr := os.MkdirAll(directory, storeDirPermission); mkdirErr != nil {
		return fmt.Errorf(errorCreateStoreFormat, directory, mkdirErr)
	}
	if writeErr := os.WriteFile(store.path, serialized, storeFilePermission); writeErr != nil {
		return fmt.Errorf(errorWriteStoreFormat, store.path, writeErr)
	}
	return nil
}

// loadDocument returns a document node whose first child is a mapping.
func (store Store) loadDocument() (*yaml.Node, error) {
	emptyDocument := &yaml.Node{
		Kind:    yaml.DocumentNode,
		Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: yamlMapTag}},
	}
	content, readErr := os.ReadFile(store.path)
	if readErr != nil {
		if errors.Is(readErr, os.ErrNotExist) {
			return emptyDocument, nil
		}
		return nil, fmt.Errorf(errorReadStoreFormat, store.path, readErr)
	}
	var document yaml.Node
	if parseErr := yaml.Unmarshal(content, &document); parseErr != nil {
		return nil, fmt.Errorf(errorParseStoreFormat, store.path, parseErr)
	}
	if document.Kind == 0 || len(document.Content) == 0 {
		return emptyDocument, nil
	}
	if document.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf(errorNotMappingFormat, store.path)
	}
	return &document, nil
}

func lookupMappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for index := 0; index+1 < len(mapping.Content); index += 2 {
		if mapping.Content[index].Value == key {
			return mapping.Content[index+1]
		}
	}
	return nil
}

func setMappingValue(mapping *yaml.Node, key string, value *yaml.Node) {
	for index := 0; index+1 < len(mapping.Content); index += 2 {
		if mapping.Content[index].Value == key {
			mapping.Content[index+1] = value
			return
		}
	}
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
	mapping.Content = append(mapping.Content, keyNode, value)
}
