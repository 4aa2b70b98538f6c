// Package types defines every cross‑package data structure used by the fileprompt CLI.
package types

import (
	"errors"
	"time"
)

const (
	CommandCopy    = "copy"
	CommandStack   = "stack"
	CommandHistory = "history"

	ClipboardSystem = "system"
	ClipboardStdout = "stdout"
)

var (
	// ErrNoWorkspace reports that no workspace root could be resolved.
	ErrNoWorkspace = errors.New("no workspace folder is open")
	// ErrNoSelection reports that a command was invoked without any paths.
	ErrNoSelection = errors.New("no file or folder selected")
)

// SelectionRequest is the immutable input of one copy job.
type SelectionRequest struct {
	WorkspaceRoot string
	Paths         []string
}

// FileRecord describes one file that survived traversal.
type FileRecord struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// HistoryEntry records a successful copy job.
type HistoryEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Paths       []string  `json:"paths"`
	TreePreview string    `json:"treePreview"`
	StackName   string    `json:"stackName,omitempty"`
}

// Stack is a user-named list of paths persisted in configuration.
type Stack struct {
	Name  string   `json:"name" yaml:"name" mapstructure:"name"`
	Paths []string `json:"paths" yaml:"paths" mapstructure:"paths"`
}

// Outcome summarizes a finished copy job.
type Outcome struct {
	Request    SelectionRequest
	Files      int
	Bytes      int64
	Tokens     int
	Duration   time.Duration
	Document   string
	Tree       string
	FinishedAt time.Time
}
